package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the given .env files. When called
// with no arguments it loads the default .env from the current working
// directory. Files are applied in order and later files take precedence over
// earlier ones, which makes layered configuration (base + override) possible.
//
// Example:
//
//	if err := config.LoadEnv("config/.env", "config/.env.local"); err != nil {
//		log.Fatalf("loading env: %v", err)
//	}
func LoadEnv(filenames ...string) error {
	if err := godotenv.Overload(filenames...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics if any of the files cannot be
// loaded. Useful during application bootstrap where a missing env file is
// unrecoverable.
func MustLoadEnv(filenames ...string) {
	if err := LoadEnv(filenames...); err != nil {
		panic(fmt.Sprintf("Failed to load environment files: %v", err))
	}
}

// ResetCache clears all cached configuration values. Primarily intended for
// tests that mutate the process environment between cases.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
}

// ForceReloadConfig re-parses environment variables into the provided struct,
// bypassing and replacing any cached copy of its type. Use it after the
// process environment has changed.
func ForceReloadConfig[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	typeName := getTypeName[T]()

	globalCache.mu.Lock()
	globalCache.values[typeName] = *v
	globalCache.onces[typeName] = new(sync.Once)
	globalCache.mu.Unlock()

	return nil
}
