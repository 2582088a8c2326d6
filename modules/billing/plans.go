package billing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Money is a monetary amount in the smallest currency unit.
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// ProPlan describes the paid tier.
type ProPlan struct {
	Price     Money `yaml:"price"`
	TermDays  int   `yaml:"term_days"`  // length of one paid term
	GraceDays int   `yaml:"grace_days"` // pro access retained after expiry
}

// FreePlan describes the free tier.
type FreePlan struct {
	DailyLimit int `yaml:"daily_limit"` // annotations per day
}

// Catalog holds the plan configuration shared by the reconciler, the
// sweeper and the usage guard.
type Catalog struct {
	Pro  ProPlan  `yaml:"pro"`
	Free FreePlan `yaml:"free"`
}

// DefaultCatalog returns the built-in plan configuration: a 30-day pro term
// with a 7-day grace window and ten free annotations per day.
func DefaultCatalog() Catalog {
	return Catalog{
		Pro: ProPlan{
			Price:     Money{Amount: 99000, Currency: "IDR"},
			TermDays:  30,
			GraceDays: 7,
		},
		Free: FreePlan{DailyLimit: 10},
	}
}

// LoadCatalog reads a plan catalog from a YAML file. Missing fields fall
// back to the defaults; invalid values fail loading so misconfiguration
// stops startup instead of corrupting subscription terms.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, errors.Join(ErrFailedToLoadPlans, err)
	}

	catalog := DefaultCatalog()
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, errors.Join(ErrFailedToLoadPlans, err)
	}

	if err := catalog.validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

func (c Catalog) validate() error {
	if c.Pro.TermDays <= 0 {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("pro term must be positive, got %d days", c.Pro.TermDays))
	}
	if c.Pro.GraceDays < 0 {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("grace period cannot be negative, got %d days", c.Pro.GraceDays))
	}
	if c.Free.DailyLimit < 0 {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("free daily limit cannot be negative, got %d", c.Free.DailyLimit))
	}
	return nil
}
