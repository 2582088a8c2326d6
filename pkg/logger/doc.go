// Package logger builds context-aware slog loggers for the service.
//
// New creates a *slog.Logger from functional options: output format (text
// for development, JSON for log aggregation), minimum level, static
// attributes, and ContextExtractor callbacks that inject request-scoped
// values (request id, user id) into every record. Attribute constructors
// in attr.go keep key naming consistent across the codebase.
//
// Example:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Environment, "tashkeel"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	logger.SetAsDefault(log)
package logger
