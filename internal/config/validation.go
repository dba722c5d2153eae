package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/signal-backtest/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("datetime", validateDateTime)
	_ = v.RegisterValidation("timeframe", validateTimeframe)
	_ = v.RegisterValidation("marketsource", validateMarketSource)
	_ = v.RegisterValidation("allocation", validateAllocation)
	_ = v.RegisterValidation("indicatormode", validateIndicatorMode)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateDateTime validates date strings against the tag parameter layout
func validateDateTime(fl validator.FieldLevel) bool {
	layout := fl.Param()
	if layout == "" {
		layout = DateLayout
	}
	_, err := time.Parse(layout, fl.Field().String())
	return err == nil
}

func validateTimeframe(fl validator.FieldLevel) bool {
	return models.IsValidTimeframe(fl.Field().String())
}

func validateMarketSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "synthetic", "historical", "csv":
		return true
	default:
		return false
	}
}

func validateAllocation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "shared", "per_symbol":
		return true
	default:
		return false
	}
}

func validateIndicatorMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "simplified", "standard":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	start, end, err := cfg.Backtest.DateRange()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("backtest start_date must be before end_date")
	}

	switch cfg.MarketData.Source {
	case "historical":
		if cfg.MarketData.BaseURL == "" {
			return fmt.Errorf("market_data.base_url is required for the historical source")
		}
	case "csv":
		if cfg.MarketData.CSVDir == "" {
			return fmt.Errorf("market_data.csv_dir is required for the csv source")
		}
	}

	if cfg.Database.Enabled {
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Database.MinConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("min_connections cannot exceed max_connections")
		}
	}

	if cfg.Scheduler.Enabled {
		if len(cfg.Scheduler.Jobs) == 0 {
			return fmt.Errorf("scheduler is enabled but no jobs are configured")
		}
		seen := make(map[string]bool, len(cfg.Scheduler.Jobs))
		for _, job := range cfg.Scheduler.Jobs {
			if seen[job.Name] {
				return fmt.Errorf("duplicate scheduler job name %q", job.Name)
			}
			seen[job.Name] = true
			if _, err := cron.ParseStandard(job.Cron); err != nil {
				return fmt.Errorf("scheduler job %q has invalid cron expression: %w", job.Name, err)
			}
			if job.Persist && !cfg.Database.Enabled {
				return fmt.Errorf("scheduler job %q persists results but the database is disabled", job.Name)
			}
		}
	}

	ids := make(map[string]bool, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		if ids[s.ID] {
			return fmt.Errorf("duplicate strategy id %q", s.ID)
		}
		ids[s.ID] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&errMsg, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max", "len":
			fmt.Fprintf(&errMsg, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&errMsg, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "datetime":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a date formatted as YYYY-MM-DD, got '%v'\n", field, value)
		case "timeframe":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: 1m, 5m, 15m, 30m, 1h, 4h, 1d\n", field)
		case "marketsource":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: synthetic, historical, csv\n", field)
		case "allocation":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: shared, per_symbol\n", field)
		case "indicatormode":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: simplified, standard\n", field)
		case "oneof":
			fmt.Fprintf(&errMsg, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&errMsg, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg.String())
}
