package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the loaded configuration is usable. Values that
// only matter for optional subsystems (analytics, Redis URL) are not required.
func ValidateConfig(cfg *Config) error {
	var errs []string

	if cfg.ServerPort == "" {
		errs = append(errs, ValidationError{"SERVER_PORT", "must not be empty"}.Error())
	}
	if cfg.DBHost == "" {
		errs = append(errs, ValidationError{"DB_HOST", "must not be empty"}.Error())
	}
	if cfg.DBName == "" {
		errs = append(errs, ValidationError{"DB_NAME", "must not be empty"}.Error())
	}
	if cfg.QueueSize <= 0 {
		errs = append(errs, ValidationError{"QUEUE_SIZE", "must be positive"}.Error())
	}
	if cfg.MaxConcurrent <= 0 {
		errs = append(errs, ValidationError{"MAX_CONCURRENT_GENERATIONS", "must be positive"}.Error())
	}
	if IsProduction() && cfg.LLMAPIKey == "" {
		errs = append(errs, ValidationError{"LLM_API_KEY", "required in production"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
