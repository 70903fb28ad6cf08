// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateIntakeSettings(&settings.Intake); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateThresholdSettings(&settings.Thresholds); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateNoveltySettings(&settings.Novelty); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLockSettings(&settings.Locks); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateIntakeSettings(settings *IntakeSettings) error {
	if settings.ImagesDir == "" {
		return fmt.Errorf("intake images directory must not be empty")
	}
	if settings.LabeledDir == "" {
		return fmt.Errorf("intake labeled directory must not be empty")
	}
	for _, ext := range settings.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("image extension %q must start with a dot", ext)
		}
	}
	return nil
}

func validateThresholdSettings(settings *ThresholdSettings) error {
	if settings.AutoApprove < 0 || settings.AutoApprove > 1 {
		return fmt.Errorf("auto-approve threshold must be between 0 and 1, got %f", settings.AutoApprove)
	}
	return nil
}

func validateNoveltySettings(settings *NoveltySettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Eps <= 0 {
		return fmt.Errorf("novelty eps must be positive, got %f", settings.Eps)
	}
	if settings.MinSamples < 1 {
		return fmt.Errorf("novelty minsamples must be at least 1, got %d", settings.MinSamples)
	}
	return nil
}

func validateLockSettings(settings *LockSettings) error {
	if settings.TTL <= 0 {
		return fmt.Errorf("lock TTL must be positive, got %s", settings.TTL)
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		return fmt.Errorf("at least one database output must be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return fmt.Errorf("sqlite path must not be empty when sqlite output is enabled")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Host == "" || settings.MySQL.Port == "" {
			return fmt.Errorf("mysql host and port must not be empty when mysql output is enabled")
		}
		if settings.MySQL.Database == "" {
			return fmt.Errorf("mysql database name must not be empty when mysql output is enabled")
		}
	}
	return nil
}
