// config.go: settings struct and functions to load and save the Aerolabel settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aerolabel/aerolabel-go/internal/errors"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to log file
}

// MainSettings contains main application settings.
type MainSettings struct {
	Name string    // name of this node, can be used to identify the source of labels
	Log  LogConfig // main log settings
}

// IntakeSettings describes where not-yet-labeled images arrive and where
// committed images are archived.
type IntakeSettings struct {
	ImagesDir  string   // holding area for newly arrived images
	LabeledDir string   // archive destination for committed images
	DataDir    string   // optional directory with reference data files
	Extensions []string // accepted image file extensions
}

// InferenceSettings points at the external scoring service.
type InferenceSettings struct {
	URL     string        // base URL of the inference service
	Timeout time.Duration // per-call timeout
}

// ClassifierSettings configures the two classification axes.
type ClassifierSettings struct {
	TypeAxis    string // label set for the aircraft type axis
	AirlineAxis string // label set for the airline axis
}

// OCRSettings configures registration text recognition.
type OCRSettings struct {
	Enabled bool
}

// QualitySettings configures image quality assessment.
type QualitySettings struct {
	Enabled bool
}

// NoveltySettings configures new-class candidate detection.
type NoveltySettings struct {
	Enabled    bool
	Eps        float64 // neighborhood radius for density clustering
	MinSamples int     // minimum neighborhood size for a core point
}

// ThresholdSettings holds the confidence thresholds used by review triage.
type ThresholdSettings struct {
	AutoApprove float64 // both classification confidences must reach this for auto approval
}

// LockSettings configures the collaborative image locks.
type LockSettings struct {
	TTL time.Duration // lock time-to-live before it is considered abandoned
}

// OutputSettings contains settings for the durable store.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   // true to enable sqlite output
		Path    string // path to sqlite database
	}
	MySQL struct {
		Enabled  bool   // true to enable mysql output
		Username string // username for mysql database
		Password string // password for mysql database
		Database string // database name for mysql database
		Host     string // host for mysql database
		Port     string // port for mysql database
	}
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug mode

	Main       MainSettings
	Intake     IntakeSettings
	Inference  InferenceSettings
	Classifier ClassifierSettings
	OCR        OCRSettings
	Quality    QualitySettings
	Novelty    NoveltySettings
	Thresholds ThresholdSettings
	Locks      LockSettings
	Output     OutputSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config file with the default settings to the
// first default config path, so a fresh install has a file to edit.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := SaveYAMLConfig(configPath, settings); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetSettings replaces the current settings instance; used by tests.
func SetSettings(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = settings
}

// GetDefaultConfigPaths returns the config file search paths for the
// current operating system.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "aerolabel-go"),
		}
	default:
		configPaths = []string{
			".",
			filepath.Join(homeDir, ".config", "aerolabel-go"),
			"/etc/aerolabel-go",
		}
	}

	return configPaths, nil
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first to ensure an atomic replace
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
