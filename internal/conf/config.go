// config.go: settings struct and functions to load and save application settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to log file
}

// WebServerSettings contains settings for the HTTP API server.
type WebServerSettings struct {
	Debug     bool   // true to enable debug logging of requests
	Host      string // host address to bind to
	Port      string // port to listen on
	BodyLimit string // maximum request body size, e.g. "64M"
	Log       LogConfig
}

// AudioSettings contains tunables for the resample-and-repackage pipeline.
type AudioSettings struct {
	MinPlaybackRate   int     // minimum output rate for playback mode, Hz
	AliasingThreshold int     // rates below this are flagged as aliasing, Hz
	MinTargetRate     int     // lowest accepted target rate at the API boundary, Hz
	MaxTargetRate     int     // highest accepted target rate at the API boundary, Hz
	TargetRMS         float64 // loudness normalization target
	SoftClipKnee      float64 // soft clipper threshold
}

// SessionSettings controls the lifetime of uploaded datasets.
type SessionSettings struct {
	TTLMinutes     int // minutes an uploaded dataset is retained
	CleanupMinutes int // cache janitor interval
}

// ECGSettings contains ECG analysis defaults.
type ECGSettings struct {
	DefaultSamplingRate int    // Hz, used when the upload does not specify one
	ModelPath           string // path to rhythm classifier weights
}

// EEGSettings contains EEG analysis defaults.
type EEGSettings struct {
	DefaultSamplingRate int // Hz, used when the upload does not specify one
}

// Settings contains all application settings
type Settings struct {
	Debug bool // true to enable debug behavior globally

	Version   string `yaml:"-"` // build version, runtime value
	BuildDate string `yaml:"-"` // build date, runtime value

	Main struct {
		Name string // name of the running node
		Log  LogConfig
	}

	WebServer WebServerSettings
	Audio     AudioSettings
	Session   SessionSettings
	ECG       ECGSettings
	EEG       EEGSettings

	Input struct {
		Path       string `yaml:"-"` // audio file to analyze, runtime value
		TargetRate int    `yaml:"-"` // optional target rate for CLI analysis
		Output     string `yaml:"-"` // optional path to write repackaged audio
	} `yaml:"-"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the package singleton and returns it.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	initViper()

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults and reads an optional config file. A missing config
// file is not an error; defaults and environment variables apply.
func initViper() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, "siglab"))
	}
	viper.SetEnvPrefix("SIGLAB")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: error reading config file: %v\n", err)
		}
	}
}

// Setting returns the current settings instance, loading defaults if Load
// has not been called.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("failed to load settings: %v", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveAs writes the given settings to path as YAML.
func SaveAs(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing settings to %s: %w", path, err)
	}
	return nil
}
