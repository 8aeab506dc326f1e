// Package conf provides configuration management for remoteaudio.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root of the configuration tree
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug mode

	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Audio     AudioSettings        `yaml:"audio"`
	Heartbeat HeartbeatSettings    `yaml:"heartbeat"`
	WebServer WebServerSettings    `yaml:"webserver"`
	Telemetry TelemetrySettings    `yaml:"telemetry"`
}

// AudioSettings are the stream parameters used by the play and record commands
type AudioSettings struct {
	SampleRate int     `yaml:"samplerate"` // frames per second, within the device range
	Format     string  `yaml:"format"`     // sample format name, e.g. "s16le", "float32le"
	Layout     string  `yaml:"layout"`     // channel layout name, e.g. "Stereo"
	Latency    float64 `yaml:"latency"`    // requested software latency in seconds, 0 for device default
	Tone       float64 `yaml:"tone"`       // test tone frequency in Hz
}

// HeartbeatSettings configure the UDP presence receiver
type HeartbeatSettings struct {
	Enabled            bool          `yaml:"enabled"`            // false disables the diagnostic channel entirely
	Listen             string        `yaml:"listen"`             // host:port the receiver binds to
	Freshness          time.Duration `yaml:"freshness"`          // peer is alive if seen within this window
	DiagnosticInterval time.Duration `yaml:"diagnosticinterval"` // minimum spacing of diagnostic sends, 0 for every period
	PeerTTL            time.Duration `yaml:"peerttl"`            // how long peers stay in the recent-peer table
}

// WebServerSettings configure the optional status endpoint
type WebServerSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// TelemetrySettings configure optional error reporting
type TelemetrySettings struct {
	SentryDSN string `yaml:"sentry_dsn" mapstructure:"sentry_dsn"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings, err := unmarshalSettings()
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Reload re-reads viper state, typically after command-line flags were bound.
func Reload() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := unmarshalSettings()
	if err != nil {
		return nil, err
	}
	*settingsInstance = *settings
	return settingsInstance, nil
}

func unmarshalSettings() (*Settings, error) {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("REMOTEAUDIO")
	viper.AutomaticEnv()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing file,
// not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// write to a temporary file first so the replace is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "replace-config").
			Build()
	}
	return nil
}
