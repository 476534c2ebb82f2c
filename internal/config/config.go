// Package config loads and validates the application configuration.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Refresh interval bounds in minutes. The Strava API allows 100 requests
// per 15 minutes; polling faster than every 2 minutes risks the limit for
// no benefit.
const (
	MinRefreshMinutes     = 2
	MaxRefreshMinutes     = 60
	DefaultRefreshMinutes = 5
)

// Heart rate zone thresholds outside this range are assumed to be typos.
const (
	minHeartRate = 50
	maxHeartRate = 250
)

// Config holds the full application configuration.
type Config struct {
	Strava         StravaConfig   `yaml:"strava" mapstructure:"strava"`
	RefreshMinutes int            `yaml:"refresh_minutes" mapstructure:"refresh_minutes"`
	MarkersFile    string         `yaml:"markers_file" mapstructure:"markers_file"`
	HRZones        map[string]int `yaml:"hr_zones" mapstructure:"hr_zones"`
	Geo            GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Store          StoreConfig    `yaml:"store" mapstructure:"store"`
	Log            LogConfig      `yaml:"log" mapstructure:"log"`
}

// StravaConfig holds API credentials and client behavior.
type StravaConfig struct {
	ClientID        int    `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret    string `yaml:"client_secret" mapstructure:"client_secret"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	RecentCount     int    `yaml:"recent_count" mapstructure:"recent_count"`
}

// GeoConfig selects the containment-matching implementation.
type GeoConfig struct {
	// Evaluator is "auto", "packed" or "reference".
	Evaluator string `yaml:"evaluator" mapstructure:"evaluator"`
}

// StoreConfig configures the seen-activity store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and STRAVATAG_-prefixed
// environment variables, then validates it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STRAVATAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("refresh_minutes", DefaultRefreshMinutes)
	v.SetDefault("markers_file", "markers.yaml")
	v.SetDefault("strava.credentials_file", "credentials.json")
	v.SetDefault("strava.recent_count", 5)
	v.SetDefault("geo.evaluator", "auto")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks credential shape, polling bounds and heart rate zones.
func (c *Config) Validate() error {
	if c.Strava.ClientID <= 0 {
		return eris.New("config: strava.client_id must be a positive integer")
	}
	if err := validateClientSecret(c.Strava.ClientSecret); err != nil {
		return err
	}
	if c.RefreshMinutes < MinRefreshMinutes || c.RefreshMinutes > MaxRefreshMinutes {
		return eris.Errorf("config: refresh_minutes must be in [%d, %d]", MinRefreshMinutes, MaxRefreshMinutes)
	}
	if c.Strava.RecentCount <= 0 {
		return eris.New("config: strava.recent_count must be positive")
	}
	if len(c.HRZones) > 0 {
		if err := validateHRZones(c.HRZones); err != nil {
			return err
		}
	}
	return nil
}

// validateClientSecret requires a non-empty lowercase hex string: the
// secret is case-sensitive and Strava issues it in lowercase, so anything
// else is a transcription mistake.
func validateClientSecret(secret string) error {
	if secret == "" {
		return eris.New("config: strava.client_secret must not be empty")
	}
	for _, r := range secret {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			if r >= 'A' && r <= 'F' {
				return eris.New("config: strava.client_secret must be fully lowercase")
			}
			return eris.New("config: strava.client_secret must be hexadecimal")
		}
	}
	return nil
}

// validateHRZones requires all five zones with thresholds ascending by
// zone.
func validateHRZones(zones map[string]int) error {
	thresholds := make([]int, 5)
	seen := 0
	for zone, threshold := range zones {
		if len(zone) != 1 || zone[0] < '1' || zone[0] > '5' {
			return eris.Errorf("config: hr_zones keys must be 1 to 5, got %q", zone)
		}
		if threshold < minHeartRate || threshold > maxHeartRate {
			return eris.Errorf("config: hr_zones[%s]=%d is not a sensible heart rate", zone, threshold)
		}
		thresholds[zone[0]-'1'] = threshold
		seen++
	}
	if seen != 5 {
		return eris.New("config: all heart rate zones 1 to 5 must be provided")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return eris.New("config: heart rate thresholds must increase with the zone")
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
