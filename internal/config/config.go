// Package config loads labeltool settings from labeltool.yaml, LABELTOOL_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labeltool/internal/polyedit"
)

// Settings holds the labeltool configuration.
type Settings struct {
	Session SessionSettings `mapstructure:"session"`
	Brush   BrushSettings   `mapstructure:"brush"`
	Assist  AssistSettings  `mapstructure:"assist"`
	Store   StoreSettings   `mapstructure:"store"`
}

// SessionSettings configures object id minting.
type SessionSettings struct {
	IDPrefix string `mapstructure:"idprefix"` // empty picks a random prefix per image
}

// BrushSettings configures the polygon brush.
type BrushSettings struct {
	Radius    float64 `mapstructure:"radius"`
	Segments  int     `mapstructure:"segments"`
	WheelRate float64 `mapstructure:"wheelrate"`
	KeyRate   float64 `mapstructure:"keyrate"`
	MinRadius float64 `mapstructure:"minradius"`
}

// AssistSettings configures assisted region requests.
type AssistSettings struct {
	PollInterval time.Duration `mapstructure:"pollinterval"` // zero disables polling
}

// StoreSettings configures label persistence.
type StoreSettings struct {
	Dir       string        `mapstructure:"dir"`
	SaveDelay time.Duration `mapstructure:"savedelay"`
}

// setDefaults registers the default value of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("session.idprefix", "")

	v.SetDefault("brush.radius", 10.0)
	v.SetDefault("brush.segments", 12)
	v.SetDefault("brush.wheelrate", 0.025)
	v.SetDefault("brush.keyrate", 2.0)
	v.SetDefault("brush.minradius", 1.0)

	v.SetDefault("assist.pollinterval", time.Duration(0))

	v.SetDefault("store.dir", "")
	v.SetDefault("store.savedelay", time.Second)
}

// New returns a viper instance with defaults, search paths and environment
// bindings set up. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("labeltool")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "labeltool"))
	}

	v.SetEnvPrefix("LABELTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file into v and returns the settings. An
// explicit configFile must exist; a missing searched-for file is not an
// error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks the settings for values the tools cannot work with.
func (s *Settings) Validate() error {
	b := s.Brush
	switch {
	case b.MinRadius <= 0:
		return fmt.Errorf("brush.minradius must be positive, got %v", b.MinRadius)
	case b.Radius < b.MinRadius:
		return fmt.Errorf("brush.radius %v is below brush.minradius %v", b.Radius, b.MinRadius)
	case b.Segments < 3:
		return fmt.Errorf("brush.segments must be at least 3, got %d", b.Segments)
	case s.Assist.PollInterval < 0:
		return fmt.Errorf("assist.pollinterval must not be negative, got %v", s.Assist.PollInterval)
	case s.Store.SaveDelay < 0:
		return fmt.Errorf("store.savedelay must not be negative, got %v", s.Store.SaveDelay)
	}
	return nil
}

// EditSettings converts the brush settings for the polygon editing tools.
func (s *Settings) EditSettings() polyedit.Settings {
	return polyedit.Settings{
		BrushRadius:   s.Brush.Radius,
		BrushSegments: s.Brush.Segments,
		WheelRate:     s.Brush.WheelRate,
		KeyRate:       s.Brush.KeyRate,
		MinRadius:     s.Brush.MinRadius,
	}
}
