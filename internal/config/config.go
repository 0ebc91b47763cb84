// Package config loads the clinicd settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port            string
	Doctors         []string
	ArrivalsEnabled bool
	ArrivalPeriod   time.Duration
	ArrivalDelay    time.Duration
	TimeScale       float64
	LogLevel        zerolog.Level
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Port:            "8080",
		Doctors:         []string{"Dr. Joshua", "Dr. Diego", "Dr. Angel"},
		ArrivalsEnabled: true,
		ArrivalPeriod:   3 * time.Second,
		ArrivalDelay:    2 * time.Second,
		TimeScale:       1,
		LogLevel:        zerolog.InfoLevel,
	}
}

// Load reads the given .env files (".env" when none are given) and then the
// process environment. Missing files are not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading env file: %w", err)
		}
		log.Warn().Msg(".env file not found, relying on environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a [Config] from a lookup function, falling back to
// [Default] for every empty variable.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		cfg.Port = v
	}

	if v := getenv("DOCTORS"); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return Config{}, fmt.Errorf("DOCTORS: no doctor names in %q", v)
		}
		cfg.Doctors = names
	}

	if v := getenv("ARRIVALS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("ARRIVALS_ENABLED: %w", err)
		}
		cfg.ArrivalsEnabled = enabled
	}

	if v := getenv("ARRIVAL_PERIOD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("ARRIVAL_PERIOD: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("ARRIVAL_PERIOD: must be positive, got %s", d)
		}
		cfg.ArrivalPeriod = d
	}

	if v := getenv("ARRIVAL_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("ARRIVAL_DELAY: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("ARRIVAL_DELAY: must not be negative, got %s", d)
		}
		cfg.ArrivalDelay = d
	}

	if v := getenv("TIME_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("TIME_SCALE: %w", err)
		}
		if f <= 0 {
			return Config{}, fmt.Errorf("TIME_SCALE: must be positive, got %g", f)
		}
		cfg.TimeScale = f
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}
