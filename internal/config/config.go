// Package config loads runtime settings from configs/config.yml, an optional
// .env file, and GARDEN_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const envPrefix = "GARDEN"

type Config struct {
	Port       string
	LogLevel   string
	LogFormat  string
	DBPath     string
	Simulation Simulation
	Notify     Notify
}

type Simulation struct {
	Schedule     string
	CycleTimeout time.Duration
	Location     *time.Location
	// Workers bounds how many zones are simulated at once.
	Workers      int
}

// Notify configures the Kafka insight publisher. No brokers disables it.
type Notify struct {
	Brokers []string
	Topic   string
}

func (n Notify) Enabled() bool { return len(n.Brokers) > 0 }

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "garden.db")
	v.SetDefault("simulation.schedule", "*/5 * * * *")
	v.SetDefault("simulation.cycle_timeout", "4m")
	v.SetDefault("simulation.timezone", "Local")
	v.SetDefault("simulation.workers", 4)
	v.SetDefault("notify.brokers", "")
	v.SetDefault("notify.topic", "garden.insights")
}

// Load reads config.yml from dir. A missing file or .env is not an error;
// defaults apply.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:      v.GetString("port"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		DBPath:    v.GetString("db.path"),
		Simulation: Simulation{
			Schedule:     strings.TrimSpace(v.GetString("simulation.schedule")),
			CycleTimeout: v.GetDuration("simulation.cycle_timeout"),
			Workers:      v.GetInt("simulation.workers"),
		},
		Notify: Notify{
			Brokers: splitList(v.Get("notify.brokers")),
			Topic:   strings.TrimSpace(v.GetString("notify.topic")),
		},
	}

	loc, err := loadLocation(v.GetString("simulation.timezone"))
	if err != nil {
		return nil, err
	}
	cfg.Simulation.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the runner cannot work with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db.path must not be empty")
	}
	if _, err := cron.ParseStandard(c.Simulation.Schedule); err != nil {
		return fmt.Errorf("simulation.schedule %q: %w", c.Simulation.Schedule, err)
	}
	if c.Simulation.CycleTimeout <= 0 {
		return fmt.Errorf("simulation.cycle_timeout must be positive, got %s", c.Simulation.CycleTimeout)
	}
	if c.Simulation.Workers < 1 {
		return fmt.Errorf("simulation.workers must be at least 1, got %d", c.Simulation.Workers)
	}
	if c.Notify.Enabled() && c.Notify.Topic == "" {
		return errors.New("notify.topic is required when brokers are set")
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("simulation.timezone %q: %w", name, err)
	}
	return loc, nil
}

// splitList accepts a YAML list or a comma separated string (env form).
func splitList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	case []string:
		parts = val
	case string:
		parts = strings.Split(val, ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
