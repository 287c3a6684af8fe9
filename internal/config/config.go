package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Location describes one monitored area: where to search and for what.
type Location struct {
	Name        string   `yaml:"name"`
	Icon        string   `yaml:"icon"`
	Location    string   `yaml:"location"` // "City, ST"
	Radius      int      `yaml:"radius"`   // miles
	SearchTerms []string `yaml:"search_terms"`
}

// Config is the static configuration document for the bot.
type Config struct {
	ChannelID     string     `yaml:"channel_id"`
	PostDay       string     `yaml:"post_day"`
	PostTime      string     `yaml:"post_time"` // "HH:MM"
	Timezone      string     `yaml:"timezone"`
	Database      string     `yaml:"database"`
	StatusListen  string     `yaml:"status_listen"`  // empty disables the status server
	RetentionDays *int       `yaml:"retention_days"` // 0 disables stale-action purging
	Header        string     `yaml:"header"`
	Locations     []Location `yaml:"locations"`

	// Token is read from the DISCORD_TOKEN environment variable, never
	// from the config file.
	Token string `yaml:"-"`
}

const defaultRetentionDays = 30

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads and validates the YAML configuration at path and resolves the
// Discord credential from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Token = strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	if cfg.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PostDay == "" {
		c.PostDay = "Monday"
	}
	if c.PostTime == "" {
		c.PostTime = "09:30"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Denver"
	}
	if c.Database == "" {
		c.Database = "meetupradar.db"
	}
	if c.RetentionDays == nil {
		days := defaultRetentionDays
		c.RetentionDays = &days
	}
	if c.Header == "" {
		c.Header = "# 🎉 Upcoming Events 🎉\n\n**This Week's Events:**"
	}
	for i := range c.Locations {
		if c.Locations[i].Icon == "" {
			c.Locations[i].Icon = "🎉"
		}
		if c.Locations[i].Radius <= 0 {
			c.Locations[i].Radius = 25
		}
	}
}

func (c *Config) validate() error {
	if c.ChannelID == "" {
		return fmt.Errorf("channel_id must be set")
	}
	if _, ok := weekdays[strings.ToLower(c.PostDay)]; !ok {
		return fmt.Errorf("post_day %q is not a weekday", c.PostDay)
	}
	if _, _, err := parseClock(c.PostTime); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if *c.RetentionDays < 0 {
		return fmt.Errorf("retention_days cannot be negative")
	}
	if len(c.Locations) == 0 {
		return fmt.Errorf("at least one location must be configured")
	}
	for _, loc := range c.Locations {
		if loc.Name == "" {
			return fmt.Errorf("every location needs a name")
		}
		if !strings.Contains(loc.Location, ",") {
			return fmt.Errorf("location %q: location must be \"City, ST\", got %q", loc.Name, loc.Location)
		}
		if len(loc.SearchTerms) == 0 {
			return fmt.Errorf("location %q: search_terms must not be empty", loc.Name)
		}
	}
	return nil
}

// Weekday returns the configured post day as a time.Weekday.
func (c *Config) Weekday() time.Weekday {
	return weekdays[strings.ToLower(c.PostDay)]
}

// Clock returns the configured post time as hour and minute.
func (c *Config) Clock() (hour, minute int) {
	hour, minute, _ = parseClock(c.PostTime)
	return hour, minute
}

// Retention returns the stale-action retention window in days. Zero
// disables purging; an absent key means the default window.
func (c *Config) Retention() int {
	if c.RetentionDays == nil {
		return defaultRetentionDays
	}
	return *c.RetentionDays
}

// TZ returns the configured timezone. Config validation guarantees it loads.
func (c *Config) TZ() *time.Location {
	loc, _ := time.LoadLocation(c.Timezone)
	return loc
}

func parseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("post_time %q must be HH:MM: %w", raw, err)
	}
	return t.Hour(), t.Minute(), nil
}
