package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meetupradar/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
channel_id: "123456789"
locations:
  - name: Denver
    location: "Denver, CO"
    search_terms: [ai, golang]
`

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	path := writeConfig(t, minimalConfig)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "123456789", cfg.ChannelID)
	require.Equal(t, "test-token", cfg.Token)
	require.Equal(t, time.Monday, cfg.Weekday())
	hour, minute := cfg.Clock()
	require.Equal(t, 9, hour)
	require.Equal(t, 30, minute)
	require.Equal(t, "America/Denver", cfg.TZ().String())
	require.Equal(t, "meetupradar.db", cfg.Database)
	require.Equal(t, 30, cfg.Retention())
	require.Len(t, cfg.Locations, 1)
	require.Equal(t, "🎉", cfg.Locations[0].Icon)
	require.Equal(t, 25, cfg.Locations[0].Radius)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	path := writeConfig(t, `
channel_id: "42"
post_day: Friday
post_time: "18:15"
timezone: Europe/Berlin
database: /tmp/radar.db
retention_days: 7
locations:
  - name: Boulder
    icon: "🏔️"
    location: "Boulder, CO"
    radius: 50
    search_terms: [rust]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, time.Friday, cfg.Weekday())
	hour, minute := cfg.Clock()
	require.Equal(t, 18, hour)
	require.Equal(t, 15, minute)
	require.Equal(t, "Europe/Berlin", cfg.TZ().String())
	require.Equal(t, "/tmp/radar.db", cfg.Database)
	require.Equal(t, 7, cfg.Retention())
	require.Equal(t, "🏔️", cfg.Locations[0].Icon)
	require.Equal(t, 50, cfg.Locations[0].Radius)
}

func TestLoadZeroRetentionDisablesPurge(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	path := writeConfig(t, minimalConfig+"retention_days: 0\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Retention())
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	path := writeConfig(t, minimalConfig)

	_, err := config.Load(path)
	require.ErrorContains(t, err, "DISCORD_TOKEN")
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing channel",
			body:    "locations:\n  - name: X\n    location: \"A, B\"\n    search_terms: [a]\n",
			wantErr: "channel_id",
		},
		{
			name:    "bad weekday",
			body:    "channel_id: \"1\"\npost_day: Someday\nlocations:\n  - name: X\n    location: \"A, B\"\n    search_terms: [a]\n",
			wantErr: "post_day",
		},
		{
			name:    "bad time",
			body:    "channel_id: \"1\"\npost_time: \"25:99\"\nlocations:\n  - name: X\n    location: \"A, B\"\n    search_terms: [a]\n",
			wantErr: "post_time",
		},
		{
			name:    "bad timezone",
			body:    "channel_id: \"1\"\ntimezone: Mars/Olympus\nlocations:\n  - name: X\n    location: \"A, B\"\n    search_terms: [a]\n",
			wantErr: "timezone",
		},
		{
			name:    "negative retention",
			body:    "channel_id: \"1\"\nretention_days: -1\nlocations:\n  - name: X\n    location: \"A, B\"\n    search_terms: [a]\n",
			wantErr: "retention_days",
		},
		{
			name:    "no locations",
			body:    "channel_id: \"1\"\n",
			wantErr: "at least one location",
		},
		{
			name:    "bad location string",
			body:    "channel_id: \"1\"\nlocations:\n  - name: X\n    location: Denver\n    search_terms: [a]\n",
			wantErr: "City, ST",
		},
		{
			name:    "no search terms",
			body:    "channel_id: \"1\"\nlocations:\n  - name: X\n    location: \"Denver, CO\"\n",
			wantErr: "search_terms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			_, err := config.Load(path)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
