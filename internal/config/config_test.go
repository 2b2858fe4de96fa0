package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 2, cfg.MinPlayers)
	require.Equal(t, 6, cfg.MaxPlayers)
	require.Equal(t, 3*time.Second, cfg.Countdown)
	require.Equal(t, 30*time.Second, cfg.GameDuration)
	require.Equal(t, 10*time.Second, cfg.WaitingRemoval)
	require.Equal(t, 60*time.Second, cfg.PlayingGrace)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_PLAYERS", "4")
	t.Setenv("COUNTDOWN", "5s")
	t.Setenv("GAME_DURATION", "2m")

	cfg := FromEnv()
	require.Equal(t, 9999, cfg.Port)
	require.Equal(t, 4, cfg.MaxPlayers)
	require.Equal(t, 5*time.Second, cfg.Countdown)
	require.Equal(t, 2*time.Minute, cfg.GameDuration)
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("COUNTDOWN", "soon")

	cfg := FromEnv()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 3*time.Second, cfg.Countdown)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"min below two", func(c *Config) { c.MinPlayers = 1 }, true},
		{"max below min", func(c *Config) { c.MaxPlayers = 1 }, true},
		{"zero countdown", func(c *Config) { c.Countdown = 0 }, true},
		{"zero duration", func(c *Config) { c.GameDuration = 0 }, true},
		{"zero grace", func(c *Config) { c.PlayingGrace = 0 }, true},
		{"bad port", func(c *Config) { c.Port = -1 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := FromEnv()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
