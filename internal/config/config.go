package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is everything the server reads from the environment. A .env file
// loaded in main can supply these in development.
type Config struct {
	Port        int
	DatabaseURL string // empty disables snapshot persistence

	SnapshotInterval time.Duration

	MinPlayers     int
	MaxPlayers     int
	Countdown      time.Duration
	GameDuration   time.Duration
	WaitingRemoval time.Duration
	PlayingGrace   time.Duration
}

// FromEnv reads configuration with defaults applied for anything unset.
func FromEnv() Config {
	return Config{
		Port:             envInt("PORT", 8080),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SnapshotInterval: envDuration("SNAPSHOT_INTERVAL", 15*time.Second),
		MinPlayers:       envInt("MIN_PLAYERS", 2),
		MaxPlayers:       envInt("MAX_PLAYERS", 6),
		Countdown:        envDuration("COUNTDOWN", 3*time.Second),
		GameDuration:     envDuration("GAME_DURATION", 30*time.Second),
		WaitingRemoval:   envDuration("WAITING_REMOVAL", 10*time.Second),
		PlayingGrace:     envDuration("PLAYING_GRACE", 60*time.Second),
	}
}

// Validate reports malformed configuration before anything is wired up.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MinPlayers < 2 {
		return errors.New("MIN_PLAYERS must be at least 2")
	}
	if c.MaxPlayers < c.MinPlayers {
		return errors.New("MAX_PLAYERS must be >= MIN_PLAYERS")
	}
	if c.Countdown <= 0 {
		return errors.New("COUNTDOWN must be positive")
	}
	if c.GameDuration <= 0 {
		return errors.New("GAME_DURATION must be positive")
	}
	if c.WaitingRemoval <= 0 || c.PlayingGrace <= 0 {
		return errors.New("removal windows must be positive")
	}
	return nil
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
