// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first if present; real environment
// variables win over it.
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
	"go.uber.org/multierr"
)

type Config struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	RoomIdleTimeout time.Duration
	OutboxSize      int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	AllowedOrigins  []string
	DeckSeed        int64
	MaxPlayers      int
	ShutdownTimeout time.Duration
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		RoomIdleTimeout: 10 * time.Minute,
		OutboxSize:      64,
		PingInterval:    25 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxMessageBytes: 8192,
		MaxPlayers:      8,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, starting from Default. Every bad
// value is reported, not just the first.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s: want a positive integer, got %q", key, v))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s: want a positive duration, got %q", key, v))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &c.Addr)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	dur("ROOM_IDLE_TIMEOUT", &c.RoomIdleTimeout)
	num("OUTBOX_SIZE", &c.OutboxSize)
	dur("PING_INTERVAL", &c.PingInterval)
	dur("WRITE_TIMEOUT", &c.WriteTimeout)
	num("MAX_PLAYERS", &c.MaxPlayers)
	dur("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)

	var maxBytes int
	num("MAX_MESSAGE_BYTES", &maxBytes)
	if maxBytes > 0 {
		c.MaxMessageBytes = int64(maxBytes)
	}

	if v, ok := lookup("DECK_SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("DECK_SEED: want an integer, got %q", v))
		} else {
			c.DeckSeed = seed
		}
	}

	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("LOG_FORMAT: want json or console, got %q", c.LogFormat))
	}
	if c.MaxPlayers < 2 || c.MaxPlayers > 8 {
		errs = multierr.Append(errs, fmt.Errorf("MAX_PLAYERS: want 2..8, got %d", c.MaxPlayers))
	}

	if errs != nil {
		return Config{}, errs
	}
	return c, nil
}
