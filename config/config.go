// Package config reads server settings from the environment. Values from a
// .env file are picked up when main loads it with godotenv first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GameAddr string
	Port     string

	Rows         int
	Snacks       int
	TickInterval time.Duration
	ChatTTL      time.Duration
	RSABits      int

	AcceptRate       float64
	AcceptBurst      int
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
}

func Default() Config {
	return Config{
		GameAddr:         ":5555",
		Port:             "8080",
		Rows:             20,
		Snacks:           1,
		TickInterval:     200 * time.Millisecond,
		ChatTTL:          5 * time.Second,
		RSABits:          2048,
		AcceptRate:       1,
		AcceptBurst:      5,
		HandshakeTimeout: 10 * time.Second,
		IdleTimeout:      60 * time.Second,
	}
}

// LoadEnvFiles loads the given .env files (".env" when none) into the process
// environment. A missing file is not an error.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load starts from Default and overrides every field that has its variable set.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("GAME_ADDR", &cfg.GameAddr)
	str("PORT", &cfg.Port)
	integer("ROWS", &cfg.Rows)
	integer("SNACKS", &cfg.Snacks)
	duration("TICK_INTERVAL", &cfg.TickInterval)
	duration("CHAT_TTL", &cfg.ChatTTL)
	integer("RSA_BITS", &cfg.RSABits)
	float("ACCEPT_RATE", &cfg.AcceptRate)
	integer("ACCEPT_BURST", &cfg.AcceptBurst)
	duration("HANDSHAKE_TIMEOUT", &cfg.HandshakeTimeout)
	duration("IDLE_TIMEOUT", &cfg.IdleTimeout)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Rows < 4 {
		errs = append(errs, fmt.Errorf("ROWS must be at least 4, got %d", c.Rows))
	}
	if c.Snacks < 0 || c.Snacks >= c.Rows*c.Rows {
		errs = append(errs, fmt.Errorf("SNACKS out of range: %d", c.Snacks))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.ChatTTL <= 0 {
		errs = append(errs, fmt.Errorf("CHAT_TTL must be positive, got %s", c.ChatTTL))
	}
	if c.RSABits < 2048 {
		errs = append(errs, fmt.Errorf("RSA_BITS must be at least 2048, got %d", c.RSABits))
	}
	if c.AcceptRate < 0 || c.AcceptBurst < 0 {
		errs = append(errs, errors.New("ACCEPT_RATE and ACCEPT_BURST must not be negative"))
	}
	if c.HandshakeTimeout < 0 || c.IdleTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
