package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"snake-server/constants"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all engine tuning, fixed at process start.
type Config struct {
	GridWidth    int
	GridHeight   int
	TickInterval time.Duration
	MaxSessions  int
	FoodCount    int

	// QueueDepth bounds each subscriber's outbound snapshot queue.
	QueueDepth int

	// HeartbeatTimeout ends sessions with no inbound heartbeat for this
	// long. Zero disables the check.
	HeartbeatTimeout time.Duration

	// IdleShutdownTicks terminates the loop after this many consecutive
	// ticks with zero sessions. Zero keeps the loop running forever.
	IdleShutdownTicks int

	// Seed for food and spawn placement. Zero means seed from the clock.
	Seed int64
}

func Default() Config {
	return Config{
		GridWidth:        constants.DEFAULT_GRID_WIDTH,
		GridHeight:       constants.DEFAULT_GRID_HEIGHT,
		TickInterval:     constants.DEFAULT_TICK_RATE,
		MaxSessions:      constants.DEFAULT_MAX_SESSIONS,
		FoodCount:        constants.DEFAULT_FOOD_COUNT,
		QueueDepth:       constants.DEFAULT_QUEUE_DEPTH,
		HeartbeatTimeout: constants.DEFAULT_HEARTBEAT_TIMEOUT,
	}
}

// FromEnv builds a Config from SNAKE_* environment variables, falling back
// to defaults for anything unset.
func FromEnv() (Config, error) {
	cfg := Default()

	var err error
	if cfg.GridWidth, err = intFromEnv("SNAKE_GRID_WIDTH", cfg.GridWidth); err != nil {
		return cfg, err
	}
	if cfg.GridHeight, err = intFromEnv("SNAKE_GRID_HEIGHT", cfg.GridHeight); err != nil {
		return cfg, err
	}
	if cfg.MaxSessions, err = intFromEnv("SNAKE_MAX_SESSIONS", cfg.MaxSessions); err != nil {
		return cfg, err
	}
	if cfg.FoodCount, err = intFromEnv("SNAKE_FOOD_COUNT", cfg.FoodCount); err != nil {
		return cfg, err
	}
	if cfg.QueueDepth, err = intFromEnv("SNAKE_QUEUE_DEPTH", cfg.QueueDepth); err != nil {
		return cfg, err
	}
	if cfg.IdleShutdownTicks, err = intFromEnv("SNAKE_IDLE_SHUTDOWN_TICKS", cfg.IdleShutdownTicks); err != nil {
		return cfg, err
	}
	if cfg.TickInterval, err = durationFromEnv("SNAKE_TICK_INTERVAL", cfg.TickInterval); err != nil {
		return cfg, err
	}
	if cfg.HeartbeatTimeout, err = durationFromEnv("SNAKE_HEARTBEAT_TIMEOUT", cfg.HeartbeatTimeout); err != nil {
		return cfg, err
	}
	if raw := os.Getenv("SNAKE_SEED"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: SNAKE_SEED: %v", ErrInvalidConfig, err)
		}
		cfg.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.GridWidth < 4 || c.GridHeight < 4 {
		return fmt.Errorf("%w: grid must be at least 4x4, got %dx%d", ErrInvalidConfig, c.GridWidth, c.GridHeight)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidConfig, c.TickInterval)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("%w: max sessions must be at least 1, got %d", ErrInvalidConfig, c.MaxSessions)
	}
	if c.FoodCount < 0 {
		return fmt.Errorf("%w: food count must not be negative, got %d", ErrInvalidConfig, c.FoodCount)
	}
	if c.FoodCount >= c.GridWidth*c.GridHeight {
		return fmt.Errorf("%w: food count %d does not fit a %dx%d grid", ErrInvalidConfig, c.FoodCount, c.GridWidth, c.GridHeight)
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("%w: queue depth must be at least 1, got %d", ErrInvalidConfig, c.QueueDepth)
	}
	if c.HeartbeatTimeout < 0 || c.IdleShutdownTicks < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return v, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return v, nil
}
