package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
	// MemoryStore runs against the in-process store instead of Postgres.
	// Meant for local play and demos; state is lost on exit.
	MemoryStore bool
	SeasonMode  string
	LockTTL     time.Duration
	ResponseTTL time.Duration
}

type WorkerConfig struct {
	DatabaseURL string
	SweepEvery  time.Duration
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL  string
	CommunityID string
	ActorID     string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("BODEGA_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MemoryStore: envBoolDefault("BODEGA_MEMORY_STORE", false),
		SeasonMode:  envSeasonModeDefault(),
		LockTTL:     envDurationDefault("BODEGA_LOCK_TTL", 30*time.Second),
		ResponseTTL: envDurationDefault("BODEGA_RESPONSE_TTL", 15*time.Minute),
	}
	if cfg.DatabaseURL == "" && !cfg.MemoryStore {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SweepEvery:  envDurationDefault("BODEGA_SWEEP_EVERY", 5*time.Minute),
		RunOnce:     envBoolDefault("BODEGA_SWEEP_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL:  strings.TrimRight(envDefault("BODEGA_API_BASE_URL", "http://localhost:8080"), "/"),
		CommunityID: envDefault("BODEGA_COMMUNITY", "local"),
		ActorID:     envDefault("BODEGA_ACTOR", "owner"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envSeasonModeDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("BODEGA_SEASON_MODE")))
	switch v {
	case "quarters", "rolling":
		return v
	default:
		return "quarters"
	}
}
