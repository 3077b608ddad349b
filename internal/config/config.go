// Package config loads server settings from PRESETS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string // PRESETS_DATABASE_URL (required)
	GRPCAddr    string // PRESETS_GRPC_ADDR (default ":9090")
	HTTPAddr    string // PRESETS_HTTP_ADDR (default ":8080")
	NATSURL     string // PRESETS_NATS_URL (optional, empty = no events)

	// Identity
	JWTSecret string // PRESETS_JWT_SECRET (optional, empty = trust X-User-ID header)

	// Reaction rate limiting
	RedisURL     string // PRESETS_REDIS_URL (optional, empty = no limit)
	ReactionRate int    // PRESETS_REACTION_RATE (toggles per user per minute, default 60)

	// Count drift reconciliation
	ReconcileInterval time.Duration // PRESETS_RECONCILE_INTERVAL (default 0 = disabled)
	ReconcileRepair   bool          // PRESETS_RECONCILE_REPAIR (default false = report only)

	// Export settings
	ExportInterval   time.Duration // PRESETS_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        // PRESETS_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // PRESETS_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // PRESETS_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // PRESETS_EXPORT_S3_KEY (default "presets/export.jsonl")
	ExportGitRepo    string        // PRESETS_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string        // PRESETS_EXPORT_GIT_FILE (default "presets.jsonl")
	ExportGitBranch  string        // PRESETS_EXPORT_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("PRESETS_DATABASE_URL"),
		GRPCAddr:         envOrDefault("PRESETS_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("PRESETS_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("PRESETS_NATS_URL"),
		JWTSecret:        os.Getenv("PRESETS_JWT_SECRET"),
		RedisURL:         os.Getenv("PRESETS_REDIS_URL"),
		ExportS3Bucket:   os.Getenv("PRESETS_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("PRESETS_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("PRESETS_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("PRESETS_EXPORT_S3_KEY", "presets/export.jsonl"),
		ExportGitRepo:    os.Getenv("PRESETS_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("PRESETS_EXPORT_GIT_FILE", "presets.jsonl"),
		ExportGitBranch:  envOrDefault("PRESETS_EXPORT_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("PRESETS_DATABASE_URL is required")
	}

	rate, err := strconv.Atoi(envOrDefault("PRESETS_REACTION_RATE", "60"))
	if err != nil || rate < 0 {
		return nil, fmt.Errorf("PRESETS_REACTION_RATE: must be a non-negative integer")
	}
	c.ReactionRate = rate

	if c.ReconcileInterval, err = envDuration("PRESETS_RECONCILE_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	if c.ExportInterval, err = envDuration("PRESETS_EXPORT_INTERVAL", "0s"); err != nil {
		return nil, err
	}

	if v := os.Getenv("PRESETS_RECONCILE_REPAIR"); v != "" {
		repair, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PRESETS_RECONCILE_REPAIR: %w", err)
		}
		c.ReconcileRepair = repair
	}

	return c, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
