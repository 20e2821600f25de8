package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	SourceDir     string `env:"SOURCE_DIR"`
	OutputDir     string `env:"OUTPUT_DIR" envDefault:"./webdataset-hi"`
	ShardSize     int    `env:"SHARD_SIZE" envDefault:"1000"`
	NumProc       int    `env:"NUM_PROC" envDefault:"8"`
	ShardStartIdx int    `env:"SHARD_START_IDX" envDefault:"0"`
	ShuffleSeed   int64  `env:"SHUFFLE_SEED" envDefault:"42"`

	// LedgerPath enables the sqlite run ledger when set.
	LedgerPath string `env:"LEDGER_PATH"`

	// UploadBucket enables uploading the output directory to S3 when set.
	UploadBucket      string `env:"UPLOAD_BUCKET"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, continuing with environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}

	if cfg.S3EndpointURL != "" && (cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "") {
		log.Println("Warning: S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing.")
	}

	return &cfg, nil
}
