package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"webshard/internal/config"
	"webshard/internal/database"
	"webshard/internal/dataset"
	"webshard/internal/shards"
	"webshard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flag.StringVar(&cfg.SourceDir, "source", cfg.SourceDir, "root directory containing preprocessed dataset partitions")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory to save tar shards")
	flag.IntVar(&cfg.ShardSize, "shard-size", cfg.ShardSize, "number of samples per shard")
	flag.IntVar(&cfg.NumProc, "num-proc", cfg.NumProc, "number of parallel shard workers")
	flag.IntVar(&cfg.ShardStartIdx, "shard-start-idx", cfg.ShardStartIdx, "starting index for shard naming")
	flag.Parse()

	if cfg.SourceDir == "" {
		log.Fatal("source directory is required (-source or SOURCE_DIR)")
	}
	if cfg.ShardSize <= 0 {
		log.Fatalf("shard size must be positive, got %d", cfg.ShardSize)
	}
	if cfg.ShardStartIdx < 0 {
		log.Fatalf("shard start index must be non-negative, got %d", cfg.ShardStartIdx)
	}

	ctx := context.Background()

	slog.Info("loading datasets", "dir", cfg.SourceDir)
	ds, err := dataset.LoadPartitions(cfg.SourceDir)
	if err != nil {
		slog.Error("error loading datasets", "error", err)
		os.Exit(1)
	}

	slog.Info("shuffling dataset", "seed", cfg.ShuffleSeed)
	ds.Shuffle(cfg.ShuffleSeed)

	slog.Info("total samples in dataset", "count", ds.Len())

	tasks, err := shards.PlanShards(ds.Len(), cfg.ShardSize, cfg.ShardStartIdx)
	if err != nil {
		log.Fatalf("Failed to plan shards: %v", err)
	}

	runId := uuid.New()

	var db *gorm.DB
	if cfg.LedgerPath != "" {
		db, err = database.NewDatabase(cfg.LedgerPath)
		if err != nil {
			log.Fatalf("Failed to open run ledger: %v", err)
		}

		run := database.ConversionRun{
			Id:           runId,
			SourceDir:    cfg.SourceDir,
			OutputDir:    cfg.OutputDir,
			ShardSize:    cfg.ShardSize,
			TotalSamples: ds.Len(),
			TotalShards:  len(tasks),
		}
		for _, task := range tasks {
			run.Shards = append(run.Shards, database.ShardEntry{
				RunId:       runId,
				ShardIndex:  task.ShardIndex,
				Status:      database.JobQueued,
				StartOffset: task.StartOffset,
				Count:       task.Count,
			})
		}
		if err := database.CreateRun(ctx, db, &run); err != nil {
			log.Fatalf("Failed to record run in ledger: %v", err)
		}
		database.UpdateRunStatus(ctx, db, runId, database.JobRunning) //nolint:errcheck
	}

	conv := &shards.Converter{
		OutputDir: cfg.OutputDir,
		NumProc:   cfg.NumProc,
		DB:        db,
		RunId:     runId,
	}

	stats, err := conv.Run(ctx, ds, tasks)
	if err != nil {
		if db != nil {
			database.FinalizeRun(ctx, db, runId, database.JobFailed, stats.Records, stats.Skipped) //nolint:errcheck
		}
		slog.Error("shard conversion failed", "run_id", runId, "error", err)
		os.Exit(1)
	}

	if db != nil {
		database.FinalizeRun(ctx, db, runId, database.JobCompleted, stats.Records, stats.Skipped) //nolint:errcheck
	}

	slog.Info("shard conversion complete",
		"run_id", runId,
		"shards", stats.TotalShards,
		"records", stats.Records,
		"skipped", stats.Skipped,
		"output_dir", cfg.OutputDir,
	)

	if cfg.UploadBucket != "" {
		if err := uploadShards(ctx, cfg, runId); err != nil {
			slog.Error("failed to upload shards", "bucket", cfg.UploadBucket, "error", err)
			os.Exit(1)
		}
	}
}

func uploadShards(ctx context.Context, cfg *config.Config, runId uuid.UUID) error {
	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return err
	}

	if err := store.CreateBucket(ctx, cfg.UploadBucket); err != nil {
		return err
	}

	slog.Info("uploading shards", "bucket", cfg.UploadBucket, "prefix", runId.String())
	return store.UploadDir(ctx, cfg.UploadBucket, runId.String(), cfg.OutputDir)
}
