package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateRun records a new conversion run along with one queued shard entry
// per planned shard.
func CreateRun(ctx context.Context, db *gorm.DB, run *ConversionRun) error {
	run.Status = JobQueued
	run.CreationTime = time.Now().UTC()

	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		slog.Error("error creating conversion run", "run_id", run.Id, "error", err)
		return fmt.Errorf("error creating conversion run: %w", err)
	}
	return nil
}

func UpdateRunStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&ConversionRun{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating run status", "run_id", runId, "status", status, "error", err)
		return err
	}
	return nil
}

func UpdateShardStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, shardIndex int, status string) error {
	updates := map[string]any{"status": status}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).
		Model(&ShardEntry{}).
		Where("run_id = ? AND shard_index = ?", runId, shardIndex).
		Updates(updates).Error; err != nil {
		slog.Error("error updating shard status", "run_id", runId, "shard_index", shardIndex, "status", status, "error", err)
		return err
	}
	return nil
}

// FinishShard marks a shard entry completed and records its record and
// skipped-sample counts.
func FinishShard(ctx context.Context, txn *gorm.DB, runId uuid.UUID, shardIndex, records, skipped int) error {
	if err := txn.WithContext(ctx).
		Model(&ShardEntry{}).
		Where("run_id = ? AND shard_index = ?", runId, shardIndex).
		Updates(map[string]any{
			"status":          JobCompleted,
			"record_count":    records,
			"skipped_count":   skipped,
			"completion_time": time.Now().UTC(),
		}).Error; err != nil {
		slog.Error("error finishing shard entry", "run_id", runId, "shard_index", shardIndex, "error", err)
		return err
	}
	return nil
}

// FinalizeRun records the run's terminal status and aggregate counts.
func FinalizeRun(ctx context.Context, txn *gorm.DB, runId uuid.UUID, status string, records, skipped int) error {
	if err := txn.WithContext(ctx).Model(&ConversionRun{Id: runId}).Updates(map[string]any{
		"status":          status,
		"record_count":    records,
		"skipped_count":   skipped,
		"completion_time": time.Now().UTC(),
	}).Error; err != nil {
		slog.Error("error finalizing run", "run_id", runId, "status", status, "error", err)
		return err
	}
	return nil
}
