package shards

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"gorm.io/gorm"

	"webshard/internal/database"
	"webshard/internal/dataset"
)

// Converter fans shard tasks out across a fixed pool of workers. Each task is
// processed start-to-finish by a single worker, so workers never contend on a
// shard file. Shard contents depend only on the dataset and the task
// parameters, never on completion order.
type Converter struct {
	OutputDir string
	NumProc   int

	// DB is the optional run ledger; RunId identifies this run's rows.
	DB    *gorm.DB
	RunId uuid.UUID
}

// RunStats aggregates the results of all completed shard tasks.
type RunStats struct {
	TotalShards int
	Records     int
	Skipped     int
}

type shardResult struct {
	task  ShardTask
	stats ShardStats
	err   error
}

// Run executes every task exactly once and blocks until all dispatched tasks
// have reported. The first task failure stops dispatch and fails the run;
// tasks are never retried.
func (c *Converter) Run(ctx context.Context, ds *dataset.Dataset, tasks []ShardTask) (RunStats, error) {
	stats := RunStats{TotalShards: len(tasks)}

	if err := os.MkdirAll(c.OutputDir, os.ModePerm); err != nil {
		return stats, fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
	}

	if len(tasks) == 0 {
		slog.Info("no shard tasks to process")
		return stats, nil
	}

	numProc := c.NumProc
	if numProc <= 0 {
		numProc = runtime.NumCPU()
		slog.Info("worker count not specified, defaulting to CPU count", "num_proc", numProc)
	}

	bar := progressbar.NewOptions(len(tasks),
		progressbar.OptionSetDescription("processing shards"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	taskCh := make(chan ShardTask)
	results := make(chan shardResult, len(tasks))

	var failed atomic.Bool

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			if failed.Load() {
				return
			}
			taskCh <- task
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < numProc; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if failed.Load() {
					continue
				}

				shardStats, err := c.runTask(ctx, ds, task)
				if err != nil {
					failed.Store(true)
				} else {
					_ = bar.Add(1)
				}
				results <- shardResult{task: task, stats: shardStats, err: err}
			}
		}()
	}

	wg.Wait()
	close(results)

	var firstErr error
	completed := 0
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("shard %d failed: %w", res.task.ShardIndex, res.err)
			}
			continue
		}
		completed++
		stats.Records += res.stats.Records
		stats.Skipped += res.stats.Skipped
	}

	if firstErr != nil {
		return stats, firstErr
	}

	slog.Info("all shard tasks completed", "shards", completed, "records", stats.Records, "skipped", stats.Skipped)

	return stats, nil
}

func (c *Converter) runTask(ctx context.Context, ds *dataset.Dataset, task ShardTask) (ShardStats, error) {
	if c.DB != nil {
		database.UpdateShardStatus(ctx, c.DB, c.RunId, task.ShardIndex, database.JobRunning) //nolint:errcheck
	}

	samples := ds.Slice(task.StartOffset, task.StartOffset+task.Count)

	stats, err := WriteShard(c.OutputDir, task.ShardIndex, samples)
	if err != nil {
		if c.DB != nil {
			database.UpdateShardStatus(ctx, c.DB, c.RunId, task.ShardIndex, database.JobFailed) //nolint:errcheck
		}
		return stats, err
	}

	if c.DB != nil {
		database.FinishShard(ctx, c.DB, c.RunId, task.ShardIndex, stats.Records, stats.Skipped) //nolint:errcheck
	}
	return stats, nil
}
