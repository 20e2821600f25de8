package shards

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webshard/internal/database"
	"webshard/internal/dataset"
	"webshard/internal/npz"
)

func makeDataset(n int) *dataset.Dataset {
	samples := make([]dataset.Sample, n)
	for i := range samples {
		samples[i] = dataset.Sample{
			InputFeatures: npz.Array{Shape: []int{2}, Data: []float64{float64(i), 0.5}},
			Labels:        npz.Array{Shape: []int{1}, Data: []float64{float64(i)}},
		}
	}
	return dataset.New(samples)
}

func TestConverterRun(t *testing.T) {
	dir := t.TempDir()
	ds := makeDataset(25)

	tasks, err := PlanShards(ds.Len(), 10, 0)
	require.NoError(t, err)

	conv := &Converter{OutputDir: dir, NumProc: 4}
	stats, err := conv.Run(context.Background(), ds, tasks)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalShards)
	assert.Equal(t, 25, stats.Records)
	assert.Equal(t, 0, stats.Skipped)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "shard-00000.tar", entries[0].Name())
	assert.Equal(t, "shard-00001.tar", entries[1].Name())
	assert.Equal(t, "shard-00002.tar", entries[2].Name())
}

func TestConverterShardContentsIndependentOfScheduling(t *testing.T) {
	ds := makeDataset(40)
	tasks, err := PlanShards(ds.Len(), 10, 0)
	require.NoError(t, err)

	serialDir := t.TempDir()
	serial := &Converter{OutputDir: serialDir, NumProc: 1}
	_, err = serial.Run(context.Background(), ds, tasks)
	require.NoError(t, err)

	parallelDir := t.TempDir()
	parallel := &Converter{OutputDir: parallelDir, NumProc: 8}
	_, err = parallel.Run(context.Background(), ds, tasks)
	require.NoError(t, err)

	for _, task := range tasks {
		name := ShardFileName(task.ShardIndex)
		a := readTarMembers(t, filepath.Join(serialDir, name))
		b := readTarMembers(t, filepath.Join(parallelDir, name))
		require.Equal(t, len(a), len(b), "shard %s", name)
		for member, data := range a {
			require.Contains(t, b, member)

			// Tar headers carry timestamps, so compare the decoded arrays.
			wantInput, errA := npz.DecodeNPZ(data, "input_features")
			if errA == nil {
				gotInput, err := npz.DecodeNPZ(b[member], "input_features")
				require.NoError(t, err)
				assert.Equal(t, wantInput, gotInput)
			}
		}
	}
}

func TestConverterSkippedSamplesAccounting(t *testing.T) {
	samples := make([]dataset.Sample, 20)
	for i := range samples {
		v := float64(i)
		if i%5 == 0 {
			v = math.NaN()
		}
		samples[i] = dataset.Sample{
			InputFeatures: npz.Array{Shape: []int{1}, Data: []float64{v}},
			Labels:        npz.Array{Shape: []int{1}, Data: []float64{0}},
		}
	}
	ds := dataset.New(samples)

	tasks, err := PlanShards(ds.Len(), 7, 0)
	require.NoError(t, err)

	conv := &Converter{OutputDir: t.TempDir(), NumProc: 3}
	stats, err := conv.Run(context.Background(), ds, tasks)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Skipped)
	assert.Equal(t, 20, stats.Records+stats.Skipped)
}

func TestConverterEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	conv := &Converter{OutputDir: dir, NumProc: 2}

	stats, err := conv.Run(context.Background(), dataset.New(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, RunStats{}, stats)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConverterOutputDirCreationFailure(t *testing.T) {
	// A regular file where the output directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), os.ModePerm))

	conv := &Converter{OutputDir: blocker, NumProc: 2}
	_, err := conv.Run(context.Background(), makeDataset(5), []ShardTask{{ShardIndex: 0, StartOffset: 0, Count: 5}})
	require.Error(t, err)
}

func TestConverterShardStartIdxAppendsToPriorRun(t *testing.T) {
	dir := t.TempDir()
	ds := makeDataset(10)

	first, err := PlanShards(ds.Len(), 5, 0)
	require.NoError(t, err)
	conv := &Converter{OutputDir: dir, NumProc: 2}
	_, err = conv.Run(context.Background(), ds, first)
	require.NoError(t, err)

	second, err := PlanShards(ds.Len(), 5, 2)
	require.NoError(t, err)
	_, err = conv.Run(context.Background(), ds, second)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "shard-00003.tar", entries[3].Name())
}

func TestConverterRecordsLedger(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	ds := makeDataset(12)
	tasks, err := PlanShards(ds.Len(), 5, 0)
	require.NoError(t, err)

	runId := uuid.New()
	run := database.ConversionRun{
		Id:           runId,
		OutputDir:    t.TempDir(),
		ShardSize:    5,
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
	require.NoError(t, database.CreateRun(context.Background(), db, &run))

	conv := &Converter{OutputDir: run.OutputDir, NumProc: 2, DB: db, RunId: runId}
	stats, err := conv.Run(context.Background(), ds, tasks)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Records)

	var entries []database.ShardEntry
	require.NoError(t, db.Find(&entries, "run_id = ?", runId).Error)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, database.JobCompleted, entry.Status)
	}
}
