package shards

import (
	"archive/tar"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"webshard/internal/dataset"
	"webshard/internal/npz"
)

// ShardStats summarizes one written shard.
type ShardStats struct {
	Records int
	Skipped int
}

// ShardFileName returns the archive name for a shard index. Naming is a pure
// function of the index, so names are stable and collision-free within a run.
func ShardFileName(shardIndex int) string {
	return fmt.Sprintf("shard-%05d.tar", shardIndex)
}

// RecordKey returns the key for the sample at local position j within its
// shard. Keys are derived from the position in the input slice, not from the
// count of emitted records, so skipped samples leave a gap rather than
// renumbering later keys.
func RecordKey(j int) string {
	return fmt.Sprintf("sample%06d", j)
}

// WriteShard serializes one shard's samples into a tar archive in dir.
// Samples with non-finite input features are skipped with a diagnostic. The
// archive is written to a temp file and renamed on close, so the named shard
// only ever exists fully flushed.
func WriteShard(dir string, shardIndex int, samples []dataset.Sample) (ShardStats, error) {
	path := filepath.Join(dir, ShardFileName(shardIndex))
	tmp := path + ".tmp"

	stats, err := writeShardFile(tmp, shardIndex, samples)
	if err != nil {
		os.Remove(tmp)
		return stats, err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return stats, fmt.Errorf("failed to commit shard %s: %w", path, err)
	}
	return stats, nil
}

func writeShardFile(path string, shardIndex int, samples []dataset.Sample) (ShardStats, error) {
	var stats ShardStats

	f, err := os.Create(path)
	if err != nil {
		return stats, fmt.Errorf("failed to create shard file %s: %w", path, err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)

	for j, sample := range samples {
		key := RecordKey(j)

		if !FiniteFeatures(sample.InputFeatures) {
			slog.Warn("skipping sample with NaN or Inf in input_features", "key", key, "shard_index", shardIndex)
			stats.Skipped++
			continue
		}

		var inputBuf, labelBuf bytes.Buffer
		if err := npz.EncodeNPZ(&inputBuf, "input_features", sample.InputFeatures); err != nil {
			return stats, fmt.Errorf("failed to encode input features for %s: %w", key, err)
		}
		if err := npz.EncodeNPZ(&labelBuf, "labels", sample.Labels); err != nil {
			return stats, fmt.Errorf("failed to encode labels for %s: %w", key, err)
		}

		if err := writeMember(tw, key+".input.npz", inputBuf.Bytes()); err != nil {
			return stats, err
		}
		if err := writeMember(tw, key+".labels.npz", labelBuf.Bytes()); err != nil {
			return stats, err
		}

		stats.Records++
	}

	if err := tw.Close(); err != nil {
		return stats, fmt.Errorf("failed to finalize shard %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return stats, fmt.Errorf("failed to close shard %s: %w", path, err)
	}
	return stats, nil
}

func writeMember(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now().UTC(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write tar member %s: %w", name, err)
	}
	return nil
}
