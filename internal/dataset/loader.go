package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"webshard/internal/npz"
)

const (
	featuresFile = "input_features.npy"
	labelsFile   = "labels.npy"
	metadataFile = "partition.yaml"
)

// PartitionMeta is the optional metadata file stored alongside a partition's
// arrays.
type PartitionMeta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// LoadPartitions loads every partition subdirectory of dir and concatenates
// them into a single dataset. Each partition holds an input_features.npy and
// a labels.npy whose first axis is the sample axis.
func LoadPartitions(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", dir, err)
	}

	var samples []Sample
	partitions := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		partitionDir := filepath.Join(dir, entry.Name())
		partitionSamples, err := loadPartition(partitionDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load partition %s: %w", partitionDir, err)
		}

		samples = append(samples, partitionSamples...)
		partitions++
	}

	if partitions == 0 {
		return nil, fmt.Errorf("no dataset partitions found in %s", dir)
	}

	slog.Info("loaded dataset partitions", "dir", dir, "partitions", partitions, "samples", len(samples))

	return New(samples), nil
}

func loadPartition(dir string) ([]Sample, error) {
	meta := readMeta(dir)

	features, err := readNPYFile(filepath.Join(dir, featuresFile))
	if err != nil {
		return nil, err
	}
	labels, err := readNPYFile(filepath.Join(dir, labelsFile))
	if err != nil {
		return nil, err
	}

	featureRows, err := splitRows(features)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", featuresFile, err)
	}
	labelRows, err := splitRows(labels)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", labelsFile, err)
	}

	if len(featureRows) != len(labelRows) {
		return nil, fmt.Errorf("partition has %d feature rows but %d label rows", len(featureRows), len(labelRows))
	}

	samples := make([]Sample, len(featureRows))
	for i := range featureRows {
		samples[i] = Sample{InputFeatures: featureRows[i], Labels: labelRows[i]}
	}

	slog.Info("loaded partition", "dir", dir, "name", meta.Name, "samples", len(samples))

	return samples, nil
}

func readMeta(dir string) PartitionMeta {
	meta := PartitionMeta{Name: filepath.Base(dir)}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return meta
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		slog.Warn("ignoring malformed partition metadata", "dir", dir, "error", err)
	}
	return meta
}

func readNPYFile(path string) (npz.Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return npz.Array{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	arr, err := npz.DecodeNPY(f)
	if err != nil {
		return npz.Array{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return arr, nil
}

// splitRows slices a along its first axis into one array per sample.
func splitRows(a npz.Array) ([]npz.Array, error) {
	if len(a.Shape) == 0 {
		return nil, fmt.Errorf("array has no sample axis")
	}

	count := a.Shape[0]
	rowShape := append([]int(nil), a.Shape[1:]...)
	rowLen := npz.NumElements(rowShape)

	rows := make([]npz.Array, count)
	for i := 0; i < count; i++ {
		rows[i] = npz.Array{
			Shape: rowShape,
			Data:  a.Data[i*rowLen : (i+1)*rowLen],
		}
	}
	return rows, nil
}
