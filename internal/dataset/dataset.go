package dataset

import (
	"math/rand"

	"webshard/internal/npz"
)

// Sample is one unit of training data. Samples are never mutated after they
// are read from a partition.
type Sample struct {
	InputFeatures npz.Array
	Labels        npz.Array
}

// Dataset is an in-memory, indexable collection of samples supporting
// random-access slicing by contiguous index range.
type Dataset struct {
	samples []Sample
}

func New(samples []Sample) *Dataset {
	return &Dataset{samples: samples}
}

func (d *Dataset) Len() int {
	return len(d.samples)
}

// Slice returns the samples in [start, end). The returned slice shares the
// dataset's backing array; callers must treat it as read-only.
func (d *Dataset) Slice(start, end int) []Sample {
	return d.samples[start:end]
}

// Shuffle permutes the dataset in place with a seeded Fisher-Yates so that
// the sample order is reproducible for a given seed.
func (d *Dataset) Shuffle(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(d.samples), func(i, j int) {
		d.samples[i], d.samples[j] = d.samples[j], d.samples[i]
	})
}
