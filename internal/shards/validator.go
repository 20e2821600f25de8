package shards

import (
	"math"

	"webshard/internal/npz"
)

// FiniteFeatures reports whether every element of a sample's input features
// is finite. Labels are deliberately never inspected; non-finite labels pass
// through to the shard untouched.
func FiniteFeatures(a npz.Array) bool {
	for _, v := range a.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
