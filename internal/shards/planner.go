package shards

import "fmt"

// ShardTask is the unit of work assigned to one worker: a contiguous index
// range of the dataset plus the global index of the shard it produces.
type ShardTask struct {
	ShardIndex  int
	StartOffset int
	Count       int
}

// PlanShards partitions [0, totalSamples) into contiguous ranges of at most
// shardSize samples. Task i covers [i*shardSize, min((i+1)*shardSize, N)) and
// is assigned shard index shardStartIdx + i.
func PlanShards(totalSamples, shardSize, shardStartIdx int) ([]ShardTask, error) {
	if shardSize <= 0 {
		return nil, fmt.Errorf("shard size must be positive, got %d", shardSize)
	}
	if totalSamples < 0 {
		return nil, fmt.Errorf("total samples must be non-negative, got %d", totalSamples)
	}
	if shardStartIdx < 0 {
		return nil, fmt.Errorf("shard start index must be non-negative, got %d", shardStartIdx)
	}

	totalShards := (totalSamples + shardSize - 1) / shardSize

	tasks := make([]ShardTask, 0, totalShards)
	for i := 0; i < totalShards; i++ {
		start := i * shardSize
		count := shardSize
		if remaining := totalSamples - start; remaining < count {
			count = remaining
		}
		tasks = append(tasks, ShardTask{
			ShardIndex:  shardStartIdx + i,
			StartOffset: start,
			Count:       count,
		})
	}
	return tasks, nil
}
