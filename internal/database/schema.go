package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	JobQueued    string = "QUEUED"
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

type ConversionRun struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Status string `gorm:"size:20;not null"`

	SourceDir string
	OutputDir string

	ShardSize    int
	TotalSamples int
	TotalShards  int

	RecordCount  int `gorm:"default:0"`
	SkippedCount int `gorm:"default:0"`

	CreationTime   time.Time
	CompletionTime sql.NullTime

	Shards []ShardEntry `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

type ShardEntry struct {
	RunId      uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShardIndex int       `gorm:"primaryKey"`

	Status string `gorm:"size:20;not null"`

	StartOffset int
	Count       int

	RecordCount  int `gorm:"default:0"`
	SkippedCount int `gorm:"default:0"`

	CompletionTime sql.NullTime
}
