package types

import "time"

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// CheckResult is the outcome of a single verification check. Results are
// produced transiently and reported, never persisted.
type CheckResult struct {
	Name   string
	Status string
	Detail string
}

// TableStats summarizes one table. If TotalRows is zero both record
// timestamps are nil, never a zero-time sentinel.
type TableStats struct {
	TotalRows    int64
	OldestRecord *time.Time
	NewestRecord *time.Time
}

// SeedExpectation names a reference table that must be pre-populated.
type SeedExpectation struct {
	Table   string `yaml:"table"`
	MinRows int64  `yaml:"minRows"`
}
