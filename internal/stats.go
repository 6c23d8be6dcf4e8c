package internal

import (
	"sync/atomic"
	"time"
)

// AppStats atomic counters for totals. Counters are only reported, never used
// to coordinate the pipeline.
type AppStats struct {
	start          time.Time
	FilesFound     atomic.Int64
	FilesProcessed atomic.Int64
	Findings       atomic.Int64
	Errors         atomic.Int64
}

func (s *AppStats) Start() {
	s.start = time.Now()
}

func (s *AppStats) Elapsed() time.Duration {
	return time.Since(s.start)
}
