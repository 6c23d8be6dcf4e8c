package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// Scanner wires the walker, the worker pool and the result sink together.
type Scanner struct {
	set   *PatternSet
	stats *AppStats
}

func NewScanner(set *PatternSet, stats *AppStats) *Scanner {
	if stats == nil {
		stats = &AppStats{}
	}
	return &Scanner{set: set, stats: stats}
}

// Scan is the main pipeline. The calling goroutine walks opts.TargetDir and
// feeds the work queue; opts.Workers workers scan candidates and forward
// findings to sink. Scan returns once the sink has drained everything, with
// ctx.Err() if the run was cancelled.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions, sink *ResultSink) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	opts.Prepare()

	pool, err := ants.NewPool(opts.Workers, ants.WithPanicHandler(func(v any) {
		logrus.Errorf("worker panic: %v", v)
	}))
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	defer pool.Release()

	work := make(chan Candidate, opts.QueueSize)
	results := make(chan Finding, opts.QueueSize)
	diags := make(chan error, opts.QueueSize)

	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		sink.Run(results, diags)
	}()

	var wg sync.WaitGroup
	// results and diags are closed only after every worker has returned.
	shutdown := func() {
		close(work)
		wg.Wait()
		close(results)
		close(diags)
		<-sinkDone
	}

	for i := 0; i < opts.Workers; i++ {
		fsc := NewFileScanner(s.set, opts.MaxTextLength, func(err error) { diags <- err })
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			s.runWorker(ctx, fsc, work, results)
		}); err != nil {
			wg.Done()
			shutdown()
			return fmt.Errorf("start worker %d: %w", i, err)
		}
	}

	for c := range Walk(ctx, opts.TargetDir, opts) {
		if !s.enqueue(ctx, work, c) {
			break
		}
	}
	shutdown()

	logrus.WithFields(logrus.Fields{
		"found":     s.stats.FilesFound.Load(),
		"processed": s.stats.FilesProcessed.Load(),
		"findings":  s.stats.Findings.Load(),
		"errors":    s.stats.Errors.Load(),
	}).Debug("scan pipeline drained")
	return ctx.Err()
}

// enqueue blocks until c is queued or ctx is cancelled. Only queued
// candidates count as found.
func (s *Scanner) enqueue(ctx context.Context, work chan<- Candidate, c Candidate) bool {
	select {
	case work <- c:
		s.stats.FilesFound.Add(1)
		return true
	case <-ctx.Done():
		return false
	}
}

// runWorker receives candidates until the work queue is closed and drained or
// ctx is cancelled.
func (s *Scanner) runWorker(ctx context.Context, fsc *FileScanner, work <-chan Candidate, results chan<- Finding) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-work:
			if !ok {
				return
			}
			for _, f := range fsc.Scan(ctx, c) {
				results <- f
			}
			s.stats.FilesProcessed.Add(1)
		}
	}
}
