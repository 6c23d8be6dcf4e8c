package internal

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const statsInterval = 500 * time.Millisecond

// ResultSink is the single consumer of findings and diagnostics. It writes
// them in arrival order.
type ResultSink struct {
	out   io.Writer
	stats *AppStats
}

func NewResultSink(out io.Writer, stats *AppStats) *ResultSink {
	if stats == nil {
		stats = &AppStats{}
	}
	return &ResultSink{out: out, stats: stats}
}

// Run drains both channels until they are closed.
func (s *ResultSink) Run(findings <-chan Finding, diags <-chan error) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for findings != nil || diags != nil {
		select {
		case f, ok := <-findings:
			if !ok {
				findings = nil
				continue
			}
			s.stats.Findings.Add(1)
			s.write(FormatFinding(f))
		case err, ok := <-diags:
			if !ok {
				diags = nil
				continue
			}
			s.stats.Errors.Add(1)
			s.write(FormatDiagnostic(err))
		case <-ticker.C:
			logrus.Debugf("Stats: found=%d processed=%d findings=%d errors=%d",
				s.stats.FilesFound.Load(), s.stats.FilesProcessed.Load(),
				s.stats.Findings.Load(), s.stats.Errors.Load())
		}
	}
}

func (s *ResultSink) write(line string) {
	if _, err := io.WriteString(s.out, line+"\n"); err != nil {
		logrus.WithError(err).Error("write report")
	}
}

// FormatFinding renders f in the report line format.
func FormatFinding(f Finding) string {
	return fmt.Sprintf("%d found. File: %s, line: %d, text: %s", f.PatternID, f.Path, f.Line, f.Text)
}

// FormatDiagnostic renders a per-file error.
func FormatDiagnostic(err error) string {
	return "ERROR: " + err.Error()
}
