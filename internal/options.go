package internal

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	DefaultWorkers       = 8
	DefaultMaxTextLength = 100
	DefaultQueueSize     = 2048
	DefaultExtension     = ".py"
)

var (
	ErrTargetDirRequired = errors.New("target-dir is required")
	ErrInvalidWorkers    = errors.New("workers-amount must be positive")
)

// ScanOptions - run parameters from CLI and config file.
type ScanOptions struct {
	TargetDir     string
	Workers       int
	MaxTextLength int
	QueueSize     int
	Extensions    []string
	Exclude       []string
	Depth         int
	Archives      bool
}

// Validate checks invariants.
func (o *ScanOptions) Validate() error {
	if o.TargetDir == "" {
		return ErrTargetDirRequired
	}
	if o.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if o.MaxTextLength < 0 {
		return errors.New("maximum-text-length must not be negative")
	}
	for _, g := range o.Exclude {
		if !doublestar.ValidatePattern(g) {
			return errors.New("invalid exclude glob: " + g)
		}
	}
	return nil
}

// Prepare normalizes extensions and fills defaults.
func (o *ScanOptions) Prepare() {
	o.Extensions = normExts(o.Extensions)
	if len(o.Extensions) == 0 {
		o.Extensions = []string{DefaultExtension}
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
}

// normExts splits comma separated values and ensures a leading dot.
func normExts(s []string) []string {
	out := make([]string, 0, len(s))
	for _, ext := range s {
		for _, v := range strings.Split(ext, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			out = append(out, "."+strings.TrimPrefix(v, "."))
		}
	}
	return out
}

func (o *ScanOptions) matchesExt(name string) bool {
	for _, ext := range o.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (o *ScanOptions) excluded(rel string) bool {
	for _, g := range o.Exclude {
		if matchGlob(g, rel) {
			return true
		}
	}
	return false
}
