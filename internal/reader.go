package internal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/mholt/archives"
	"github.com/sirupsen/logrus"
)

// maxArchiveEntryBytes caps how much of a single archive entry is buffered.
const maxArchiveEntryBytes = 64 << 20

// ScanError is a per-file diagnostic. It never aborts the run.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string { return e.Err.Error() }
func (e *ScanError) Unwrap() error { return e.Err }

// FileScanner runs every pattern over every line of one candidate at a time.
// One FileScanner belongs to one worker.
type FileScanner struct {
	patterns []Pattern
	matcher  *Matcher
	diag     func(error)
}

// NewFileScanner builds a scanner over set. diag receives open failures; it
// may be nil.
func NewFileScanner(set *PatternSet, maxTextLen int, diag func(error)) *FileScanner {
	if diag == nil {
		diag = func(error) {}
	}
	return &FileScanner{
		patterns: set.Patterns(),
		matcher:  NewMatcher(maxTextLen),
		diag:     diag,
	}
}

// Scan returns the findings for c. Open failures are reported through the
// diagnostic callback and yield no findings.
func (fs *FileScanner) Scan(ctx context.Context, c Candidate) []Finding {
	src, err := openCandidate(ctx, c)
	if err != nil {
		logrus.WithFields(logrus.Fields{"file": c.DisplayPath(), "err": err}).Debug("open failed")
		fs.diag(&ScanError{Path: c.DisplayPath(), Err: err})
		return nil
	}
	defer src.Close()
	return ScanReader(ctx, src, c.DisplayPath(), fs.patterns, fs.matcher)
}

// ScanReader rewinds r before each pattern and scans it line by line.
// Lines that are not valid UTF-8 are skipped but still numbered.
func ScanReader(ctx context.Context, r io.ReadSeeker, path string, patterns []Pattern, m *Matcher) []Finding {
	var out []Finding
	br := bufio.NewReaderSize(r, 64*1024)
	for _, p := range patterns {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			logrus.WithFields(logrus.Fields{"file": path, "err": err}).Debug("rewind failed")
			return out
		}
		br.Reset(r)
		lineNo := 0
		for {
			if ctx.Err() != nil {
				return out
			}
			b, err := br.ReadBytes('\n')
			if len(b) > 0 {
				lineNo++
				b = trimEOL(b)
				if utf8.Valid(b) {
					if f, ok := m.Match(p, lineNo, string(b)); ok {
						f.Path = path
						out = append(out, f)
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					logrus.WithFields(logrus.Fields{"file": path, "err": err}).Debug("read failed")
				}
				break
			}
		}
	}
	return out
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// openCandidate returns a seekable source for c. Archive entries are read
// into memory since compressed streams cannot be rewound.
func openCandidate(ctx context.Context, c Candidate) (io.ReadSeekCloser, error) {
	if c.InnerPath == "" {
		f, err := os.Open(c.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	fsys, err := archives.FileSystem(ctx, c.Path, nil)
	if err != nil {
		return nil, err
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer closer.Close()
	}
	f, err := fsys.Open(c.InnerPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxArchiveEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArchiveEntryBytes {
		return nil, fmt.Errorf("archive entry %s exceeds %d bytes", c.InnerPath, maxArchiveEntryBytes)
	}
	return nopSeekCloser{bytes.NewReader(data)}, nil
}

type nopSeekCloser struct{ *bytes.Reader }

func (nopSeekCloser) Close() error { return nil }
