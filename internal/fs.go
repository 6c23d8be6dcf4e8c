package internal

import (
	"context"
	"io"
	iofs "io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mholt/archives"
	"github.com/sirupsen/logrus"
)

const maxArchiveFiles = 10000 // zip-bomb protection

var archiveExt = map[string]struct{}{
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {},
	".rar": {}, ".br": {}, ".lz4": {}, ".lz": {}, ".mz": {},
	".sz": {}, ".s2": {}, ".zz": {}, ".zst": {}, ".7z": {}, ".tgz": {},
}

// Candidate is a file handed to exactly one worker.
type Candidate struct {
	Path      string // file on disk
	InnerPath string // entry inside the archive at Path, empty for plain files
}

// DisplayPath is the path reported in findings and diagnostics.
func (c Candidate) DisplayPath() string {
	if c.InnerPath == "" {
		return c.Path
	}
	return filepath.Join(c.Path, filepath.FromSlash(c.InnerPath))
}

// Walk lazily enumerates candidates under root. Entries that cannot be read
// are skipped; a missing root yields nothing. Iteration stops early when ctx
// is cancelled or the consumer stops.
func Walk(ctx context.Context, root string, opts ScanOptions) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		stopped := false
		_ = WalkWithDepth(ctx, root, opts.Depth, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rel := relSlash(root, path)
			if d.IsDir() {
				if rel != "." && opts.excluded(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if opts.excluded(rel) {
				return nil
			}
			if opts.Archives && IsArchive(path) {
				WalkArchive(ctx, path, opts, func(c Candidate) bool {
					if !yield(c) {
						stopped = true
						return false
					}
					return true
				})
				if stopped {
					return filepath.SkipAll
				}
				return nil
			}
			if !opts.matchesExt(d.Name()) {
				return nil
			}
			if !yield(Candidate{Path: path}) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// WalkWithDepth uses WalkDir and cuts branches by depth. A root that is a
// symlink to a directory is followed; paths passed to fn stay under root as
// given.
func WalkWithDepth(ctx context.Context, root string, maxDepth int, fn func(path string, d os.DirEntry, err error) error) error {
	walkRoot := resolveRoot(root)
	return filepath.WalkDir(walkRoot, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkRoot != root {
			path = underRoot(root, walkRoot, path)
		}
		if err != nil {
			return fn(path, d, err)
		}
		if maxDepth > 0 {
			rel, _ := filepath.Rel(root, path)
			if rel != "." && depthCount(rel) > maxDepth {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		return fn(path, d, nil)
	})
}

// resolveRoot returns the target of root when root is a symlink to a
// directory, and root itself otherwise.
func resolveRoot(root string) string {
	fi, err := os.Lstat(root)
	if err != nil || fi.Mode()&os.ModeSymlink == 0 {
		return root
	}
	target, err := filepath.EvalSymlinks(root)
	if err != nil {
		logrus.WithError(err).WithField("root", root).Debug("resolve root")
		return root
	}
	if st, err := os.Stat(target); err != nil || !st.IsDir() {
		return root
	}
	return target
}

// underRoot maps a path below walkRoot back below root.
func underRoot(root, walkRoot, path string) string {
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil || rel == "." {
		return root
	}
	return filepath.Join(root, rel)
}

// WalkArchive feeds archive entries with a matching extension to send until
// send returns false.
func WalkArchive(ctx context.Context, path string, opts ScanOptions, send func(Candidate) bool) {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		logrus.WithError(err).WithField("archive", path).Debug("open archive")
		return
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer closer.Close()
	}

	count := 0
	_ = iofs.WalkDir(fsys, ".", func(inner string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || d.IsDir() {
			return nil
		}
		if count >= maxArchiveFiles {
			logrus.Warnf("Archive %s truncated: too many files (>= %d)", path, maxArchiveFiles)
			return iofs.SkipAll
		}
		if !opts.matchesExt(d.Name()) {
			return nil
		}
		count++
		if !send(Candidate{Path: path, InnerPath: inner}) {
			return iofs.SkipAll
		}
		return nil
	})
}

func IsArchive(path string) bool {
	_, ok := archiveExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

func depthCount(rel string) int {
	if rel == "" {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// matchGlob follows doublestar semantics on the relative path and, as a
// fallback, on the base name.
func matchGlob(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, pathBase(rel))
	return ok
}

func pathBase(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
