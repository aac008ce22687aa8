package file

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// FindFiles returns a lazy sequence of absolute paths of regular files under
// root whose extension equals ext exactly (e.g. ".json"). Subdirectories are
// searched recursively. Symlinks to regular files are yielded under the
// link's path; symlinked directories are not descended into.
//
// Paths are yielded in lexical order within each directory, so two walks over
// an unchanged tree yield the same sequence. The sequence is restartable:
// every range over it walks the tree again. Walk errors (including a missing
// root) are yielded once with an empty path and end the sequence.
func FindFiles(root, ext string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield("", fmt.Errorf("resolve %s: %w", root, err))
			return
		}

		stopped := false
		walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if filepath.Ext(path) != ext || !regular(path, d) {
				return nil
			}
			if !yield(path, nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield("", fmt.Errorf("walk %s: %w", abs, walkErr))
		}
	}
}

// regular reports whether d is a regular file, following a symlink to its
// target. Dangling links and links to directories are skipped.
func regular(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular()
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Collect drains seq into a slice. It stops at the first error.
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
