// Package discover finds reference XML files in a documentation tree.
package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile is the optional exclusion file read from the scan root.
// It uses gitignore syntax.
const IgnoreFile = ".xml2pyignore"

// FileEntry represents a discovered XML file.
type FileEntry struct {
	Path string // Relative to the scan root
	Abs  string
}

var skipDirs = map[string]struct{}{
	".git":        {},
	".hg":         {},
	".svn":        {},
	"__pycache__": {},
	"CVS":         {},
}

// XMLFiles discovers *.xml files under root, recursively, sorted by path.
// Files matching one of patterns or a line of root's IgnoreFile are left out.
func XMLFiles(root string, patterns []string) ([]FileEntry, error) {
	gi, err := loadIgnore(root, patterns)
	if err != nil {
		return nil, err
	}

	var results []FileEntry

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".xml") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(filepath.ToSlash(rel)) {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Abs: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func loadIgnore(root string, patterns []string) (*ignore.GitIgnore, error) {
	path := filepath.Join(root, IgnoreFile)
	if _, err := os.Stat(path); err == nil {
		return ignore.CompileIgnoreFileAndLines(path, patterns...)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return ignore.CompileIgnoreLines(patterns...), nil
}
