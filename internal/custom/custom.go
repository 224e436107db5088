// Package custom loads user-supplied override functions. Each override lives
// in its own Python file named after the generated identifier, e.g. k.py
// holds def k(...).
package custom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/phobologic/xml2py/internal/lang"
	"github.com/phobologic/xml2py/internal/model"
	"github.com/phobologic/xml2py/internal/parse"
)

// Set is the collection of overrides keyed by Python name.
type Set struct {
	funcs map[string]model.Override
}

// Load reads every Python file directly under dir. An empty dir yields an
// empty set. Files that do not define a function matching their name are
// skipped with a warning; a file that fails to parse is an error.
func Load(dir string, log logrus.FieldLogger) (*Set, error) {
	s := &Set{funcs: map[string]model.Override{}}
	if dir == "" {
		return s, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading custom functions: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !lang.IsSource(e.Name()) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if name == "__init__" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		ov, err := parse.ExtractFunction(src, name)
		if errors.Is(err, parse.ErrFunctionNotFound) {
			log.WithField("file", e.Name()).Warn("custom file does not define a matching function")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		s.funcs[name] = ov
	}
	log.WithField("overrides", len(s.funcs)).Info("loaded custom functions")
	return s, nil
}

// Override returns the override for a Python name.
func (s *Set) Override(pyName string) (model.Override, bool) {
	if s == nil {
		return model.Override{}, false
	}
	ov, ok := s.funcs[pyName]
	return ov, ok
}

// Names returns the Python names that have an override, sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
