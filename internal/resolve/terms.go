package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/phobologic/xml2py/internal/config"
	"github.com/phobologic/xml2py/internal/dom"
	"github.com/phobologic/xml2py/internal/model"
)

var (
	quotedWordRe   = regexp.MustCompile(`'(\S*)'`)
	quotedTextRe   = regexp.MustCompile(`'(.*)'`)
	manualEntityRe = regexp.MustCompile(`ENTITY([\s\S]*?)(?:<!|\z)`)
	termRefRe      = regexp.MustCompile(`&([^\s&;]+);`)
	charCommentRe  = regexp.MustCompile(`<!--(.*)-->`)
	classnameRe    = regexp.MustCompile(`<classname>(.*?)</classname>`)
	typeRe         = regexp.MustCompile(`<type>(.*?)</type>`)
)

// LoadTerms builds the entity table and the version context.
//
// Sources are applied in order, later ones overwriting earlier ones: the
// build variables (or the default version when they are missing), the
// global terms, the configured overrides, the manual titles, the special
// character sets and the command group codes.
func (l *Loader) LoadTerms(termDir string, cfg *config.Config, docu map[string]model.DocuRef,
	links map[string]model.Link, fcache map[string]string,
) (model.Terms, VersionContext, error) {
	terms := model.Terms{}
	glb := filepath.Join(termDir, "glb")

	if err := l.loadVariables(terms, filepath.Join(glb, cfg.TermFiles.Variables)); err != nil {
		return nil, VersionContext{}, err
	}
	if _, ok := terms[cfg.VersionTerm]; !ok {
		l.Log.WithField("term", cfg.VersionTerm).Warnf("no version term, using %s", cfg.DefaultVersion)
		terms.SetText(cfg.VersionTerm, cfg.DefaultVersion)
	}
	version := NewVersionContext(terms[cfg.VersionTerm].Value)

	if err := l.loadGlobal(terms, filepath.Join(glb, cfg.TermFiles.Global)); err != nil {
		return nil, VersionContext{}, err
	}

	names := make([]string, 0, len(cfg.TermOverrides))
	for name := range cfg.TermOverrides {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		terms.SetText(name, cfg.TermOverrides[name])
	}

	tables := &dom.Tables{Links: links, BaseURL: version.BaseURL, FCache: fcache}
	if err := l.loadManuals(terms, filepath.Join(glb, cfg.TermFiles.Manuals), tables, docu); err != nil {
		return nil, VersionContext{}, err
	}
	if err := l.loadCharacters(terms, filepath.Join(termDir, cfg.TermFiles.Characters)); err != nil {
		return nil, VersionContext{}, err
	}
	if err := l.loadGroupCodes(terms, filepath.Join(termDir, cfg.TermFiles.GroupCodes)); err != nil {
		return nil, VersionContext{}, err
	}
	return terms, version, nil
}

func (l *Loader) loadVariables(terms model.Terms, path string) error {
	lines, ok, err := readLines(path)
	if err != nil {
		return err
	}
	if !ok {
		l.Log.WithField("file", path).Warn("no file found for defining variable terms")
		return nil
	}
	for _, line := range lines {
		name := firstGroup(entityNameRe, line)
		if name == "" {
			continue
		}
		if m := quotedWordRe.FindStringSubmatch(line); m != nil {
			terms.SetText(name, m[1])
		}
	}
	return nil
}

func (l *Loader) loadGlobal(terms model.Terms, path string) error {
	lines, ok, err := readLines(path)
	if err != nil {
		return err
	}
	if !ok {
		l.Log.WithField("file", path).Warn("no file found for defining global terms")
		return nil
	}
	for _, line := range lines {
		name := firstGroup(entityNameRe, line)
		if name == "" {
			continue
		}
		if m := quotedTextRe.FindStringSubmatch(line); m != nil {
			terms.SetText(name, m[1])
		}
	}
	return nil
}

// loadManuals renders each manual entity declaration and resolves the entity
// references inside it, linking global documents where possible.
func (l *Loader) loadManuals(terms model.Terms, path string, tables *dom.Tables, docu map[string]model.DocuRef) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.Log.WithField("file", path).Warn("no file found for defining terms")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading manuals: %w", err)
	}

	for _, m := range manualEntityRe.FindAllStringSubmatch(string(data), -1) {
		frag, err := dom.ParseFragment(m[1])
		if err != nil {
			l.Log.WithField("file", path).WithError(err).Warn("skipping manual entity")
			continue
		}
		item, err := frag.Render(tables)
		if err != nil {
			return fmt.Errorf("rendering manual entity: %w", err)
		}
		key, rest, _ := strings.Cut(strings.TrimSpace(item), " ")
		text := strings.TrimSpace(rest)
		if key == "" || !strings.HasPrefix(text, "'") || len(text) < 3 {
			continue
		}
		text = strings.TrimSpace(text[1 : len(text)-2])
		terms.SetMarkup(key, termRefRe.ReplaceAllStringFunc(text, func(ref string) string {
			return manualRef(ref, terms, tables, docu)
		}))
	}
	return nil
}

func manualRef(ref string, terms model.Terms, tables *dom.Tables, docu map[string]model.DocuRef) string {
	name := ref[1 : len(ref)-1]
	if d, ok := docu[name]; ok {
		link, found := tables.Links[d.TargetPtr]
		if !found {
			return ref
		}
		title, ok := terms.Lookup(d.CiteTitle)
		if !ok {
			title = link.RootTitle
		}
		return fmt.Sprintf("`%s <%s>`_", title, link.URL(tables.BaseURL))
	}
	if v, ok := terms.Lookup(name); ok {
		return v
	}
	return ref
}

// loadCharacters resolves special character entities named by their Unicode
// name in a trailing comment. Unknown names are skipped.
func (l *Loader) loadCharacters(terms model.Terms, dir string) error {
	if !isDir(dir) {
		l.Log.WithField("dir", dir).Warn("no character entity directory")
		return nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.ent"))
	if err != nil {
		return fmt.Errorf("listing character entities: %w", err)
	}
	slices.Sort(files)
	for _, path := range files {
		lines, _, err := readLines(path)
		if err != nil {
			return err
		}
		for _, line := range lines {
			name := firstGroup(entityNameRe, line)
			if name == "" {
				continue
			}
			m := charCommentRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if r, ok := lookupChar(m[1]); ok {
				terms.SetText(name, string(r))
			}
		}
	}
	return nil
}

// loadGroupCodes reads the command group entities, each naming a module
// (classname) and class (type).
func (l *Loader) loadGroupCodes(terms model.Terms, path string) error {
	lines, ok, err := readLines(path)
	if err != nil {
		return err
	}
	if !ok {
		l.Log.WithField("file", path).Warn("no group code file")
		return nil
	}
	for _, line := range lines {
		name := firstGroup(entityNameRe, line)
		if name == "" {
			continue
		}
		class := classnameRe.FindStringSubmatch(line)
		typ := typeRe.FindStringSubmatch(line)
		if class == nil || typ == nil {
			l.Log.WithFields(logrus.Fields{"file": path, "group": name}).Warn("group code without classname or type")
			continue
		}
		terms.SetGroup(name, class[1], typ[1])
	}
	return nil
}
