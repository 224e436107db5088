// Package resolve loads the lookup tables a documentation checkout carries
// next to its reference XML: cross-reference links, graphics, global
// document references and entity terms.
package resolve

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/phobologic/xml2py/internal/config"
	"github.com/phobologic/xml2py/internal/dom"
	"github.com/phobologic/xml2py/internal/model"
)

// ErrNotFound is returned when a listed file cannot be read back.
var ErrNotFound = errors.New("resource not found")

var (
	entityNameRe = regexp.MustCompile(`!ENTITY (\S*) `)
	targetDocRe  = regexp.MustCompile(`targetdoc="(\S*)"`)
	targetPtrRe  = regexp.MustCompile(`targetptr="(\S*)"`)
	citeTitleRe  = regexp.MustCompile(`<citetitle>&(\S*);</citetitle>`)
)

// Loader reads the resolver tables. Missing optional inputs are logged on Log
// and contribute nothing.
type Loader struct {
	Log logrus.FieldLogger
}

// Resolver holds every table loaded from one documentation checkout.
type Resolver struct {
	Links      map[string]model.Link
	FCache     map[string]string
	DocuGlobal map[string]model.DocuRef
	Terms      model.Terms
	Version    VersionContext
}

// Load reads all tables below the layout directories.
func (l *Loader) Load(layout config.Layout, cfg *config.Config) (*Resolver, error) {
	links, err := l.LoadLinks(layout.Links)
	if err != nil {
		return nil, err
	}
	fcache, err := l.LoadFCache(layout.Graphics)
	if err != nil {
		return nil, err
	}
	docu, err := l.LoadDocuGlobal(filepath.Join(layout.Terms, "glb", cfg.TermFiles.DocuGlobal))
	if err != nil {
		return nil, err
	}
	terms, version, err := l.LoadTerms(layout.Terms, cfg, docu, links, fcache)
	if err != nil {
		return nil, err
	}
	l.Log.WithFields(logrus.Fields{
		"links":    len(links),
		"graphics": len(fcache),
		"terms":    len(terms),
		"version":  version.Version,
	}).Info("loaded resolver tables")
	return &Resolver{
		Links:      links,
		FCache:     fcache,
		DocuGlobal: docu,
		Terms:      terms,
		Version:    version,
	}, nil
}

// Tables returns the rendering view of the resolver for cfg.
func (r *Resolver) Tables(cfg *config.Config) *dom.Tables {
	return &dom.Tables{
		Links:        r.Links,
		BaseURL:      r.Version.BaseURL,
		FCache:       r.FCache,
		Terms:        r.Terms,
		Replacements: cfg.TextReplacements,
		ImageDir:     cfg.ImageFolderPath,
		CodeLanguage: cfg.CodeLanguage,
		WrapWidth:    cfg.WrapWidth,
	}
}

// LoadLinks reads every *.db link table in dir. A link table is keyed by the
// file stem; its first element holds the manual title. Unparsable tables are
// skipped.
func (l *Loader) LoadLinks(dir string) (map[string]model.Link, error) {
	links := map[string]model.Link{}
	if !isDir(dir) {
		l.Log.WithField("dir", dir).Warn("no link directory")
		return links, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		return nil, fmt.Errorf("listing link tables: %w", err)
	}
	sort.Strings(files)
	for _, path := range files {
		root, err := parseHTMLFile(path)
		if err != nil {
			l.Log.WithField("file", path).WithError(err).Warn("skipping link table")
			continue
		}
		rootName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		var rootTitle string
		if first := root.FirstChildElement(); first != nil {
			rootTitle = strings.TrimSpace(first.Text())
		}
		grabLinks(links, root, rootName, rootTitle)
	}
	return links, nil
}

func parseHTMLFile(path string) (*dom.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dom.ParseHTML(f)
}

// grabLinks records an entry for every element carrying a targetptr whose
// href is found on itself, on a direct child, or deeper in its subtree.
func grabLinks(links map[string]model.Link, node *dom.Element, rootName, rootTitle string) {
	if ptr, ok := node.Attr("targetptr"); ok {
		if href, found := linkHref(node); found {
			var text string
			if first := node.FirstChildElement(); first != nil && first.Tag == "ttl" {
				text = strings.TrimSpace(first.Text())
			}
			links[ptr] = model.Link{RootName: rootName, RootTitle: rootTitle, Href: href, Text: text}
		}
	}
	for _, c := range node.ChildElements() {
		grabLinks(links, c, rootName, rootTitle)
	}
}

func linkHref(node *dom.Element) (string, bool) {
	if href, ok := node.Attr("href"); ok {
		return href, true
	}
	children := node.ChildElements()
	for _, c := range children {
		if href, ok := c.Attr("href"); ok {
			return href, true
		}
	}
	for _, c := range children {
		if href, ok := linkHref(c); ok {
			return href, true
		}
	}
	return "", false
}

// LoadFCache maps the base name of every graphic in dir to its file name.
// A listed file that cannot be stat'ed fails with ErrNotFound.
func (l *Loader) LoadFCache(dir string) (map[string]string, error) {
	fcache := map[string]string{}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.Log.WithField("dir", dir).Warn("no graphics directory")
		return fcache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing graphics: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("%w: unable to locate %s: %w", ErrNotFound, base, err)
		}
		fcache[base] = name
	}
	return fcache, nil
}

// LoadDocuGlobal reads the olink entity declarations of the global
// documentation file, one declaration per line.
func (l *Loader) LoadDocuGlobal(path string) (map[string]model.DocuRef, error) {
	docu := map[string]model.DocuRef{}
	lines, ok, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.Log.WithField("file", path).Warn("no file found for global documents")
		return docu, nil
	}
	for _, line := range lines {
		name := firstGroup(entityNameRe, line)
		if name == "" {
			continue
		}
		docu[name] = model.DocuRef{
			TargetDoc: firstGroup(targetDocRe, line),
			TargetPtr: firstGroup(targetPtrRe, line),
			CiteTitle: firstGroup(citeTitleRe, line),
		}
	}
	return docu, nil
}

// readLines returns the lines of path. ok is false when the file does not exist.
func readLines(path string) (lines []string, ok bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, true, nil
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
