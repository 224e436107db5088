package command

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/phobologic/xml2py/internal/discover"
	"github.com/phobologic/xml2py/internal/dom"
)

// ErrDirectoryNotFound is returned when the reference directory is missing.
var ErrDirectoryNotFound = errors.New("directory not found")

// Extractor builds commands from a directory of reference entries.
type Extractor struct {
	Log    logrus.FieldLogger
	Tables *dom.Tables

	ExcludedGroups  []string
	IgnorePatterns  []string
	CommandLabel    string
	CmdBaseURL      string
	SkippedSections []string
}

// LoadCommands reads every reference entry below dir, keyed by raw command
// name. Files that fail to parse or hold no reference entry are skipped.
//
// With metaOnly set only the name section of each entry is parsed and no
// classification happens; this is enough to build the NameMap.
func (x *Extractor) LoadCommands(dir string, metaOnly bool) (map[string]*Command, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrDirectoryNotFound, dir)
	}
	files, err := discover.XMLFiles(dir, x.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	doc := &docContext{
		tables:          x.Tables,
		label:           x.CommandLabel,
		cmdBaseURL:      x.CmdBaseURL,
		skippedSections: x.SkippedSections,
	}
	commands := make(map[string]*Command)
	for _, f := range files {
		log := x.Log.WithField("file", f.Path)
		parseFn := parseFile
		if metaOnly {
			parseFn = parseNameSection
		}
		root, err := parseFn(f.Abs)
		if err != nil {
			log.WithError(err).Warn("skipping unparsable file")
			continue
		}
		ref := refEntry(root)
		if ref == nil {
			log.Debug("no reference entry")
			continue
		}
		cmd, err := x.newCommand(f.Abs, ref, doc, metaOnly)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		if cmd == nil {
			log.Warn("reference entry without a name")
			continue
		}
		if prev, dup := commands[cmd.Name]; dup {
			log.WithField("command", cmd.Name).Warnf("duplicate command, keeping %s", prev.Path)
			continue
		}
		commands[cmd.Name] = cmd
	}

	x.Log.WithFields(logrus.Fields{"commands": len(commands), "meta_only": metaOnly}).Info("loaded commands")
	return commands, nil
}

func parseFile(path string) (*dom.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dom.ParseXML(f)
}

var refEntryStartRe = regexp.MustCompile(`<refentry[\s>]`)

// parseNameSection parses only the refentry start tag and its refnamediv,
// leaving the body of the entry unread. It returns a nil element when the
// file holds no name section.
func parseNameSection(path string) (*dom.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	loc := refEntryStartRe.FindIndex(data)
	if loc == nil {
		return nil, nil
	}
	tagEnd := bytes.IndexByte(data[loc[0]:], '>')
	start := bytes.Index(data, []byte("<refnamediv"))
	end := bytes.Index(data, []byte("</refnamediv>"))
	if tagEnd < 0 || start < loc[0] || end < start {
		return nil, nil
	}
	tagEnd += loc[0]
	var buf bytes.Buffer
	buf.Write(data[loc[0] : tagEnd+1])
	buf.Write(data[start : end+len("</refnamediv>")])
	buf.WriteString("</refentry>")
	return dom.ParseXML(&buf)
}

// refEntry returns the reference entry element of a parsed file, or nil
// when the file documents no command.
func refEntry(root *dom.Element) *dom.Element {
	if root == nil {
		return nil
	}
	var ref *dom.Element
	if root.Tag == "refentry" {
		ref = root
	} else {
		ref = root.First("refentry")
	}
	if ref == nil || ref.First("refnamediv") == nil {
		return nil
	}
	return ref
}

func (x *Extractor) newCommand(path string, ref *dom.Element, doc *docContext, metaOnly bool) (*Command, error) {
	namediv := ref.First("refnamediv")
	refname := namediv.First("refname")
	if refname == nil {
		return nil, nil
	}
	name := strings.TrimSpace(refname.Text())
	if name == "" {
		return nil, nil
	}

	id, ok := ref.Attr("id")
	if !ok || id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	cmd := &Command{Name: name, Path: path, ID: id, doc: doc}
	if metaOnly {
		cmd.Root = namediv
		return cmd, nil
	}
	cmd.Root = ref

	if purpose := namediv.First("refpurpose"); purpose != nil {
		p, err := purpose.RenderInline(x.Tables)
		if err != nil {
			return nil, err
		}
		cmd.Purpose = p
	}
	cmd.Args = parseArguments(ref.First("cmdsynopsis"))

	log := x.Log.WithField("command", name)
	refclass := namediv.First("refclass")
	if refclass == nil {
		log.Warn("no reference class, command will not be placed")
		return cmd, nil
	}
	class, err := Classify(refclass.InnerMarkup(), x.Tables.Terms, x.ExcludedGroups)
	switch {
	case errors.Is(err, ErrUnclassified):
		log.WithError(err).Warn("command will not be placed")
	case err != nil:
		return nil, err
	}
	if ex, ok := class.(Excluded); ok {
		log.WithField("group", ex.Code).Warn("excluded group, command will not be converted")
	}
	cmd.Classification = class
	return cmd, nil
}
