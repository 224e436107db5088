// Package model defines core data structures for xml2py.
package model

// Link is one entry of the cross-reference link tables, keyed by target pointer.
type Link struct {
	RootName  string // link-table file name without extension
	RootTitle string
	Href      string
	Text      string // display text from the target's <ttl>, may be empty
}

// URL returns the absolute address of the link target under baseURL.
func (l Link) URL(baseURL string) string {
	return baseURL + l.RootName + "/" + l.Href
}

// DocuRef is a global documentation entity: an olink into another manual.
type DocuRef struct {
	TargetDoc string
	TargetPtr string
	CiteTitle string // entity name of the manual title, without & and ;
}

// TermKind indicates what an entity resolves to.
type TermKind int

const (
	// TermText is a plain substitution string.
	TermText TermKind = iota
	// TermMarkup is an already rendered RST snippet.
	TermMarkup
	// TermGroup is a group code carrying a module/class pair.
	TermGroup
)

// Term is the value of one entity.
type Term struct {
	Kind  TermKind
	Value string
	Class string // TermGroup only
	Type  string // TermGroup only
}

// Terms maps entity names to their values. Later writes win.
type Terms map[string]Term

// SetText records a plain substitution string.
func (t Terms) SetText(name, value string) {
	t[name] = Term{Kind: TermText, Value: value}
}

// SetMarkup records a rendered markup snippet.
func (t Terms) SetMarkup(name, value string) {
	t[name] = Term{Kind: TermMarkup, Value: value}
}

// SetGroup records a group code.
func (t Terms) SetGroup(name, class, typ string) {
	t[name] = Term{Kind: TermGroup, Class: class, Type: typ}
}

// Lookup returns the substitution text for an entity name.
func (t Terms) Lookup(name string) (string, bool) {
	term, ok := t[name]
	if !ok {
		return "", false
	}
	if term.Kind == TermGroup {
		return term.Class + ": " + term.Type, true
	}
	return term.Value, true
}

// Group returns the module/class pair of a group code entity.
func (t Terms) Group(name string) (class, typ string, ok bool) {
	term, found := t[name]
	if !found || term.Kind != TermGroup {
		return "", "", false
	}
	return term.Class, term.Type, true
}

// Replacement is a fixed string substitution applied to rendered markup.
type Replacement struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// Override is a user-supplied definition replacing the generated method body.
type Override struct {
	Imports  []string // import statements, one per entry
	Params   string   // parameter list including parentheses, e.g. "(self, a=1)"
	Body     string   // statements after the docstring, dedented
	Returns  string   // body of the Returns docstring section
	Examples string   // body of the Examples docstring section
}

// Class is one generated class file.
type Class struct {
	FileName string // snake_case file stem
	Name     string // CamelCase class name
	Methods  []string
}

// Module is one generated module directory.
type Module struct {
	Name    string
	Classes []Class
}

// PackageStructure describes the generated source tree, ready for the docs writer.
type PackageStructure struct {
	LibraryName []string
	Modules     []Module
}
