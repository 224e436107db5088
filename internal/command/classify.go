package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/phobologic/xml2py/internal/model"
)

var (
	// ErrUnknownGroup is returned when a reference class names a group code
	// that the term table does not define.
	ErrUnknownGroup = errors.New("unknown group code")
	// ErrUnclassified is returned when a reference class carries neither a
	// group code nor a classname/type pair.
	ErrUnclassified = errors.New("unclassified command")
)

var (
	groupRe    = regexp.MustCompile(`&([A-Za-z][\w.-]*);`)
	classRe    = regexp.MustCompile(`<classname>(.*?)</classname>`)
	type1OptRe = regexp.MustCompile(`<type>(.*?)</type>`)
	type2OptRe = regexp.MustCompile(`</classname>\s*:\s*<type>(.*?)</type>`)
)

// Classification is the module/class placement of a command. It is one of
// GroupClassified, ClassTypeClassified or Excluded.
type Classification interface {
	classification()
}

// GroupClassified places a command through a group code entity.
type GroupClassified struct {
	Code   string
	Module string
	Class  string
}

// ClassTypeClassified places a command from the classname and type markup of
// its reference class. Such commands are archived.
type ClassTypeClassified struct {
	Module   string
	Class    string
	Archived bool
}

// Excluded marks a command whose group is never converted.
type Excluded struct {
	Code string
}

func (GroupClassified) classification()     {}
func (ClassTypeClassified) classification() {}
func (Excluded) classification()            {}

// Placement returns the module and class of a classification. ok is false
// for excluded or missing classifications.
func Placement(c Classification) (module, class string, ok bool) {
	switch c := c.(type) {
	case GroupClassified:
		return c.Module, c.Class, true
	case ClassTypeClassified:
		return c.Module, c.Class, true
	}
	return "", "", false
}

// Classify places a command from the raw markup of its reference class.
//
// A group code entity wins when present. Otherwise the classname and type
// markup is read. When two classnames are listed the type following a
// classname is used and the command goes to the first module; this matches
// the one known two-module command (CECYC) and is not meant as a general rule.
func Classify(refclass string, terms model.Terms, excluded []string) (Classification, error) {
	if codes := groupRe.FindAllStringSubmatch(refclass, -1); codes != nil {
		for _, m := range codes {
			code := m[1]
			if slices.Contains(excluded, code) {
				return Excluded{Code: code}, nil
			}
			if module, class, ok := terms.Group(code); ok {
				return GroupClassified{Code: code, Module: module, Class: class}, nil
			}
		}
		if !classRe.MatchString(refclass) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, codes[0][1])
		}
	}

	classnames := classRe.FindAllStringSubmatch(refclass, -1)
	if classnames == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnclassified, refclass)
	}
	var typ []string
	if len(classnames) > 1 {
		typ = type2OptRe.FindStringSubmatch(refclass)
	}
	if typ == nil {
		typ = type1OptRe.FindStringSubmatch(refclass)
	}
	if typ == nil {
		return nil, fmt.Errorf("%w: no type in %q", ErrUnclassified, refclass)
	}
	return ClassTypeClassified{
		Module:   strings.TrimSpace(classnames[0][1]),
		Class:    strings.TrimSpace(typ[1]),
		Archived: true,
	}, nil
}
