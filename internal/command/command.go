// Package command extracts commands from reference entries, classifies them
// into modules and classes, and renders each one as a Python method.
package command

import (
	"slices"
	"strconv"
	"strings"

	"github.com/phobologic/xml2py/internal/dom"
)

// Command is one parsed reference entry.
type Command struct {
	Name           string // raw name, e.g. "*VGET"
	PyName         string // set from the NameMap after extraction
	Path           string
	ID             string
	Purpose        string
	Classification Classification // nil when the entry could not be placed
	Args           []Argument
	Root           *dom.Element // refnamediv only in meta-only mode

	doc *docContext
}

// Argument is one positional field of the command string.
type Argument struct {
	Raw  string // as written in the synopsis, e.g. "NPT"
	Key  string // normalized raw name, used to find its description
	Name string // Python parameter name, empty for a "--" placeholder
}

// IsPlaceholder reports whether the argument is an unnamed, always empty field.
func (a Argument) IsPlaceholder() bool {
	return a.Name == ""
}

// docContext is the shared rendering state of one extraction run.
type docContext struct {
	tables          *dom.Tables
	label           string
	cmdBaseURL      string
	skippedSections []string
}

// Placement returns the module and class the command belongs to.
func (c *Command) Placement() (module, class string, ok bool) {
	return Placement(c.Classification)
}

// AssignNames sets the Python name of every command from m.
func AssignNames(commands map[string]*Command, m NameMap) {
	for name, c := range commands {
		if py, ok := m.PyName(name); ok {
			c.PyName = py
		}
	}
}

// Names returns the raw names of commands, sorted.
func Names(commands map[string]*Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sorted returns the commands ordered by raw name.
func Sorted(commands map[string]*Command) []*Command {
	out := make([]*Command, 0, len(commands))
	for _, name := range Names(commands) {
		out = append(out, commands[name])
	}
	return out
}

// parseArguments reads the replaceable fields of a command synopsis.
func parseArguments(synopsis *dom.Element) []Argument {
	if synopsis == nil {
		return nil
	}
	var args []Argument
	seen := map[string]int{}
	for _, arg := range synopsis.Find("arg") {
		rep := arg.First("replaceable")
		if rep == nil {
			args = append(args, Argument{Raw: strings.TrimSpace(arg.Text())})
			continue
		}
		raw := strings.TrimSpace(rep.Text())
		key := argKey(raw)
		if key == "" {
			args = append(args, Argument{Raw: raw})
			continue
		}
		name := key
		if name[0] >= '0' && name[0] <= '9' {
			name = "arg" + name
		}
		if isKeyword(name) || reservedParams[name] {
			name += "_"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		args = append(args, Argument{Raw: raw, Key: key, Name: name})
	}
	return args
}

// reservedParams are names the generated method body already uses.
var reservedParams = map[string]bool{"self": true, "kwargs": true, "command": true}

// argKey normalizes an argument name for description lookup.
func argKey(raw string) string {
	return strings.Trim(sanitize(strings.ToLower(strings.TrimSpace(raw))), "_")
}
