package command

import (
	"fmt"
	"strings"

	"github.com/phobologic/xml2py/internal/dom"
	"github.com/phobologic/xml2py/internal/model"
)

// Overrides looks up user-supplied definitions by Python name.
type Overrides interface {
	Override(pyName string) (model.Override, bool)
}

// Render returns the Python method of the command, each line prefixed with
// indent. A matching override replaces the parameter list and body and
// contributes imports and docstring sections. overrides may be nil.
func (c *Command) Render(overrides Overrides, indent string) (string, error) {
	var ov model.Override
	var custom bool
	if overrides != nil {
		ov, custom = overrides.Override(c.PyName)
	}

	doc, err := c.docstring(ov)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", c.Name, err)
	}

	inner := indent + "    "
	var b strings.Builder
	for _, imp := range ov.Imports {
		b.WriteString(indent + imp + "\n")
	}

	params := c.signature()
	if custom && ov.Params != "" {
		params = ov.Params
	}
	fmt.Fprintf(&b, "%sdef %s%s:\n", indent, c.PyName, params)

	lines := strings.Split(doc, "\n")
	b.WriteString(inner + `r"""` + lines[0] + "\n")
	for _, l := range lines[1:] {
		if l == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(inner + l + "\n")
	}
	b.WriteString(inner + `"""` + "\n")

	if custom && strings.TrimSpace(ov.Body) != "" {
		for _, l := range strings.Split(strings.TrimRight(ov.Body, "\n"), "\n") {
			if strings.TrimSpace(l) == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(inner + l + "\n")
		}
	} else {
		b.WriteString(inner + "command = " + c.commandString() + "\n")
		b.WriteString(inner + "return self.run(command, **kwargs)\n")
	}
	return b.String(), nil
}

func (c *Command) signature() string {
	parts := []string{"self"}
	for _, a := range c.Args {
		if !a.IsPlaceholder() {
			parts = append(parts, a.Name+`: str = ""`)
		}
	}
	parts = append(parts, "**kwargs")
	return "(" + strings.Join(parts, ", ") + ")"
}

// commandString is the Python expression of the command line sent to the
// solver. Placeholders keep an empty field.
func (c *Command) commandString() string {
	if len(c.Args) == 0 {
		return `"` + c.Name + `"`
	}
	fields := []string{c.Name}
	for _, a := range c.Args {
		if a.IsPlaceholder() {
			fields = append(fields, "")
			continue
		}
		fields = append(fields, "{"+a.Name+"}")
	}
	return `f"` + strings.Join(fields, ",") + `"`
}

// docstring renders the numpydoc body of the method, without indentation.
func (c *Command) docstring(ov model.Override) (string, error) {
	var sections []string
	if c.Purpose != "" {
		sections = append(sections, c.Purpose)
	}
	if c.doc != nil && c.doc.label != "" {
		sections = append(sections, fmt.Sprintf("%s: `%s <%s%s.html>`_", c.doc.label, c.Name, c.doc.cmdBaseURL, c.ID))
	}

	params, err := c.parameters()
	if err != nil {
		return "", err
	}
	if params != "" {
		sections = append(sections, heading("Parameters")+params)
	}
	if s := strings.TrimSpace(ov.Returns); s != "" {
		sections = append(sections, heading("Returns")+s)
	}
	notes, err := c.notes()
	if err != nil {
		return "", err
	}
	if notes != "" {
		sections = append(sections, heading("Notes")+notes)
	}
	if s := strings.TrimSpace(ov.Examples); s != "" {
		sections = append(sections, heading("Examples")+s)
	}
	if len(sections) == 0 {
		sections = append(sections, c.Name)
	}
	return strings.ReplaceAll(strings.Join(sections, "\n\n"), `"""`, `\"\"\"`), nil
}

func heading(title string) string {
	return title + "\n" + strings.Repeat("-", len(title)) + "\n"
}

func (c *Command) parameters() (string, error) {
	desc, err := c.argDescriptions()
	if err != nil {
		return "", err
	}
	var entries []string
	for _, a := range c.Args {
		if a.IsPlaceholder() {
			continue
		}
		entry := a.Name + " : str"
		if d := desc[a.Key]; d != "" {
			entry += "\n" + indentBlock(d, "    ")
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, "\n\n"), nil
}

// argDescriptions maps argument keys to their rendered descriptions from the
// argument sections of the entry.
func (c *Command) argDescriptions() (map[string]string, error) {
	out := map[string]string{}
	if c.Root == nil || c.doc == nil {
		return out, nil
	}
	for _, sect := range c.Root.Find("refsect1") {
		if !strings.Contains(c.sectionTitle(sect), "Argument") {
			continue
		}
		for _, entry := range sect.Find("varlistentry") {
			var body string
			for _, child := range entry.ChildElements() {
				if child.Tag != "listitem" {
					continue
				}
				s, err := child.Render(c.doc.tables)
				if err != nil {
					return nil, err
				}
				body = s
				break
			}
			for _, child := range entry.ChildElements() {
				if child.Tag != "term" {
					continue
				}
				for _, part := range strings.Split(child.Plain(c.doc.tables), ",") {
					key := argKey(part)
					if _, done := out[key]; key != "" && !done {
						out[key] = body
					}
				}
			}
		}
	}
	return out, nil
}

// notes renders the Notes section followed by every other reference section
// that is not an argument list or a skipped section.
func (c *Command) notes() (string, error) {
	if c.Root == nil || c.doc == nil {
		return "", nil
	}
	var main string
	var extra []string
	for _, sect := range c.Root.Find("refsect1") {
		title := c.sectionTitle(sect)
		if strings.Contains(title, "Argument") || c.skipped(title) {
			continue
		}
		body, err := withoutTitle(sect).Render(c.doc.tables)
		if err != nil {
			return "", err
		}
		if body == "" {
			continue
		}
		switch {
		case title == "Notes" && main == "":
			main = body
		case title == "":
			extra = append(extra, body)
		default:
			extra = append(extra, "**"+title+"**\n\n"+body)
		}
	}
	if main != "" {
		extra = append([]string{main}, extra...)
	}
	return strings.Join(extra, "\n\n"), nil
}

func (c *Command) sectionTitle(sect *dom.Element) string {
	for _, child := range sect.ChildElements() {
		if child.Tag == "title" {
			return child.Plain(c.doc.tables)
		}
	}
	return ""
}

func (c *Command) skipped(title string) bool {
	for _, s := range c.doc.skippedSections {
		if strings.EqualFold(s, title) {
			return true
		}
	}
	return false
}

func withoutTitle(sect *dom.Element) *dom.Element {
	out := &dom.Element{Tag: sect.Tag, Attrs: sect.Attrs}
	for _, child := range sect.Children {
		if el, ok := child.(*dom.Element); ok && el.Tag == "title" {
			continue
		}
		out.Children = append(out.Children, child)
	}
	return out
}

func indentBlock(s, pad string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
