// Package parse inspects Python source with tree-sitter. It checks generated
// modules for syntax errors and reads the functions of custom override files.
package parse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/xml2py/internal/lang"
	"github.com/phobologic/xml2py/internal/model"
)

var (
	// ErrSyntax is returned when Python source does not parse cleanly.
	ErrSyntax = errors.New("python syntax error")
	// ErrFunctionNotFound is returned when a source file has no module-level
	// function of the requested name.
	ErrFunctionNotFound = errors.New("function not found")
)

var (
	stringPrefixRe = regexp.MustCompile(`^[rRuUbBfF]*("""|'''|"|')`)
	underlineRe    = regexp.MustCompile(`^-{3,}$`)
)

func parseTree(source []byte) (*sitter.Tree, error) {
	tree, err := lang.Python().NewParser().ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing python: %w", err)
	}
	return tree, nil
}

// Validate parses source without executing it and reports the first syntax
// error with its position.
func Validate(source []byte) error {
	tree, err := parseTree(source)
	if err != nil {
		return err
	}
	defer tree.Close()
	return syntaxError(tree.RootNode())
}

func syntaxError(root *sitter.Node) error {
	if !root.HasError() {
		return nil
	}
	n := firstError(root)
	p := n.StartPoint()
	return fmt.Errorf("%w at line %d, column %d", ErrSyntax, p.Row+1, p.Column+1)
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstError(child)
		}
	}
	return n
}

// ExtractFunction reads the module-level function name from source. The
// result carries the module-level imports of the file, the parameter list,
// the dedented statements after the docstring, and the Returns and Examples
// sections of the docstring.
func ExtractFunction(source []byte, name string) (model.Override, error) {
	py := lang.Python()
	query, err := py.GetQuery()
	if err != nil {
		return model.Override{}, err
	}
	tree, err := parseTree(source)
	if err != nil {
		return model.Override{}, err
	}
	defer tree.Close()
	if err := syntaxError(tree.RootNode()); err != nil {
		return model.Override{}, err
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var ov model.Override
	var fn *sitter.Node
	var owner string
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode, defNode *sitter.Node
		for _, c := range match.Captures {
			switch query.CaptureNameForId(c.Index) {
			case "import":
				if isModuleLevel(c.Node) {
					ov.Imports = append(ov.Imports, lang.CollapseWhitespace(lang.NodeText(c.Node, source)))
				}
			case "name":
				nameNode = c.Node
			case "definition.function":
				defNode = c.Node
			}
		}
		if fn != nil || nameNode == nil || defNode == nil {
			continue
		}
		if lang.NodeText(nameNode, source) != name {
			continue
		}
		if isModuleLevel(defNode) {
			fn = defNode
		} else if owner == "" {
			owner = py.FindEnclosingClass(defNode, source)
		}
	}
	if fn == nil {
		if owner != "" {
			return model.Override{}, fmt.Errorf("%w: %s is a method of %s", ErrFunctionNotFound, name, owner)
		}
		return model.Override{}, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	ov.Params = py.ExtractParameters(fn, source)
	doc, body := splitBody(fn, source)
	ov.Body = body
	sections := docSections(doc)
	ov.Returns = sections["Returns"]
	ov.Examples = sections["Examples"]
	return ov, nil
}

func isModuleLevel(n *sitter.Node) bool {
	parent := n.Parent()
	if parent != nil && parent.Type() == "decorated_definition" {
		parent = parent.Parent()
	}
	return parent != nil && parent.Type() == "module"
}

// splitBody returns the docstring text of a function and its remaining
// statements, dedented.
func splitBody(fn *sitter.Node, source []byte) (doc, body string) {
	block := fn.ChildByFieldName("body")
	if block == nil {
		return "", ""
	}
	first := 0
	if block.NamedChildCount() > 0 {
		stmt := block.NamedChild(0)
		if stmt.Type() == "expression_statement" && stmt.NamedChildCount() == 1 && stmt.NamedChild(0).Type() == "string" {
			doc = docstringText(lang.NodeText(stmt.NamedChild(0), source))
			first = 1
		}
	}
	if first >= int(block.NamedChildCount()) {
		return doc, ""
	}
	stmt := block.NamedChild(first)
	if stmt.StartPoint().Row == fn.StartPoint().Row {
		return doc, strings.TrimSpace(string(source[stmt.StartByte():block.EndByte()]))
	}
	start := stmt.StartByte()
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	return doc, dedent(string(source[start:block.EndByte()]))
}

// docstringText strips the quotes of a string literal and removes the
// indentation shared by its continuation lines.
func docstringText(literal string) string {
	m := stringPrefixRe.FindStringSubmatch(literal)
	if m == nil {
		return literal
	}
	s := strings.TrimSuffix(literal[len(m[0]):], m[1])
	first, rest, found := strings.Cut(s, "\n")
	if !found {
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(first) + "\n" + dedent(rest)
}

// docSections splits a numpydoc docstring into its underlined sections.
func docSections(doc string) map[string]string {
	lines := strings.Split(doc, "\n")
	out := map[string]string{}
	title := ""
	var body []string
	flush := func() {
		if title != "" {
			out[title] = dedent(strings.Join(body, "\n"))
		}
	}
	for i := 0; i < len(lines); i++ {
		head := strings.TrimSpace(lines[i])
		if head != "" && i+1 < len(lines) {
			under := strings.TrimSpace(lines[i+1])
			if underlineRe.MatchString(under) && len(under) == len(head) {
				flush()
				title, body = head, nil
				i++
				continue
			}
		}
		body = append(body, lines[i])
	}
	flush()
	return out
}

// dedent removes the leading whitespace common to every non-blank line,
// blanks whitespace-only lines, and trims surrounding blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	set := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lead := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if !set {
			prefix, set = lead, true
			continue
		}
		for !strings.HasPrefix(lead, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimRight(strings.TrimPrefix(l, prefix), " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
