package dom

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"github.com/phobologic/xml2py/internal/model"
)

// ErrMissingResource is returned when a graphic has no file in the graphics cache.
var ErrMissingResource = errors.New("missing resource")

// Tables are the resolver lookups a render reads. Rendering never modifies them.
type Tables struct {
	Links        map[string]model.Link
	BaseURL      string
	FCache       map[string]string // graphic base name -> file name
	Terms        model.Terms
	Replacements []model.Replacement
	ImageDir     string
	CodeLanguage string
	WrapWidth    int // 0 disables paragraph wrapping
}

var (
	entityRe     = regexp.MustCompile(`&([A-Za-z_#][\w.#-]*);`)
	underscoreRe = regexp.MustCompile(`_(\W|$)`)
	listMarkerRe = regexp.MustCompile(`^([-*+#|]|\d+[.)]|\.\.|[=~^"'-]{2,})(\s|$)`)
)

var blockTags = map[string]bool{
	"para": true, "simpara": true, "formalpara": true, "p": true,
	"title": true, "bridgehead": true,
	"variablelist": true, "itemizedlist": true, "orderedlist": true, "simplelist": true,
	"procedure": true, "ul": true, "ol": true,
	"informaltable": true, "table": true,
	"programlisting": true, "screen": true, "literallayout": true, "synopsis": true,
	"note": true, "warning": true, "caution": true, "important": true, "tip": true,
	"blockquote": true,
	"example": true, "informalexample": true, "figure": true, "informalfigure": true,
	"mediaobject": true, "inlinemediaobject": true, "graphic": true,
	"equation": true, "informalequation": true,
	"refentry": true, "refnamediv": true, "refsynopsisdiv": true, "cmdsynopsis": true,
	"refsect1": true, "refsect2": true, "refsect3": true, "refsection": true,
	"section": true, "sect1": true, "sect2": true, "sect3": true, "simplesect": true,
	"sidebar": true, "div": true, "fragment": true,
	"listitem": true, "step": true, "entry": true, "li": true, "td": true, "th": true,
}

var skipTags = map[string]bool{
	"indexterm": true, "remark": true, "comment": true, "anchor": true,
	"footnoteref": true, "refmeta": true, "refentryinfo": true, "info": true,
	"primary": true, "secondary": true, "see": true, "seealso": true,
	"beginpage": true, "co": true, "areaspec": true,
}

var literalTags = map[string]bool{
	"literal": true, "command": true, "option": true, "filename": true,
	"userinput": true, "computeroutput": true, "function": true, "parameter": true,
	"varname": true, "constant": true, "sgmltag": true, "classname": true,
	"envar": true, "systemitem": true, "code": true, "markup": true, "tag": true,
	"keycap": true, "structname": true, "structfield": true, "type": true,
}

var strongTags = map[string]bool{
	"guilabel": true, "guimenu": true, "guimenuitem": true, "guibutton": true,
	"guisubmenu": true, "guiicon": true, "strong": true, "b": true,
}

// Render converts the element to reStructuredText using the given tables.
// It fails with ErrMissingResource when a graphic cannot be resolved.
func (e *Element) Render(t *Tables) (string, error) {
	r := &renderer{t: t}
	blocks, err := r.element(e)
	if err != nil {
		return "", err
	}
	return r.replace(strings.Join(blocks, "\n\n")), nil
}

// RenderInline converts the element to a single line of inline markup.
func (e *Element) RenderInline(t *Tables) (string, error) {
	r := &renderer{t: t}
	s, err := r.inline(e)
	if err != nil {
		return "", err
	}
	return r.replace(collapse(s)), nil
}

// Plain returns the element text with entities substituted and whitespace collapsed.
func (e *Element) Plain(t *Tables) string {
	r := &renderer{t: t}
	return r.replace(r.plain(e))
}

type renderer struct {
	t *Tables
}

func (r *renderer) replace(s string) string {
	for _, rep := range r.t.Replacements {
		if rep.Old != "" {
			s = strings.ReplaceAll(s, rep.Old, rep.New)
		}
	}
	return s
}

// element renders e as zero or more blocks.
func (r *renderer) element(e *Element) ([]string, error) {
	if skipTags[e.Tag] {
		return nil, nil
	}
	switch e.Tag {
	case "title", "bridgehead":
		s, err := r.inlineChildren(e)
		if err != nil {
			return nil, err
		}
		if s = collapse(s); s == "" {
			return nil, nil
		}
		return []string{"**" + s + "**"}, nil
	case "variablelist":
		return r.variableList(e)
	case "itemizedlist", "simplelist", "ul":
		return r.list(e, false)
	case "orderedlist", "procedure", "ol":
		return r.list(e, true)
	case "informaltable", "table":
		return r.table(e)
	case "programlisting", "screen", "literallayout", "synopsis":
		return r.code(e), nil
	case "note", "warning", "caution", "important", "tip":
		return r.admonition(e)
	case "blockquote":
		blocks, err := r.blocks(e)
		if err != nil || len(blocks) == 0 {
			return nil, err
		}
		return []string{indent(strings.Join(blocks, "\n\n"), "    ")}, nil
	case "mediaobject", "inlinemediaobject", "graphic":
		return r.images(e)
	case "equation", "informalequation":
		s := r.plain(e)
		if s == "" {
			return nil, nil
		}
		return []string{".. math::\n\n" + indent(s, "   ")}, nil
	}
	if blockTags[e.Tag] {
		return r.blocks(e)
	}
	s, err := r.inline(e)
	if err != nil {
		return nil, err
	}
	if p := r.paragraph(s); p != "" {
		return []string{p}, nil
	}
	return nil, nil
}

// blocks flows the children of e: inline content gathers into paragraphs and
// block children split them.
func (r *renderer) blocks(e *Element) ([]string, error) {
	var out []string
	var para strings.Builder
	flush := func() {
		if p := r.paragraph(para.String()); p != "" {
			out = append(out, p)
		}
		para.Reset()
	}
	for _, c := range e.Children {
		switch n := c.(type) {
		case Text:
			para.WriteString(r.text(string(n)))
		case *Element:
			if skipTags[n.Tag] {
				continue
			}
			if blockTags[n.Tag] {
				flush()
				bs, err := r.element(n)
				if err != nil {
					return nil, err
				}
				out = append(out, bs...)
				continue
			}
			s, err := r.inline(n)
			if err != nil {
				return nil, err
			}
			para.WriteString(s)
		}
	}
	flush()
	return out, nil
}

func (r *renderer) paragraph(s string) string {
	s = collapse(s)
	if s == "" || r.t.WrapWidth <= 0 {
		return s
	}
	return joinMarkerLines(wordwrap.WrapString(s, uint(r.t.WrapWidth)))
}

// joinMarkerLines glues a wrapped line back onto its predecessor when it
// would otherwise start a list item or directive.
func joinMarkerLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:1]
	for _, l := range lines[1:] {
		if listMarkerRe.MatchString(l) {
			out[len(out)-1] += " " + l
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func (r *renderer) inline(e *Element) (string, error) {
	if skipTags[e.Tag] {
		return "", nil
	}
	if blockTags[e.Tag] {
		blocks, err := r.element(e)
		if err != nil {
			return "", err
		}
		return " " + strings.Join(blocks, " ") + " ", nil
	}
	switch {
	case literalTags[e.Tag]:
		return wrapMarkup("``", r.plain(e)), nil
	case strongTags[e.Tag]:
		return wrapMarkup("**", r.plain(e)), nil
	}
	switch e.Tag {
	case "emphasis", "i", "em":
		role, _ := e.Attr("role")
		if role == "bold" || role == "strong" {
			return wrapMarkup("**", r.plain(e)), nil
		}
		return wrapMarkup("*", r.plain(e)), nil
	case "replaceable":
		return wrapMarkup("``", strings.ToLower(r.plain(e))), nil
	case "citetitle", "firstterm":
		return wrapMarkup("*", r.plain(e)), nil
	case "superscript", "sup":
		return role("sup", r.plain(e)), nil
	case "subscript", "sub":
		return role("sub", r.plain(e)), nil
	case "inlineequation", "mathphrase", "math":
		return role("math", r.plain(e)), nil
	case "quote":
		s, err := r.inlineChildren(e)
		return `"` + strings.TrimSpace(s) + `"`, err
	case "olink":
		ptr, _ := e.Attr("targetptr")
		return r.crossLink(e, ptr), nil
	case "xref":
		end, _ := e.Attr("linkend")
		return r.crossLink(e, end), nil
	case "link":
		if href, ok := e.Attr("href"); ok && strings.Contains(href, "://") {
			return externalLink(r.linkText(e), href), nil
		}
		end, _ := e.Attr("linkend")
		return r.crossLink(e, end), nil
	case "ulink", "a":
		url, ok := e.Attr("url")
		if !ok {
			url, _ = e.Attr("href")
		}
		return externalLink(r.linkText(e), url), nil
	case "footnote":
		blocks, err := r.blocks(e)
		if err != nil || len(blocks) == 0 {
			return "", err
		}
		return " (" + strings.Join(blocks, " ") + ")", nil
	}
	return r.inlineChildren(e)
}

func (r *renderer) inlineChildren(e *Element) (string, error) {
	var b strings.Builder
	for _, c := range e.Children {
		switch n := c.(type) {
		case Text:
			b.WriteString(r.text(string(n)))
		case *Element:
			s, err := r.inline(n)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

func (r *renderer) crossLink(e *Element, ptr string) string {
	text := r.linkText(e)
	link, ok := r.t.Links[ptr]
	if !ok {
		if text == "" {
			return ptr
		}
		return text
	}
	if text == "" {
		text = link.Text
	}
	if text == "" {
		text = link.RootTitle
	}
	if text == "" {
		text = ptr
	}
	return externalLink(text, link.URL(r.t.BaseURL))
}

// linkText is the display text of a hyperlink; inline markup cannot nest there.
func (r *renderer) linkText(e *Element) string {
	s := strings.ReplaceAll(r.plain(e), "`", "'")
	return strings.ReplaceAll(s, "<", `\<`)
}

func externalLink(text, url string) string {
	if url == "" {
		return text
	}
	if text == "" {
		return url
	}
	return fmt.Sprintf("`%s <%s>`_", text, url)
}

func wrapMarkup(mark, s string) string {
	if s == "" {
		return ""
	}
	return mark + s + mark
}

func role(name, s string) string {
	if s == "" {
		return ""
	}
	return `\ :` + name + ":`" + s + "`\\ "
}

func (r *renderer) variableList(e *Element) ([]string, error) {
	var out []string
	for _, c := range e.ChildElements() {
		switch c.Tag {
		case "title":
			bs, err := r.element(c)
			if err != nil {
				return nil, err
			}
			out = append(out, bs...)
		case "varlistentry":
			entry, err := r.varListEntry(c)
			if err != nil {
				return nil, err
			}
			if entry != "" {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

func (r *renderer) varListEntry(e *Element) (string, error) {
	var terms []string
	var body []string
	for _, c := range e.ChildElements() {
		switch c.Tag {
		case "term":
			s, err := r.inlineChildren(c)
			if err != nil {
				return "", err
			}
			if s = collapse(s); s != "" {
				terms = append(terms, s)
			}
		case "listitem":
			bs, err := r.blocks(c)
			if err != nil {
				return "", err
			}
			body = append(body, bs...)
		}
	}
	head := strings.Join(terms, ", ")
	if len(body) == 0 {
		return head, nil
	}
	if head == "" {
		return strings.Join(body, "\n\n"), nil
	}
	return head + "\n" + indent(strings.Join(body, "\n\n"), "    "), nil
}

func (r *renderer) list(e *Element, ordered bool) ([]string, error) {
	marker := "* "
	if ordered {
		marker = "#. "
	}
	pad := strings.Repeat(" ", len(marker))

	var out, items []string
	multiline := false
	for _, c := range e.ChildElements() {
		if c.Tag == "title" {
			bs, err := r.element(c)
			if err != nil {
				return nil, err
			}
			out = append(out, bs...)
			continue
		}
		blocks, err := r.blocks(c)
		if err != nil {
			return nil, err
		}
		text := strings.Join(blocks, "\n\n")
		if text == "" {
			continue
		}
		if strings.Contains(text, "\n") {
			multiline = true
		}
		items = append(items, marker+indentRest(text, pad))
	}
	if len(items) == 0 {
		return out, nil
	}
	sep := "\n"
	if multiline {
		sep = "\n\n"
	}
	return append(out, strings.Join(items, sep)), nil
}

func (r *renderer) table(e *Element) ([]string, error) {
	var title string
	if t := e.First("title"); t != nil {
		s, err := r.inlineChildren(t)
		if err != nil {
			return nil, err
		}
		title = collapse(s)
	}

	groups := e.Find("tgroup")
	if len(groups) == 0 {
		groups = []*Element{e}
	}
	var header, body [][]string
	for gi, g := range groups {
		for _, part := range g.ChildElements() {
			rows, err := r.rows(part)
			if err != nil {
				return nil, err
			}
			if part.Tag == "thead" && gi == 0 {
				header = append(header, rows...)
			} else {
				body = append(body, rows...)
			}
		}
	}
	all := append(header, body...)
	cols := 0
	for _, row := range all {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(".. list-table::")
	if title != "" {
		b.WriteString(" " + title)
	}
	if len(header) > 0 {
		fmt.Fprintf(&b, "\n   :header-rows: %d", len(header))
	}
	b.WriteString("\n\n")
	for _, row := range all {
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			prefix := "     - "
			if j == 0 {
				prefix = "   * - "
			}
			line := prefix + indentRest(cell, strings.Repeat(" ", len(prefix)))
			b.WriteString(strings.TrimRight(line, " ") + "\n")
		}
	}
	return []string{strings.TrimRight(b.String(), "\n")}, nil
}

// rows renders the row elements found under part; a bare row counts as one.
func (r *renderer) rows(part *Element) ([][]string, error) {
	rowEls := []*Element{part}
	if part.Tag != "row" {
		rowEls = part.Find("row")
	}
	var out [][]string
	for _, row := range rowEls {
		var cells []string
		for _, entry := range row.ChildElements() {
			if entry.Tag != "entry" {
				continue
			}
			bs, err := r.blocks(entry)
			if err != nil {
				return nil, err
			}
			cells = append(cells, strings.Join(bs, "\n\n"))
		}
		out = append(out, cells)
	}
	return out, nil
}

func (r *renderer) code(e *Element) []string {
	text := dedent(r.raw(e))
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lang := r.t.CodeLanguage
	if lang == "" {
		lang = "text"
	}
	return []string{".. code:: " + lang + "\n\n" + indent(text, "   ")}
}

func (r *renderer) admonition(e *Element) ([]string, error) {
	blocks, err := r.blocks(e)
	if err != nil || len(blocks) == 0 {
		return nil, err
	}
	return []string{".. " + e.Tag + "::\n\n" + indent(strings.Join(blocks, "\n\n"), "   ")}, nil
}

func (r *renderer) images(e *Element) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, ref := range filerefs(e) {
		ref = strings.ReplaceAll(ref, `\`, "/")
		base := strings.TrimSuffix(path.Base(ref), path.Ext(ref))
		if seen[base] {
			continue
		}
		seen[base] = true
		file, ok := r.t.FCache[base]
		if !ok {
			return nil, fmt.Errorf("%w: graphic %q", ErrMissingResource, base)
		}
		if r.t.ImageDir != "" {
			file = strings.TrimRight(r.t.ImageDir, "/") + "/" + file
		}
		out = append(out, ".. image:: "+file)
	}
	return out, nil
}

func filerefs(e *Element) []string {
	if ref, ok := e.Attr("fileref"); ok && ref != "" {
		return []string{ref}
	}
	var out []string
	for _, c := range e.ChildElements() {
		out = append(out, filerefs(c)...)
	}
	return out
}

// text substitutes entities and escapes RST inline markup characters in the
// rest of s. Substituted values are not escaped; unresolved references are.
func (r *renderer) text(s string) string {
	if !strings.Contains(s, "&") {
		return escapeRST(s)
	}
	var b strings.Builder
	last := 0
	for _, loc := range entityRe.FindAllStringIndex(s, -1) {
		b.WriteString(escapeRST(s[last:loc[0]]))
		m := s[loc[0]:loc[1]]
		if v, ok := r.t.Terms.Lookup(m[1 : len(m)-1]); ok {
			b.WriteString(v)
		} else {
			b.WriteString(escapeRST(m))
		}
		last = loc[1]
	}
	b.WriteString(escapeRST(s[last:]))
	return b.String()
}

func escapeRST(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "*", `\*`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "|", `\|`)
	return underscoreRe.ReplaceAllString(s, `\_$1`)
}

// raw returns the verbatim text of the subtree with entities substituted.
func (r *renderer) raw(e *Element) string {
	return r.substitute(e.Text())
}

func (r *renderer) plain(e *Element) string {
	return collapse(r.raw(e))
}

func (r *renderer) substitute(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityRe.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := r.t.Terms.Lookup(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
}

// collapse folds whitespace runs into single spaces. A role escape left
// dangling at the end of the text is dropped.
func collapse(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasSuffix(s, "`\\") {
		s = s[:len(s)-1]
	}
	return s
}

func indent(s, pad string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

func indentRest(s, pad string) string {
	first, rest, found := strings.Cut(s, "\n")
	if !found {
		return s
	}
	return first + "\n" + indent(rest, pad)
}

// dedent removes the common leading whitespace and surrounding blank lines.
func dedent(s string) string {
	s = strings.ReplaceAll(s, "\t", "    ")
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " "))
		if common < 0 || n < common {
			common = n
		}
	}
	for i, l := range lines {
		l = strings.TrimRight(l, " ")
		if len(l) >= common && common > 0 {
			l = l[common:]
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}
