// Package dom is the document object model for reference XML: a tree of
// typed nodes built from parsed markup that renders to reStructuredText.
package dom

import (
	"maps"
	"slices"
	"strings"
)

// Node is either an *Element or a Text fragment.
type Node interface {
	node()
}

// Text is a character data fragment. Entity references the parser did not
// know stay in the text verbatim, e.g. "&me;".
type Text string

func (Text) node() {}

// Element is one parsed markup element.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Children []Node
}

func (*Element) node() {}

// NewElement returns an element with the given tag and children.
func NewElement(tag string, children ...Node) *Element {
	return &Element{Tag: tag, Attrs: map[string]string{}, Children: children}
}

// Len returns the number of children.
func (e *Element) Len() int {
	return len(e.Children)
}

// Child returns the i-th child, or nil when out of range.
func (e *Element) Child(i int) Node {
	if i < 0 || i >= len(e.Children) {
		return nil
	}
	return e.Children[i]
}

// Attr looks up an attribute by name.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// HasChildren reports whether the element has at least one child element.
func (e *Element) HasChildren() bool {
	for _, c := range e.Children {
		if _, ok := c.(*Element); ok {
			return true
		}
	}
	return false
}

// ChildElements returns the direct element children in document order.
func (e *Element) ChildElements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// FirstChildElement returns the first element child, or nil.
func (e *Element) FirstChildElement() *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			return el
		}
	}
	return nil
}

// Find returns every descendant with the given tag in document order.
// Descent stops at a match: a matched element's own descendants are not searched.
func (e *Element) Find(tag string) []*Element {
	var out []*Element
	findInto(e, tag, &out)
	return out
}

func findInto(e *Element, tag string, out *[]*Element) {
	for _, c := range e.Children {
		el, ok := c.(*Element)
		if !ok {
			continue
		}
		if el.Tag == tag {
			*out = append(*out, el)
			continue
		}
		findInto(el, tag, out)
	}
}

// First returns the first descendant with the given tag, or nil.
func (e *Element) First(tag string) *Element {
	for _, c := range e.Children {
		el, ok := c.(*Element)
		if !ok {
			continue
		}
		if el.Tag == tag {
			return el
		}
		if found := el.First(tag); found != nil {
			return found
		}
	}
	return nil
}

// Text returns the concatenated character data of the subtree.
func (e *Element) Text() string {
	var b strings.Builder
	writeText(&b, e)
	return b.String()
}

func writeText(b *strings.Builder, e *Element) {
	for _, c := range e.Children {
		switch n := c.(type) {
		case Text:
			b.WriteString(string(n))
		case *Element:
			writeText(b, n)
		}
	}
}

// InnerMarkup serializes the children back to markup. Text is written as is,
// so unresolved entity references survive for pattern matching.
func (e *Element) InnerMarkup() string {
	var b strings.Builder
	for _, c := range e.Children {
		writeMarkup(&b, c)
	}
	return b.String()
}

func writeMarkup(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case Text:
		b.WriteString(string(n))
	case *Element:
		b.WriteString("<" + n.Tag)
		for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
			b.WriteString(" " + k + `="` + n.Attrs[k] + `"`)
		}
		b.WriteString(">")
		for _, c := range n.Children {
			writeMarkup(b, c)
		}
		b.WriteString("</" + n.Tag + ">")
	}
}
