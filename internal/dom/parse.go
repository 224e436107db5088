package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoRoot is returned when a document parses but holds no element.
var ErrNoRoot = errors.New("document has no root element")

// ParseXML parses a reference XML document permissively: entity references
// that are not declared stay in the text verbatim for later substitution.
func ParseXML(r io.Reader) (*Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{Permissive: true}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	return fromEtree(root), nil
}

func fromEtree(e *etree.Element) *Element {
	el := &Element{Tag: strings.ToLower(e.Tag), Attrs: make(map[string]string, len(e.Attr))}
	for _, a := range e.Attr {
		el.Attrs[a.Key] = a.Value
	}
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			el.Children = append(el.Children, fromEtree(t))
		case *etree.CharData:
			el.Children = append(el.Children, Text(t.Data))
		}
	}
	return el
}

// ParseHTML parses loosely structured markup the way a forgiving HTML parser
// would. It returns the single top-level element of the body, or the body
// itself when there is more than one.
func ParseHTML(r io.Reader) (*Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, ErrNoRoot
	}
	root := fromHTML(body)
	var only *Element
	for _, c := range root.Children {
		switch n := c.(type) {
		case *Element:
			if only != nil {
				return root, nil
			}
			only = n
		case Text:
			if strings.TrimSpace(string(n)) != "" {
				return root, nil
			}
		}
	}
	if only == nil {
		return nil, ErrNoRoot
	}
	return only, nil
}

// ParseFragment parses a markup fragment in body context and wraps the
// resulting nodes in a "fragment" element.
func ParseFragment(s string) (*Element, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	frag := NewElement("fragment")
	for _, n := range nodes {
		if c := convertHTML(n); c != nil {
			frag.Children = append(frag.Children, c)
		}
	}
	return frag, nil
}

func fromHTML(n *html.Node) *Element {
	el := &Element{Tag: n.Data, Attrs: make(map[string]string, len(n.Attr))}
	for _, a := range n.Attr {
		el.Attrs[a.Key] = a.Val
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convertHTML(c); child != nil {
			el.Children = append(el.Children, child)
		}
	}
	return el
}

func convertHTML(n *html.Node) Node {
	switch n.Type {
	case html.ElementNode:
		return fromHTML(n)
	case html.TextNode:
		return Text(n.Data)
	}
	return nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
