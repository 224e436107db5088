package config

import "path/filepath"

// Layout is the fixed subtree of a documentation checkout.
type Layout struct {
	Graphics string
	Links    string
	Terms    string
	XML      string
}

// LayoutFor returns the input directories below root.
func LayoutFor(root string) Layout {
	return Layout{
		Graphics: filepath.Join(root, "graphics"),
		Links:    filepath.Join(root, "links"),
		Terms:    filepath.Join(root, "terms"),
		XML:      filepath.Join(root, "xml"),
	}
}
