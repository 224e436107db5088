package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	pygrammar "github.com/smacker/go-tree-sitter/python"
)

func newPython() *Language {
	return &Language{
		Name:               "python",
		Extensions:         []string{".py"},
		lang:               pygrammar.GetLanguage(),
		FindEnclosingClass: pythonFindEnclosingClassName,
		ExtractParameters:  pythonExtractParameters,
	}
}

func pythonFindEnclosingClassName(funcNode *sitter.Node, source []byte) string {
	classNode := pythonFindEnclosingClass(funcNode)
	if classNode == nil {
		return ""
	}
	for i := 0; i < int(classNode.ChildCount()); i++ {
		child := classNode.Child(i)
		if child.Type() == "identifier" {
			return NodeText(child, source)
		}
	}
	return ""
}

func pythonFindEnclosingClass(funcNode *sitter.Node) *sitter.Node {
	parent := funcNode.Parent()
	if parent == nil {
		return nil
	}

	// Direct: func -> block -> class_definition
	if parent.Type() == "block" && parent.Parent() != nil && parent.Parent().Type() == "class_definition" {
		return parent.Parent()
	}

	// Decorated: func -> decorated_definition -> block -> class_definition
	if parent.Type() == "decorated_definition" {
		gp := parent.Parent()
		if gp != nil && gp.Type() == "block" && gp.Parent() != nil && gp.Parent().Type() == "class_definition" {
			return gp.Parent()
		}
	}

	return nil
}

func pythonExtractParameters(node *sitter.Node, source []byte) string {
	var params, returnType string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "parameters":
			params = CollapseWhitespace(NodeText(child, source))
		case "type":
			returnType = NodeText(child, source)
		}
	}
	if returnType != "" {
		return params + " -> " + returnType
	}
	return params
}
