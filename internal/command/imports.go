package command

import (
	"regexp"
	"slices"
	"strings"
)

var importLineRe = regexp.MustCompile(`^\s*(import\s+[\w.]+|from\s+\.*[\w.]*\s+import\s+\S)`)

// SplitImports moves the import statements that precede the first
// definition out of a rendered method. Imports are returned without
// indentation, in order; rest is the method without them.
func SplitImports(method string) (imports []string, rest string) {
	lines := strings.Split(method, "\n")
	kept := make([]string, 0, len(lines))
	head := true
	for _, l := range lines {
		if head {
			trimmed := strings.TrimSpace(l)
			if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ") || strings.HasPrefix(trimmed, "@") {
				head = false
			} else if importLineRe.MatchString(l) {
				imports = append(imports, trimmed)
				continue
			}
		}
		kept = append(kept, l)
	}
	return imports, strings.Join(kept, "\n")
}

// MergeImports appends the statements of add that are not yet in dst.
func MergeImports(dst []string, add ...string) []string {
	for _, imp := range add {
		if !slices.Contains(dst, imp) {
			dst = append(dst, imp)
		}
	}
	return dst
}
