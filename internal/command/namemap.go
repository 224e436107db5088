package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// ErrNameCollision is returned when two configured overrides claim the same
// identifier.
var ErrNameCollision = errors.New("identifier collision")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var pythonKeywords = map[string]struct{}{
	"false": {}, "none": {}, "true": {}, "and": {}, "as": {}, "assert": {},
	"async": {}, "await": {}, "break": {}, "class": {}, "continue": {}, "def": {},
	"del": {}, "elif": {}, "else": {}, "except": {}, "finally": {}, "for": {},
	"from": {}, "global": {}, "if": {}, "import": {}, "in": {}, "is": {},
	"lambda": {}, "nonlocal": {}, "not": {}, "or": {}, "pass": {}, "raise": {},
	"return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

var prefixTokens = map[rune]string{
	'*': "star",
	'/': "slash",
	'~': "tilde",
	'-': "dash",
	'#': "hash",
}

// NameMap maps raw command names to Python identifiers. It is built once
// per run and read-only afterwards.
type NameMap map[string]string

// BuildNameMap derives a unique Python identifier for every raw command name.
//
// Configured overrides are taken as is. Other names are lower-cased; a
// leading run of symbols such as "/" or "*" is dropped when the rest is a
// valid identifier that no other command strips to. Otherwise the symbols
// are spelled out ("*VGET" becomes "star_vget"). Remaining clashes get a
// numeric suffix in sorted name order.
func BuildNameMap(names []string, overrides map[string]string) (NameMap, error) {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	m := make(NameMap, len(sorted))
	used := make(map[string]string, len(sorted))

	for _, raw := range sorted {
		py, ok := overrides[raw]
		if !ok {
			continue
		}
		if other, taken := used[py]; taken {
			return nil, fmt.Errorf("%w: %q and %q both map to %q", ErrNameCollision, other, raw, py)
		}
		used[py] = raw
		m[raw] = py
	}

	stripped := make(map[string]int, len(sorted))
	for _, raw := range sorted {
		_, rest := splitPrefix(raw)
		stripped[rest]++
	}

	for _, raw := range sorted {
		if _, done := m[raw]; done {
			continue
		}
		py := candidate(raw, stripped)
		base := py
		for n := 2; ; n++ {
			if _, taken := used[py]; !taken {
				break
			}
			py = base + "_" + strconv.Itoa(n)
		}
		used[py] = raw
		m[raw] = py
	}
	return m, nil
}

// PyName returns the identifier of a raw command name.
func (m NameMap) PyName(raw string) (string, bool) {
	py, ok := m[raw]
	return py, ok
}

func candidate(raw string, stripped map[string]int) string {
	prefix, rest := splitPrefix(raw)
	if prefix == "" {
		switch {
		case isKeyword(rest):
			return rest + "_"
		case identRe.MatchString(rest):
			return rest
		default:
			return "cmd_" + rest
		}
	}
	if identRe.MatchString(rest) && !isKeyword(rest) && stripped[rest] == 1 {
		return rest
	}
	tokens := make([]string, 0, len(prefix))
	for _, r := range prefix {
		tok, ok := prefixTokens[r]
		if !ok {
			tok = "x"
		}
		tokens = append(tokens, tok)
	}
	if rest == "" {
		return strings.Join(tokens, "_")
	}
	return strings.Join(tokens, "_") + "_" + rest
}

// splitPrefix lower-cases raw and splits off its leading non-alphanumeric
// run. The remainder has every other non-alphanumeric rune replaced by "_".
func splitPrefix(raw string) (prefix, rest string) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	i := strings.IndexFunc(lower, isAlnum)
	if i < 0 {
		return lower, ""
	}
	return lower[:i], sanitize(lower[i:])
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func isAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isKeyword(s string) bool {
	_, ok := pythonKeywords[s]
	return ok
}
