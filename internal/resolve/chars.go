package resolve

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/runenames"
)

// lastNamedRune bounds the reverse index to the planes that carry named
// characters used in documentation.
const lastNamedRune = 0x2FFFF

var (
	charIndexOnce sync.Once
	charIndex     map[string]rune
)

// lookupChar finds a character by its Unicode name, case-insensitively.
func lookupChar(name string) (rune, bool) {
	charIndexOnce.Do(buildCharIndex)
	r, ok := charIndex[strings.ToUpper(strings.TrimSpace(name))]
	return r, ok
}

func buildCharIndex() {
	charIndex = make(map[string]rune, 1<<16)
	for r := rune(0); r <= lastNamedRune; r++ {
		name := runenames.Name(r)
		// Range entries such as "<CJK Ideograph>" are not lookup keys.
		if name == "" || strings.HasPrefix(name, "<") {
			continue
		}
		if _, dup := charIndex[name]; !dup {
			charIndex[name] = r
		}
	}
}
