package cms

import (
	"fmt"
	"strings"
)

// Predicate is one clause of a content store query
type Predicate string

// At matches documents whose field at path equals value exactly,
// e.g. At("document.type", "posts").
func At(path, value string) Predicate {
	return Predicate(fmt.Sprintf("[at(%s, %q)]", path, value))
}

// Join combines predicates into the q parameter of a search
func Join(predicates []Predicate) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range predicates {
		b.WriteString(string(p))
	}
	b.WriteByte(']')
	return b.String()
}
