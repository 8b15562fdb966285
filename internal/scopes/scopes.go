package scopes

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// authPrefix is the generic Google API scope prefix; the remainder of the URL
// is the scope name.
const authPrefix = "https://www.googleapis.com/auth/"

// Legacy scopes that predate the /auth/ naming scheme.
const (
	MailScope     = "https://mail.google.com/"
	CalendarFeeds = "https://www.google.com/calendar/feeds"
	ContactsFeeds = "https://www.google.com/m8/feeds"
)

// Known lists the recognized scope shapes in the order they are tried.
var Known = []Shape{
	{Name: "auth", Prefix: authPrefix, NameRequired: true},
	{Name: "mail", Prefix: MailScope},
	{Name: "calendar-feeds", Prefix: CalendarFeeds},
	{Name: "contacts-feeds", Prefix: ContactsFeeds},
}

// Defaults is the scope text the loader component is declared with.
const Defaults = "https://www.googleapis.com/auth/drive.readonly,\n" +
	"https://www.googleapis.com/auth/drive.activity.readonly"

// ErrEmpty is returned by Parse when no scope survives trimming.
var ErrEmpty = errors.New("scopes must not be empty")

// Shape describes one recognized scope URL form.
type Shape struct {
	Name   string
	Prefix string
	// NameRequired means Prefix must be followed by a non-empty scope name
	// made of letters, digits, '_', '.' and '-'. Otherwise the element must
	// equal Prefix exactly.
	NameRequired bool
}

// Match reports whether element is an instance of the shape.
func (s Shape) Match(element string) bool {
	if !s.NameRequired {
		return element == s.Prefix
	}
	name, ok := strings.CutPrefix(element, s.Prefix)
	if !ok || name == "" {
		return false
	}
	for _, r := range name {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func isNameRune(r rune) bool {
	switch {
	case r == '_' || r == '.' || r == '-':
		return true
	case r < unicode.MaxASCII:
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
	default:
		// Unicode letters and digits count as word characters.
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
}

// SyntaxError reports the first element of a scope list that does not match
// any recognized shape.
type SyntaxError struct {
	// Position is the zero-based index of the offending element.
	Position int
	Element  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid scope %q at position %d: scopes must be comma-separated URLs without extra quotes", e.Element, e.Position)
}

// Validate checks input against the scope list grammar
//
//	scope ( "," ws* scope )*
//
// where scope is one of the Known shapes.
func Validate(input string) error {
	// A single trailing newline is tolerated, as multi-line inputs usually end with one.
	input = strings.TrimSuffix(input, "\n")
	for i, element := range strings.Split(input, ",") {
		if i > 0 {
			element = strings.TrimLeftFunc(element, unicode.IsSpace)
		}
		if !matchAny(element) {
			return &SyntaxError{Position: i, Element: element}
		}
	}
	return nil
}

func matchAny(element string) bool {
	for _, shape := range Known {
		if shape.Match(element) {
			return true
		}
	}
	return false
}

// Parse validates input and returns the individual scopes.
func Parse(input string) ([]string, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	var out []string
	for _, s := range strings.Split(input, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// Join renders scopes in the canonical ", " separated form accepted by Parse.
func Join(list []string) string {
	return strings.Join(list, ", ")
}
