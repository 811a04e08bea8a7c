// Package searchtext derives the denormalized prefix-search keys stored on
// each demand.
//
// MongoDB has no case/diacritic-insensitive prefix search across several
// fields, so every demand carries three folded concatenations of the
// member's identity (last name, first name, matricule) in different orders.
// A query matches when it is a prefix of any of the three; it is not a
// substring search.
package searchtext

import (
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/text"
)

// MinQueryLen is the shortest trimmed query that activates the search path.
const MinQueryLen = 2

// Field names of the three keys on demand documents.
const (
	FieldByLastName  = "search_lastname_first"
	FieldByFirstName = "search_firstname_first"
	FieldByMatricule = "search_matricule_first"
)

// AllFields lists the search key fields in fan-out order.
var AllFields = []string{FieldByLastName, FieldByFirstName, FieldByMatricule}

// Fields holds the three derived keys for one member.
type Fields struct {
	ByLastName  string
	ByFirstName string
	ByMatricule string
}

// Normalize lower-cases, strips diacritics and trims s.
func Normalize(s string) string {
	return strings.TrimSpace(text.Fold(strings.TrimSpace(s)))
}

// Build returns the three search keys for a member identity.
func Build(lastName, firstName, matricule string) Fields {
	return Fields{
		ByLastName:  join(lastName, firstName, matricule),
		ByFirstName: join(firstName, lastName, matricule),
		ByMatricule: join(matricule, lastName, firstName),
	}
}

// join normalizes the parts and joins the non-empty ones with single spaces.
func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return Normalize(strings.Join(out, " "))
}

// Query normalizes a raw search string and reports whether it is long
// enough to be used.
func Query(raw string) (string, bool) {
	q := Normalize(raw)
	if utf8.RuneCountInString(q) < MinQueryLen {
		return "", false
	}
	return q, true
}

// PrefixRange returns the [lo, hi) bounds that match every key starting
// with the normalized query q. Both are empty when q is.
func PrefixRange(q string) (lo, hi string) {
	return q, text.HiFromFolded(q)
}

// Matches reports whether the normalized query q is a prefix of any key.
// It mirrors the store's range predicates for in-memory callers.
func (f Fields) Matches(q string) bool {
	if q == "" {
		return false
	}
	return strings.HasPrefix(f.ByLastName, q) ||
		strings.HasPrefix(f.ByFirstName, q) ||
		strings.HasPrefix(f.ByMatricule, q)
}
