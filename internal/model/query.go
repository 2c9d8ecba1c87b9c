package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Query is an analytical request sent to a remote source.
// Text is opaque: it is never parsed or validated beyond being non-empty.
type Query struct {
	Name string `json:"name,omitempty" yaml:"name"` // caller-chosen identifier
	Text string `json:"query" yaml:"query"`
}

// NewQuery builds a Query from a name and request text.
func NewQuery(name, text string) Query {
	return Query{Name: strings.TrimSpace(name), Text: text}
}

// Empty reports whether the request text is blank.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Text) == ""
}

// Key returns the hex SHA-256 of the query's name and text.
func (q Query) Key() string {
	h := sha256.New()
	h.Write([]byte(q.Name))
	h.Write([]byte{0})
	h.Write([]byte(q.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// Label is the name when set, otherwise a short key prefix.
func (q Query) Label() string {
	if q.Name != "" {
		return q.Name
	}
	return q.Key()[:12]
}
