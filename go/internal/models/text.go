package models

// ReferenceText is the fixed character sequence a session requires the
// user to reproduce exactly. Immutable once fetched for a session.
type ReferenceText struct {
	ID      string `json:"id"`
	Content string `json:"text"`
}
