// Package models defines revocation status lists, the published
// projection of per-credential revoked flags.
package models

import (
	"strings"
	"time"
)

// StatusList is a published list of revoked entries for one issuer.
// EncodedList holds comma-separated entries, either status indices or
// credentialId URNs. The credential row's revoked flag stays
// authoritative; lists exist so external verifiers can poll revocation
// state without fetching each credential.
type StatusList struct {
	ID                   int64
	IssuerID             int64
	StatusListCredential string
	StatusPurpose        string
	EncodedList          string
	LastUpdated          time.Time
	CreatedAt            time.Time
}

// Entries splits the encoded list into its entries, dropping empties.
func (l StatusList) Entries() []string {
	if l.EncodedList == "" {
		return nil
	}
	parts := strings.Split(l.EncodedList, ",")
	entries := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			entries = append(entries, trimmed)
		}
	}
	return entries
}

// Contains reports whether the entry is in the encoded list.
func (l StatusList) Contains(entry string) bool {
	for _, existing := range l.Entries() {
		if existing == entry {
			return true
		}
	}
	return false
}

// WithEntry returns the encoded list with the entry added, preserving
// order. Adding an existing entry returns the list unchanged.
func (l StatusList) WithEntry(entry string) string {
	if l.Contains(entry) {
		return l.EncodedList
	}
	if l.EncodedList == "" {
		return entry
	}
	return l.EncodedList + "," + entry
}
