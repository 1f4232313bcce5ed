// Package models defines issuer and recipient profiles.
package models

import (
	"time"

	"github.com/go-jose/go-jose/v4"
)

// ProfileType distinguishes how a profile participates in issuance.
type ProfileType string

const (
	TypeIssuer    ProfileType = "Issuer"
	TypeRecipient ProfileType = "Recipient"
	TypeBoth      ProfileType = "Both"
)

// Profile is an issuer or recipient identity. Issuer profiles may carry
// public key descriptors served at /api/profiles/{id}/keys.
type Profile struct {
	ID          int64
	Name        string
	Email       string
	URL         string
	DID         string
	Description string
	ProfileType ProfileType
	PublicKeys  []KeyDescriptor
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KeyDescriptor is a verification method owned by a profile.
type KeyDescriptor struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	Controller   string           `json:"controller"`
	PublicKeyJWK *jose.JSONWebKey `json:"publicKeyJwk,omitempty"`
}

// CanIssue reports whether credentials may be issued under this profile.
func (p Profile) CanIssue() bool {
	return p.ProfileType == TypeIssuer || p.ProfileType == TypeBoth
}
