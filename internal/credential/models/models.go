// Package models defines the stored credential record and its issuance
// inputs.
package models

import (
	"time"

	achievementmodels "certo/internal/achievement/models"
	"certo/internal/openbadge"
	profilemodels "certo/internal/profile/models"
)

// Credential is an issued or imported credential row. CredentialID is the
// urn:uuid identifier embedded in the serialized document; ID is the
// storage primary key. The record is exposed as rawCredential on
// verification verdicts, hence the JSON tags.
type Credential struct {
	ID               int64             `json:"id"`
	CredentialID     string            `json:"credentialId"`
	Type             []string          `json:"type"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	IssuanceDate     time.Time         `json:"issuanceDate"`
	ExpirationDate   *time.Time        `json:"expirationDate,omitempty"`
	Revoked          bool              `json:"revoked"`
	RevocationReason string            `json:"revocationReason,omitempty"`
	AchievementID    int64             `json:"achievementId,omitempty"`
	IssuerID         int64             `json:"issuerId"`
	RecipientID      int64             `json:"recipientId,omitempty"`
	Proof            []openbadge.Proof `json:"proof,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Evidence is a supporting artifact attached to a credential.
type Evidence struct {
	ID           int64
	CredentialID int64
	Name         string
	Description  string
	Narrative    string
	Genre        string
	Audience     string
	URL          string
	CreatedAt    time.Time
}

// Bundle is a credential joined with everything needed to serialize it.
type Bundle struct {
	Credential  *Credential
	Achievement *achievementmodels.Achievement
	Issuer      *profilemodels.Profile
	Recipient   *profilemodels.Profile
	Evidence    []Evidence
}

// RecipientInput identifies who receives a credential at issuance.
type RecipientInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EvidenceInput is the evidence payload accepted at issuance.
type EvidenceInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Narrative   string `json:"narrative,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Audience    string `json:"audience,omitempty"`
	URL         string `json:"url,omitempty"`
}

// IssueResult pairs the stored credential with its serialized document.
type IssueResult struct {
	Credential *Credential
	Document   openbadge.Credential
	Signed     bool
}

// BatchItem is one recipient's outcome in a batch issuance. Failures are
// isolated per recipient; the batch never aborts as a whole.
type BatchItem struct {
	Success   bool                  `json:"success"`
	Recipient string                `json:"recipient"`
	Data      *openbadge.Credential `json:"data,omitempty"`
	Error     string                `json:"error,omitempty"`
}
