package openbadge

import (
	"fmt"
	"time"
)

// SerializeInput carries everything needed to render a credential document.
// Callers pass plain values so this package stays free of store types.
type SerializeInput struct {
	BaseURL        string
	CredentialID   string
	Name           string
	Description    string
	IssuanceDate   time.Time
	ExpirationDate *time.Time

	IssuerID   int64
	IssuerName string
	IssuerURL  string

	RecipientEmail string
	RecipientName  string

	AchievementPK   int64
	AchievementName string
	AchievementDesc string
	CriteriaText    string
	CriteriaURL     string
	ImageURL        string
	Alignments      []Alignment

	Evidence []Evidence

	Proof []Proof
}

// Serialize builds the Open Badges 3.0 document for a stored credential.
// Identifiers are derived from the service base URL so the same bundle
// always serializes to the same bytes.
func Serialize(in SerializeInput) Credential {
	cred := Credential{
		Context:      ContextURIs,
		ID:           in.CredentialID,
		Type:         CredentialTypes,
		Name:         in.Name,
		Description:  in.Description,
		IssuanceDate: in.IssuanceDate.UTC().Format(time.RFC3339),
		Issuer: Issuer{
			ID:   fmt.Sprintf("%s/api/profiles/%d", in.BaseURL, in.IssuerID),
			Type: []string{"Profile"},
			Name: in.IssuerName,
			URL:  in.IssuerURL,
		},
		CredentialSubject: Subject{
			Type: []string{"AchievementSubject"},
			Name: in.RecipientName,
			Achievement: Achievement{
				ID:         fmt.Sprintf("%s/api/achievements/%d", in.BaseURL, in.AchievementPK),
				Type:       []string{"Achievement"},
				Name:       in.AchievementName,
				Alignments: in.Alignments,
				Evidence:   in.Evidence,
			},
		},
		Proof: in.Proof,
	}
	cred.CredentialSubject.Achievement.Description = in.AchievementDesc
	if in.RecipientEmail != "" {
		cred.CredentialSubject.ID = "mailto:" + in.RecipientEmail
	}
	if in.ExpirationDate != nil {
		cred.ExpirationDate = in.ExpirationDate.UTC().Format(time.RFC3339)
	}
	if in.CriteriaText != "" || in.CriteriaURL != "" {
		cred.CredentialSubject.Achievement.Criteria = &Criteria{
			Narrative: in.CriteriaText,
			ID:        in.CriteriaURL,
		}
	}
	if in.ImageURL != "" {
		cred.CredentialSubject.Achievement.Image = &Image{ID: in.ImageURL, Type: "Image"}
	}
	return cred
}
