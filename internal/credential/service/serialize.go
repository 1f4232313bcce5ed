package service

import (
	"strconv"

	"certo/internal/credential/models"
	"certo/internal/openbadge"
)

// SerializeBundle renders the Open Badges document for a stored
// credential. Issuance, export, and verification all serialize through
// here so the canonical bytes are stable. Achievement and issuer fields
// are read from the current rows, and the stored signature covers the
// result: rows referenced by issued credentials must not be mutated.
func (s *Service) SerializeBundle(bundle *models.Bundle) openbadge.Credential {
	in := openbadge.SerializeInput{
		BaseURL:        s.baseURL,
		CredentialID:   bundle.Credential.CredentialID,
		Name:           bundle.Credential.Name,
		Description:    bundle.Credential.Description,
		IssuanceDate:   bundle.Credential.IssuanceDate,
		ExpirationDate: bundle.Credential.ExpirationDate,
		IssuerID:       bundle.Issuer.ID,
		IssuerName:     bundle.Issuer.Name,
		IssuerURL:      bundle.Issuer.URL,
		Proof:          bundle.Credential.Proof,
	}
	if bundle.Recipient != nil {
		in.RecipientEmail = bundle.Recipient.Email
		in.RecipientName = bundle.Recipient.Name
	}
	if bundle.Achievement != nil {
		in.AchievementPK = bundle.Achievement.ID
		in.AchievementName = bundle.Achievement.Name
		in.AchievementDesc = bundle.Achievement.Description
		in.CriteriaText = bundle.Achievement.Criteria.Narrative
		in.CriteriaURL = bundle.Achievement.Criteria.URL
		in.ImageURL = bundle.Achievement.ImageURL
		for _, alignment := range bundle.Achievement.Alignments {
			in.Alignments = append(in.Alignments, openbadge.Alignment{
				Type:        "Alignment",
				TargetName:  alignment.TargetName,
				TargetURL:   alignment.TargetURL,
				TargetType:  alignment.TargetType,
				Description: alignment.Description,
			})
		}
	}
	for _, evidence := range bundle.Evidence {
		in.Evidence = append(in.Evidence, openbadge.Evidence{
			ID:          s.baseURL + "/api/evidences/" + formatID(evidence.ID),
			Type:        []string{"Evidence"},
			Name:        evidence.Name,
			Description: evidence.Description,
			Narrative:   evidence.Narrative,
			Genre:       evidence.Genre,
			Audience:    evidence.Audience,
			URL:         evidence.URL,
		})
	}
	return openbadge.Serialize(in)
}

// CanonicalPayload returns the signing input for a bundle: the serialized
// document with the proof removed.
func (s *Service) CanonicalPayload(bundle *models.Bundle) ([]byte, error) {
	document := s.SerializeBundle(bundle)
	document.Proof = nil
	return openbadge.CanonicalPayload(document)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
