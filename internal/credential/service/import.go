package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	achievementmodels "certo/internal/achievement/models"
	"certo/internal/credential/models"
	"certo/internal/openbadge"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// importDocument is the subset of an external credential the importer
// needs. The issuer may be a bare IRI or an embedded profile object.
type importDocument struct {
	ID                string          `json:"id"`
	Type              []string        `json:"type"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	IssuanceDate      string          `json:"issuanceDate"`
	ExpirationDate    string          `json:"expirationDate"`
	Issuer            json.RawMessage `json:"issuer"`
	CredentialSubject struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Achievement struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Criteria    struct {
				Narrative string `json:"narrative"`
				ID        string `json:"id"`
			} `json:"criteria"`
			Evidence []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Narrative   string `json:"narrative"`
				Genre       string `json:"genre"`
				Audience    string `json:"audience"`
				URL         string `json:"url"`
			} `json:"evidence"`
		} `json:"achievement"`
	} `json:"credentialSubject"`
	Proof json.RawMessage `json:"proof"`
}

// Import stores a credential issued elsewhere. The issuer, achievement,
// and recipient are matched to existing local records or created as
// placeholders. A credential whose id is already stored is rejected.
func (s *Service) Import(ctx context.Context, raw json.RawMessage) (*models.Credential, error) {
	var doc importDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse credential document")
	}
	if doc.ID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential id is required")
	}
	if !hasType(doc.Type, "VerifiableCredential") || !hasType(doc.Type, "OpenBadgeCredential") {
		return nil, dErrors.New(dErrors.CodeValidation, "document is not an open badge credential")
	}
	if _, err := s.store.FindByCredentialID(ctx, doc.ID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "credential already imported")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check credential id")
	}

	issuerName, issuerRef := parseIssuer(doc.Issuer)
	if issuerRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential issuer is required")
	}
	issuanceDate, err := parseDate(doc.IssuanceDate)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid issuanceDate")
	}
	var expirationDate *time.Time
	if doc.ExpirationDate != "" {
		parsed, err := parseDate(doc.ExpirationDate)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid expirationDate")
		}
		expirationDate = &parsed
	}

	var proofs []openbadge.Proof
	if len(doc.Proof) > 0 {
		if err := unmarshalProofs(doc.Proof, &proofs); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid proof block")
		}
	}

	var imported *models.Credential
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		issuer, err := s.profiles.FindOrCreateExternalIssuer(ctx, issuerName, issuerRef)
		if err != nil {
			return err
		}
		subject := doc.CredentialSubject
		achievementID := subject.Achievement.ID
		if achievementID == "" {
			achievementID = "urn:uuid:" + uuid.NewString()
		}
		achievement, err := s.catalog.FindOrCreate(ctx, achievementID,
			subject.Achievement.Name, subject.Achievement.Description,
			achievementmodels.Criteria{
				Narrative: subject.Achievement.Criteria.Narrative,
				URL:       subject.Achievement.Criteria.ID,
			})
		if err != nil {
			return err
		}
		var recipientID int64
		if email, ok := strings.CutPrefix(subject.ID, "mailto:"); ok {
			recipient, err := s.profiles.FindOrCreateRecipient(ctx, subject.Name, email)
			if err != nil {
				return err
			}
			recipientID = recipient.ID
		}

		name := doc.Name
		if name == "" {
			name = subject.Achievement.Name
		}
		credential, err := s.store.Create(ctx, &models.Credential{
			CredentialID:   doc.ID,
			Type:           doc.Type,
			Name:           name,
			Description:    doc.Description,
			IssuanceDate:   issuanceDate,
			ExpirationDate: expirationDate,
			Revoked:        false,
			AchievementID:  achievement.ID,
			IssuerID:       issuer.ID,
			RecipientID:    recipientID,
			Proof:          proofs,
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "credential already imported")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "store imported credential")
		}
		for _, item := range subject.Achievement.Evidence {
			if _, err := s.evidence.Create(ctx, &models.Evidence{
				CredentialID: credential.ID,
				Name:         item.Name,
				Description:  item.Description,
				Narrative:    item.Narrative,
				Genre:        item.Genre,
				Audience:     item.Audience,
				URL:          item.URL,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "store imported evidence")
			}
		}
		imported = credential
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CredentialsImported.Inc()
	}
	s.publish(ctx, audit.EventCredentialImported, imported.CredentialID, "", "")
	return imported, nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// parseIssuer accepts either a bare IRI string or an embedded profile
// object with id and name.
func parseIssuer(raw json.RawMessage) (name, ref string) {
	if len(raw) == 0 {
		return "", ""
	}
	var iri string
	if err := json.Unmarshal(raw, &iri); err == nil {
		return "", iri
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", ""
	}
	return obj.Name, obj.ID
}

// unmarshalProofs accepts a single proof object or an array of proofs.
func unmarshalProofs(raw json.RawMessage, out *[]openbadge.Proof) error {
	if err := json.Unmarshal(raw, out); err == nil {
		return nil
	}
	var single openbadge.Proof
	if err := json.Unmarshal(raw, &single); err != nil {
		return err
	}
	*out = []openbadge.Proof{single}
	return nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
