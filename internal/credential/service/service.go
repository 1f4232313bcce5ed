// Package service implements the credential lifecycle: issuance, batch
// issuance, revocation, export, and import of externally issued
// credentials.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	accountpkg "certo/internal/account"
	achievementmodels "certo/internal/achievement/models"
	"certo/internal/credential/models"
	"certo/internal/credential/store"
	"certo/internal/openbadge"
	"certo/internal/platform/metrics"
	profilemodels "certo/internal/profile/models"
	"certo/internal/vc/signing"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/sentinel"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("certo/internal/credential")

// ProfileDirectory resolves issuer and recipient profiles.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, id int64) (*profilemodels.Profile, error)
	FindOrCreateRecipient(ctx context.Context, name, email string) (*profilemodels.Profile, error)
	FindOrCreateExternalIssuer(ctx context.Context, name, ref string) (*profilemodels.Profile, error)
}

// AchievementCatalog resolves the badge classes credentials reference.
type AchievementCatalog interface {
	Get(ctx context.Context, id int64) (*achievementmodels.Achievement, error)
	FindOrCreate(ctx context.Context, externalID, name, description string, criteria achievementmodels.Criteria) (*achievementmodels.Achievement, error)
}

// AccountProvisioner creates login accounts for first-time recipients.
// Provisioning failures never fail issuance.
type AccountProvisioner interface {
	EnsureAccount(ctx context.Context, email string) (*accountpkg.Account, error)
}

// StatusProjector mirrors revocations into status lists. Optional; the
// revoked flag on the credential row stays authoritative either way.
type StatusProjector interface {
	ProjectRevocation(ctx context.Context, issuerID int64, credentialID string) error
}

// Service drives the credential lifecycle.
type Service struct {
	store    store.Store
	evidence store.EvidenceStore
	profiles ProfileDirectory
	catalog  AchievementCatalog
	accounts AccountProvisioner
	status   StatusProjector
	signer   *signing.Signer
	runner   tx.Runner
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	baseURL  string
}

// Deps bundles the service dependencies.
type Deps struct {
	Store    store.Store
	Evidence store.EvidenceStore
	Profiles ProfileDirectory
	Catalog  AchievementCatalog
	Accounts AccountProvisioner
	Status   StatusProjector
	Signer   *signing.Signer
	Runner   tx.Runner
	Audit    audit.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	BaseURL  string
}

func New(deps Deps) *Service {
	return &Service{
		store:    deps.Store,
		evidence: deps.Evidence,
		profiles: deps.Profiles,
		catalog:  deps.Catalog,
		accounts: deps.Accounts,
		status:   deps.Status,
		signer:   deps.Signer,
		runner:   deps.Runner,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		baseURL:  strings.TrimRight(deps.BaseURL, "/"),
	}
}

// IssueInput carries the issuance request.
type IssueInput struct {
	AchievementID  int64
	IssuerID       int64
	Recipient      models.RecipientInput
	Name           string
	Description    string
	ExpirationDate *time.Time
	Evidence       []models.EvidenceInput
}

// Issue creates, persists, and signs a credential for one recipient. The
// recipient profile, credential row, and evidence rows commit as a unit.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*models.IssueResult, error) {
	ctx, span := tracer.Start(ctx, "credential.issue", trace.WithAttributes(
		attribute.Int64("achievement.id", in.AchievementID),
		attribute.Int64("issuer.id", in.IssuerID),
	))
	defer span.End()

	achievement, err := s.catalog.Get(ctx, in.AchievementID)
	if err != nil {
		return nil, err
	}
	if !achievement.Published {
		return nil, dErrors.New(dErrors.CodeNotFound, "achievement is not published")
	}
	issuerID := in.IssuerID
	if issuerID == 0 {
		issuerID = achievement.CreatorID
	}
	if issuerID == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "achievement has no creator issuer")
	}
	issuer, err := s.profiles.GetProfile(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	if !issuer.CanIssue() {
		return nil, dErrors.New(dErrors.CodeValidation, "profile cannot issue credentials")
	}
	if in.Recipient.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "recipient email is required")
	}

	var result *models.IssueResult
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		recipient, err := s.profiles.FindOrCreateRecipient(ctx, in.Recipient.Name, in.Recipient.Email)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		name := in.Name
		if name == "" {
			name = achievement.Name
		}
		description := in.Description
		if description == "" {
			description = achievement.Description
		}
		credential, err := s.store.Create(ctx, &models.Credential{
			CredentialID:   "urn:uuid:" + uuid.NewString(),
			Type:           openbadge.CredentialTypes,
			Name:           name,
			Description:    description,
			IssuanceDate:   now,
			ExpirationDate: in.ExpirationDate,
			AchievementID:  achievement.ID,
			IssuerID:       issuer.ID,
			RecipientID:    recipient.ID,
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create credential")
		}

		evidence := make([]models.Evidence, 0, len(in.Evidence))
		for _, item := range in.Evidence {
			row, err := s.evidence.Create(ctx, &models.Evidence{
				CredentialID: credential.ID,
				Name:         item.Name,
				Description:  item.Description,
				Narrative:    item.Narrative,
				Genre:        item.Genre,
				Audience:     item.Audience,
				URL:          item.URL,
			})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "create evidence")
			}
			evidence = append(evidence, *row)
		}

		bundle := &models.Bundle{
			Credential:  credential,
			Achievement: achievement,
			Issuer:      issuer,
			Recipient:   recipient,
			Evidence:    evidence,
		}
		document, outcome, err := s.signBundle(ctx, bundle)
		if err != nil {
			return err
		}
		credential.Proof = document.Proof
		if err := s.store.Update(ctx, credential); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "attach proof")
		}
		result = &models.IssueResult{
			Credential: credential,
			Document:   document,
			Signed:     outcome.Signed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.accounts != nil {
		if _, err := s.accounts.EnsureAccount(ctx, in.Recipient.Email); err != nil {
			s.logger.Warn("recipient account provisioning failed",
				"email", in.Recipient.Email, "error", err.Error())
		}
	}
	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}
	s.publish(ctx, audit.EventCredentialIssued, result.Credential.CredentialID, in.Recipient.Email, "")
	if !result.Signed {
		s.logger.Warn("credential issued with placeholder proof",
			"credential_id", result.Credential.CredentialID)
	}
	return result, nil
}

// signBundle serializes the bundle without proof, signs the canonical
// payload, and returns the document with the proof attached.
func (s *Service) signBundle(ctx context.Context, bundle *models.Bundle) (openbadge.Credential, signing.SigningOutcome, error) {
	document := s.SerializeBundle(bundle)
	document.Proof = nil
	payload, err := openbadge.CanonicalPayload(document)
	if err != nil {
		return openbadge.Credential{}, signing.SigningOutcome{}, err
	}
	method := s.verificationMethod(bundle.Issuer.ID)
	outcome := s.signer.Sign(payload, method, requestcontext.Now(ctx))
	document.Proof = []openbadge.Proof{outcome.Proof}
	return document, outcome, nil
}

func (s *Service) verificationMethod(issuerID int64) string {
	return s.baseURL + "/api/profiles/" + formatID(issuerID) + "/keys"
}

// ResolveByIdentifier finds a credential by storage primary key or by its
// urn:uuid credentialId. Numeric identifiers are tried as primary keys
// first; urn:uuid identifiers skip straight to the credentialId lookup.
func (s *Service) ResolveByIdentifier(ctx context.Context, identifier string) (*models.Credential, error) {
	if !strings.HasPrefix(identifier, "urn:uuid:") {
		if id, ok := parseID(identifier); ok {
			credential, err := s.store.FindByID(ctx, id)
			if err == nil {
				return credential, nil
			}
			if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find credential")
			}
		}
	}
	credential, err := s.store.FindByCredentialID(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find credential")
	}
	return credential, nil
}

// LoadBundle joins a credential with its achievement, profiles, and
// evidence.
func (s *Service) LoadBundle(ctx context.Context, credential *models.Credential) (*models.Bundle, error) {
	achievement, err := s.catalog.Get(ctx, credential.AchievementID)
	if err != nil {
		return nil, err
	}
	issuer, err := s.profiles.GetProfile(ctx, credential.IssuerID)
	if err != nil {
		return nil, err
	}
	var recipient *profilemodels.Profile
	if credential.RecipientID != 0 {
		recipient, err = s.profiles.GetProfile(ctx, credential.RecipientID)
		if err != nil {
			return nil, err
		}
	}
	evidence, err := s.evidence.ListByCredential(ctx, credential.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list evidence")
	}
	return &models.Bundle{
		Credential:  credential,
		Achievement: achievement,
		Issuer:      issuer,
		Recipient:   recipient,
		Evidence:    evidence,
	}, nil
}

func (s *Service) publish(ctx context.Context, action audit.AuditEvent, subject, email, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		Email:     email,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.ActorID(ctx),
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", "action", string(action), "error", err.Error())
	}
}
