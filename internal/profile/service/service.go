// Package service orchestrates profile management: issuer registration,
// recipient resolution during issuance and import, and serving issuer
// verification keys.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"

	"certo/internal/profile/models"
	"certo/internal/profile/store"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"

	"github.com/go-jose/go-jose/v4"
)

// KeyProvider exposes the service signing key as a public JWK.
type KeyProvider interface {
	PublicJWK() (*jose.JSONWebKey, bool)
}

// Service manages issuer and recipient profiles.
type Service struct {
	store   store.Store
	keys    KeyProvider
	audit   audit.Publisher
	logger  *slog.Logger
	baseURL string
}

func New(st store.Store, keys KeyProvider, auditPub audit.Publisher, logger *slog.Logger, baseURL string) *Service {
	return &Service{
		store:   st,
		keys:    keys,
		audit:   auditPub,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// CreateInput carries the fields accepted when registering a profile.
type CreateInput struct {
	Name        string
	Email       string
	URL         string
	DID         string
	Description string
	ProfileType models.ProfileType
}

// CreateProfile registers a new profile. Issuer profiles get a key
// descriptor pointing at the service signing key so their credentials
// can be verified externally.
func (s *Service) CreateProfile(ctx context.Context, in CreateInput) (*models.Profile, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "profile name is required")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid profile email")
		}
	}
	profileType := in.ProfileType
	if profileType == "" {
		profileType = models.TypeIssuer
	}
	switch profileType {
	case models.TypeIssuer, models.TypeRecipient, models.TypeBoth:
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "invalid profile type")
	}

	profile := &models.Profile{
		Name:        in.Name,
		Email:       in.Email,
		URL:         in.URL,
		DID:         in.DID,
		Description: in.Description,
		ProfileType: profileType,
	}
	created, err := s.store.Create(ctx, profile)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create profile")
	}
	if created.CanIssue() {
		if err := s.EnsureIssuerKey(ctx, created); err != nil {
			s.logger.Warn("issuer key descriptor not attached",
				"profile_id", created.ID, "error", err.Error())
		}
	}
	s.publish(ctx, audit.EventProfileCreated, created)
	return created, nil
}

// GetProfile returns a profile by primary key.
func (s *Service) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	profile, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find profile")
	}
	return profile, nil
}

// ListProfiles returns all registered profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return s.store.List(ctx)
}

// Keys returns the verification methods of an issuer profile. This backs
// the document referenced by every proof's verificationMethod URL.
func (s *Service) Keys(ctx context.Context, id int64) ([]models.KeyDescriptor, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !profile.CanIssue() {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile has no verification keys")
	}
	if len(profile.PublicKeys) == 0 {
		if err := s.EnsureIssuerKey(ctx, profile); err != nil {
			return nil, err
		}
	}
	return profile.PublicKeys, nil
}

// JWKS renders the issuer keys as an RFC 7517 key set.
func (s *Service) JWKS(ctx context.Context, id int64) (*jose.JSONWebKeySet, error) {
	descriptors, err := s.Keys(ctx, id)
	if err != nil {
		return nil, err
	}
	set := &jose.JSONWebKeySet{}
	for _, descriptor := range descriptors {
		if descriptor.PublicKeyJWK != nil {
			set.Keys = append(set.Keys, *descriptor.PublicKeyJWK)
		}
	}
	return set, nil
}

// EnsureIssuerKey attaches the service signing key to the profile when it
// has no descriptors yet. A missing signing key is not fatal; issuance
// then falls back to unsigned placeholder proofs.
func (s *Service) EnsureIssuerKey(ctx context.Context, profile *models.Profile) error {
	if len(profile.PublicKeys) > 0 {
		return nil
	}
	jwk, ok := s.keys.PublicJWK()
	if !ok {
		return dErrors.New(dErrors.CodeConfiguration, "no signing key configured")
	}
	controller := s.profileURL(profile.ID)
	profile.PublicKeys = []models.KeyDescriptor{{
		ID:           controller + "/keys",
		Type:         "Ed25519VerificationKey2020",
		Controller:   controller,
		PublicKeyJWK: jwk,
	}}
	if err := s.store.Update(ctx, profile); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "attach issuer key")
	}
	return nil
}

// FindOrCreateRecipient resolves a recipient profile by email, creating
// one when absent. Issuance and import both funnel through here so a
// person holds all their credentials under one profile.
func (s *Service) FindOrCreateRecipient(ctx context.Context, name, email string) (*models.Profile, error) {
	address, err := mail.ParseAddress(email)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid recipient email")
	}
	existing, err := s.store.FindByEmail(ctx, address.Address)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find recipient")
	}
	created, err := s.store.Create(ctx, &models.Profile{
		Name:        name,
		Email:       address.Address,
		ProfileType: models.TypeRecipient,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create recipient")
	}
	return created, nil
}

// FindOrCreateExternalIssuer resolves an issuer profile referenced by an
// imported credential, matching by DID first and URL second.
func (s *Service) FindOrCreateExternalIssuer(ctx context.Context, name, ref string) (*models.Profile, error) {
	isDID := strings.HasPrefix(ref, "did:")
	var (
		existing *models.Profile
		err      error
	)
	if isDID {
		existing, err = s.store.FindByDID(ctx, ref)
	} else {
		existing, err = s.store.FindByURL(ctx, ref)
	}
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find external issuer")
	}
	profile := &models.Profile{Name: name, ProfileType: models.TypeIssuer}
	if isDID {
		profile.DID = ref
	} else {
		profile.URL = ref
	}
	created, err := s.store.Create(ctx, profile)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create external issuer")
	}
	return created, nil
}

func (s *Service) profileURL(id int64) string {
	return s.baseURL + "/api/profiles/" + strconv.FormatInt(id, 10)
}

func (s *Service) publish(ctx context.Context, action audit.AuditEvent, profile *models.Profile) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   strconv.FormatInt(profile.ID, 10),
		Action:    string(action),
		Email:     profile.Email,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.ActorID(ctx),
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", "action", string(action), "error", err.Error())
	}
}
