// Package service manages status lists, the published projection of
// credential revocations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"certo/internal/revocation/cache"
	"certo/internal/revocation/models"
	"certo/internal/revocation/store"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"

	"github.com/google/uuid"
)

// Service maintains status lists and answers revocation status queries.
type Service struct {
	store  store.Store
	cache  *cache.RevocationCache
	audit  audit.Publisher
	logger *slog.Logger
}

func New(st store.Store, revCache *cache.RevocationCache, auditPub audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: st, cache: revCache, audit: auditPub, logger: logger}
}

// CreateStatusList publishes a new, empty status list for an issuer.
func (s *Service) CreateStatusList(ctx context.Context, issuerID int64, purpose string) (*models.StatusList, error) {
	if issuerID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "issuer id is required")
	}
	if purpose == "" {
		purpose = "revocation"
	}
	created, err := s.store.Create(ctx, &models.StatusList{
		IssuerID:             issuerID,
		StatusListCredential: "urn:uuid:" + uuid.NewString(),
		StatusPurpose:        purpose,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create status list")
	}
	s.publish(ctx, audit.EventStatusListCreated, created.StatusListCredential, "")
	return created, nil
}

// GetStatusList returns a status list by id.
func (s *Service) GetStatusList(ctx context.Context, id int64) (*models.StatusList, error) {
	list, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "status list not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find status list")
	}
	return list, nil
}

// RevokeEntry adds an entry to a status list. Adding an entry that is
// already present is a no-op.
func (s *Service) RevokeEntry(ctx context.Context, listID int64, entry string) (*models.StatusList, error) {
	if entry == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entry is required")
	}
	list, err := s.GetStatusList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.Contains(entry) {
		return list, nil
	}
	list.EncodedList = list.WithEntry(entry)
	if err := s.store.Update(ctx, list); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update status list")
	}
	s.cache.Invalidate(ctx, list.IssuerID, entry)
	s.publish(ctx, audit.EventStatusListRevoked, list.StatusListCredential, entry)
	return list, nil
}

// ProjectRevocation mirrors a credential revocation onto the issuer's
// status list, creating the list on first use. Satisfies the credential
// service's StatusProjector.
func (s *Service) ProjectRevocation(ctx context.Context, issuerID int64, credentialID string) error {
	list, err := s.store.FindByIssuer(ctx, issuerID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "find status list")
		}
		list, err = s.CreateStatusList(ctx, issuerID, "revocation")
		if err != nil {
			return err
		}
	}
	_, err = s.RevokeEntry(ctx, list.ID, credentialID)
	return err
}

// CheckCredentialStatus reports whether a credential appears on its
// issuer's status list. The Redis cache is consulted first; misses fall
// through to the store and populate the cache.
func (s *Service) CheckCredentialStatus(ctx context.Context, issuerID int64, credentialID string) (bool, error) {
	if revoked, found := s.cache.Get(ctx, issuerID, credentialID); found {
		return revoked, nil
	}
	list, err := s.store.FindByIssuer(ctx, issuerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.cache.Set(ctx, issuerID, credentialID, false)
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "find status list")
	}
	revoked := list.Contains(credentialID)
	s.cache.Set(ctx, issuerID, credentialID, revoked)
	return revoked, nil
}

// CheckStatusInList is the pure membership check, exposed for callers
// that already hold an encoded list.
func CheckStatusInList(encodedList, entry string) bool {
	return models.StatusList{EncodedList: encodedList}.Contains(entry)
}

func (s *Service) publish(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.ActorID(ctx),
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", "action", string(action), "error", err.Error())
	}
}

// EntryForIndex renders a numeric status index as a list entry.
func EntryForIndex(index int64) string {
	return strconv.FormatInt(index, 10)
}
