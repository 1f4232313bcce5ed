package service

import (
	"context"

	"certo/internal/credential/models"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
)

// Revoke marks a credential revoked with an optional reason. Revoking an
// already-revoked credential is a no-op, except that an explicitly
// supplied reason replaces the recorded one.
func (s *Service) Revoke(ctx context.Context, identifier, reason string) (*models.Credential, error) {
	credential, err := s.ResolveByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if credential.Revoked {
		if reason == "" || reason == credential.RevocationReason {
			return credential, nil
		}
		credential.RevocationReason = reason
		if err := s.store.Update(ctx, credential); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update revocation reason")
		}
		return credential, nil
	}
	credential.Revoked = true
	credential.RevocationReason = reason
	if err := s.store.Update(ctx, credential); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "revoke credential")
	}
	if s.status != nil {
		if err := s.status.ProjectRevocation(ctx, credential.IssuerID, credential.CredentialID); err != nil {
			s.logger.Warn("status list projection failed",
				"credential_id", credential.CredentialID, "error", err.Error())
		}
	}
	if s.metrics != nil {
		s.metrics.CredentialsRevoked.Inc()
	}
	s.publish(ctx, audit.EventCredentialRevoked, credential.CredentialID, "", reason)
	return credential, nil
}
