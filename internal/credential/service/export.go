package service

import (
	"context"

	"certo/internal/openbadge"
	dErrors "certo/pkg/domain-errors"
)

// Export returns the full serialized document for a credential. A
// credential stored without a proof (for example one imported before
// signing was configured locally) is signed on the way out and the proof
// persisted.
func (s *Service) Export(ctx context.Context, identifier string) (openbadge.Credential, error) {
	credential, err := s.ResolveByIdentifier(ctx, identifier)
	if err != nil {
		return openbadge.Credential{}, err
	}
	bundle, err := s.LoadBundle(ctx, credential)
	if err != nil {
		return openbadge.Credential{}, err
	}
	if len(credential.Proof) > 0 {
		return s.SerializeBundle(bundle), nil
	}

	document, outcome, err := s.signBundle(ctx, bundle)
	if err != nil {
		return openbadge.Credential{}, err
	}
	credential.Proof = document.Proof
	if err := s.store.Update(ctx, credential); err != nil {
		return openbadge.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist export proof")
	}
	if !outcome.Signed {
		s.logger.Warn("credential exported with placeholder proof",
			"credential_id", credential.CredentialID)
	}
	return document, nil
}
