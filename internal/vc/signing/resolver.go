package signing

import (
	"context"
	"crypto/ed25519"

	profilemodels "certo/internal/profile/models"
	dErrors "certo/pkg/domain-errors"
)

// ProfileKeys reads the verification key descriptors registered on a
// profile. Implemented by the profile service.
type ProfileKeys interface {
	Keys(ctx context.Context, profileID int64) ([]profilemodels.KeyDescriptor, error)
}

// ProfileKeyResolver resolves an issuer's verification key from the
// first key descriptor on its profile, so a credential only verifies
// against a key the recorded issuer actually owns. Issuers without
// descriptors fall back to the service signing key.
type ProfileKeyResolver struct {
	profiles ProfileKeys
	signer   *Signer
}

func NewProfileKeyResolver(profiles ProfileKeys, signer *Signer) *ProfileKeyResolver {
	return &ProfileKeyResolver{profiles: profiles, signer: signer}
}

func (r *ProfileKeyResolver) ResolvePublicKey(ctx context.Context, issuerID int64) (ed25519.PublicKey, error) {
	descriptors, err := r.profiles.Keys(ctx, issuerID)
	if err != nil || len(descriptors) == 0 {
		return r.serviceKey()
	}
	jwk := descriptors[0].PublicKeyJWK
	if jwk == nil {
		return r.serviceKey()
	}
	key, ok := jwk.Key.(ed25519.PublicKey)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "issuer key is not an Ed25519 key")
	}
	return key, nil
}

func (r *ProfileKeyResolver) serviceKey() (ed25519.PublicKey, error) {
	key, ok := r.signer.PublicKey()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no verification key configured")
	}
	return key, nil
}
