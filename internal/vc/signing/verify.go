package signing

import (
	"crypto/ed25519"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// VerifyJWS checks a compact EdDSA JWS against the public key and returns
// the signed payload on success.
func VerifyJWS(compact string, key ed25519.PublicKey) ([]byte, error) {
	object, err := jose.ParseSigned(compact, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return nil, fmt.Errorf("parse jws: %w", err)
	}
	payload, err := object.Verify(key)
	if err != nil {
		return nil, fmt.Errorf("verify jws: %w", err)
	}
	return payload, nil
}
