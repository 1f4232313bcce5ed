// Package signing loads the service Ed25519 key and produces Data
// Integrity proofs for issued credentials.
package signing

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	dErrors "certo/pkg/domain-errors"

	"github.com/go-jose/go-jose/v4"
)

// LoadSigningKey decodes an Ed25519 private key from its environment
// encoding: base64 over either a PKCS#8 PEM block or raw PKCS#8 DER.
func LoadSigningKey(encoded string) (ed25519.PrivateKey, error) {
	if encoded == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "signing key not configured")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "signing key is not valid base64")
	}
	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "signing key is not PKCS#8")
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, dErrors.New(dErrors.CodeConfiguration, "signing key is not Ed25519")
	}
	return key, nil
}

// PublicJWK renders the public half of the key as a JWK. The boolean is
// false when no key is loaded.
func (s *Signer) PublicJWK() (*jose.JSONWebKey, bool) {
	if s == nil || s.key == nil {
		return nil, false
	}
	return &jose.JSONWebKey{
		Key:       s.key.Public(),
		Algorithm: string(jose.EdDSA),
		Use:       "sig",
	}, true
}

// PublicKey returns the raw Ed25519 public key. The boolean is false when
// no key is loaded.
func (s *Signer) PublicKey() (ed25519.PublicKey, bool) {
	if s == nil || s.key == nil {
		return nil, false
	}
	return s.key.Public().(ed25519.PublicKey), true
}
