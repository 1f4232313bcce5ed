package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"certo/internal/openbadge"

	"github.com/go-jose/go-jose/v4"
)

// Signer produces Ed25519Signature2020 proofs over canonical credential
// payloads. A Signer with no key still works: it emits placeholder proofs
// so issuance never fails on key misconfiguration, and SigningOutcome
// reports which path was taken.
type Signer struct {
	key    ed25519.PrivateKey
	logger *slog.Logger
}

// New constructs a Signer. key may be nil when no signing key is
// configured.
func New(key ed25519.PrivateKey, logger *slog.Logger) *Signer {
	return &Signer{key: key, logger: logger}
}

// SigningOutcome reports how a proof was produced. Signed is false for
// placeholder proofs, with Reason explaining why.
type SigningOutcome struct {
	Signed bool
	Proof  openbadge.Proof
	Reason string
}

// Sign produces a proof over the canonical payload. verificationMethod is
// the issuer keys URL embedded in the proof.
func (s *Signer) Sign(payload []byte, verificationMethod string, created time.Time) SigningOutcome {
	proof := openbadge.Proof{
		Type:               openbadge.ProofTypeEd25519,
		Created:            created.UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethod,
		ProofPurpose:       openbadge.PurposeAssertion,
	}
	if s.key == nil {
		proof.ProofValue = placeholderProofValue()
		return SigningOutcome{Proof: proof, Reason: "no signing key configured"}
	}
	jws, err := s.compactJWS(payload)
	if err != nil {
		s.logger.Error("credential signing failed, emitting placeholder proof", "error", err.Error())
		proof.ProofValue = placeholderProofValue()
		return SigningOutcome{Proof: proof, Reason: fmt.Sprintf("signing failed: %v", err)}
	}
	proof.JWS = jws
	return SigningOutcome{Signed: true, Proof: proof}
}

func (s *Signer) compactJWS(payload []byte) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: s.key}, nil)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}
	object, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	compact, err := object.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize jws: %w", err)
	}
	return compact, nil
}

// placeholderProofValue mimics a multibase z-prefixed value so the proof
// block stays structurally valid. Verification rejects it as unsigned.
func placeholderProofValue() string {
	raw := make([]byte, 32)
	_, _ = rand.Read(raw)
	return "z" + hex.EncodeToString(raw)
}
