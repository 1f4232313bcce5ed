package verify

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"time"

	credentialmodels "certo/internal/credential/models"
	"certo/internal/openbadge"
	"certo/internal/platform/metrics"
	"certo/internal/vc/signing"
	"certo/pkg/platform/audit"
	"certo/pkg/requestcontext"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("certo/internal/vc/verify")

// DefaultProofMaxAge bounds how old a proof's created timestamp may be.
const DefaultProofMaxAge = 10 * 365 * 24 * time.Hour

// Source resolves stored credentials and joins them with their related
// records. Implemented by the credential service.
type Source interface {
	ResolveByIdentifier(ctx context.Context, identifier string) (*credentialmodels.Credential, error)
	LoadBundle(ctx context.Context, credential *credentialmodels.Credential) (*credentialmodels.Bundle, error)
	SerializeBundle(bundle *credentialmodels.Bundle) openbadge.Credential
	CanonicalPayload(bundle *credentialmodels.Bundle) ([]byte, error)
}

// KeyResolver produces the public key that signed an issuer's
// credentials.
type KeyResolver interface {
	ResolvePublicKey(ctx context.Context, issuerID int64) (ed25519.PublicKey, error)
}

// Verifier checks stored credentials. Checks run in a fixed order and
// stop at the first failure.
type Verifier struct {
	source      Source
	keys        KeyResolver
	audit       audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	proofMaxAge time.Duration
}

func New(source Source, keys KeyResolver, auditPub audit.Publisher, m *metrics.Metrics, logger *slog.Logger, proofMaxAge time.Duration) *Verifier {
	if proofMaxAge <= 0 {
		proofMaxAge = DefaultProofMaxAge
	}
	return &Verifier{
		source:      source,
		keys:        keys,
		audit:       auditPub,
		metrics:     m,
		logger:      logger,
		proofMaxAge: proofMaxAge,
	}
}

// Verify resolves the credential by identifier and runs all checks. A
// missing credential is an error, not a verdict; everything else is
// reported through the verdict's check list.
func (v *Verifier) Verify(ctx context.Context, identifier string) (Verdict, error) {
	ctx, span := tracer.Start(ctx, "credential.verify",
		trace.WithAttributes(attribute.String("credential.identifier", identifier)))
	defer span.End()

	credential, err := v.source.ResolveByIdentifier(ctx, identifier)
	if err != nil {
		return Verdict{}, err
	}
	verdict := v.run(ctx, credential)
	v.observe(verdict)
	v.publish(ctx, credential, verdict)
	return verdict, nil
}

// run serializes the credential up front so every verdict, passing or
// not, carries the document and the stored record.
func (v *Verifier) run(ctx context.Context, credential *credentialmodels.Credential) Verdict {
	bundle, err := v.source.LoadBundle(ctx, credential)
	if err != nil {
		v.logger.Error("verification bundle load failed",
			"credential_id", credential.CredentialID, "error", err.Error())
		verdict := failed(CheckSignature, "could not load credential for signature verification")
		verdict.RawCredential = credential
		return verdict
	}
	document := v.source.SerializeBundle(bundle)

	verdict := v.evaluate(ctx, credential, bundle)
	verdict.Credential = &document
	verdict.RawCredential = credential
	return verdict
}

func (v *Verifier) evaluate(ctx context.Context, credential *credentialmodels.Credential, bundle *credentialmodels.Bundle) Verdict {
	if credential.Revoked {
		message := "credential has been revoked"
		if credential.RevocationReason != "" {
			message = fmt.Sprintf("credential has been revoked: %s", credential.RevocationReason)
		}
		return failed(CheckNotRevoked, message)
	}

	now := requestcontext.Now(ctx)
	if credential.ExpirationDate != nil && credential.ExpirationDate.Before(now) {
		return failed(CheckNotExpired, "credential has expired")
	}

	proof, verdict, ok := v.checkProofStructure(credential, now)
	if !ok {
		return verdict
	}

	if verdict, ok := v.checkSignature(ctx, bundle, proof); !ok {
		return verdict
	}

	return Verdict{
		Verified: true,
		Checks: []Check{
			{Check: CheckNotRevoked, Result: ResultSuccess},
			{Check: CheckNotExpired, Result: ResultSuccess},
			{Check: CheckProof, Result: ResultSuccess},
			{Check: CheckSignature, Result: ResultSuccess},
		},
	}
}

var allowedPurposes = map[string]bool{
	"assertionMethod": true,
	"authentication":  true,
	"keyAgreement":    true,
}

// checkProofStructure validates the proof block without touching any
// cryptography. It returns the proof to verify when the structure is
// sound.
func (v *Verifier) checkProofStructure(credential *credentialmodels.Credential, now time.Time) (openbadge.Proof, Verdict, bool) {
	if len(credential.Proof) == 0 {
		return openbadge.Proof{}, failed(CheckProof, "No proof found on credential"), false
	}
	proof := credential.Proof[0]
	if proof.Type == "" || proof.Created == "" || proof.VerificationMethod == "" || proof.ProofPurpose == "" {
		return openbadge.Proof{}, failed(CheckProof, "proof is missing required fields"), false
	}
	if proof.JWS == "" && proof.ProofValue == "" {
		return openbadge.Proof{}, failed(CheckProof, "proof carries neither jws nor proofValue"), false
	}
	if !allowedPurposes[proof.ProofPurpose] {
		return openbadge.Proof{}, failed(CheckProof, "invalid proof purpose: "+proof.ProofPurpose), false
	}
	created, err := time.Parse(time.RFC3339, proof.Created)
	if err != nil {
		return openbadge.Proof{}, failed(CheckProof, "invalid proof created timestamp"), false
	}
	if created.Before(now.Add(-v.proofMaxAge)) {
		return openbadge.Proof{}, failed(CheckProof, "proof is too old"), false
	}
	return proof, Verdict{}, true
}

// checkSignature verifies the JWS against the issuer key and confirms the
// signed payload matches the credential as currently stored, which
// catches post-issuance tampering.
func (v *Verifier) checkSignature(ctx context.Context, bundle *credentialmodels.Bundle, proof openbadge.Proof) (Verdict, bool) {
	if proof.JWS == "" {
		return failed(CheckSignature, "credential is not cryptographically signed"), false
	}
	key, err := v.keys.ResolvePublicKey(ctx, bundle.Credential.IssuerID)
	if err != nil {
		return failed(CheckSignature, "no verification key available for issuer"), false
	}
	payload, err := signing.VerifyJWS(proof.JWS, key)
	if err != nil {
		return failed(CheckSignature, "signature verification failed"), false
	}
	canonical, err := v.source.CanonicalPayload(bundle)
	if err != nil {
		v.logger.Error("canonical payload failed",
			"credential_id", bundle.Credential.CredentialID, "error", err.Error())
		return failed(CheckSignature, "could not canonicalize credential"), false
	}
	if !bytes.Equal(payload, canonical) {
		return failed(CheckSignature, "credential content does not match signed payload"), false
	}
	return Verdict{}, true
}

func (v *Verifier) publish(ctx context.Context, credential *credentialmodels.Credential, verdict Verdict) {
	if v.audit == nil {
		return
	}
	reason := "verified"
	if !verdict.Verified && len(verdict.Checks) == 1 {
		reason = verdict.Checks[0].Check + ": " + verdict.Checks[0].Message
	}
	event := audit.Event{
		Category:  audit.EventCredentialVerified.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   credential.CredentialID,
		Action:    string(audit.EventCredentialVerified),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.ActorID(ctx),
	}
	if err := v.audit.Publish(ctx, event); err != nil {
		v.logger.Warn("audit publish failed", "action", string(audit.EventCredentialVerified), "error", err.Error())
	}
}

func (v *Verifier) observe(verdict Verdict) {
	if v.metrics == nil {
		return
	}
	if verdict.Verified {
		v.metrics.ObserveVerification("verified")
		return
	}
	outcome := "failed"
	if len(verdict.Checks) == 1 {
		outcome = "failed_" + verdict.Checks[0].Check
	}
	v.metrics.ObserveVerification(outcome)
}
