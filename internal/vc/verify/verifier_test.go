package verify_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountpkg "certo/internal/account"
	achievementmodels "certo/internal/achievement/models"
	achievementservice "certo/internal/achievement/service"
	achievementstore "certo/internal/achievement/store"
	credentialmodels "certo/internal/credential/models"
	credentialservice "certo/internal/credential/service"
	credentialstore "certo/internal/credential/store"
	"certo/internal/platform/metrics"
	profilemodels "certo/internal/profile/models"
	profileservice "certo/internal/profile/service"
	profilestore "certo/internal/profile/store"
	"certo/internal/vc/signing"
	"certo/internal/vc/verify"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"
)

var verifyNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type verifyFixture struct {
	verifier     *verify.Verifier
	credentials  *credentialservice.Service
	store        *credentialstore.MemoryStore
	profileStore *profilestore.MemoryStore
	audit        *audit.MemoryPublisher
	issuerID     int64
	badgeID      int64
}

func verifyContext() context.Context {
	return requestcontext.WithTime(context.Background(), verifyNow)
}

func newVerifyFixture(t *testing.T, withKey bool) *verifyFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var key ed25519.PrivateKey
	if withKey {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		key = priv
	}
	signer := signing.New(key, logger)
	auditPub := audit.NewMemoryPublisher()

	profileStore := profilestore.NewMemory()
	profiles := profileservice.New(profileStore, signer, auditPub, logger, "https://badges.example.org")
	catalog := achievementservice.New(achievementstore.NewMemory())
	credStore := credentialstore.NewMemory()

	credentials := credentialservice.New(credentialservice.Deps{
		Store:    credStore,
		Evidence: credentialstore.NewMemoryEvidence(),
		Profiles: profiles,
		Catalog:  catalog,
		Accounts: accountpkg.NewProvisioner(accountpkg.NewMemoryStore(), auditPub, logger),
		Signer:   signer,
		Runner:   tx.NoopRunner{},
		Audit:    auditPub,
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Logger:   logger,
		BaseURL:  "https://badges.example.org",
	})

	ctx := verifyContext()
	issuer, err := profiles.CreateProfile(ctx, profileservice.CreateInput{
		Name:        "Example University",
		URL:         "https://example.edu",
		ProfileType: profilemodels.TypeIssuer,
	})
	require.NoError(t, err)
	badge, err := catalog.Create(ctx, achievementservice.CreateInput{
		Name:      "Go Fundamentals",
		Criteria:  achievementmodels.Criteria{Narrative: "Complete the Go course"},
		CreatorID: issuer.ID,
		Published: true,
	})
	require.NoError(t, err)

	verifier := verify.New(credentials, signing.NewProfileKeyResolver(profiles, signer),
		auditPub, metrics.New(prometheus.NewRegistry()), logger, 0)

	return &verifyFixture{
		verifier:     verifier,
		credentials:  credentials,
		store:        credStore,
		profileStore: profileStore,
		audit:        auditPub,
		issuerID:     issuer.ID,
		badgeID:      badge.ID,
	}
}

func (f *verifyFixture) issue(t *testing.T, expiration *time.Time) *credentialmodels.IssueResult {
	t.Helper()
	result, err := f.credentials.Issue(verifyContext(), credentialservice.IssueInput{
		AchievementID:  f.badgeID,
		IssuerID:       f.issuerID,
		Recipient:      credentialmodels.RecipientInput{Name: "Ada", Email: "ada@example.org"},
		ExpirationDate: expiration,
	})
	require.NoError(t, err)
	return result
}

func checkNames(verdict verify.Verdict) []string {
	names := make([]string, 0, len(verdict.Checks))
	for _, check := range verdict.Checks {
		names = append(names, check.Check)
	}
	return names
}

func TestVerifyValidCredential(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)

	assert.True(t, verdict.Verified)
	assert.Equal(t, []string{
		verify.CheckNotRevoked,
		verify.CheckNotExpired,
		verify.CheckProof,
		verify.CheckSignature,
	}, checkNames(verdict))
	for _, check := range verdict.Checks {
		assert.Equal(t, verify.ResultSuccess, check.Result)
	}
	require.NotNil(t, verdict.Credential)
	assert.Equal(t, result.Document.ID, verdict.Credential.ID)
	require.NotNil(t, verdict.RawCredential)
	assert.Equal(t, result.Document.ID, verdict.RawCredential.CredentialID)
}

func TestVerifyUnknownCredential(t *testing.T) {
	f := newVerifyFixture(t, true)

	_, err := f.verifier.Verify(verifyContext(), "urn:uuid:00000000-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestVerifyRevokedCredential(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)
	_, err := f.credentials.Revoke(verifyContext(), result.Document.ID, "cheating")
	require.NoError(t, err)

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckNotRevoked, verdict.Checks[0].Check)
	assert.Equal(t, verify.ResultError, verdict.Checks[0].Result)
	assert.Contains(t, verdict.Checks[0].Message, "cheating")

	// A failed verdict still carries the document and the stored record
	// so callers can render what was checked.
	require.NotNil(t, verdict.Credential)
	assert.Equal(t, result.Document.ID, verdict.Credential.ID)
	require.NotNil(t, verdict.RawCredential)
	assert.True(t, verdict.RawCredential.Revoked)
}

func TestVerifyFailureAttachesCredential(t *testing.T) {
	f := newVerifyFixture(t, true)
	expiration := verifyNow.Add(time.Hour)
	result := f.issue(t, &expiration)

	ctx := requestcontext.WithTime(context.Background(), expiration.Add(time.Minute))
	verdict, err := f.verifier.Verify(ctx, result.Document.ID)
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	require.NotNil(t, verdict.Credential)
	assert.Equal(t, result.Document.ID, verdict.Credential.ID)
	assert.Equal(t, "Go Fundamentals", verdict.Credential.CredentialSubject.Achievement.Name)
	require.NotNil(t, verdict.RawCredential)
	assert.Equal(t, result.Document.ID, verdict.RawCredential.CredentialID)
}

func TestVerifyExpirationBoundary(t *testing.T) {
	f := newVerifyFixture(t, true)
	expiration := verifyNow.Add(time.Hour)
	result := f.issue(t, &expiration)

	t.Run("at the expiration instant", func(t *testing.T) {
		ctx := requestcontext.WithTime(context.Background(), expiration)
		verdict, err := f.verifier.Verify(ctx, result.Document.ID)
		require.NoError(t, err)
		assert.True(t, verdict.Verified)
	})

	t.Run("just past expiration", func(t *testing.T) {
		ctx := requestcontext.WithTime(context.Background(), expiration.Add(time.Millisecond))
		verdict, err := f.verifier.Verify(ctx, result.Document.ID)
		require.NoError(t, err)
		assert.False(t, verdict.Verified)
		require.Len(t, verdict.Checks, 1)
		assert.Equal(t, verify.CheckNotExpired, verdict.Checks[0].Check)
	})
}

func TestVerifyMissingProof(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	stored, err := f.store.FindByCredentialID(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	stored.Proof = nil
	require.NoError(t, f.store.Update(verifyContext(), stored))

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckProof, verdict.Checks[0].Check)
	assert.Equal(t, "No proof found on credential", verdict.Checks[0].Message)
}

func TestVerifyRejectsBadProofPurpose(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	stored, err := f.store.FindByCredentialID(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	stored.Proof[0].ProofPurpose = "capabilityInvocation"
	require.NoError(t, f.store.Update(verifyContext(), stored))

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckProof, verdict.Checks[0].Check)
	assert.Contains(t, verdict.Checks[0].Message, "capabilityInvocation")
}

func TestVerifyRejectsStaleProof(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	future := requestcontext.WithTime(context.Background(), verifyNow.Add(verify.DefaultProofMaxAge+time.Hour))
	verdict, err := f.verifier.Verify(future, result.Document.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckProof, verdict.Checks[0].Check)
	assert.Equal(t, "proof is too old", verdict.Checks[0].Message)
}

func TestVerifyPlaceholderProofFailsSignature(t *testing.T) {
	f := newVerifyFixture(t, false)
	result := f.issue(t, nil)
	require.False(t, result.Signed)

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckSignature, verdict.Checks[0].Check)
	assert.Equal(t, "credential is not cryptographically signed", verdict.Checks[0].Message)
}

func TestVerifyDetectsTampering(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	stored, err := f.store.FindByCredentialID(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	stored.Name = "Doctorate in Everything"
	require.NoError(t, f.store.Update(verifyContext(), stored))

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckSignature, verdict.Checks[0].Check)
	assert.Equal(t, "credential content does not match signed payload", verdict.Checks[0].Message)
}

func TestVerifyUsesIssuerRegisteredKey(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	// Replace the issuer's registered key with one that never signed
	// anything. The credential must stop verifying even though the
	// service signing key still matches.
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	issuer, err := f.profileStore.FindByID(verifyContext(), f.issuerID)
	require.NoError(t, err)
	require.NotEmpty(t, issuer.PublicKeys)
	issuer.PublicKeys[0].PublicKeyJWK = &jose.JSONWebKey{
		Key:       otherPub,
		KeyID:     issuer.PublicKeys[0].ID,
		Algorithm: string(jose.EdDSA),
		Use:       "sig",
	}
	require.NoError(t, f.profileStore.Update(verifyContext(), issuer))

	verdict, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, verify.CheckSignature, verdict.Checks[0].Check)
	assert.Equal(t, "signature verification failed", verdict.Checks[0].Message)
}

func TestVerifyEmitsAuditEvent(t *testing.T) {
	f := newVerifyFixture(t, true)
	result := f.issue(t, nil)

	_, err := f.verifier.Verify(verifyContext(), result.Document.ID)
	require.NoError(t, err)

	var found bool
	for _, event := range f.audit.Events() {
		if event.Action == string(audit.EventCredentialVerified) && event.Subject == result.Document.ID {
			found = true
			assert.Equal(t, audit.CategoryOperations, event.Category)
			assert.Equal(t, "verified", event.Reason)
		}
	}
	assert.True(t, found)
}
