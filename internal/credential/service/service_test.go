package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountpkg "certo/internal/account"
	achievementmodels "certo/internal/achievement/models"
	achievementservice "certo/internal/achievement/service"
	achievementstore "certo/internal/achievement/store"
	credentialmodels "certo/internal/credential/models"
	credentialstore "certo/internal/credential/store"
	"certo/internal/openbadge"
	"certo/internal/platform/metrics"
	profilemodels "certo/internal/profile/models"
	profileservice "certo/internal/profile/service"
	profilestore "certo/internal/profile/store"
	"certo/internal/vc/signing"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"
)

const testBaseURL = "https://badges.example.org"

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	profiles  *profileservice.Service
	catalog   *achievementservice.Service
	store     *credentialstore.MemoryStore
	accounts  *accountpkg.MemoryStore
	audit     *audit.MemoryPublisher
	signer    *signing.Signer
	issuer    *profilemodels.Profile
	badge     *achievementmodels.Achievement
	publicKey ed25519.PublicKey
}

func testContext() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func newFixture(t *testing.T, withKey bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var key ed25519.PrivateKey
	var publicKey ed25519.PublicKey
	if withKey {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		key = priv
		publicKey = pub
	}
	signer := signing.New(key, logger)
	auditPub := audit.NewMemoryPublisher()

	profiles := profileservice.New(profilestore.NewMemory(), signer, auditPub, logger, testBaseURL)
	catalog := achievementservice.New(achievementstore.NewMemory())
	accounts := accountpkg.NewMemoryStore()
	credStore := credentialstore.NewMemory()

	svc := New(Deps{
		Store:    credStore,
		Evidence: credentialstore.NewMemoryEvidence(),
		Profiles: profiles,
		Catalog:  catalog,
		Accounts: accountpkg.NewProvisioner(accounts, auditPub, logger),
		Signer:   signer,
		Runner:   tx.NoopRunner{},
		Audit:    auditPub,
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Logger:   logger,
		BaseURL:  testBaseURL,
	})

	ctx := testContext()
	issuer, err := profiles.CreateProfile(ctx, profileservice.CreateInput{
		Name:        "Example University",
		URL:         "https://example.edu",
		ProfileType: profilemodels.TypeIssuer,
	})
	require.NoError(t, err)
	badge, err := catalog.Create(ctx, achievementservice.CreateInput{
		Name:        "Go Fundamentals",
		Description: "Core Go skills",
		Criteria:    achievementmodels.Criteria{Narrative: "Complete the Go course"},
		CreatorID:   issuer.ID,
		Published:   true,
	})
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		profiles:  profiles,
		catalog:   catalog,
		store:     credStore,
		accounts:  accounts,
		audit:     auditPub,
		signer:    signer,
		issuer:    issuer,
		badge:     badge,
		publicKey: publicKey,
	}
}

func (f *fixture) issue(t *testing.T, email string) *credentialmodels.IssueResult {
	t.Helper()
	result, err := f.svc.Issue(testContext(), IssueInput{
		AchievementID: f.badge.ID,
		IssuerID:      f.issuer.ID,
		Recipient:     credentialmodels.RecipientInput{Name: "Ada", Email: email},
	})
	require.NoError(t, err)
	return result
}

func TestIssueProducesSignedOpenBadge(t *testing.T) {
	f := newFixture(t, true)
	result := f.issue(t, "ada@example.org")

	doc := result.Document
	assert.True(t, result.Signed)
	assert.Equal(t, openbadge.ContextURIs, doc.Context)
	assert.Equal(t, []string{"VerifiableCredential", "OpenBadgeCredential"}, doc.Type)
	assert.Regexp(t, `^urn:uuid:[0-9a-f-]{36}$`, doc.ID)
	assert.Equal(t, fmt.Sprintf("%s/api/profiles/%d", testBaseURL, f.issuer.ID), doc.Issuer.ID)
	assert.Equal(t, "mailto:ada@example.org", doc.CredentialSubject.ID)
	assert.Equal(t, "Go Fundamentals", doc.CredentialSubject.Achievement.Name)
	assert.Equal(t, "2026-03-01T09:00:00Z", doc.IssuanceDate)

	require.Len(t, doc.Proof, 1)
	proof := doc.Proof[0]
	assert.Equal(t, openbadge.ProofTypeEd25519, proof.Type)
	assert.Equal(t, fmt.Sprintf("%s/api/profiles/%d/keys", testBaseURL, f.issuer.ID), proof.VerificationMethod)
	assert.Equal(t, openbadge.PurposeAssertion, proof.ProofPurpose)
	assert.NotEmpty(t, proof.JWS)

	// Signature covers exactly the canonical document without proof.
	payload, err := signing.VerifyJWS(proof.JWS, f.publicKey)
	require.NoError(t, err)
	withoutProof := doc
	withoutProof.Proof = nil
	canonical, err := openbadge.CanonicalPayload(withoutProof)
	require.NoError(t, err)
	assert.Equal(t, canonical, payload)

	// Proof is persisted on the stored row.
	stored, err := f.svc.ResolveByIdentifier(testContext(), doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Proof, 1)
	assert.Equal(t, proof.JWS, stored.Proof[0].JWS)
}

func TestIssueSnapshotsAchievementFields(t *testing.T) {
	f := newFixture(t, true)

	result := f.issue(t, "ada@example.org")
	assert.Equal(t, "Go Fundamentals", result.Document.Name)
	assert.Equal(t, "Core Go skills", result.Document.Description)

	stored, err := f.svc.ResolveByIdentifier(testContext(), result.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Fundamentals", stored.Name)
	assert.Equal(t, "Core Go skills", stored.Description)

	// Explicit values win over the achievement's.
	custom, err := f.svc.Issue(testContext(), IssueInput{
		AchievementID: f.badge.ID,
		IssuerID:      f.issuer.ID,
		Recipient:     credentialmodels.RecipientInput{Name: "Grace", Email: "grace@example.org"},
		Name:          "Go Fundamentals, Spring Cohort",
		Description:   "Awarded for the spring cohort",
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Fundamentals, Spring Cohort", custom.Document.Name)
	assert.Equal(t, "Awarded for the spring cohort", custom.Document.Description)
}

func TestIssueWithoutKeyEmitsPlaceholderProof(t *testing.T) {
	f := newFixture(t, false)
	result := f.issue(t, "ada@example.org")

	assert.False(t, result.Signed)
	require.Len(t, result.Document.Proof, 1)
	assert.Empty(t, result.Document.Proof[0].JWS)
	assert.NotEmpty(t, result.Document.Proof[0].ProofValue)
}

func TestIssueProvisionsRecipientAccount(t *testing.T) {
	f := newFixture(t, true)
	f.issue(t, "ada@example.org")

	account, err := f.accounts.FindByEmail(testContext(), "ada@example.org")
	require.NoError(t, err)
	assert.True(t, account.Confirmed)
	assert.NotEmpty(t, account.PasswordHash)

	// Same recipient again reuses the account and the profile.
	f.issue(t, "ada@example.org")
	second, err := f.accounts.FindByEmail(testContext(), "ada@example.org")
	require.NoError(t, err)
	assert.Equal(t, account.ID, second.ID)
}

func TestIssueValidation(t *testing.T) {
	f := newFixture(t, true)

	t.Run("unknown achievement", func(t *testing.T) {
		_, err := f.svc.Issue(testContext(), IssueInput{
			AchievementID: 999,
			IssuerID:      f.issuer.ID,
			Recipient:     credentialmodels.RecipientInput{Email: "ada@example.org"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("missing recipient email", func(t *testing.T) {
		_, err := f.svc.Issue(testContext(), IssueInput{
			AchievementID: f.badge.ID,
			IssuerID:      f.issuer.ID,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unpublished achievement", func(t *testing.T) {
		draft, err := f.catalog.Create(testContext(), achievementservice.CreateInput{
			Name:      "Draft Badge",
			CreatorID: f.issuer.ID,
		})
		require.NoError(t, err)
		_, err = f.svc.Issue(testContext(), IssueInput{
			AchievementID: draft.ID,
			IssuerID:      f.issuer.ID,
			Recipient:     credentialmodels.RecipientInput{Email: "ada@example.org"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("no creator and no explicit issuer", func(t *testing.T) {
		orphan, err := f.catalog.Create(testContext(), achievementservice.CreateInput{
			Name:      "Orphan Badge",
			Published: true,
		})
		require.NoError(t, err)
		_, err = f.svc.Issue(testContext(), IssueInput{
			AchievementID: orphan.ID,
			Recipient:     credentialmodels.RecipientInput{Email: "ada@example.org"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("issuer defaults to achievement creator", func(t *testing.T) {
		result, err := f.svc.Issue(testContext(), IssueInput{
			AchievementID: f.badge.ID,
			Recipient:     credentialmodels.RecipientInput{Name: "Ada", Email: "ada@example.org"},
		})
		require.NoError(t, err)
		assert.Equal(t, f.issuer.ID, result.Credential.IssuerID)
	})

	t.Run("recipient profile cannot issue", func(t *testing.T) {
		recipient, err := f.profiles.FindOrCreateRecipient(testContext(), "Bob", "bob@example.org")
		require.NoError(t, err)
		_, err = f.svc.Issue(testContext(), IssueInput{
			AchievementID: f.badge.ID,
			IssuerID:      recipient.ID,
			Recipient:     credentialmodels.RecipientInput{Email: "ada@example.org"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestBatchIssueIsolatesFailures(t *testing.T) {
	f := newFixture(t, true)
	items := f.svc.BatchIssue(testContext(), BatchInput{
		AchievementID: f.badge.ID,
		IssuerID:      f.issuer.ID,
		Recipients: []credentialmodels.RecipientInput{
			{Name: "Ada", Email: "ada@example.org"},
			{Name: "Bad", Email: "not-an-email"},
			{Name: "Grace", Email: "grace@example.org"},
		},
	})

	require.Len(t, items, 3)
	assert.True(t, items[0].Success)
	assert.Equal(t, "ada@example.org", items[0].Recipient)
	require.NotNil(t, items[0].Data)

	assert.False(t, items[1].Success)
	assert.Equal(t, "not-an-email", items[1].Recipient)
	assert.NotEmpty(t, items[1].Error)
	assert.Nil(t, items[1].Data)

	assert.True(t, items[2].Success)
	assert.Equal(t, "grace@example.org", items[2].Recipient)
	require.NotNil(t, items[2].Data)
	assert.NotEqual(t, items[0].Data.ID, items[2].Data.ID)
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	result := f.issue(t, "ada@example.org")

	revoked, err := f.svc.Revoke(testContext(), result.Document.ID, "issued in error")
	require.NoError(t, err)
	assert.True(t, revoked.Revoked)
	assert.Equal(t, "issued in error", revoked.RevocationReason)

	// No reason supplied keeps the recorded one.
	again, err := f.svc.Revoke(testContext(), result.Document.ID, "")
	require.NoError(t, err)
	assert.True(t, again.Revoked)
	assert.Equal(t, "issued in error", again.RevocationReason)

	// An explicit reason replaces it without re-revoking.
	updated, err := f.svc.Revoke(testContext(), result.Document.ID, "updated reason")
	require.NoError(t, err)
	assert.True(t, updated.Revoked)
	assert.Equal(t, "updated reason", updated.RevocationReason)
}

func TestResolveByIdentifier(t *testing.T) {
	f := newFixture(t, true)
	result := f.issue(t, "ada@example.org")

	t.Run("by primary key", func(t *testing.T) {
		found, err := f.svc.ResolveByIdentifier(testContext(), fmt.Sprintf("%d", result.Credential.ID))
		require.NoError(t, err)
		assert.Equal(t, result.Credential.CredentialID, found.CredentialID)
	})

	t.Run("by urn", func(t *testing.T) {
		found, err := f.svc.ResolveByIdentifier(testContext(), result.Document.ID)
		require.NoError(t, err)
		assert.Equal(t, result.Credential.ID, found.ID)
	})

	t.Run("miss", func(t *testing.T) {
		_, err := f.svc.ResolveByIdentifier(testContext(), "urn:uuid:00000000-0000-4000-8000-000000000000")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.Contains(t, err.Error(), "Credential not found")
	})
}

func TestExportRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	result := f.issue(t, "ada@example.org")

	exported, err := f.svc.Export(testContext(), result.Document.ID)
	require.NoError(t, err)

	issued, err := json.Marshal(result.Document)
	require.NoError(t, err)
	roundTripped, err := json.Marshal(exported)
	require.NoError(t, err)
	assert.JSONEq(t, string(issued), string(roundTripped))
}

func TestExportSignsProoflessCredential(t *testing.T) {
	f := newFixture(t, true)
	result := f.issue(t, "ada@example.org")

	// Simulate a credential stored before signing was configured.
	stored, err := f.store.FindByCredentialID(testContext(), result.Document.ID)
	require.NoError(t, err)
	stored.Proof = nil
	require.NoError(t, f.store.Update(testContext(), stored))

	exported, err := f.svc.Export(testContext(), result.Document.ID)
	require.NoError(t, err)
	require.Len(t, exported.Proof, 1)
	assert.NotEmpty(t, exported.Proof[0].JWS)

	persisted, err := f.store.FindByCredentialID(testContext(), result.Document.ID)
	require.NoError(t, err)
	assert.Len(t, persisted.Proof, 1)
}

func externalDocument(id string) json.RawMessage {
	doc := map[string]any{
		"@context":     openbadge.ContextURIs,
		"id":           id,
		"type":         []string{"VerifiableCredential", "OpenBadgeCredential"},
		"name":         "External Badge",
		"issuanceDate": "2025-11-01T00:00:00Z",
		"issuer": map[string]any{
			"id":   "did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH",
			"name": "Remote Issuer",
		},
		"credentialSubject": map[string]any{
			"id":   "mailto:holder@example.org",
			"name": "Holder",
			"achievement": map[string]any{
				"id":   "https://remote.example.com/achievements/42",
				"name": "External Badge",
				"evidence": []map[string]any{{
					"name": "Portfolio",
					"url":  "https://remote.example.com/portfolio/1",
				}},
			},
		},
		"proof": map[string]any{
			"type":               "Ed25519Signature2020",
			"created":            "2025-11-01T00:00:00Z",
			"verificationMethod": "https://remote.example.com/keys/1",
			"proofPurpose":       "assertionMethod",
			"proofValue":         "z3FXQjecWufY46yg5abdVZsXqLhxhueuSoZgNSARiKBk9czhSePTFehP8c3PGfb6a22gkfUKods5D2UAUL5n2Brbx",
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func TestImportExternalCredential(t *testing.T) {
	f := newFixture(t, true)
	id := "urn:uuid:11111111-2222-4333-8444-555555555555"

	imported, err := f.svc.Import(testContext(), externalDocument(id))
	require.NoError(t, err)
	assert.Equal(t, id, imported.CredentialID)
	assert.False(t, imported.Revoked)
	require.Len(t, imported.Proof, 1)
	assert.NotEmpty(t, imported.Proof[0].ProofValue)

	// Issuer and recipient were created from the document.
	issuer, err := f.profiles.GetProfile(testContext(), imported.IssuerID)
	require.NoError(t, err)
	assert.Equal(t, "did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH", issuer.DID)
	recipient, err := f.profiles.GetProfile(testContext(), imported.RecipientID)
	require.NoError(t, err)
	assert.Equal(t, "holder@example.org", recipient.Email)

	// Evidence rows came along and show up on export.
	exported, err := f.svc.Export(testContext(), id)
	require.NoError(t, err)
	require.Len(t, exported.CredentialSubject.Achievement.Evidence, 1)
	assert.Equal(t, "Portfolio", exported.CredentialSubject.Achievement.Evidence[0].Name)
}

func TestImportRejectsDuplicate(t *testing.T) {
	f := newFixture(t, true)
	id := "urn:uuid:11111111-2222-4333-8444-555555555555"

	_, err := f.svc.Import(testContext(), externalDocument(id))
	require.NoError(t, err)

	_, err = f.svc.Import(testContext(), externalDocument(id))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestImportRejectsNonCredential(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Import(testContext(), json.RawMessage(`{"id":"urn:uuid:x","type":["SomethingElse"]}`))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestIssueEmitsAuditEvent(t *testing.T) {
	f := newFixture(t, true)
	result := f.issue(t, "ada@example.org")

	var found bool
	for _, event := range f.audit.Events() {
		if event.Action == string(audit.EventCredentialIssued) && event.Subject == result.Document.ID {
			found = true
			assert.Equal(t, audit.CategoryCompliance, event.Category)
			assert.Equal(t, "ada@example.org", event.Email)
		}
	}
	assert.True(t, found)
}
