package handler

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	accountpkg "certo/internal/account"
	achievementmodels "certo/internal/achievement/models"
	achievementservice "certo/internal/achievement/service"
	achievementstore "certo/internal/achievement/store"
	credentialservice "certo/internal/credential/service"
	credentialstore "certo/internal/credential/store"
	"certo/internal/jwttoken"
	"certo/internal/platform/metrics"
	profilemodels "certo/internal/profile/models"
	profileservice "certo/internal/profile/service"
	profilestore "certo/internal/profile/store"
	"certo/internal/vc/signing"
	"certo/internal/vc/verify"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/tx"
)

type testEnv struct {
	router        chi.Router
	token         string
	issuerID      int64
	achievementID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := signing.New(key, logger)
	auditPub := audit.NewMemoryPublisher()

	profiles := profileservice.New(profilestore.NewMemory(), signer, auditPub, logger, "https://badges.example.org")
	catalog := achievementservice.New(achievementstore.NewMemory())

	credentials := credentialservice.New(credentialservice.Deps{
		Store:    credentialstore.NewMemory(),
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

	issuer, err := profiles.CreateProfile(t.Context(), profileservice.CreateInput{
		Name:        "Example University",
		ProfileType: profilemodels.TypeIssuer,
	})
	if err != nil {
		t.Fatalf("create issuer: %v", err)
	}
	badge, err := catalog.Create(t.Context(), achievementservice.CreateInput{
		Name:      "Go Fundamentals",
		Criteria:  achievementmodels.Criteria{Narrative: "Complete the Go course"},
		CreatorID: issuer.ID,
		Published: true,
	})
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}

	tokens := jwttoken.NewService("test-signing-key", "certo")
	token, err := tokens.Generate(issuer.ID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	verifier := verify.New(credentials, signing.NewProfileKeyResolver(profiles, signer),
		auditPub, metrics.New(prometheus.NewRegistry()), logger, 0)
	external := verify.NewExternalValidator(profiles, logger)

	router := chi.NewRouter()
	New(credentials, verifier, external, logger, tokens).Register(router)

	return &testEnv{
		router:        router,
		token:         "Bearer " + token,
		issuerID:      issuer.ID,
		achievementID: badge.ID,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) issue(t *testing.T) map[string]any {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/credentials/issue", map[string]any{
		"achievementId": e.achievementID,
		"issuerId":      e.issuerID,
		"recipient":     map[string]string{"name": "Ada", "email": "ada@example.org"},
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 issuing credential, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode issue response: %v", err)
	}
	return doc
}

func TestIssueRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/credentials/issue", map[string]any{
		"achievementId": env.achievementID,
		"issuerId":      env.issuerID,
		"recipient":     map[string]string{"email": "ada@example.org"},
	}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestIssueAndVerifyViaHandlers(t *testing.T) {
	env := newTestEnv(t)
	doc := env.issue(t)

	id, _ := doc["id"].(string)
	if id == "" {
		t.Fatalf("expected credential id in document")
	}
	if _, ok := doc["proof"]; !ok {
		t.Fatalf("expected proof in issued document")
	}

	rec := env.do(t, http.MethodGet, "/credentials/"+id+"/verify", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying credential, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict struct {
		Verified bool `json:"verified"`
		Checks   []struct {
			Check  string `json:"check"`
			Result string `json:"result"`
		} `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if !verdict.Verified {
		t.Fatalf("expected credential to verify")
	}
	if len(verdict.Checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(verdict.Checks))
	}
}

func TestVerifyUnknownCredentialReturns404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/credentials/urn:uuid:00000000-0000-4000-8000-000000000000/verify", nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown credential, got %d", rec.Code)
	}
}

func TestRevokeThenVerifyFails(t *testing.T) {
	env := newTestEnv(t)
	doc := env.issue(t)
	id := doc["id"].(string)

	rec := env.do(t, http.MethodPost, "/credentials/"+id+"/revoke", map[string]string{
		"reason": "issued in error",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 revoking credential, got %d: %s", rec.Code, rec.Body.String())
	}
	var revokeResp struct {
		Revoked          bool   `json:"revoked"`
		RevocationReason string `json:"revocationReason"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&revokeResp); err != nil {
		t.Fatalf("decode revoke response: %v", err)
	}
	if !revokeResp.Revoked || revokeResp.RevocationReason != "issued in error" {
		t.Fatalf("unexpected revoke response: %+v", revokeResp)
	}

	verifyRec := env.do(t, http.MethodGet, "/credentials/"+id+"/verify", nil, false)
	var verdict struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(verifyRec.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if verdict.Verified {
		t.Fatalf("expected revoked credential to fail verification")
	}
}

func TestExportMatchesIssuedDocument(t *testing.T) {
	env := newTestEnv(t)
	doc := env.issue(t)
	id := doc["id"].(string)

	rec := env.do(t, http.MethodGet, "/credentials/"+id+"/export", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 exporting credential, got %d", rec.Code)
	}
	var exported map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&exported); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if exported["id"] != id {
		t.Fatalf("expected exported id %q, got %v", id, exported["id"])
	}
}

func TestBatchIssueViaHandler(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/credentials/batch-issue", map[string]any{
		"achievementId": env.achievementID,
		"issuerId":      env.issuerID,
		"recipients": []map[string]string{
			{"name": "Ada", "email": "ada@example.org"},
			{"name": "Bad", "email": "nope"},
		},
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for batch issue, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []struct {
		Success   bool   `json:"success"`
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode batch response: %v", err)
	}
	if len(items) != 2 || !items[0].Success || items[1].Success {
		t.Fatalf("unexpected batch outcome: %+v", items)
	}
}

func TestValidateExternalDocument(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/credentials/validate", map[string]any{
		"@context":          []string{"https://www.w3.org/2018/credentials/v1"},
		"id":                "urn:uuid:aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee",
		"type":              []string{"VerifiableCredential", "OpenBadgeCredential"},
		"issuanceDate":      "2025-11-01T00:00:00Z",
		"credentialSubject": map[string]any{"id": "mailto:holder@example.org"},
		"issuer":            "did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH",
		"proof": map[string]string{
			"type":               "Ed25519Signature2020",
			"created":            "2025-11-01T00:00:00Z",
			"verificationMethod": "https://remote.example.com/keys/1",
			"proofPurpose":       "assertionMethod",
			"proofValue":         "zExampleProofValue",
		},
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 validating document, got %d", rec.Code)
	}
	var verdict struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if !verdict.Verified {
		t.Fatalf("expected external document to validate: %s", rec.Body.String())
	}
}
