package openbadge

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() SerializeInput {
	expiration := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	return SerializeInput{
		BaseURL:         "https://badges.example.org",
		CredentialID:    "urn:uuid:3f1c9a6e-0000-4000-8000-000000000001",
		Name:            "Go Fundamentals",
		IssuanceDate:    time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		ExpirationDate:  &expiration,
		IssuerID:        7,
		IssuerName:      "Example University",
		RecipientEmail:  "ada@example.org",
		RecipientName:   "Ada",
		AchievementPK:   3,
		AchievementName: "Go Fundamentals",
		CriteriaText:    "Complete the Go course",
	}
}

func TestSerializeDocumentShape(t *testing.T) {
	doc := Serialize(sampleInput())

	assert.Equal(t, ContextURIs, doc.Context)
	assert.Equal(t, []string{"VerifiableCredential", "OpenBadgeCredential"}, doc.Type)
	assert.Equal(t, "https://badges.example.org/api/profiles/7", doc.Issuer.ID)
	assert.Equal(t, []string{"Profile"}, doc.Issuer.Type)
	assert.Equal(t, "mailto:ada@example.org", doc.CredentialSubject.ID)
	assert.Equal(t, []string{"AchievementSubject"}, doc.CredentialSubject.Type)
	assert.Equal(t, "https://badges.example.org/api/achievements/3", doc.CredentialSubject.Achievement.ID)
	assert.Equal(t, []string{"Achievement"}, doc.CredentialSubject.Achievement.Type)
	assert.Equal(t, "2026-01-15T10:30:00Z", doc.IssuanceDate)
	assert.Equal(t, "2027-06-01T00:00:00Z", doc.ExpirationDate)
	require.NotNil(t, doc.CredentialSubject.Achievement.Criteria)
	assert.Equal(t, "Complete the Go course", doc.CredentialSubject.Achievement.Criteria.Narrative)
}

func TestSerializeTypeTagsAreArrays(t *testing.T) {
	raw, err := json.Marshal(Serialize(sampleInput()))
	require.NoError(t, err)
	body := string(raw)

	// Consumers parse these as arrays even when they hold one entry.
	assert.Contains(t, body, `"type":["Profile"]`)
	assert.Contains(t, body, `"type":["Achievement"]`)
	assert.NotContains(t, body, `"type":"Profile"`)
}

func TestSerializeOmitsEmptyFields(t *testing.T) {
	in := sampleInput()
	in.ExpirationDate = nil
	in.CriteriaText = ""
	in.RecipientEmail = ""

	raw, err := json.Marshal(Serialize(in))
	require.NoError(t, err)
	body := string(raw)

	assert.NotContains(t, body, "expirationDate")
	assert.NotContains(t, body, "criteria")
	assert.NotContains(t, body, "proof")
	assert.NotContains(t, body, `"credentialSubject":{"id"`)
}

func TestSerializeIsDeterministic(t *testing.T) {
	in := sampleInput()
	first, err := json.Marshal(Serialize(in))
	require.NoError(t, err)
	second, err := json.Marshal(Serialize(in))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCanonicalPayloadExcludesProof(t *testing.T) {
	doc := Serialize(sampleInput())
	doc.Proof = []Proof{{
		Type:               ProofTypeEd25519,
		Created:            "2026-01-15T10:30:00Z",
		VerificationMethod: "https://badges.example.org/api/profiles/7/keys",
		ProofPurpose:       PurposeAssertion,
		JWS:                "eyJ.fake.sig",
	}}

	canonical, err := CanonicalPayload(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(canonical), "proof")
	assert.NotContains(t, string(canonical), "eyJ.fake.sig")

	// Canonical bytes must not depend on whether a proof was attached.
	doc.Proof = nil
	withoutProof, err := CanonicalPayload(doc)
	require.NoError(t, err)
	assert.Equal(t, withoutProof, canonical)
}

func TestCanonicalPayloadSortsKeys(t *testing.T) {
	canonical, err := CanonicalPayload(Serialize(sampleInput()))
	require.NoError(t, err)

	// Top-level keys come out sorted after the map round trip.
	body := string(canonical)
	idxContext := strings.Index(body, `"@context"`)
	idxIssuer := strings.Index(body, `"issuer"`)
	// LastIndex: nested objects carry their own "type" keys, so only the
	// final occurrence is the top-level one ("type" sorts last here).
	idxType := strings.LastIndex(body, `"type"`)
	require.True(t, idxContext >= 0 && idxIssuer >= 0 && idxType >= 0)
	assert.Less(t, idxContext, idxIssuer)
	assert.Less(t, idxIssuer, idxType)
}

func TestCanonicalizeRawRejectsGarbage(t *testing.T) {
	_, err := CanonicalizeRaw([]byte("not json"))
	assert.Error(t, err)
}
