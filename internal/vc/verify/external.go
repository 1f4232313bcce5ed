package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"certo/internal/openbadge"
	profilemodels "certo/internal/profile/models"
	"certo/pkg/requestcontext"
)

// External check names.
const (
	CheckFormat     = "format"
	CheckIssuer     = "issuer"
	CheckExpiration = "expiration"
)

// ProfileLookup checks whether an issuer referenced by an external
// credential is known locally.
type ProfileLookup interface {
	GetProfile(ctx context.Context, id int64) (*profilemodels.Profile, error)
}

// ExternalValidator validates credential documents submitted by callers,
// typically credentials issued by other platforms. Unlike Verifier it has
// no stored record to compare against, so it checks structure and issuer
// provenance and runs every check rather than short-circuiting.
type ExternalValidator struct {
	profiles ProfileLookup
	logger   *slog.Logger
}

func NewExternalValidator(profiles ProfileLookup, logger *slog.Logger) *ExternalValidator {
	return &ExternalValidator{profiles: profiles, logger: logger}
}

// externalDocument is the subset of fields the validator inspects.
type externalDocument struct {
	Context           []string        `json:"@context"`
	ID                string          `json:"id"`
	Type              []string        `json:"type"`
	IssuanceDate      string          `json:"issuanceDate"`
	ExpirationDate    string          `json:"expirationDate"`
	Issuer            json.RawMessage `json:"issuer"`
	CredentialSubject json.RawMessage `json:"credentialSubject"`
	Proof             json.RawMessage `json:"proof"`
}

// Validate runs all external checks and reports a verdict. The verdict
// is verified only when every check succeeded: an unverified issuer
// stays a warning in the check list but still withholds verified, since
// provenance could not be confirmed.
func (v *ExternalValidator) Validate(ctx context.Context, raw json.RawMessage) Verdict {
	var doc externalDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Verdict{Checks: []Check{{
			Check: CheckFormat, Result: ResultError, Message: "document is not valid JSON",
		}}}
	}
	checks := []Check{
		v.checkFormat(doc),
		v.checkIssuer(ctx, doc),
		v.checkExternalProof(ctx, doc),
		v.checkExpiration(ctx, doc),
	}
	verified := true
	for _, check := range checks {
		if check.Result != ResultSuccess {
			verified = false
		}
	}
	return Verdict{Verified: verified, Checks: checks}
}

func (v *ExternalValidator) checkFormat(doc externalDocument) Check {
	if doc.ID == "" {
		return Check{Check: CheckFormat, Result: ResultError, Message: "credential id is missing"}
	}
	if !containsString(doc.Type, "VerifiableCredential") || !containsString(doc.Type, "OpenBadgeCredential") {
		return Check{Check: CheckFormat, Result: ResultError, Message: "type must include VerifiableCredential and OpenBadgeCredential"}
	}
	if !containsString(doc.Context, openbadge.ContextURIs[0]) {
		return Check{Check: CheckFormat, Result: ResultError, Message: "@context does not include the credentials context"}
	}
	if len(doc.CredentialSubject) == 0 {
		return Check{Check: CheckFormat, Result: ResultError, Message: "credentialSubject is missing"}
	}
	if doc.IssuanceDate == "" {
		return Check{Check: CheckFormat, Result: ResultError, Message: "issuanceDate is missing"}
	}
	return Check{Check: CheckFormat, Result: ResultSuccess}
}

var profilePathPattern = regexp.MustCompile(`/api/profiles/(\d+)`)

// checkIssuer inspects the issuer reference. DID issuers are accepted as
// is since resolution happens out of band. HTTPS issuers pointing at a
// local profile URL are confirmed against the store; anything else is a
// warning, not a failure.
func (v *ExternalValidator) checkIssuer(ctx context.Context, doc externalDocument) Check {
	_, ref := parseIssuerRef(doc.Issuer)
	if ref == "" {
		return Check{Check: CheckIssuer, Result: ResultError, Message: "credential issuer is missing"}
	}
	if strings.HasPrefix(ref, "did:") {
		return Check{Check: CheckIssuer, Result: ResultSuccess}
	}
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme != "https" {
		return Check{Check: CheckIssuer, Result: ResultWarning, Message: "Issuer not verified"}
	}
	if match := profilePathPattern.FindStringSubmatch(parsed.Path); match != nil {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err == nil {
			if _, err := v.profiles.GetProfile(ctx, id); err == nil {
				return Check{Check: CheckIssuer, Result: ResultSuccess}
			}
		}
	}
	return Check{Check: CheckIssuer, Result: ResultWarning, Message: "Issuer not verified"}
}

func (v *ExternalValidator) checkExternalProof(_ context.Context, doc externalDocument) Check {
	if len(doc.Proof) == 0 {
		return Check{Check: CheckProof, Result: ResultError, Message: "credential has no proof"}
	}
	var proofs []openbadge.Proof
	if err := unmarshalProofList(doc.Proof, &proofs); err != nil || len(proofs) == 0 {
		return Check{Check: CheckProof, Result: ResultError, Message: "proof block is malformed"}
	}
	proof := proofs[0]
	if proof.Type == "" || proof.Created == "" || proof.VerificationMethod == "" || proof.ProofPurpose == "" {
		return Check{Check: CheckProof, Result: ResultError, Message: "proof is missing required fields"}
	}
	if proof.JWS == "" && proof.ProofValue == "" {
		return Check{Check: CheckProof, Result: ResultError, Message: "proof carries neither jws nor proofValue"}
	}
	return Check{Check: CheckProof, Result: ResultSuccess}
}

func (v *ExternalValidator) checkExpiration(ctx context.Context, doc externalDocument) Check {
	if doc.ExpirationDate == "" {
		return Check{Check: CheckExpiration, Result: ResultSuccess}
	}
	expiration, err := time.Parse(time.RFC3339, doc.ExpirationDate)
	if err != nil {
		return Check{Check: CheckExpiration, Result: ResultError, Message: "invalid expirationDate"}
	}
	if expiration.Before(requestcontext.Now(ctx)) {
		return Check{Check: CheckExpiration, Result: ResultError, Message: "credential has expired"}
	}
	return Check{Check: CheckExpiration, Result: ResultSuccess}
}

func parseIssuerRef(raw json.RawMessage) (name, ref string) {
	if len(raw) == 0 {
		return "", ""
	}
	var iri string
	if err := json.Unmarshal(raw, &iri); err == nil {
		return "", iri
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", ""
	}
	return obj.Name, obj.ID
}

func unmarshalProofList(raw json.RawMessage, out *[]openbadge.Proof) error {
	if err := json.Unmarshal(raw, out); err == nil {
		return nil
	}
	var single openbadge.Proof
	if err := json.Unmarshal(raw, &single); err != nil {
		return err
	}
	*out = []openbadge.Proof{single}
	return nil
}

func containsString(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
