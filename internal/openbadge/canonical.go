package openbadge

import (
	"encoding/json"

	dErrors "certo/pkg/domain-errors"
)

// CanonicalPayload renders the signing input for a credential: the JSON
// document with the proof block removed and object keys sorted. Both the
// signer and the verifier must produce byte-identical output for the same
// credential, so everything funnels through this one function.
func CanonicalPayload(cred Credential) ([]byte, error) {
	raw, err := json.Marshal(cred)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal credential")
	}
	return CanonicalizeRaw(raw)
}

// CanonicalizeRaw canonicalizes an already-serialized credential document.
// Used when verifying imported credentials whose exact field set is not
// known ahead of time.
func CanonicalizeRaw(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse credential document")
	}
	delete(doc, "proof")
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "canonicalize credential")
	}
	return out, nil
}
