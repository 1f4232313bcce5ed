// Package verify runs credentials through an ordered series of checks
// and reports a verdict suitable for returning to API callers.
package verify

import (
	credentialmodels "certo/internal/credential/models"
	"certo/internal/openbadge"
)

// Check result values.
const (
	ResultSuccess = "success"
	ResultWarning = "warning"
	ResultError   = "error"
)

// Check names, in evaluation order.
const (
	CheckNotRevoked = "not_revoked"
	CheckNotExpired = "not_expired"
	CheckProof      = "proof"
	CheckSignature  = "signature"
)

// Check is one verification step's outcome.
type Check struct {
	Check   string `json:"check"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Verdict is the full verification outcome. On failure Checks holds only
// the failing entry; on success it holds one success entry per stage.
// Credential and RawCredential are attached on every outcome so callers
// can render the document next to a failed check.
type Verdict struct {
	Verified      bool                         `json:"verified"`
	Checks        []Check                      `json:"checks"`
	Credential    *openbadge.Credential        `json:"credential,omitempty"`
	RawCredential *credentialmodels.Credential `json:"rawCredential,omitempty"`
}

func failed(name, message string) Verdict {
	return Verdict{Checks: []Check{{Check: name, Result: ResultError, Message: message}}}
}
