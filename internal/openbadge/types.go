// Package openbadge holds the wire representation of an Open Badges 3.0
// verifiable credential and the canonicalization rules used when signing
// and verifying it.
package openbadge

// Context entries every serialized credential carries, in order.
var ContextURIs = []string{
	"https://www.w3.org/2018/credentials/v1",
	"https://purl.imsglobal.org/spec/ob/v3p0/context.json",
}

// CredentialTypes is the fixed type array of an issued credential.
var CredentialTypes = []string{"VerifiableCredential", "OpenBadgeCredential"}

// Credential is the JSON-LD document shipped to holders and verifiers.
type Credential struct {
	Context           []string `json:"@context"`
	ID                string   `json:"id"`
	Type              []string `json:"type"`
	Name              string   `json:"name,omitempty"`
	Description       string   `json:"description,omitempty"`
	Issuer            Issuer   `json:"issuer"`
	IssuanceDate      string   `json:"issuanceDate"`
	ExpirationDate    string   `json:"expirationDate,omitempty"`
	CredentialSubject Subject  `json:"credentialSubject"`
	Proof             []Proof  `json:"proof,omitempty"`
}

// Issuer is the embedded issuer profile.
type Issuer struct {
	ID   string   `json:"id"`
	Type []string `json:"type"`
	Name string   `json:"name,omitempty"`
	URL  string   `json:"url,omitempty"`
}

// Subject describes the credential recipient and the achievement earned.
type Subject struct {
	ID          string      `json:"id,omitempty"`
	Type        []string    `json:"type"`
	Name        string      `json:"name,omitempty"`
	Achievement Achievement `json:"achievement"`
}

// Achievement is the badge class embedded under credentialSubject.
type Achievement struct {
	ID          string      `json:"id"`
	Type        []string    `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Criteria    *Criteria   `json:"criteria,omitempty"`
	Image       *Image      `json:"image,omitempty"`
	Alignments  []Alignment `json:"alignments,omitempty"`
	Evidence    []Evidence  `json:"evidence,omitempty"`
}

// Criteria states what was required to earn the achievement.
type Criteria struct {
	Narrative string `json:"narrative,omitempty"`
	ID        string `json:"id,omitempty"`
}

// Image is an optional achievement image reference.
type Image struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Alignment links the achievement to an external framework node.
type Alignment struct {
	Type        string `json:"type"`
	TargetName  string `json:"targetName"`
	TargetURL   string `json:"targetUrl"`
	TargetType  string `json:"targetType,omitempty"`
	Description string `json:"targetDescription,omitempty"`
}

// Evidence supports the claim made by the credential.
type Evidence struct {
	ID          string   `json:"id,omitempty"`
	Type        []string `json:"type"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Narrative   string   `json:"narrative,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Audience    string   `json:"audience,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Proof is a Data Integrity proof attached to a credential. Locally signed
// credentials carry a JWS; imported credentials may carry a proofValue
// instead.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	JWS                string `json:"jws,omitempty"`
	ProofValue         string `json:"proofValue,omitempty"`
}

// ProofTypeEd25519 is the proof type written on locally issued credentials.
const ProofTypeEd25519 = "Ed25519Signature2020"

// PurposeAssertion is the proofPurpose written at issuance.
const PurposeAssertion = "assertionMethod"
