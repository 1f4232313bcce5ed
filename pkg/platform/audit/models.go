package audit

import "time"

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/contractual significance:
	// credential issuance, revocation, and imports are attestations that
	// third parties rely on.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// failed signature verifications, unauthorized issuance attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: routine verifications, key registration.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject identifies the entity acted upon (a credentialId URN, a
	// profile id, a status list id).
	Subject string
	Action  string
	Reason  string
	// Email is the recipient email when the action concerns a recipient.
	Email string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// ActorID tracks who performed the action (issuer profile id).
	ActorID string
}

// AuditEvent names the actions emitted by the credential platform.
type AuditEvent string

const (
	EventCredentialIssued   AuditEvent = "credential_issued"
	EventCredentialRevoked  AuditEvent = "credential_revoked"
	EventCredentialImported AuditEvent = "credential_imported"
	EventCredentialVerified AuditEvent = "credential_verified"
	EventProfileCreated     AuditEvent = "profile_created"
	EventAccountProvisioned AuditEvent = "account_provisioned"
	EventStatusListCreated  AuditEvent = "status_list_created"
	EventStatusListRevoked  AuditEvent = "status_list_index_revoked"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCredentialIssued:   CategoryCompliance,
	EventCredentialRevoked:  CategoryCompliance,
	EventCredentialImported: CategoryCompliance,
	EventCredentialVerified: CategoryOperations,
	EventProfileCreated:     CategoryOperations,
	EventAccountProvisioned: CategorySecurity,
	EventStatusListCreated:  CategoryCompliance,
	EventStatusListRevoked:  CategoryCompliance,
}

// Category returns the category for an event, defaulting to operations for
// unknown actions so nothing is silently dropped.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
