package entity

import "time"

// VerificationStatus follows the provider's session lifecycle. A session
// starts as processing and ends verified, requires_action or failed.
type VerificationStatus string

const (
	VerificationProcessing     VerificationStatus = "processing"
	VerificationVerified       VerificationStatus = "verified"
	VerificationRequiresAction VerificationStatus = "requires_action"
	VerificationFailed         VerificationStatus = "failed"
)

const VerificationServiceStripe = "stripe"

// IdentityVerification mirrors one provider verification session.
// Keyed by the provider's session id; status transitions arrive via webhooks.
type IdentityVerification struct {
	SessionId string             `json:"session_id" bson:"session_id"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	Service   string             `json:"service" bson:"service"`
	Status    VerificationStatus `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`

	// ClientSecret lets the invitee's browser attach to the provider session.
	// Returned once at creation, never persisted.
	ClientSecret string `json:"client_secret,omitempty" bson:"-"`
}
