package entity

import "time"

type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
)

// Donation records a checkout session created for a one-off donation.
// The payment itself is processed by the provider; only the session
// reference and its outcome are kept locally.
type Donation struct {
	SessionId   string         `json:"session_id" bson:"session_id"`
	EventId     string         `json:"-" bson:"event_id,omitempty"`
	Email       string         `json:"email,omitempty" bson:"email,omitempty"`
	Name        string         `json:"-" bson:"name,omitempty"`
	Country     string         `json:"-" bson:"country,omitempty"`
	Amount      int64          `json:"amount" bson:"amount"`
	Currency    string         `json:"currency" bson:"currency"`
	Status      DonationStatus `json:"status" bson:"status"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" bson:"completed_at,omitempty"`

	// Link is the hosted checkout URL, returned to the caller and not persisted.
	Link string `json:"link,omitempty" bson:"-"`
}
