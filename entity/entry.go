package entity

import "time"

// cache key prefix, type-tagged so waiting list keys never clash with
// other cached values in the same Redis database
const waitlistKeyPrefix = "waiting_list_"

// WaitlistEntry is a single signup on the waiting list.
// Entries are append-only: created once, stamped twice (invite sent,
// invite accepted) and never deleted. CreatedAt is the sole ranking key.
type WaitlistEntry struct {
	Id               string     `json:"id" bson:"_id"`
	Email            string     `json:"email" bson:"email" validate:"required,email"`
	InviteCode       string     `json:"-" bson:"invite_code"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	InviteSentAt     *time.Time `json:"invite_sent_at,omitempty" bson:"invite_sent_at,omitempty"`
	InviteAcceptedAt *time.Time `json:"invite_accepted_at,omitempty" bson:"invite_accepted_at,omitempty"`
}

// CacheKey derives the position cache key for this entry.
// Pure and deterministic: the same id always yields the same key.
func (e *WaitlistEntry) CacheKey() string {
	return waitlistKeyPrefix + e.Id
}

func (e *WaitlistEntry) IsInvited() bool {
	return e.InviteSentAt != nil
}

func (e *WaitlistEntry) IsAccepted() bool {
	return e.InviteAcceptedAt != nil
}
