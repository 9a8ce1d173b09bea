package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyEmail and ErrInvalidEmail reject input before any store access.
	ErrEmptyEmail   = errors.New("email address cannot be empty")
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrDuplicateEmail is kept distinct from other uniqueness violations so
	// callers can route to an "already on the list" flow instead of failing.
	ErrDuplicateEmail = errors.New("email address already on the waiting list")

	// ErrInviteSendFailed leaves the entry unmodified; the send is retryable.
	ErrInviteSendFailed = errors.New("invite notification failed")

	ErrNotFound = errors.New("not found")
)

// DuplicateKeyError reports which unique field a store write collided on.
// The store layer attributes the violated index; the service layer decides
// whether the collision is fatal (email) or transparently retried (invite code).
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for unique field %q", e.Field)
}
