package entity

import (
	"net/http"
	"strings"

	"agora/lib/validate"
)

// SignupRequest is the public waitlist signup payload.
type SignupRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (s *SignupRequest) Bind(_ *http.Request) error {
	s.Email = NormalizeEmail(s.Email)
	return validate.Struct(s)
}

// AcceptRequest completes registration for an invited signup.
// InviteCode is optional: without it the match narrows to email and
// invite state only, used for code-less acceptance flows.
type AcceptRequest struct {
	Email      string `json:"email" validate:"required,email"`
	InviteCode string `json:"invite_code,omitempty" validate:"omitempty,min=16"`
}

func (a *AcceptRequest) Bind(_ *http.Request) error {
	a.Email = NormalizeEmail(a.Email)
	return validate.Struct(a)
}

// DonationRequest starts a one-off donation checkout.
// Amount is in the smallest currency unit.
type DonationRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

func (d *DonationRequest) Bind(_ *http.Request) error {
	d.Currency = strings.ToLower(strings.TrimSpace(d.Currency))
	d.Email = NormalizeEmail(d.Email)
	return validate.Struct(d)
}

// IdentityRequest opens an identity verification session for an invitee.
type IdentityRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (i *IdentityRequest) Bind(_ *http.Request) error {
	i.Email = NormalizeEmail(i.Email)
	return validate.Struct(i)
}

// NormalizeEmail lower-cases and trims an address before any store access.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
