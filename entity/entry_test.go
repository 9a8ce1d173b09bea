package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	e := &WaitlistEntry{Id: "0190a1b2"}
	assert.Equal(t, "waiting_list_0190a1b2", e.CacheKey())
}

func TestEntryState(t *testing.T) {
	e := &WaitlistEntry{}
	assert.False(t, e.IsInvited())
	assert.False(t, e.IsAccepted())

	now := time.Now()
	e.InviteSentAt = &now
	assert.True(t, e.IsInvited())
	assert.False(t, e.IsAccepted())

	e.InviteAcceptedAt = &now
	assert.True(t, e.IsAccepted())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@EXAMPLE.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestSignupRequestBind(t *testing.T) {
	req := &SignupRequest{Email: " User@Example.COM "}
	assert.NoError(t, req.Bind(nil))
	assert.Equal(t, "user@example.com", req.Email)

	req = &SignupRequest{Email: "not-an-address"}
	assert.Error(t, req.Bind(nil))

	req = &SignupRequest{}
	assert.Error(t, req.Bind(nil))
}

func TestAcceptRequestBind(t *testing.T) {
	req := &AcceptRequest{Email: "user@example.com"}
	assert.NoError(t, req.Bind(nil))

	req = &AcceptRequest{Email: "user@example.com", InviteCode: "long-enough-code-123"}
	assert.NoError(t, req.Bind(nil))

	// a present but implausibly short code is rejected
	req = &AcceptRequest{Email: "user@example.com", InviteCode: "short"}
	assert.Error(t, req.Bind(nil))
}

func TestDonationRequestBind(t *testing.T) {
	req := &DonationRequest{Amount: 500, Currency: " EUR "}
	assert.NoError(t, req.Bind(nil))
	assert.Equal(t, "eur", req.Currency)

	req = &DonationRequest{Amount: 0, Currency: "eur"}
	assert.Error(t, req.Bind(nil))

	req = &DonationRequest{Amount: 500, Currency: "euros"}
	assert.Error(t, req.Bind(nil))
}
