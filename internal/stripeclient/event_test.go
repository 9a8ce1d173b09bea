package stripeclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"

	"agora/entity"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		eventType stripe.EventType
		want      EventKind
	}{
		{stripe.EventTypeCheckoutSessionCompleted, EventCheckoutCompleted},
		{stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded, EventCheckoutAsyncPaymentSucceeded},
		{stripe.EventTypeIdentityVerificationSessionCreated, EventIdentityCreated},
		{stripe.EventTypeIdentityVerificationSessionProcessing, EventIdentityProcessing},
		{stripe.EventTypeIdentityVerificationSessionVerified, EventIdentityVerified},
		{stripe.EventTypeIdentityVerificationSessionRequiresInput, EventIdentityRequiresInput},
		{stripe.EventTypeIdentityVerificationSessionCanceled, EventIdentityCanceled},
		{stripe.EventTypeInvoicePaid, EventUnknown},
		{stripe.EventType("made.up.event"), EventUnknown},
		{stripe.EventType(""), EventUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.eventType), "Classify(%q)", c.eventType)
	}
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "checkout_completed", EventCheckoutCompleted.String())
	assert.Equal(t, "identity_verified", EventIdentityVerified.String())
	assert.Equal(t, "unknown", EventUnknown.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestVerificationStatus(t *testing.T) {
	cases := []struct {
		kind   EventKind
		status entity.VerificationStatus
		ok     bool
	}{
		{EventIdentityProcessing, entity.VerificationProcessing, true},
		{EventIdentityVerified, entity.VerificationVerified, true},
		{EventIdentityRequiresInput, entity.VerificationRequiresAction, true},
		{EventIdentityCanceled, entity.VerificationFailed, true},
		{EventIdentityCreated, "", false},
		{EventCheckoutCompleted, "", false},
		{EventUnknown, "", false},
	}
	for _, c := range cases {
		status, ok := c.kind.VerificationStatus()
		assert.Equal(t, c.ok, ok, "%s", c.kind)
		assert.Equal(t, c.status, status, "%s", c.kind)
	}
}
