package stripeclient

import (
	"github.com/stripe/stripe-go/v76"

	"agora/entity"
)

// EventKind is the closed set of provider webhook events this service acts
// on. The provider's event-type string is classified exactly once, at the
// edge; everything downstream switches on the kind, with EventUnknown as
// the explicit variant for everything else.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCheckoutCompleted
	EventCheckoutAsyncPaymentSucceeded
	EventIdentityCreated
	EventIdentityProcessing
	EventIdentityVerified
	EventIdentityRequiresInput
	EventIdentityCanceled
)

func Classify(t stripe.EventType) EventKind {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted:
		return EventCheckoutCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return EventCheckoutAsyncPaymentSucceeded
	case stripe.EventTypeIdentityVerificationSessionCreated:
		return EventIdentityCreated
	case stripe.EventTypeIdentityVerificationSessionProcessing:
		return EventIdentityProcessing
	case stripe.EventTypeIdentityVerificationSessionVerified:
		return EventIdentityVerified
	case stripe.EventTypeIdentityVerificationSessionRequiresInput:
		return EventIdentityRequiresInput
	case stripe.EventTypeIdentityVerificationSessionCanceled:
		return EventIdentityCanceled
	default:
		return EventUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout_completed"
	case EventCheckoutAsyncPaymentSucceeded:
		return "checkout_async_payment_succeeded"
	case EventIdentityCreated:
		return "identity_created"
	case EventIdentityProcessing:
		return "identity_processing"
	case EventIdentityVerified:
		return "identity_verified"
	case EventIdentityRequiresInput:
		return "identity_requires_input"
	case EventIdentityCanceled:
		return "identity_canceled"
	default:
		return "unknown"
	}
}

// VerificationStatus maps identity event kinds to the local status field.
// The second return is false for kinds that carry no status transition.
func (k EventKind) VerificationStatus() (entity.VerificationStatus, bool) {
	switch k {
	case EventIdentityProcessing:
		return entity.VerificationProcessing, true
	case EventIdentityVerified:
		return entity.VerificationVerified, true
	case EventIdentityRequiresInput:
		return entity.VerificationRequiresAction, true
	case EventIdentityCanceled:
		return entity.VerificationFailed, true
	default:
		return "", false
	}
}
