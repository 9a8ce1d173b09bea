package stripeclient

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"agora/entity"
)

type fakeDB struct {
	donations     map[string]*entity.Donation
	saves         int
	verifications map[string]entity.VerificationStatus
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		donations:     make(map[string]*entity.Donation),
		verifications: make(map[string]entity.VerificationStatus),
	}
}

func (f *fakeDB) SaveDonation(_ context.Context, d *entity.Donation) error {
	cp := *d
	f.donations[d.SessionId] = &cp
	f.saves++
	return nil
}

func (f *fakeDB) DonationBySession(_ context.Context, sessionId string) (*entity.Donation, error) {
	d, ok := f.donations[sessionId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDB) SaveVerification(_ context.Context, v *entity.IdentityVerification) error {
	f.verifications[v.SessionId] = v.Status
	return nil
}

func (f *fakeDB) SetVerificationStatus(_ context.Context, sessionId string, status entity.VerificationStatus) error {
	if _, ok := f.verifications[sessionId]; !ok {
		return entity.ErrNotFound
	}
	f.verifications[sessionId] = status
	return nil
}

type fakeSessions struct {
	sess *stripe.CheckoutSession
	err  error
}

func (f *fakeSessions) Get(_ string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return f.sess, f.err
}

func webhookClient(db *fakeDB, sessions *fakeSessions) *StripeClient {
	return &StripeClient{
		db:       db,
		sessions: sessions,
		log:      slog.New(slog.DiscardHandler),
	}
}

func checkoutEvent(sessionId string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Object: map[string]interface{}{"id": sessionId}},
	}
}

func TestHandleCheckoutCompleted(t *testing.T) {
	db := newFakeDB()
	db.donations["cs_1"] = &entity.Donation{
		SessionId: "cs_1",
		Amount:    700,
		Currency:  "eur",
		Status:    entity.DonationPending,
		CreatedAt: time.Now().UTC(),
	}
	sessions := &fakeSessions{sess: &stripe.CheckoutSession{
		ID:          "cs_1",
		AmountTotal: 700,
		Currency:    stripe.CurrencyEUR,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email:   "donor@example.com",
			Name:    "A Donor",
			Address: &stripe.Address{Country: "DE"},
		},
	}}

	s := webhookClient(db, sessions)
	s.HandleEvent(context.Background(), checkoutEvent("cs_1"))

	saved := db.donations["cs_1"]
	require.NotNil(t, saved)
	assert.Equal(t, entity.DonationCompleted, saved.Status)
	require.NotNil(t, saved.CompletedAt)
	assert.Equal(t, "evt_1", saved.EventId)
	assert.Equal(t, "donor@example.com", saved.Email)
	assert.Equal(t, "A Donor", saved.Name)
	assert.Equal(t, "Germany", saved.Country)
}

func TestHandleCheckoutCompleted_RedeliveryIsNoOp(t *testing.T) {
	completedAt := time.Now().UTC().Add(-time.Hour)
	db := newFakeDB()
	db.donations["cs_1"] = &entity.Donation{
		SessionId:   "cs_1",
		Amount:      700,
		Currency:    "eur",
		Status:      entity.DonationCompleted,
		CompletedAt: &completedAt,
	}
	sessions := &fakeSessions{sess: &stripe.CheckoutSession{ID: "cs_1", AmountTotal: 700, Currency: stripe.CurrencyEUR}}

	s := webhookClient(db, sessions)
	s.HandleEvent(context.Background(), checkoutEvent("cs_1"))

	assert.Equal(t, 0, db.saves)
	assert.True(t, completedAt.Equal(*db.donations["cs_1"].CompletedAt))
}

func TestHandleCheckoutCompleted_BackfillsUnknownSession(t *testing.T) {
	db := newFakeDB()
	sessions := &fakeSessions{sess: &stripe.CheckoutSession{
		ID:          "cs_unseen",
		AmountTotal: 1500,
		Currency:    stripe.CurrencyUSD,
	}}

	s := webhookClient(db, sessions)
	s.HandleEvent(context.Background(), checkoutEvent("cs_unseen"))

	saved := db.donations["cs_unseen"]
	require.NotNil(t, saved)
	assert.Equal(t, entity.DonationCompleted, saved.Status)
	assert.Equal(t, int64(1500), saved.Amount)
	assert.Equal(t, "usd", saved.Currency)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestHandleCheckoutCompleted_SessionFetchFailure(t *testing.T) {
	db := newFakeDB()
	sessions := &fakeSessions{err: assert.AnError}

	s := webhookClient(db, sessions)
	s.HandleEvent(context.Background(), checkoutEvent("cs_1"))

	assert.Equal(t, 0, db.saves)
}

func TestHandleIdentityUpdate(t *testing.T) {
	db := newFakeDB()
	db.verifications["vs_1"] = entity.VerificationProcessing

	s := webhookClient(db, &fakeSessions{})
	s.HandleEvent(context.Background(), &stripe.Event{
		ID:   "evt_2",
		Type: stripe.EventTypeIdentityVerificationSessionVerified,
		Data: &stripe.EventData{Object: map[string]interface{}{"id": "vs_1"}},
	})
	assert.Equal(t, entity.VerificationVerified, db.verifications["vs_1"])

	// a session opened outside this service is recorded from the event
	s.HandleEvent(context.Background(), &stripe.Event{
		ID:   "evt_3",
		Type: stripe.EventTypeIdentityVerificationSessionRequiresInput,
		Data: &stripe.EventData{Object: map[string]interface{}{"id": "vs_unseen"}},
	})
	assert.Equal(t, entity.VerificationRequiresAction, db.verifications["vs_unseen"])
}
