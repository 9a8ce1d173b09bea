package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	waitlistSignups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "Waiting list entries created",
		},
	)

	waitlistInvites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_invites_total",
			Help: "Invite lifecycle transitions",
		},
		[]string{"stage"},
	)

	positionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_position_cache_total",
			Help: "Position cache lookups by result",
		},
		[]string{"result"},
	)

	donations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_total",
			Help: "Donation checkout sessions by status",
		},
		[]string{"status"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook events received by kind",
		},
		[]string{"kind"},
	)
)

func SignupCreated() { waitlistSignups.Inc() }

func InviteSent() { waitlistInvites.WithLabelValues("sent").Inc() }

func InviteAccepted() { waitlistInvites.WithLabelValues("accepted").Inc() }

func PositionCacheHit() { positionCache.WithLabelValues("hit").Inc() }

func PositionCacheMiss() { positionCache.WithLabelValues("miss").Inc() }

func DonationStarted() { donations.WithLabelValues("started").Inc() }

func DonationCompleted() { donations.WithLabelValues("completed").Inc() }

func WebhookEvent(kind string) { webhookEvents.WithLabelValues(kind).Inc() }

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
