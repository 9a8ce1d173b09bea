// Package core is the operation boundary between the HTTP layer and the
// domain services. Errors are classified here; handlers only map them to
// status codes.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"agora/entity"
	"agora/internal/stripeclient"
	"agora/internal/waitlist"
	"agora/lib/sl"
)

type AuthService interface {
	UserByToken(ctx context.Context, token string) (*entity.User, error)
}

// Notifier pushes operator alerts; nil disables them.
type Notifier interface {
	SendMessage(text string)
}

type Core struct {
	wl     *waitlist.Service
	sc     *stripeclient.StripeClient
	auth   AuthService
	notify Notifier
	log    *slog.Logger
}

func New(wl *waitlist.Service, sc *stripeclient.StripeClient, log *slog.Logger) *Core {
	if wl == nil {
		panic("waitlist service is nil")
	}
	return &Core{
		wl:  wl,
		sc:  sc,
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetNotifier(notify Notifier) {
	c.notify = notify
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(ctx, token)
}

// SignupWaitlist adds an email to the waiting list. A duplicate email is
// not a fault: the existing entry and its position are returned instead,
// so the caller lands on the same status view either way.
func (c *Core) SignupWaitlist(ctx context.Context, email string) (*entity.WaitlistEntry, int, error) {
	e, err := c.wl.Add(ctx, email)
	if errors.Is(err, entity.ErrDuplicateEmail) {
		if e, err = c.wl.ByEmail(ctx, email); err != nil {
			// the row existed a moment ago; treat disappearance as a fault
			return nil, 0, err
		}
	} else if err != nil {
		return nil, 0, err
	} else if c.notify != nil {
		c.notify.SendMessage(fmt.Sprintf("new waiting list signup, id %s", e.Id))
	}

	position, err := c.wl.Position(ctx, e)
	if err != nil {
		return nil, 0, err
	}
	return e, position, nil
}

func (c *Core) WaitlistStatus(ctx context.Context, id string) (*entity.WaitlistEntry, int, error) {
	e, err := c.wl.ById(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	position, err := c.wl.Position(ctx, e)
	if err != nil {
		return nil, 0, err
	}
	return e, position, nil
}

func (c *Core) WaitlistCount(ctx context.Context) (int, error) {
	return c.wl.WaitingCount(ctx)
}

// SendInvite dispatches the invite email for an entry. Send failure leaves
// the entry untouched so the operation can be retried.
func (c *Core) SendInvite(ctx context.Context, id string) (string, error) {
	e, err := c.wl.ById(ctx, id)
	if err != nil {
		return "", err
	}
	return c.wl.SendInvite(ctx, e)
}

// AcceptInvite completes registration for an invited signup. The invite
// code is optional; without it the match is email plus invite state.
func (c *Core) AcceptInvite(ctx context.Context, email, code string) (*entity.WaitlistEntry, error) {
	e, err := c.wl.Lookup(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if err = c.wl.Accept(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *Core) DonationLink(ctx context.Context, req *entity.DonationRequest) (*entity.Donation, error) {
	if c.sc == nil {
		return nil, fmt.Errorf("stripe service not connected")
	}
	d, err := c.sc.DonationLink(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.notify != nil {
		c.notify.SendMessage(fmt.Sprintf("donation checkout opened, %d %s", d.Amount, d.Currency))
	}
	return d, nil
}

func (c *Core) IdentitySession(ctx context.Context, email string) (*entity.IdentityVerification, error) {
	if c.sc == nil {
		return nil, fmt.Errorf("stripe service not connected")
	}
	return c.sc.IdentitySession(ctx, email)
}

func (c *Core) StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	if c.sc == nil {
		return false
	}
	return c.sc.VerifySignature(payload, header, tolerance)
}

func (c *Core) StripeEvent(ctx context.Context, evt *stripe.Event) {
	if c.sc == nil {
		return
	}
	c.sc.HandleEvent(ctx, evt)
}
