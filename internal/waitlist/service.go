// Package waitlist maintains the product waiting list: append-only signup
// entries, each entry's cached 1-based position among not-yet-accepted
// signups, and the obscured aggregate count shown on the landing page.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agora/entity"
	"agora/internal/monitoring"
	"agora/lib/clock"
	"agora/lib/sl"
	"agora/lib/validate"
)

// countCacheKey is the fixed key for the aggregate count. The cached value
// is the already-rounded display number, not the raw count.
const countCacheKey = "waiting_list_count"

const (
	defaultPositionTTL = 30 * time.Second
	defaultCountTTL    = 5 * time.Minute
)

// Store is the durable table of waiting list entries. Unique indexes on
// email and invite_code arbitrate racing writers; violations come back as
// entity.DuplicateKeyError with the violated field attributed.
type Store interface {
	CreateEntry(ctx context.Context, e *entity.WaitlistEntry) error
	EntryById(ctx context.Context, id string) (*entity.WaitlistEntry, error)
	EntryByEmail(ctx context.Context, email string) (*entity.WaitlistEntry, error)
	PendingEntry(ctx context.Context, email, code string) (*entity.WaitlistEntry, error)
	CountAhead(ctx context.Context, before time.Time) (int64, error)
	CountEntries(ctx context.Context) (int64, error)
	UpdateEntry(ctx context.Context, e *entity.WaitlistEntry) error
}

// Cache is a shared key-value store with TTL. Injected, never ambient.
type Cache interface {
	GetInt(ctx context.Context, key string) (int64, bool, error)
	SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Mailer delivers the invite notification. Send failure must surface as an
// error so the caller can leave the entry untouched and retry.
type Mailer interface {
	SendInvite(ctx context.Context, to, code string, position int) error
}

type Config struct {
	PositionTTL time.Duration
	CountTTL    time.Duration
}

type Service struct {
	store  Store
	cache  Cache
	mailer Mailer
	conf   Config
	log    *slog.Logger
}

func New(store Store, cache Cache, mailer Mailer, conf Config, log *slog.Logger) *Service {
	if conf.PositionTTL <= 0 {
		conf.PositionTTL = defaultPositionTTL
	}
	if conf.CountTTL <= 0 {
		conf.CountTTL = defaultCountTTL
	}
	return &Service{
		store:  store,
		cache:  cache,
		mailer: mailer,
		conf:   conf,
		log:    log.With(sl.Module("waitlist")),
	}
}

// Add validates and persists a new signup, pre-caches its position and
// clears the aggregate count. A duplicate email surfaces as
// entity.ErrDuplicateEmail; an invite code collision is retried once with a
// fresh code and never surfaces.
func (s *Service) Add(ctx context.Context, email string) (*entity.WaitlistEntry, error) {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return nil, entity.ErrEmptyEmail
	}
	if err := validate.Struct(&entity.SignupRequest{Email: email}); err != nil {
		return nil, entity.ErrInvalidEmail
	}

	code, err := NewInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}
	e := &entity.WaitlistEntry{
		Id:         uuid.Must(uuid.NewV7()).String(),
		Email:      email,
		InviteCode: code,
		CreatedAt:  clock.NowUTC(),
	}

	if err = s.store.CreateEntry(ctx, e); err != nil {
		var dup *entity.DuplicateKeyError
		if !errors.As(err, &dup) {
			return nil, err
		}
		switch dup.Field {
		case "email":
			return nil, entity.ErrDuplicateEmail
		case "invite_code":
			// collision odds are astronomically low; one transparent retry
			if e.InviteCode, err = NewInviteCode(); err != nil {
				return nil, fmt.Errorf("generate invite code: %w", err)
			}
			if err = s.store.CreateEntry(ctx, e); err != nil {
				if errors.As(err, &dup) && dup.Field == "email" {
					return nil, entity.ErrDuplicateEmail
				}
				return nil, err
			}
		default:
			return nil, err
		}
	}

	if _, err = s.PreCachePosition(ctx, e); err != nil {
		s.log.With(sl.Err(err), slog.String("id", e.Id)).Warn("pre-cache position")
	}
	s.clearCount(ctx)
	monitoring.SignupCreated()

	s.log.With(sl.Email(e.Email), slog.String("id", e.Id)).Info("added to waiting list")
	return e, nil
}

// Position returns the entry's 1-based rank among not-yet-accepted signups.
// A cache hit is returned as-is, so the value can lag an acceptance
// elsewhere by up to the position TTL.
func (s *Service) Position(ctx context.Context, e *entity.WaitlistEntry) (int, error) {
	cached, ok, err := s.cache.GetInt(ctx, e.CacheKey())
	if err != nil {
		return 0, err
	}
	if ok {
		monitoring.PositionCacheHit()
		return int(cached), nil
	}
	monitoring.PositionCacheMiss()
	return s.computeAndCache(ctx, e)
}

// PreCachePosition computes and caches the position unconditionally, so the
// first read after signup is a cache hit rather than a store count.
func (s *Service) PreCachePosition(ctx context.Context, e *entity.WaitlistEntry) (int, error) {
	return s.computeAndCache(ctx, e)
}

func (s *Service) computeAndCache(ctx context.Context, e *entity.WaitlistEntry) (int, error) {
	ahead, err := s.store.CountAhead(ctx, e.CreatedAt)
	if err != nil {
		return 0, err
	}
	// the count can never be negative; the floor is kept for symmetry with
	// the cached path
	position := int(ahead) + 1
	if position < 1 {
		position = 1
	}
	if err = s.cache.SetInt(ctx, e.CacheKey(), int64(position), s.conf.PositionTTL); err != nil {
		return 0, err
	}
	return position, nil
}

// WaitingCount returns the bucketed public count, cached under a fixed key.
func (s *Service) WaitingCount(ctx context.Context) (int, error) {
	cached, ok, err := s.cache.GetInt(ctx, countCacheKey)
	if err != nil {
		return 0, err
	}
	if ok {
		return int(cached), nil
	}
	n, err := s.store.CountEntries(ctx)
	if err != nil {
		return 0, err
	}
	rounded := FormatCount(int(n))
	if err = s.cache.SetInt(ctx, countCacheKey, int64(rounded), s.conf.CountTTL); err != nil {
		return 0, err
	}
	return rounded, nil
}

// SendInvite mails the invite and, only on send success, stamps
// invite_sent_at. A failed send mutates nothing and is safely retryable.
func (s *Service) SendInvite(ctx context.Context, e *entity.WaitlistEntry) (string, error) {
	if e.InviteCode == "" {
		// rows created before codes existed carry none; backfill
		code, err := NewInviteCode()
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		e.InviteCode = code
		if err = s.save(ctx, e); err != nil {
			return "", err
		}
	}

	position, err := s.Position(ctx, e)
	if err != nil {
		// the position only decorates the mail body; send without it
		s.log.With(sl.Err(err), slog.String("id", e.Id)).Warn("position for invite mail")
		position = 0
	}
	if err = s.mailer.SendInvite(ctx, e.Email, e.InviteCode, position); err != nil {
		return "", fmt.Errorf("%w: %s", entity.ErrInviteSendFailed, err)
	}

	if e.InviteSentAt == nil {
		now := clock.NowUTC()
		e.InviteSentAt = &now
		if err = s.save(ctx, e); err != nil {
			return "", err
		}
	}
	monitoring.InviteSent()

	s.log.With(sl.Email(e.Email), slog.String("id", e.Id)).Info("invite sent")
	return e.InviteCode, nil
}

// Accept stamps invite_accepted_at and clears the aggregate count. Only the
// accepted entry's own position key is invalidated; entries ranked behind
// it keep their cached positions until the TTL lapses.
func (s *Service) Accept(ctx context.Context, e *entity.WaitlistEntry) error {
	if e.InviteAcceptedAt != nil {
		return nil
	}
	now := clock.NowUTC()
	e.InviteAcceptedAt = &now
	if err := s.save(ctx, e); err != nil {
		e.InviteAcceptedAt = nil
		return err
	}
	s.clearCount(ctx)
	monitoring.InviteAccepted()

	s.log.With(sl.Email(e.Email), slog.String("id", e.Id)).Info("invite accepted")
	return nil
}

// Lookup finds an invited, not yet accepted entry by email and, when
// provided, invite code. The code-less match is intentionally looser and
// serves code-less acceptance flows.
func (s *Service) Lookup(ctx context.Context, email, code string) (*entity.WaitlistEntry, error) {
	return s.store.PendingEntry(ctx, entity.NormalizeEmail(email), code)
}

func (s *Service) ById(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	return s.store.EntryById(ctx, id)
}

func (s *Service) ByEmail(ctx context.Context, email string) (*entity.WaitlistEntry, error) {
	return s.store.EntryByEmail(ctx, entity.NormalizeEmail(email))
}

// save persists a mutated entry, comparing the persisted invite_accepted_at
// with the new value first: when it changed, the entry's own position key
// is dropped before the write commits.
func (s *Service) save(ctx context.Context, e *entity.WaitlistEntry) error {
	old, err := s.store.EntryById(ctx, e.Id)
	if err == nil && !timeEqual(old.InviteAcceptedAt, e.InviteAcceptedAt) {
		if cerr := s.cache.Delete(ctx, e.CacheKey()); cerr != nil {
			s.log.With(sl.Err(cerr), slog.String("id", e.Id)).Warn("invalidate position cache")
		}
	}
	return s.store.UpdateEntry(ctx, e)
}

func (s *Service) clearCount(ctx context.Context) {
	if err := s.cache.Delete(ctx, countCacheKey); err != nil {
		s.log.With(sl.Err(err)).Warn("clear aggregate count cache")
	}
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
