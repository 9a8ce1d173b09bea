package waitlist

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/entity"
)

type fakeStore struct {
	entries         []*entity.WaitlistEntry
	countAheadCalls int
	countAllCalls   int
	failCreates     int
	failField       string
}

func (f *fakeStore) CreateEntry(_ context.Context, e *entity.WaitlistEntry) error {
	if f.failCreates > 0 {
		f.failCreates--
		return &entity.DuplicateKeyError{Field: f.failField}
	}
	for _, ex := range f.entries {
		if ex.Email == e.Email {
			return &entity.DuplicateKeyError{Field: "email"}
		}
		if ex.InviteCode == e.InviteCode {
			return &entity.DuplicateKeyError{Field: "invite_code"}
		}
	}
	cp := *e
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeStore) EntryById(_ context.Context, id string) (*entity.WaitlistEntry, error) {
	for _, ex := range f.entries {
		if ex.Id == id {
			cp := *ex
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (f *fakeStore) EntryByEmail(_ context.Context, email string) (*entity.WaitlistEntry, error) {
	for _, ex := range f.entries {
		if ex.Email == email {
			cp := *ex
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (f *fakeStore) PendingEntry(_ context.Context, email, code string) (*entity.WaitlistEntry, error) {
	for _, ex := range f.entries {
		if ex.Email != email || ex.InviteSentAt == nil || ex.InviteAcceptedAt != nil {
			continue
		}
		if code != "" && ex.InviteCode != code {
			continue
		}
		cp := *ex
		return &cp, nil
	}
	return nil, entity.ErrNotFound
}

func (f *fakeStore) CountAhead(_ context.Context, before time.Time) (int64, error) {
	f.countAheadCalls++
	var n int64
	for _, ex := range f.entries {
		if ex.CreatedAt.Before(before) && ex.InviteAcceptedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountEntries(_ context.Context) (int64, error) {
	f.countAllCalls++
	return int64(len(f.entries)), nil
}

func (f *fakeStore) UpdateEntry(_ context.Context, e *entity.WaitlistEntry) error {
	for i, ex := range f.entries {
		if ex.Id == e.Id {
			cp := *e
			f.entries[i] = &cp
			return nil
		}
	}
	return entity.ErrNotFound
}

type fakeCache struct {
	values map[string]int64
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]int64)}
}

func (f *fakeCache) GetInt(_ context.Context, key string) (int64, bool, error) {
	if f.getErr != nil {
		return 0, false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) SetInt(_ context.Context, key string, value int64, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

type fakeMailer struct {
	sent         int
	lastTo       string
	lastPosition int
	sendErr      error
}

func (f *fakeMailer) SendInvite(_ context.Context, to, _ string, position int) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent++
	f.lastTo = to
	f.lastPosition = position
	return nil
}

func newService(store *fakeStore, cache *fakeCache, mailer *fakeMailer) *Service {
	log := slog.New(slog.DiscardHandler)
	return New(store, cache, mailer, Config{}, log)
}

// seed inserts an entry with an explicit creation time so position ordering
// is deterministic regardless of wall-clock resolution.
func seed(store *fakeStore, id, email string, createdAt time.Time) *entity.WaitlistEntry {
	e := &entity.WaitlistEntry{
		Id:         id,
		Email:      email,
		InviteCode: "code-" + id,
		CreatedAt:  createdAt,
	}
	store.entries = append(store.entries, e)
	return e
}

func TestAdd(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	e, err := svc.Add(ctx, "  Someone@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", e.Email)
	assert.NotEmpty(t, e.Id)
	assert.NotEmpty(t, e.InviteCode)
	assert.Nil(t, e.InviteSentAt)
	assert.Nil(t, e.InviteAcceptedAt)
	require.Len(t, store.entries, 1)

	// the position was pre-cached, so a read must not touch the store
	calls := store.countAheadCalls
	position, err := svc.Position(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 1, position)
	assert.Equal(t, calls, store.countAheadCalls)
}

func TestAdd_EmptyEmail(t *testing.T) {
	svc := newService(&fakeStore{}, newFakeCache(), &fakeMailer{})

	_, err := svc.Add(context.Background(), "   ")
	assert.ErrorIs(t, err, entity.ErrEmptyEmail)
}

func TestAdd_InvalidEmail(t *testing.T) {
	svc := newService(&fakeStore{}, newFakeCache(), &fakeMailer{})

	_, err := svc.Add(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, entity.ErrInvalidEmail)
}

func TestAdd_DuplicateEmail(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeCache(), &fakeMailer{})
	ctx := context.Background()

	_, err := svc.Add(ctx, "dup@example.com")
	require.NoError(t, err)

	_, err = svc.Add(ctx, "dup@example.com")
	assert.ErrorIs(t, err, entity.ErrDuplicateEmail)
	assert.Len(t, store.entries, 1)
}

func TestAdd_InviteCodeCollisionRetriedOnce(t *testing.T) {
	store := &fakeStore{failCreates: 1, failField: "invite_code"}
	svc := newService(store, newFakeCache(), &fakeMailer{})

	e, err := svc.Add(context.Background(), "retry@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, e.InviteCode)
	assert.Len(t, store.entries, 1)
}

func TestAdd_ClearsAggregateCount(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	cache.values[countCacheKey] = 100

	_, err := svc.Add(ctx, "first@example.com")
	require.NoError(t, err)
	_, cached := cache.values[countCacheKey]
	assert.False(t, cached)
}

func TestPosition_OrderedByCreation(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := seed(store, "a", "a@example.com", base)
	b := seed(store, "b", "b@example.com", base.Add(time.Second))
	c := seed(store, "c", "c@example.com", base.Add(2*time.Second))

	for i, e := range []*entity.WaitlistEntry{a, b, c} {
		position, err := svc.Position(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, i+1, position)
	}
}

func TestPosition_CachedValueWins(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache.values[e.CacheKey()] = 7

	position, err := svc.Position(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 7, position)
	assert.Equal(t, 0, store.countAheadCalls)
}

func TestPosition_NeverBelowOne(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeCache(), &fakeMailer{})

	e := seed(store, "only", "only@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	position, err := svc.Position(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, 1, position)
}

func TestAccept_ReordersFollowers(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := seed(store, "a", "a@example.com", base)
	b := seed(store, "b", "b@example.com", base.Add(time.Second))
	c := seed(store, "c", "c@example.com", base.Add(2*time.Second))

	require.NoError(t, svc.Accept(ctx, a))
	require.NotNil(t, a.InviteAcceptedAt)

	// accepted entries no longer count as ahead
	positionB, err := svc.Position(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, positionB)

	positionC, err := svc.Position(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, positionC)
}

func TestAccept_InvalidatesOwnPositionOnly(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := seed(store, "a", "a@example.com", base)
	b := seed(store, "b", "b@example.com", base.Add(time.Second))

	cache.values[a.CacheKey()] = 1
	cache.values[b.CacheKey()] = 2

	require.NoError(t, svc.Accept(ctx, a))

	_, ok := cache.values[a.CacheKey()]
	assert.False(t, ok, "accepted entry's own key must be dropped")

	// the follower's stale position survives until the TTL lapses
	positionB, err := svc.Position(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, positionB)
}

func TestAccept_Idempotent(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeCache(), &fakeMailer{})
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Accept(ctx, e))
	first := *e.InviteAcceptedAt

	require.NoError(t, svc.Accept(ctx, e))
	assert.True(t, first.Equal(*e.InviteAcceptedAt))
}

func TestAccept_ClearsAggregateCount(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache.values[countCacheKey] = 100

	require.NoError(t, svc.Accept(ctx, e))
	_, ok := cache.values[countCacheKey]
	assert.False(t, ok)
}

func TestWaitingCount_RoundedAndCached(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newService(store, cache, &fakeMailer{})
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 47; i++ {
		seed(store, string(rune('a'+i)), string(rune('a'+i))+"@example.com", base.Add(time.Duration(i)*time.Second))
	}

	n, err := svc.WaitingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	// the rounded value is what got cached
	assert.Equal(t, int64(40), cache.values[countCacheKey])

	// a second read is served from the cache
	calls := store.countAllCalls
	n, err = svc.WaitingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, calls, store.countAllCalls)
}

func TestSendInvite(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	svc := newService(store, newFakeCache(), mailer)
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	code, err := svc.SendInvite(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, e.InviteCode, code)
	assert.Equal(t, 1, mailer.sent)
	assert.Equal(t, "a@example.com", mailer.lastTo)
	assert.Equal(t, 1, mailer.lastPosition)
	require.NotNil(t, e.InviteSentAt)

	saved, err := store.EntryById(ctx, e.Id)
	require.NoError(t, err)
	assert.NotNil(t, saved.InviteSentAt)
}

func TestSendInvite_FailureLeavesEntryUntouched(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	svc := newService(store, newFakeCache(), mailer)
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, err := svc.SendInvite(ctx, e)
	assert.ErrorIs(t, err, entity.ErrInviteSendFailed)
	assert.Nil(t, e.InviteSentAt)

	saved, err := store.EntryById(ctx, e.Id)
	require.NoError(t, err)
	assert.Nil(t, saved.InviteSentAt)
}

func TestSendInvite_PositionFailureDoesNotBlockSend(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	cache.getErr = errors.New("cache unavailable")
	mailer := &fakeMailer{}
	svc := newService(store, cache, mailer)
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	code, err := svc.SendInvite(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, e.InviteCode, code)
	assert.Equal(t, 1, mailer.sent)
	assert.Equal(t, 0, mailer.lastPosition, "the mail omits the position instead of failing")
	assert.NotNil(t, e.InviteSentAt)
}

func TestSendInvite_ResendKeepsFirstTimestamp(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	svc := newService(store, newFakeCache(), mailer)
	ctx := context.Background()

	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, err := svc.SendInvite(ctx, e)
	require.NoError(t, err)
	first := *e.InviteSentAt

	_, err = svc.SendInvite(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 2, mailer.sent)
	assert.True(t, first.Equal(*e.InviteSentAt))
}

func TestLookup(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, newFakeCache(), &fakeMailer{})
	ctx := context.Background()

	sent := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	e := seed(store, "a", "a@example.com", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	e.InviteSentAt = &sent

	found, err := svc.Lookup(ctx, " A@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, e.Id, found.Id)

	found, err = svc.Lookup(ctx, "a@example.com", e.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, e.Id, found.Id)

	_, err = svc.Lookup(ctx, "a@example.com", "wrong-code-0123456")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	// not yet invited entries never match
	seed(store, "b", "b@example.com", time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC))
	_, err = svc.Lookup(ctx, "b@example.com", "")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
