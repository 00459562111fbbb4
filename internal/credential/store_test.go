package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoai-civic/ecoai-client/internal/domain"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/repository"
)

type recordingRepo struct {
	repository.StorageRepository
	lastTTL time.Duration
	setErr  error
}

func (r *recordingRepo) Set(ctx context.Context, ns string, values map[string]string, ttl time.Duration) error {
	if r.setErr != nil {
		return r.setErr
	}
	r.lastTTL = ttl
	return r.StorageRepository.Set(ctx, ns, values, ttl)
}

func newTestStore(t *testing.T) (*Store, *recordingRepo, *[]events.Event) {
	t.Helper()
	sealer, err := NewSealer("test-secret")
	require.NoError(t, err)
	repo := &recordingRepo{StorageRepository: repository.NewMemoryStorageRepository()}
	dispatcher := events.NewInMemoryDispatcher()
	published := &[]events.Event{}
	dispatcher.Subscribe(events.EventStorageChanged, func(_ context.Context, e events.Event) error {
		*published = append(*published, e)
		return nil
	})
	return NewProvider(repo, sealer, dispatcher, nil).Store("tab-1"), repo, published
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := token.SignedString([]byte("remote-service-key"))
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Pair{Access: "a", Refresh: "b"}))
	assert.True(t, store.HasCredential(ctx))

	pair, ok := store.Pair(ctx)
	require.True(t, ok)
	assert.Equal(t, Pair{Access: "a", Refresh: "b"}, pair)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, store.HasCredential(ctx))
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	store, _, published := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Pair{Access: "a", Refresh: "b"}))
	require.NoError(t, store.SetRole(ctx, domain.RoleStaff))
	*published = nil

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	assert.False(t, store.HasCredential(ctx))
	_, ok := store.RefreshToken(ctx)
	assert.False(t, ok)
	assert.Equal(t, domain.RoleNone, store.Role(ctx))
	assert.Len(t, *published, 1, "only the clear that removed something is announced")
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, _, published := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Pair{Access: "a1", Refresh: "r1"}))
	require.NoError(t, store.Save(ctx, Pair{Access: "a2"}))

	access, _ := store.AccessToken(ctx)
	assert.Equal(t, "a2", access)
	_, ok := store.RefreshToken(ctx)
	assert.False(t, ok, "a pair without refresh token must not keep the previous one")
	assert.Len(t, *published, 2)
	assert.Equal(t, "tab-1", (*published)[0].Namespace)
}

func TestStore_FailedSaveKeepsPreviousPair(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Pair{Access: "a", Refresh: "b"}))

	repo.setErr = errors.New("storage offline")
	require.Error(t, store.Save(ctx, Pair{Access: "c"}))

	pair, ok := store.Pair(ctx)
	require.True(t, ok)
	assert.Equal(t, Pair{Access: "a", Refresh: "b"}, pair)

	repo.setErr = nil
	require.NoError(t, store.Save(ctx, Pair{Access: "c"}))
	_, ok = store.RefreshToken(ctx)
	assert.False(t, ok)
}

func TestStore_SaveRejectsEmptyPair(t *testing.T) {
	store, _, published := newTestStore(t)
	err := store.Save(context.Background(), Pair{Refresh: "r"})
	assert.ErrorIs(t, err, ErrEmptyPair)
	assert.Empty(t, *published)
}

func TestStore_TokensAreSealedAtRest(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Pair{Access: "plain-access", Refresh: "plain-refresh"}))

	raw, ok, err := repo.Get(ctx, "tab-1", KeyAccess)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "plain-access")
}

func TestStore_UnreadableValueCountsAsAbsent(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "tab-1", map[string]string{KeyAccess: "not-sealed"}, 0))

	assert.False(t, store.HasCredential(ctx))
}

func TestStore_RetentionFollowsRefreshExpiry(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	store.p.clock = func() time.Time { return now }

	refresh := signed(t, now.Add(24*time.Hour))
	access := signed(t, now.Add(time.Hour))
	require.NoError(t, store.Save(ctx, Pair{Access: access, Refresh: refresh}))
	assert.InDelta(t, (24 * time.Hour).Seconds(), repo.lastTTL.Seconds(), 1)

	require.NoError(t, store.Save(ctx, Pair{Access: "opaque", Refresh: "opaque"}))
	assert.Zero(t, repo.lastTTL)
}

func TestStore_Role(t *testing.T) {
	store, _, published := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, domain.RoleNone, store.Role(ctx))
	require.NoError(t, store.SetRole(ctx, domain.RoleStaff))
	assert.Equal(t, domain.RoleStaff, store.Role(ctx))

	require.NoError(t, store.SetRole(ctx, domain.RoleNone))
	assert.Equal(t, domain.RoleNone, store.Role(ctx))
	require.NoError(t, store.ClearRole(ctx))
	assert.Len(t, *published, 2)
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Pair{Access: "a"}))

	other := store.p.Store("tab-2")
	assert.False(t, other.HasCredential(ctx))
	require.NoError(t, other.Clear(ctx))
	assert.True(t, store.HasCredential(ctx))
}

func TestSealer(t *testing.T) {
	s1, err := NewSealer("one")
	require.NoError(t, err)
	s2, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := s1.Seal("token")
	require.NoError(t, err)
	plain, err := s1.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", plain)

	_, err = s2.Open(sealed)
	assert.Error(t, err)
	_, err = s1.Open("%%%")
	assert.Error(t, err)

	_, err = NewSealer("")
	assert.Error(t, err)
}
