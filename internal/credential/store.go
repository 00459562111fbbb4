package credential

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/domain"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/repository"
)

// Well-known storage keys.
const (
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
	KeyRole    = "role"
)

// Pair is re-exported for callers that only deal with the store.
type Pair = domain.Pair

// ErrEmptyPair is returned when saving a pair without an access token.
var ErrEmptyPair = errors.New("credential: access token is empty")

// Provider hands out stores scoped to one namespace. All reads and writes of
// credential state go through the stores it returns.
type Provider struct {
	repo       repository.StorageRepository
	sealer     *Sealer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewProvider wires a provider over a storage backend.
func NewProvider(repo repository.StorageRepository, sealer *Sealer, dispatcher events.Dispatcher, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		repo:       repo,
		sealer:     sealer,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      time.Now,
	}
}

// Store returns the credential store for namespace.
func (p *Provider) Store(namespace string) *Store {
	return &Store{p: p, namespace: namespace}
}

// Dispatcher exposes the change-notification channel stores publish on.
func (p *Provider) Dispatcher() events.Dispatcher {
	return p.dispatcher
}

// Store persists at most one credential pair and the role hint for a namespace.
type Store struct {
	p         *Provider
	namespace string
}

// Namespace identifies the browser session or profile the store belongs to.
func (s *Store) Namespace() string {
	return s.namespace
}

// Save persists the pair, replacing any previous one.
func (s *Store) Save(ctx context.Context, pair Pair) error {
	if pair.Empty() {
		return ErrEmptyPair
	}
	access, err := s.p.sealer.Seal(pair.Access)
	if err != nil {
		return err
	}
	values := map[string]string{KeyAccess: access}
	if pair.Refresh != "" {
		refresh, err := s.p.sealer.Seal(pair.Refresh)
		if err != nil {
			return err
		}
		values[KeyRefresh] = refresh
	}

	if err := s.p.repo.Set(ctx, s.namespace, values, retentionFor(pair, s.p.clock())); err != nil {
		return err
	}
	if pair.Refresh == "" {
		if _, err := s.p.repo.Delete(ctx, s.namespace, KeyRefresh); err != nil {
			return err
		}
	}
	s.publish(ctx, KeyAccess, KeyRefresh)
	return nil
}

// Clear erases both tokens and the role flag. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	n, err := s.p.repo.Delete(ctx, s.namespace, KeyAccess, KeyRefresh, KeyRole)
	if err != nil {
		return err
	}
	if n > 0 {
		s.publish(ctx, KeyAccess, KeyRefresh, KeyRole)
	}
	return nil
}

// HasCredential reports whether an access token is stored. It does not validate it.
func (s *Store) HasCredential(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.sealed(ctx, KeyAccess)
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.sealed(ctx, KeyRefresh)
}

// Pair returns the stored pair, if an access token is present.
func (s *Store) Pair(ctx context.Context) (Pair, bool) {
	access, ok := s.AccessToken(ctx)
	if !ok {
		return Pair{}, false
	}
	refresh, _ := s.RefreshToken(ctx)
	return Pair{Access: access, Refresh: refresh}, true
}

// Role returns the stored role hint.
func (s *Store) Role(ctx context.Context) domain.Role {
	val, ok, err := s.p.repo.Get(ctx, s.namespace, KeyRole)
	if err != nil {
		s.p.logger.Warn("read role", zap.String("namespace", s.namespace), zap.Error(err))
		return domain.RoleNone
	}
	if !ok {
		return domain.RoleNone
	}
	return domain.Role(val)
}

// SetRole stores the role hint. Setting RoleNone removes it.
func (s *Store) SetRole(ctx context.Context, role domain.Role) error {
	if role == domain.RoleNone {
		return s.ClearRole(ctx)
	}
	if err := s.p.repo.Set(ctx, s.namespace, map[string]string{KeyRole: string(role)}, 0); err != nil {
		return err
	}
	s.publish(ctx, KeyRole)
	return nil
}

// ClearRole removes the role hint only.
func (s *Store) ClearRole(ctx context.Context) error {
	n, err := s.p.repo.Delete(ctx, s.namespace, KeyRole)
	if err != nil {
		return err
	}
	if n > 0 {
		s.publish(ctx, KeyRole)
	}
	return nil
}

func (s *Store) sealed(ctx context.Context, key string) (string, bool) {
	val, ok, err := s.p.repo.Get(ctx, s.namespace, key)
	if err != nil {
		s.p.logger.Warn("read credential", zap.String("namespace", s.namespace), zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	plain, err := s.p.sealer.Open(val)
	if err != nil {
		s.p.logger.Warn("unreadable credential", zap.String("namespace", s.namespace), zap.String("key", key), zap.Error(err))
		return "", false
	}
	if plain == "" {
		return "", false
	}
	return plain, true
}

func (s *Store) publish(ctx context.Context, keys ...string) {
	if s.p.dispatcher == nil {
		return
	}
	if err := s.p.dispatcher.Publish(ctx, events.NewStorageChanged(s.namespace, keys...)); err != nil {
		s.p.logger.Warn("publish storage change", zap.String("namespace", s.namespace), zap.Error(err))
	}
}
