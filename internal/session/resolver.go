package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/domain"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
)

// IdentityPath is the remote endpoint describing the bearer of a credential.
const IdentityPath = "/auth/me/"

// Profile is the payload of the identity endpoint.
type Profile struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsStaff     *bool  `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Resolver asks the remote service who the current credential belongs to.
type Resolver struct {
	client *gateway.Client
	logger *zap.Logger
}

// NewResolver builds a resolver over a bound gateway client.
func NewResolver(client *gateway.Client, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{client: client, logger: logger}
}

// Resolve never fails: every failure mode collapses into domain.Anonymous.
// Without a stored credential no network call is made.
func (r *Resolver) Resolve(ctx context.Context) domain.Identity {
	store := r.client.Store()
	if !store.HasCredential(ctx) {
		return domain.Anonymous
	}

	resp, err := r.client.Do(ctx, gateway.Request{Method: http.MethodGet, Path: IdentityPath})
	if err != nil {
		if !errors.Is(err, gateway.ErrUnauthorized) {
			r.logger.Warn("identity lookup failed", zap.String("namespace", store.Namespace()), zap.Error(err))
		}
		return r.reject(ctx)
	}
	if !gateway.OK(resp) {
		_ = resp.Body.Close()
		r.logger.Info("identity rejected",
			zap.String("namespace", store.Namespace()),
			zap.Int("status", resp.StatusCode),
		)
		return r.reject(ctx)
	}

	var profile Profile
	if err := gateway.DecodeJSON(resp, &profile); err != nil || profile.IsStaff == nil {
		r.logger.Warn("malformed identity payload", zap.String("namespace", store.Namespace()), zap.Error(err))
		return r.reject(ctx)
	}

	return domain.Identity{
		Authenticated: true,
		Staff:         *profile.IsStaff,
		Superuser:     profile.IsSuperuser,
		UserID:        profile.ID,
		Username:      profile.Username,
		Email:         profile.Email,
	}
}

func (r *Resolver) reject(ctx context.Context) domain.Identity {
	store := r.client.Store()
	if err := store.Clear(ctx); err != nil {
		r.logger.Error("clear credentials", zap.String("namespace", store.Namespace()), zap.Error(err))
	}
	return domain.Anonymous
}
