package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/domain"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	"github.com/ecoai-civic/ecoai-client/internal/session"
	apperrors "github.com/ecoai-civic/ecoai-client/pkg/util"
)

// Remote account endpoints, relative to the API base URL.
const (
	TokenPath    = "/auth/token/"
	RefreshPath  = "/auth/token/refresh/"
	RegisterPath = "/auth/register/"
)

// Credentials are what a user types into a login or sign-up form.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// AccountService coordinates login, registration and token refresh against
// the remote API and records the outcome in the caller's credential store.
type AccountService struct {
	gateway *gateway.Gateway
	logger  *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(gw *gateway.Gateway, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{gateway: gw, logger: logger}
}

// Login exchanges credentials for a token pair and saves it. A role hint left
// by an earlier staff login is cleared.
func (s *AccountService) Login(ctx context.Context, client *gateway.Client, creds Credentials) error {
	return s.login(ctx, client.Store(), creds, "Login failed")
}

func (s *AccountService) login(ctx context.Context, store *credential.Store, creds Credentials, fallback string) error {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return apperrors.NewValidationError("username and password are required", nil)
	}
	resp, err := s.gateway.Anonymous(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   TokenPath,
		Body:   Credentials{Username: creds.Username, Password: creds.Password},
	})
	if err != nil {
		return apperrors.NewUpstreamError(err)
	}
	if !gateway.OK(resp) {
		payload := readPayload(resp)
		s.logger.Info("login rejected", zap.String("username", creds.Username), zap.Int("status", resp.StatusCode))
		return apperrors.NewDomainError("LOGIN_FAILED", detailOr(payload, fallback), rejectedStatus(resp.StatusCode), nil)
	}

	var pair credential.Pair
	if err := gateway.DecodeJSON(resp, &pair); err != nil || pair.Empty() {
		return apperrors.NewUpstreamError(errors.New("token response without access token"))
	}
	if err := store.Save(ctx, pair); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := store.ClearRole(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("logged in", zap.String("namespace", store.Namespace()), zap.String("username", creds.Username))
	return nil
}

// Signup registers a new account and logs into it.
func (s *AccountService) Signup(ctx context.Context, client *gateway.Client, creds Credentials) error {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" || strings.TrimSpace(creds.Email) == "" {
		return apperrors.NewValidationError("username, email and password are required", nil)
	}
	resp, err := s.gateway.Anonymous(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   RegisterPath,
		Body:   creds,
	})
	if err != nil {
		return apperrors.NewUpstreamError(err)
	}
	if !gateway.OK(resp) {
		payload := readPayload(resp)
		s.logger.Info("registration rejected", zap.String("username", creds.Username), zap.Int("status", resp.StatusCode))
		return apperrors.NewValidationError("registration failed", payload)
	}
	drainBody(resp)
	return s.login(ctx, client.Store(), creds, "Login after sign up failed")
}

// StaffLogin logs in and then confirms the account is staff. On success the
// staff role hint is recorded. The saved tokens are kept when the account
// turns out not to be staff.
func (s *AccountService) StaffLogin(ctx context.Context, client *gateway.Client, creds Credentials) (domain.Identity, error) {
	if err := s.Login(ctx, client, creds); err != nil {
		return domain.Anonymous, err
	}

	resp, err := client.Do(ctx, gateway.Request{Method: http.MethodGet, Path: session.IdentityPath})
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return domain.Anonymous, apperrors.NewUnauthorized("Could not verify account")
		}
		return domain.Anonymous, apperrors.NewUpstreamError(err)
	}
	if !gateway.OK(resp) {
		drainBody(resp)
		return domain.Anonymous, apperrors.NewDomainError("VERIFY_FAILED", "Could not verify account", rejectedStatus(resp.StatusCode), nil)
	}
	var profile session.Profile
	if err := gateway.DecodeJSON(resp, &profile); err != nil {
		return domain.Anonymous, apperrors.NewDomainError("VERIFY_FAILED", "Could not verify account", http.StatusBadGateway, nil)
	}
	if profile.IsStaff == nil || !*profile.IsStaff {
		return domain.Anonymous, apperrors.NewForbidden("This is not a staff account.")
	}

	store := client.Store()
	if err := store.SetRole(ctx, domain.RoleStaff); err != nil {
		return domain.Anonymous, apperrors.NewInternalError(err)
	}
	return domain.Identity{
		Authenticated: true,
		Staff:         true,
		Superuser:     profile.IsSuperuser,
		UserID:        profile.ID,
		Username:      profile.Username,
		Email:         profile.Email,
	}, nil
}

// Refresh trades the stored refresh token for a new access token. A rejected
// refresh token clears the store. The old refresh token is kept when the
// remote service does not rotate it.
func (s *AccountService) Refresh(ctx context.Context, client *gateway.Client) error {
	store := client.Store()
	refresh, ok := store.RefreshToken(ctx)
	if !ok {
		return apperrors.NewUnauthorized("no refresh token stored")
	}
	resp, err := s.gateway.Anonymous(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   map[string]string{"refresh": refresh},
	})
	if err != nil {
		return apperrors.NewUpstreamError(err)
	}
	if !gateway.OK(resp) {
		payload := readPayload(resp)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			if err := store.Clear(ctx); err != nil {
				s.logger.Error("clear credentials after refresh", zap.String("namespace", store.Namespace()), zap.Error(err))
			}
			return apperrors.NewUnauthorized(detailOr(payload, "Session expired"))
		}
		return apperrors.NewUpstreamError(errors.New(detailOr(payload, "refresh failed")))
	}

	var pair credential.Pair
	if err := gateway.DecodeJSON(resp, &pair); err != nil || pair.Access == "" {
		return apperrors.NewUpstreamError(errors.New("refresh response without access token"))
	}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	if err := store.Save(ctx, pair); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("access token refreshed", zap.String("namespace", store.Namespace()))
	return nil
}

func readPayload(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}

func detailOr(payload map[string]any, fallback string) string {
	if detail, ok := payload["detail"].(string); ok && detail != "" {
		return detail
	}
	return fallback
}

// rejectedStatus keeps client errors and reports everything else as a bad gateway.
func rejectedStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
