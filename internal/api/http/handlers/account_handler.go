package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/api/dto"
	"github.com/ecoai-civic/ecoai-client/internal/auth"
	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/navigation"
	"github.com/ecoai-civic/ecoai-client/internal/presence"
	"github.com/ecoai-civic/ecoai-client/internal/service"
	apperrors "github.com/ecoai-civic/ecoai-client/pkg/util"
)

// StaffHomePath is where a successful staff login lands.
const StaffHomePath = "/staff/dashboard"

// AccountHandler exposes login, sign-up, logout and refresh for the browser session.
type AccountHandler struct {
	accounts   *service.AccountService
	dispatcher events.Dispatcher
	paths      config.SessionConfig
	logger     *zap.Logger
}

// NewAccountHandler constructs handler.
func NewAccountHandler(accounts *service.AccountService, dispatcher events.Dispatcher, paths config.SessionConfig, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{accounts: accounts, dispatcher: dispatcher, paths: paths, logger: logger}
}

// Login handles POST /auth/login.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	creds := service.Credentials{Username: req.Username, Password: req.Password}
	if err := h.accounts.Login(c.UserContext(), sess.Client, creds); err != nil {
		return err
	}
	return h.respond(c, sess, h.paths.HomePath)
}

// Signup handles POST /auth/signup.
func (h *AccountHandler) Signup(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	creds := service.Credentials{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := h.accounts.Signup(c.UserContext(), sess.Client, creds); err != nil {
		return err
	}
	return h.respond(c, sess, h.paths.HomePath)
}

// StaffLogin handles POST /auth/staff-login.
func (h *AccountHandler) StaffLogin(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	creds := service.Credentials{Username: req.Username, Password: req.Password}
	if _, err := h.accounts.StaffLogin(c.UserContext(), sess.Client, creds); err != nil {
		return err
	}
	return h.respond(c, sess, StaffHomePath)
}

// Logout handles POST /auth/logout.
func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	// a voluntary logout is an answer, not a forced redirect, so it gets its own recorder
	rec := navigation.NewRecorder()
	indicator := presence.NewIndicator(sess.Store, h.dispatcher, rec, h.paths.LoginPath, h.logger)
	if err := indicator.Logout(c.UserContext()); err != nil {
		return apperrors.NewInternalError(err)
	}
	to := h.paths.LoginPath
	if redirect, ok := rec.Pending(); ok {
		to = redirect.To
	}
	return h.respond(c, sess, to)
}

// Refresh handles POST /auth/refresh.
func (h *AccountHandler) Refresh(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Refresh(c.UserContext(), sess.Client); err != nil {
		return err
	}
	return h.respond(c, sess, "")
}

func (h *AccountHandler) respond(c *fiber.Ctx, sess *auth.BrowserSession, redirect string) error {
	indicator := presence.NewIndicator(sess.Store, h.dispatcher, nil, h.paths.LoginPath, h.logger)
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Presence: indicator.Snapshot(c.UserContext()),
		Redirect: redirect,
	}})
}

func browserSession(c *fiber.Ctx) (*auth.BrowserSession, error) {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewInternalError(nil)
	}
	return sess, nil
}
