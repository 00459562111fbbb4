package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	"github.com/ecoai-civic/ecoai-client/internal/guard"
	"github.com/ecoai-civic/ecoai-client/internal/navigation"
	"github.com/ecoai-civic/ecoai-client/internal/session"
)

const sessionKey = "browser_session"

// BrowserSession is the per-request view of one browser's client state. The
// cookie id plays the role of the browser's local storage origin: every tab of
// the browser shares it.
type BrowserSession struct {
	ID       string
	Store    *credential.Store
	Nav      *navigation.Recorder
	Client   *gateway.Client
	Resolver *session.Resolver
}

// SessionMiddleware issues the browser-session cookie and binds the credential
// store, gateway client and identity resolver for the request.
type SessionMiddleware struct {
	cfg      config.SessionConfig
	provider *credential.Provider
	gateway  *gateway.Gateway
	logger   *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(cfg config.SessionConfig, provider *credential.Provider, gw *gateway.Gateway, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{cfg: cfg, provider: provider, gateway: gw, logger: logger}
}

// Handle attaches a BrowserSession to every request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	id := c.Cookies(m.cfg.CookieName)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     m.cfg.CookieName,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			Secure:   m.cfg.CookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		m.logger.Debug("browser session issued", zap.String("session", id))
	}

	store := m.provider.Store(id)
	rec := navigation.NewRecorder()
	client := m.gateway.Bind(store, rec)
	c.Locals(sessionKey, &BrowserSession{
		ID:       id,
		Store:    store,
		Nav:      rec,
		Client:   client,
		Resolver: session.NewResolver(client, m.logger),
	})
	return c.Next()
}

// SessionFromContext returns the session attached by Handle.
func SessionFromContext(c *fiber.Ctx) (*BrowserSession, bool) {
	s, ok := c.Locals(sessionKey).(*BrowserSession)
	return s, ok
}

// GuardSession adapts the browser session for guard.Protect.
func GuardSession(c *fiber.Ctx) (*credential.Store, guard.IdentityResolver) {
	s, _ := SessionFromContext(c)
	return s.Store, s.Resolver
}
