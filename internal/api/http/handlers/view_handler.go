package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/api/dto"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	"github.com/ecoai-civic/ecoai-client/internal/guard"
	"github.com/ecoai-civic/ecoai-client/internal/presence"
	apperrors "github.com/ecoai-civic/ecoai-client/pkg/util"
)

// ViewHandler renders the JSON model of a client view.
type ViewHandler struct {
	dispatcher events.Dispatcher
	loginPath  string
	logger     *zap.Logger
}

// NewViewHandler constructs handler.
func NewViewHandler(dispatcher events.Dispatcher, loginPath string, logger *zap.Logger) *ViewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewHandler{dispatcher: dispatcher, loginPath: loginPath, logger: logger}
}

// Render returns the handler for route. It runs after guard.Protect admitted the request.
func (h *ViewHandler) Render(route guard.Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := browserSession(c)
		if err != nil {
			return err
		}
		ctx := c.UserContext()
		params := c.AllParams()

		view := dto.View{View: route.View}
		if len(params) > 0 {
			view.Params = params
		}
		if path, ok := prefetchPath(route.View, params); ok {
			data, err := h.prefetch(ctx, sess.Client, path)
			if err != nil {
				return err
			}
			view.Data = data
		}

		indicator := presence.NewIndicator(sess.Store, h.dispatcher, nil, h.loginPath, h.logger)
		view.Nav = dto.NewNav(indicator.Snapshot(ctx))
		return c.JSON(view)
	}
}

// prefetchPath names the remote resource a view loads before rendering.
func prefetchPath(view string, params map[string]string) (string, bool) {
	switch view {
	case "staff-dashboard":
		return "/staff/reports/", true
	case "staff-report-detail":
		return fmt.Sprintf("/staff/reports/%s/", url.PathEscape(params["id"])), true
	default:
		return "", false
	}
}

func (h *ViewHandler) prefetch(ctx context.Context, client *gateway.Client, path string) (any, error) {
	resp, err := client.Do(ctx, gateway.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return nil, err
		}
		return nil, apperrors.NewUpstreamError(err)
	}
	if !gateway.OK(resp) {
		_ = resp.Body.Close()
		h.logger.Info("prefetch rejected", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, apperrors.NewDomainError("UPSTREAM_REJECTED", "remote service rejected the request", upstreamStatus(resp.StatusCode), map[string]any{"status": resp.StatusCode})
	}
	var data json.RawMessage
	if err := gateway.DecodeJSON(resp, &data); err != nil {
		return nil, apperrors.NewUpstreamError(err)
	}
	return data, nil
}

func upstreamStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}
