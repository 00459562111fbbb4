package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/api/dto"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/presence"
)

// NavHandler serves the navigation bar model and keeps it live.
type NavHandler struct {
	dispatcher events.Dispatcher
	loginPath  string
	heartbeat  time.Duration
	logger     *zap.Logger
}

// NewNavHandler constructs handler. heartbeat bounds how long a dropped
// stream can go unnoticed.
func NewNavHandler(dispatcher events.Dispatcher, loginPath string, heartbeat time.Duration, logger *zap.Logger) *NavHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &NavHandler{dispatcher: dispatcher, loginPath: loginPath, heartbeat: heartbeat, logger: logger}
}

// Current handles GET /nav.
func (h *NavHandler) Current(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	indicator := presence.NewIndicator(sess.Store, h.dispatcher, nil, h.loginPath, h.logger)
	return c.JSON(dto.NewNav(indicator.Snapshot(c.UserContext())))
}

// Stream handles GET /nav/stream as server-sent events. A new event is sent
// whenever any tab of the same browser logs in or out.
func (h *NavHandler) Stream(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}
	indicator := presence.NewIndicator(sess.Store, h.dispatcher, nil, h.loginPath, h.logger)
	namespace := sess.ID

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		updates := indicator.Watch(ctx)
		if err := streamPresence(w, updates, h.heartbeat); err != nil {
			h.logger.Debug("nav stream closed", zap.String("session", namespace), zap.Error(err))
		}
	}))
	return nil
}

// streamPresence writes each update as a presence event until updates closes
// or a write fails.
func streamPresence(w *bufio.Writer, updates <-chan presence.Presence, heartbeat time.Duration) error {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case p, ok := <-updates:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(dto.NewNav(p))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: presence\ndata: %s\n\n", payload); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}
