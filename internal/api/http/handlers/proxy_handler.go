package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	apperrors "github.com/ecoai-civic/ecoai-client/pkg/util"
)

const maxProxyResponse = 10 << 20

// forwardedHeaders are copied from the browser request to the remote API.
var forwardedHeaders = []string{fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAcceptLanguage}

// ProxyHandler relays resource calls from the browser through the gateway so
// they carry the stored bearer and react to its rejection.
type ProxyHandler struct{}

// NewProxyHandler constructs handler.
func NewProxyHandler() *ProxyHandler {
	return &ProxyHandler{}
}

// Forward handles /api/*.
func (h *ProxyHandler) Forward(c *fiber.Ctx) error {
	sess, err := browserSession(c)
	if err != nil {
		return err
	}

	path := "/" + c.Params("*")
	if qs := c.Request().URI().QueryString(); len(qs) > 0 {
		path += "?" + string(qs)
	}

	header := http.Header{}
	for _, name := range forwardedHeaders {
		if v := c.Get(name); v != "" {
			header.Set(name, v)
		}
	}

	req := gateway.Request{Method: c.Method(), Path: path, Header: header}
	if body := c.Body(); len(body) > 0 {
		// uploads keep the browser's multipart boundary, so the body goes out untouched
		req.Body = append([]byte(nil), body...)
	}

	resp, err := sess.Client.Do(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return err
		}
		return apperrors.NewUpstreamError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyResponse))
	if err != nil {
		return apperrors.NewUpstreamError(err)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	return c.Status(resp.StatusCode).Send(payload)
}
