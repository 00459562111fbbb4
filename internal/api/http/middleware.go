package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/auth"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
	apperrors "github.com/ecoai-civic/ecoai-client/pkg/util"
)

// dataPrefixes are answered with JSON; every other path is a page navigation.
var dataPrefixes = []string{"/api/", "/auth/", "/nav", "/health/", "/internal/"}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if forcedRedirect(c, err) {
				err = nil
				return
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// forcedRedirect turns a redirect requested by a credential eviction into the
// response, unless the handler already redirected.
func forcedRedirect(c *fiber.Ctx, err error) bool {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return false
	}
	redirect, pending := sess.Nav.Pending()
	if !pending {
		return false
	}
	status := c.Response().StatusCode()
	if err == nil && status >= 300 && status < 400 {
		return false
	}

	if isDataRequest(c.Path()) {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "session expired",
			},
			"redirect": redirect.To,
		})
		return true
	}
	_ = c.Redirect(redirect.To, fiber.StatusSeeOther)
	return true
}

func isDataRequest(path string) bool {
	for _, prefix := range dataPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func toDomainError(err error) *apperrors.DomainError {
	if errors.Is(err, gateway.ErrUnauthorized) {
		return apperrors.ToDomainError(apperrors.NewUnauthorized("session expired"))
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apperrors.NewDomainError(codeForStatus(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
	}
	return apperrors.ToDomainError(err)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "VALIDATION_FAILED"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestTimeout:
		return "TIMEOUT"
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_FAILED"
	}
}
