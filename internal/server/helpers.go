package server

import (
	"errors"
	"log/slog"
	"time"

	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/policy"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter as a positive id. A malformed id names
// no page, so it answers 404 and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = respondNotFound(c)
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// actor returns the identity behind the request.
func actor(c *fiber.Ctx) policy.Actor {
	return policy.Actor{ID: middleware.CurrentUserID(c)}
}

// requestTime is the instant visibility is judged at for this request.
func (s *Server) requestTime() time.Time {
	return s.now().UTC()
}

func respondNotFound(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", c.Path()))
}

// respond writes a service result: Ok as JSON with okStatus, Redirect as
// 302 and NotFound as 404. Errors go through respondError.
func respond[T any](c *fiber.Ctx, res service.Result[T], err error, okStatus int) error {
	if err != nil {
		return respondError(c, err)
	}
	switch res.Outcome {
	case service.OutcomeRedirect:
		return models.RespondWithRedirect(c, res.Target)
	case service.OutcomeNotFound:
		return respondNotFound(c)
	default:
		return c.Status(okStatus).JSON(res.Payload)
	}
}

// respondError maps an AppError code to its status. Anything else is an
// internal failure and is logged, not returned.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeValidation:
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		case models.CodeUnauthorized:
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		case models.CodeNotFound:
			return respondNotFound(c)
		}
	}

	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}
