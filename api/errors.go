package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/ragloop/api/search"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/session"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrEmptyInput),
		errors.Is(err, rag.ErrInvalidHistory),
		errors.Is(err, apisearch.ErrEmptyQuery),
		errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, vector.ErrZeroNorm),
		errors.Is(err, vector.ErrInvalidTopK):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, vector.ErrDuplicateDocument):
		return fiber.StatusConflict
	case errors.Is(err, llm.ErrProvider),
		errors.Is(err, vector.ErrEmbedding),
		errors.Is(err, vector.ErrConnection):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}
	return c.Status(status).JSON(llm.ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msg})
}

func unavailable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: msg})
}
