package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/chrome"
	"goal-image-service/internal/infra/logging"
)

// skippedMessage is the client-facing text for non-goal events.
const skippedMessage = "Process skipped: only GOAL or OWN GOAL events trigger image generation"

// toFiberError maps domain errors onto HTTP statuses.
func toFiberError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEventSkipped):
		return fiber.NewError(fiber.StatusBadRequest, skippedMessage)
	case errors.Is(err, domain.ErrEventTypeRequired),
		errors.Is(err, domain.ErrInvalidEventID),
		errors.Is(err, domain.ErrImageKeyRequired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrImageNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRenderTimeout), errors.Is(err, context.DeadlineExceeded):
		logging.Error("Image generation timeout", "error", err)
		return fiber.NewError(fiber.StatusRequestTimeout, "Image rendering took too long")
	case errors.Is(err, domain.ErrImageTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Image exceeds allowed size")
	case errors.Is(err, domain.ErrQueueFull):
		logging.Warn("Job queue full", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Job queue is full, retry later")
	case errors.Is(err, domain.ErrLaunchFailure), errors.Is(err, domain.ErrPoolNotReady):
		logging.Error("Browser pool unavailable", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Browser pool unavailable")
	case chrome.IsSessionInterrupted(err):
		logging.Error("Chrome session interrupted", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Chrome session interrupted")
	default:
		logging.Error("Request failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
