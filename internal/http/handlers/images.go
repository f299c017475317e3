package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/service"
)

// ImageService is the image workflow behind the handlers.
type ImageService interface {
	Generate(ctx context.Context, req domain.EventImageRequest) (domain.ImageRecord, error)
	Delete(ctx context.Context, imageKey string) error
	List(ctx context.Context) ([]domain.ImageRecord, error)
}

// JobDispatcher queues asynchronous generations and reports their status.
type JobDispatcher interface {
	Submit(ctx context.Context, req domain.EventImageRequest) (string, error)
	Status(ctx context.Context, id string) (domain.JobStatus, error)
}

// Images serves the /images routes.
type Images struct {
	svc  ImageService
	jobs JobDispatcher
}

// NewImages returns the image handlers. jobs may be nil, which disables the
// async routes.
func NewImages(svc ImageService, jobs JobDispatcher) *Images {
	return &Images{svc: svc, jobs: jobs}
}

func parseRequest(c *fiber.Ctx) (domain.EventImageRequest, error) {
	var in service.GenerateInput
	if err := c.BodyParser(&in); err != nil {
		return domain.EventImageRequest{}, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req, err := service.Validate(in)
	if err != nil {
		return domain.EventImageRequest{}, toFiberError(err)
	}
	return req, nil
}

// Generate renders, uploads and stores an image synchronously.
func (h *Images) Generate(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.Generate(c.UserContext(), req)
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"imageUrl": rec.URL,
		"imageKey": rec.ImageKey,
		"message":  "Image generated and uploaded successfully",
	})
}

// GenerateAsync queues the generation and answers 202 with the job id.
func (h *Images) GenerateAsync(c *fiber.Ctx) error {
	if h.jobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Async generation is disabled")
	}
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	id, err := h.jobs.Submit(c.UserContext(), req)
	if err != nil {
		return toFiberError(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"jobId":   id,
		"message": "Image generation queued",
	})
}

// JobStatus reports the state of one async job.
func (h *Images) JobStatus(c *fiber.Ctx) error {
	if h.jobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Async generation is disabled")
	}
	st, err := h.jobs.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(fiber.Map{"success": true, "job": st})
}

// Delete removes an image by key. Keys may contain slashes.
func (h *Images) Delete(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid imageKey")
	}
	if err := h.svc.Delete(c.UserContext(), key); err != nil {
		return toFiberError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Image deleted successfully",
	})
}

// List returns the newest image records.
func (h *Images) List(c *fiber.Ctx) error {
	images, err := h.svc.List(c.UserContext())
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(images),
		"images":  images,
	})
}
