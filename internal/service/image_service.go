package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/events"
	"goal-image-service/internal/infra/cache"
	"goal-image-service/internal/infra/logging"
)

// Renderer turns a record into PNG bytes.
type Renderer interface {
	Generate(ctx context.Context, rec domain.RenderRecord, width, height int) ([]byte, error)
}

// ImageCache is an optional PNG cache keyed by record contents.
type ImageCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, png []byte)
}

// ObjectStore holds the uploaded images.
type ObjectStore interface {
	ObjectKey(recType string, id int64, now time.Time) string
	Upload(ctx context.Context, key string, png []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// Repository persists image records.
type Repository interface {
	Save(ctx context.Context, rec domain.ImageRecord) error
	DeleteByKey(ctx context.Context, key string) error
	ListRecent(ctx context.Context) ([]domain.ImageRecord, error)
}

// Options are the output settings of generated images.
type Options struct {
	Width       int
	Height      int
	MaxPNGBytes int
}

// ImageService runs the full generate, upload and persist flow.
type ImageService struct {
	source   events.Source
	renderer Renderer
	cache    ImageCache
	store    ObjectStore
	repo     Repository
	opts     Options
	now      func() time.Time
}

// New wires an ImageService. cache may be nil.
func New(source events.Source, renderer Renderer, cache ImageCache, store ObjectStore, repo Repository, opts Options) *ImageService {
	return &ImageService{
		source:   source,
		renderer: renderer,
		cache:    cache,
		store:    store,
		repo:     repo,
		opts:     opts,
		now:      time.Now,
	}
}

// Generate validates req, renders the goal card, uploads it and stores the record.
func (s *ImageService) Generate(ctx context.Context, req domain.EventImageRequest) (domain.ImageRecord, error) {
	if _, err := Validate(GenerateInput{EventID: req.EventID, EventType: req.EventType, FixtureID: req.FixtureID}); err != nil {
		return domain.ImageRecord{}, err
	}

	logging.Info("Generating image for event", "event_id", req.EventID, "fixture_id", req.FixtureID)

	rec, err := s.source.Fetch(ctx, req.EventID, req.EventType, req.FixtureID)
	if err != nil {
		return domain.ImageRecord{}, fmt.Errorf("fetch event data: %w", err)
	}

	png, err := s.render(ctx, rec)
	if err != nil {
		return domain.ImageRecord{}, err
	}
	if s.opts.MaxPNGBytes > 0 && len(png) > s.opts.MaxPNGBytes {
		return domain.ImageRecord{}, fmt.Errorf("%w: %d bytes", domain.ErrImageTooLarge, len(png))
	}

	now := s.now()
	key := s.store.ObjectKey(rec.Type, rec.ID, now)
	url, err := s.store.Upload(ctx, key, png)
	if err != nil {
		return domain.ImageRecord{}, err
	}

	out := domain.ImageRecord{
		ImageKey:  key,
		URL:       url,
		Type:      rec.Type,
		Metadata:  domain.ImageMetadata{ID: rec.ID, Title: rec.Title, GW: rec.GW},
		CreatedAt: now.UTC(),
	}
	if err := s.repo.Save(ctx, out); err != nil {
		return domain.ImageRecord{}, err
	}

	logging.Info("Image generated and uploaded successfully", "key", key, "url", url)
	return out, nil
}

func (s *ImageService) render(ctx context.Context, rec domain.RenderRecord) ([]byte, error) {
	if s.cache == nil {
		return s.renderer.Generate(ctx, rec, s.opts.Width, s.opts.Height)
	}

	key := cache.Key(rec, s.opts.Width, s.opts.Height)
	if png, err := s.cache.Get(ctx, key); err == nil && png != nil {
		return png, nil
	}
	png, err := s.renderer.Generate(ctx, rec, s.opts.Width, s.opts.Height)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, png)
	return png, nil
}

// Delete removes the object and then its record. A record that is already
// gone is not an error.
func (s *ImageService) Delete(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return domain.ErrImageKeyRequired
	}
	logging.Info("Deleting image", "image_key", imageKey)

	if err := s.store.Delete(ctx, imageKey); err != nil {
		return err
	}
	if err := s.repo.DeleteByKey(ctx, imageKey); err != nil {
		if !errors.Is(err, domain.ErrImageNotFound) {
			return err
		}
		logging.Warn("Image record not found", "image_key", imageKey)
	}

	logging.Info("Image deleted successfully", "image_key", imageKey)
	return nil
}

// List returns the newest image records.
func (s *ImageService) List(ctx context.Context) ([]domain.ImageRecord, error) {
	return s.repo.ListRecent(ctx)
}
