package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/logging"
)

// GenerateInput is the loosely typed request body. Ids may arrive as JSON
// numbers or numeric strings.
type GenerateInput struct {
	EventID   any    `json:"event_id"`
	EventType string `json:"event_type"`
	FixtureID any    `json:"fixture_id"`
}

// Validate checks the event type and coerces the ids. Only goal and owngoal
// events (any case) are accepted. Missing ids become zero.
func Validate(in GenerateInput) (domain.EventImageRequest, error) {
	if strings.TrimSpace(in.EventType) == "" {
		return domain.EventImageRequest{}, domain.ErrEventTypeRequired
	}
	switch strings.ToLower(in.EventType) {
	case "goal", "owngoal":
	default:
		logging.Info("Event type is not GOAL or OWN GOAL, skipping image generation", "event_type", in.EventType)
		return domain.EventImageRequest{}, domain.ErrEventSkipped
	}

	eventID, err := toInt64(in.EventID)
	if err != nil {
		return domain.EventImageRequest{}, fmt.Errorf("%w: event_id: %v", domain.ErrInvalidEventID, err)
	}
	fixtureID, err := toInt64(in.FixtureID)
	if err != nil {
		return domain.EventImageRequest{}, fmt.Errorf("%w: fixture_id: %v", domain.ErrInvalidEventID, err)
	}

	return domain.EventImageRequest{EventID: eventID, EventType: in.EventType, FixtureID: fixtureID}, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		if n >= 1<<63 || n < -(1<<63) {
			return 0, fmt.Errorf("%v is out of range", n)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
