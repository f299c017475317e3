// Package events resolves event and fixture ids into render records.
package events

import (
	"context"

	"goal-image-service/internal/domain"
)

// Source looks up the match data behind an event.
type Source interface {
	Fetch(ctx context.Context, eventID int64, eventType string, fixtureID int64) (domain.RenderRecord, error)
}

// StaticSource serves a fixed Premier League fixture for every event. It stands
// in until a live match data feed is connected.
type StaticSource struct{}

var _ Source = StaticSource{}

func (StaticSource) Fetch(ctx context.Context, eventID int64, _ string, _ int64) (domain.RenderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RenderRecord{}, err
	}
	return domain.RenderRecord{
		ID:    eventID,
		Type:  "goal",
		Title: "GOAL! Man City Vs ARS",
		GW:    "7",
		Data: domain.GoalData{
			HomeTeam: domain.TeamData{
				Name:      "Manchester City",
				Logo:      "https://upload.wikimedia.org/wikipedia/en/e/eb/Manchester_City_FC_badge.svg",
				ShortName: "MCI",
			},
			AwayTeam: domain.TeamData{
				Name:      "Arsenal",
				Logo:      "https://upload.wikimedia.org/wikipedia/en/5/53/Arsenal_FC.svg",
				ShortName: "ARS",
			},
			TeamWin:  "Manchester City",
			ClubName: "Premier League",
			ClubLogo: "https://brandlogos.net/wp-content/uploads/2021/10/Premier-League-logo-symbol.png",
			Goals:    1,
			Scorers:  []domain.Scorer{},
		},
	}, nil
}
