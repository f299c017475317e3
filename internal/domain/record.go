package domain

import "time"

// TeamData describes one side of a fixture.
type TeamData struct {
	Name      string `json:"name"`
	Logo      string `json:"logo"`
	ShortName string `json:"short_name"`
}

// Scorer is a single goal scorer entry.
type Scorer struct {
	Name   string `json:"name"`
	Minute int    `json:"minute"`
	Type   string `json:"type"`
}

// GoalData is the match payload rendered into the goal card.
type GoalData struct {
	HomeTeam TeamData `json:"home_team"`
	AwayTeam TeamData `json:"away_team"`
	TeamWin  string   `json:"team_win,omitempty"`
	ClubName string   `json:"club_name"`
	ClubLogo string   `json:"club_logo"`
	Goals    int      `json:"goals"`
	Scorers  []Scorer `json:"scorers"`
}

// RenderRecord is the structured input of one render job.
type RenderRecord struct {
	ID    int64    `json:"id"`
	Type  string   `json:"type"`
	Title string   `json:"title"`
	GW    string   `json:"gw"`
	Data  GoalData `json:"data"`
}

// EventImageRequest is the inbound trigger for generating an image.
type EventImageRequest struct {
	EventID   int64  `json:"event_id"`
	EventType string `json:"event_type"`
	FixtureID int64  `json:"fixture_id"`
}

// ImageMetadata is the subset of the render record persisted next to an image.
type ImageMetadata struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	GW    string `json:"gw"`
}

// ImageRecord is the persisted description of an uploaded image.
type ImageRecord struct {
	ImageKey  string        `json:"imageKey"`
	URL       string        `json:"url"`
	Type      string        `json:"type"`
	Metadata  ImageMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"createdAt"`
}
