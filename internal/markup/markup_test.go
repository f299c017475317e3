package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-image-service/internal/domain"
)

func sampleRecord() domain.RenderRecord {
	return domain.RenderRecord{
		ID:    1,
		Type:  "goal",
		Title: "GOAL! Man City Vs ARS",
		GW:    "7",
		Data: domain.GoalData{
			HomeTeam: domain.TeamData{Name: "Manchester City", Logo: "https://cdn.example.com/mci.svg", ShortName: "MCI"},
			AwayTeam: domain.TeamData{Name: "Arsenal", Logo: "https://cdn.example.com/ars.svg", ShortName: "ARS"},
			TeamWin:  "Manchester City",
			ClubName: "Premier League",
			ClubLogo: "https://cdn.example.com/pl.png",
			Goals:    1,
		},
	}
}

func mainSlot(t *testing.T, html string) string {
	t.Helper()
	start := strings.Index(html, `data-slot="main-logo"`)
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(html[start:], `data-slot="home-logo"`)
	require.Greater(t, end, 0)
	return html[start : start+end]
}

func TestBuildGoalMarkup_WinnerLogo(t *testing.T) {
	html, err := BuildGoalMarkup(sampleRecord())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>GOAL! Man City Vs ARS</title>")
	assert.Contains(t, mainSlot(t, html), `src="https://cdn.example.com/mci.svg"`)
	assert.Contains(t, html, `alt="Premier League"`)
	assert.Contains(t, html, "size-[900px]")
}

func TestBuildGoalMarkup_AwayWinner(t *testing.T) {
	rec := sampleRecord()
	rec.Data.TeamWin = "Arsenal"
	html, err := BuildGoalMarkup(rec)
	require.NoError(t, err)
	assert.Contains(t, mainSlot(t, html), `src="https://cdn.example.com/ars.svg"`)
}

func TestBuildGoalMarkup_Fallbacks(t *testing.T) {
	rec := domain.RenderRecord{
		ID:    1,
		Type:  "goal",
		Title: "GOAL!",
		GW:    "7",
		Data: domain.GoalData{
			HomeTeam: domain.TeamData{Name: "A", ShortName: "A"},
			AwayTeam: domain.TeamData{Name: "bournemouth", ShortName: "BOU"},
			ClubName: "X",
			Goals:    1,
		},
	}
	html, err := BuildGoalMarkup(rec)
	require.NoError(t, err)

	assert.NotContains(t, mainSlot(t, html), "<img")
	assert.Contains(t, html, "bg-yellow-400")
	assert.Contains(t, html, ">PL</div>")
	assert.Contains(t, html, ">BOU</span>")
}

func TestBuildGoalMarkup_EscapesInput(t *testing.T) {
	rec := sampleRecord()
	rec.Title = `<script>alert(1)</script>`
	rec.Data.ClubName = `"><img onerror=x>`
	html, err := BuildGoalMarkup(rec)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, `"><img onerror=x>`)
}

func TestBuildGoalMarkup_IsDeterministic(t *testing.T) {
	a, err := BuildGoalMarkup(sampleRecord())
	require.NoError(t, err)
	b, err := BuildGoalMarkup(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AWA", initials(""))
	assert.Equal(t, "ARS", initials("Arsenal"))
	assert.Equal(t, "AB", initials("ab"))
}
