// Package markup turns render records into the HTML page the browser pool rasterizes.
//
// Building markup is a pure function of the record: no network access and no
// shared state beyond the parsed template set.
package markup

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"goal-image-service/internal/domain"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var goalTemplate = template.Must(template.ParseFS(templateFS, "templates/goal.html.tmpl"))

// CanvasSize is the CSS pixel size of the goal card body.
const CanvasSize = 900

// goalView is the flattened data the goal template renders.
type goalView struct {
	Title        string
	Width        int
	TeamWin      string
	MainLogo     string
	Home         domain.TeamData
	Away         domain.TeamData
	ClubName     string
	ClubLogo     string
	AwayInitials string
}

// BuildGoalMarkup renders rec into a complete HTML document.
func BuildGoalMarkup(rec domain.RenderRecord) (string, error) {
	view := newGoalView(rec)

	var buf bytes.Buffer
	if err := goalTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMarkup, err)
	}
	return buf.String(), nil
}

func newGoalView(rec domain.RenderRecord) goalView {
	d := rec.Data
	title := rec.Title
	if title == "" {
		title = "Goal Image"
	}
	return goalView{
		Title:        title,
		Width:        CanvasSize,
		TeamWin:      d.TeamWin,
		MainLogo:     mainLogo(d),
		Home:         d.HomeTeam,
		Away:         d.AwayTeam,
		ClubName:     d.ClubName,
		ClubLogo:     d.ClubLogo,
		AwayInitials: initials(d.AwayTeam.Name),
	}
}

// mainLogo picks the winning side's logo. Without a matching winner the away
// logo is used.
func mainLogo(d domain.GoalData) string {
	if d.TeamWin == d.HomeTeam.Name {
		return d.HomeTeam.Logo
	}
	return d.AwayTeam.Logo
}

func initials(name string) string {
	if name == "" {
		name = "AWAY"
	}
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}
