// Package model contains domain models passed between layers.
package model

// Team identifiers used as JSON keys and in control actions.
const (
	Team1 = "team1"
	Team2 = "team2"
)

// Name display modes.
const (
	DisplayText  = "text"
	DisplayImage = "image"
)

// Styling defaults applied when a field is missing or empty.
const (
	DefaultNameColor  = "#e9eefc"
	DefaultBevelColor = "#7dd3fc"
	DefaultNameFont   = "varsity"
)

// Scale bounds for nameScale and logoScale.
const (
	MinScale = -300
	MaxScale = 300
)

// MaxScore is the largest score kept; overlays read it as a JS number.
const MaxScore int64 = 1 << 53

// TeamBan holds the banned hero for one team ("" means none).
type TeamBan struct {
	Ban string `json:"ban"`
}

// TeamStyle is the scoreboard presentation of one team.
type TeamStyle struct {
	Name            string `json:"name"`
	NameDisplayMode string `json:"nameDisplayMode"`
	NameImageURL    string `json:"nameImageUrl"`
	NameScale       int    `json:"nameScale"`
	Logo            string `json:"logo"`
	LogoScale       int    `json:"logoScale"`
	Score           int64  `json:"score"`
	NameColor       string `json:"nameColor"`
	BevelColor      string `json:"bevelColor"`
	NameFont        string `json:"nameFont"`
}

// Scoreboard groups both team styles.
type Scoreboard struct {
	Team1 TeamStyle `json:"team1"`
	Team2 TeamStyle `json:"team2"`
}

// State is the full record shared between control surfaces and overlays.
// UpdatedAt is unix milliseconds of the last write.
type State struct {
	Team1      TeamBan    `json:"team1"`
	Team2      TeamBan    `json:"team2"`
	Scoreboard Scoreboard `json:"scoreboard"`
	UpdatedAt  int64      `json:"updatedAt"`
}

// DefaultTeamStyle returns a style with every field at its default.
func DefaultTeamStyle() TeamStyle {
	return TeamStyle{
		NameDisplayMode: DisplayText,
		NameColor:       DefaultNameColor,
		BevelColor:      DefaultBevelColor,
		NameFont:        DefaultNameFont,
	}
}

// Ban returns the ban of the given team and whether the id is known.
func (s State) Ban(team string) (string, bool) {
	switch team {
	case Team1:
		return s.Team1.Ban, true
	case Team2:
		return s.Team2.Ban, true
	default:
		return "", false
	}
}

// ValidTeam reports whether id names one of the two teams.
func ValidTeam(id string) bool {
	return id == Team1 || id == Team2
}

// Payload renders the state as the generic JSON object shape accepted by
// state writers. UpdatedAt is omitted since writers stamp their own.
func (s State) Payload() map[string]any {
	return map[string]any{
		Team1: map[string]any{"ban": s.Team1.Ban},
		Team2: map[string]any{"ban": s.Team2.Ban},
		"scoreboard": map[string]any{
			Team1: s.Scoreboard.Team1.payload(),
			Team2: s.Scoreboard.Team2.payload(),
		},
	}
}

func (t TeamStyle) payload() map[string]any {
	return map[string]any{
		"name":            t.Name,
		"nameDisplayMode": t.NameDisplayMode,
		"nameImageUrl":    t.NameImageURL,
		"nameScale":       t.NameScale,
		"logo":            t.Logo,
		"logoScale":       t.LogoScale,
		"score":           t.Score,
		"nameColor":       t.NameColor,
		"bevelColor":      t.BevelColor,
		"nameFont":        t.NameFont,
	}
}
