// Package state owns the shared hero-ban record: sanitization of untrusted
// payloads and the mutex-guarded store that control surfaces and overlays share.
package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/herobans/internal/domain/model"
)

// Default returns the all-defaults record stamped with now.
func Default(now time.Time) model.State {
	return model.State{
		Scoreboard: model.Scoreboard{
			Team1: model.DefaultTeamStyle(),
			Team2: model.DefaultTeamStyle(),
		},
		UpdatedAt: now.UnixMilli(),
	}
}

// Sanitize turns an arbitrary decoded JSON value into a complete State.
// It never fails: anything unusable falls back to the field default.
// UpdatedAt always comes from now.
func Sanitize(payload any, now time.Time) model.State {
	root := asObject(payload)
	scoreboard := asObject(root["scoreboard"])

	return model.State{
		Team1: model.TeamBan{Ban: coerceString(asObject(root[model.Team1])["ban"], "")},
		Team2: model.TeamBan{Ban: coerceString(asObject(root[model.Team2])["ban"], "")},
		Scoreboard: model.Scoreboard{
			Team1: sanitizeTeamStyle(asObject(scoreboard[model.Team1])),
			Team2: sanitizeTeamStyle(asObject(scoreboard[model.Team2])),
		},
		UpdatedAt: now.UnixMilli(),
	}
}

func sanitizeTeamStyle(raw map[string]any) model.TeamStyle {
	return model.TeamStyle{
		Name:            coerceString(raw["name"], ""),
		NameDisplayMode: displayMode(raw["nameDisplayMode"]),
		NameImageURL:    coerceString(raw["nameImageUrl"], ""),
		NameScale:       Scale(raw["nameScale"]),
		Logo:            coerceString(raw["logo"], ""),
		LogoScale:       Scale(raw["logoScale"]),
		Score:           Score(raw["score"]),
		NameColor:       coerceString(raw["nameColor"], model.DefaultNameColor),
		BevelColor:      coerceString(raw["bevelColor"], model.DefaultBevelColor),
		NameFont:        coerceString(raw["nameFont"], model.DefaultNameFont),
	}
}

// Score truncates a numeric value toward zero and floors it at 0.
func Score(v any) int64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f <= 0:
		return 0
	case f >= float64(model.MaxScore):
		return model.MaxScore
	}
	return int64(f)
}

// Scale rounds a numeric value half-to-even and clamps it to the scale bounds.
func Scale(v any) int {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	f = math.RoundToEven(f)
	switch {
	case f < model.MinScale:
		return model.MinScale
	case f > model.MaxScale:
		return model.MaxScale
	}
	return int(f)
}

func displayMode(v any) string {
	if strings.ToLower(strings.TrimSpace(coerceString(v, ""))) == model.DisplayImage {
		return model.DisplayImage
	}
	return model.DisplayText
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// coerceString renders scalars as text. Falsy values and containers yield def.
func coerceString(v any, def string) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return def
		}
		return x
	case bool:
		if !x {
			return def
		}
		return "true"
	case json.Number, float64, float32, int, int32, int64:
		f, ok := toFloat(x)
		if !ok || f == 0 {
			return def
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return def
	}
}

// toFloat converts numbers, numeric strings and booleans. NaN and
// infinities are rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
