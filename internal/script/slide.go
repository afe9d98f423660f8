package script

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the slide type tag as written in a script file.
type Kind string

const (
	KindTitle          Kind = "title"
	KindTeam           Kind = "team"
	KindPlayer         Kind = "player"
	KindStats          Kind = "stats"
	KindMatchup        Kind = "matchup"
	KindMatchupPlayers Kind = "matchup_players"
	KindOutro          Kind = "outro"
	KindPoints         Kind = "points"
)

// Variant is the closed set of slide layouts. Every Kind maps to exactly one
// Variant; unknown kinds map to VariantFallback.
type Variant int

const (
	VariantFallback Variant = iota
	VariantTitle
	VariantTeam
	VariantPlayer
	VariantStats
	VariantMatchup
	VariantMatchupPlayers
	VariantOutro
	VariantPoints
)

var kindVariants = map[Kind]Variant{
	KindTitle:          VariantTitle,
	KindTeam:           VariantTeam,
	KindPlayer:         VariantPlayer,
	KindStats:          VariantStats,
	KindMatchup:        VariantMatchup,
	KindMatchupPlayers: VariantMatchupPlayers,
	KindOutro:          VariantOutro,
	KindPoints:         VariantPoints,
}

// Variant resolves the kind to its layout variant.
func (k Kind) Variant() Variant {
	if v, ok := kindVariants[Kind(strings.ToLower(strings.TrimSpace(string(k))))]; ok {
		return v
	}
	return VariantFallback
}

// Known reports whether the kind is one of the declared slide types.
func (k Kind) Known() bool {
	_, ok := kindVariants[Kind(strings.ToLower(strings.TrimSpace(string(k))))]
	return ok
}

func (v Variant) String() string {
	switch v {
	case VariantTitle:
		return string(KindTitle)
	case VariantTeam:
		return string(KindTeam)
	case VariantPlayer:
		return string(KindPlayer)
	case VariantStats:
		return string(KindStats)
	case VariantMatchup:
		return string(KindMatchup)
	case VariantMatchupPlayers:
		return string(KindMatchupPlayers)
	case VariantOutro:
		return string(KindOutro)
	case VariantPoints:
		return string(KindPoints)
	default:
		return "fallback"
	}
}

// PlayerID is an external player identifier. Script files carry it either as a
// JSON number or a string.
type PlayerID string

// UnmarshalJSON accepts numbers and strings.
func (id *PlayerID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PlayerID(strings.TrimSpace(s))
		return nil
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return fmt.Errorf("player id %s is not an integer", raw)
	}
	*id = PlayerID(raw)
	return nil
}

// MarshalJSON writes numeric ids as numbers.
func (id PlayerID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id PlayerID) String() string { return string(id) }

// PlayerRef points at a player portrait.
type PlayerRef struct {
	Name     string   `json:"name" yaml:"name"`
	MLBID    PlayerID `json:"mlbId,omitempty" yaml:"mlbId,omitempty"`
	Position string   `json:"position,omitempty" yaml:"position,omitempty"`
}

// Slide is one narrated unit of a script.
type Slide struct {
	Kind         Kind        `json:"type" yaml:"type"`
	Heading      string      `json:"heading,omitempty" yaml:"heading,omitempty"`
	Subheading   string      `json:"subheading,omitempty" yaml:"subheading,omitempty"`
	Narration    string      `json:"narration" yaml:"narration"`
	Points       []string    `json:"points,omitempty" yaml:"points,omitempty"`
	PlayerImages []PlayerRef `json:"playerImages,omitempty" yaml:"playerImages,omitempty"`
	PlayerName   string      `json:"playerName,omitempty" yaml:"playerName,omitempty"`
	MLBID        PlayerID    `json:"mlbId,omitempty" yaml:"mlbId,omitempty"`
	Position     string      `json:"position,omitempty" yaml:"position,omitempty"`
}

// Variant returns the layout variant for the slide.
func (s Slide) Variant() Variant {
	return s.Kind.Variant()
}

// Players returns every player referenced by the slide: the featured player of
// a player slide first, then playerImages in order.
func (s Slide) Players() []PlayerRef {
	var out []PlayerRef
	if s.MLBID != "" || strings.TrimSpace(s.PlayerName) != "" {
		name := s.PlayerName
		if strings.TrimSpace(name) == "" {
			name = s.Heading
		}
		out = append(out, PlayerRef{Name: name, MLBID: s.MLBID, Position: s.Position})
	}
	out = append(out, s.PlayerImages...)
	return out
}

// WordCount counts whitespace-separated words in the narration.
func (s Slide) WordCount() int {
	return len(strings.Fields(s.Narration))
}
