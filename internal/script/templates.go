package script

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// TeamProfile is the per-team input the preview templates need.
type TeamProfile struct {
	Country     string          `yaml:"country"`
	Pool        string          `yaml:"pool"`
	Ranking     string          `yaml:"ranking"`
	Description string          `yaml:"desc"`
	Strengths   []string        `yaml:"strengths"`
	History     string          `yaml:"history"`
	Outlook     string          `yaml:"outlook"`
	Players     []PlayerProfile `yaml:"players"`
}

// PlayerProfile is one notable player on a team.
type PlayerProfile struct {
	Name     string   `yaml:"name"`
	MLBID    PlayerID `yaml:"mlbId"`
	Position string   `yaml:"position"`
}

// Branding carries the names templates speak and print.
type Branding struct {
	Brand string
	Event string
}

// DefaultBranding is used when callers pass a zero Branding.
var DefaultBranding = Branding{Brand: "GlobalBaseball", Event: "WBC 2026"}

func (b Branding) orDefault() Branding {
	if strings.TrimSpace(b.Brand) == "" {
		b.Brand = DefaultBranding.Brand
	}
	if strings.TrimSpace(b.Event) == "" {
		b.Event = DefaultBranding.Event
	}
	return b
}

// LoadTeams reads a YAML list of team profiles.
func LoadTeams(path string) ([]TeamProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read teams: %w", err)
	}
	var teams []TeamProfile
	if err := yaml.Unmarshal(data, &teams); err != nil {
		return nil, fmt.Errorf("parse teams: %w", err)
	}
	if len(teams) == 0 {
		return nil, errors.New("teams file has no entries")
	}
	for i := range teams {
		teams[i].normalize()
	}
	return teams, nil
}

// FindTeam returns the profile whose country matches name, ignoring case.
func FindTeam(teams []TeamProfile, name string) (TeamProfile, bool) {
	for _, t := range teams {
		if strings.EqualFold(strings.TrimSpace(t.Country), strings.TrimSpace(name)) {
			return t, true
		}
	}
	return TeamProfile{}, false
}

func (t *TeamProfile) normalize() {
	t.Country = titleCase(t.Country)
	if len(t.Strengths) == 0 {
		t.Strengths = []string{"Depth across the roster"}
	}
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	// Keep acronyms like USA intact.
	if strings.ToUpper(s) == s {
		return s
	}
	return cases.Title(language.English).String(s)
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, ". "); idx >= 0 {
		return text[:idx]
	}
	return strings.TrimSuffix(text, ".")
}

func playerRefs(players []PlayerProfile, limit int) []PlayerRef {
	if len(players) > limit {
		players = players[:limit]
	}
	out := make([]PlayerRef, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerRef{Name: p.Name, MLBID: p.MLBID, Position: p.Position})
	}
	return out
}

// TeamPreview builds a five-slide preview script for one team.
func TeamPreview(team TeamProfile, brand Branding) Script {
	brand = brand.orDefault()
	team.normalize()

	slides := []Slide{
		{
			Kind:       KindTitle,
			Heading:    team.Country,
			Subheading: fmt.Sprintf("%s - Pool %s | %s", brand.Event, team.Pool, team.Ranking),
			Narration: fmt.Sprintf("Welcome to %s. Today we preview %s heading into the %s. Ranked %s in the world, they'll compete in Pool %s.",
				brand.Brand, team.Country, brand.Event, team.Ranking, team.Pool),
		},
		{
			Kind:         KindTeam,
			Heading:      team.Country + " Overview",
			Subheading:   team.Ranking + " World Ranking",
			Points:       append([]string(nil), team.Strengths...),
			PlayerImages: playerRefs(team.Players, 2),
			Narration:    fmt.Sprintf("%s. %s.", strings.TrimSuffix(team.Description, "."), strings.Join(team.Strengths, ". ")),
		},
	}

	if len(team.Players) > 0 {
		p := team.Players[0]
		slides = append(slides, Slide{
			Kind:       KindPlayer,
			Heading:    p.Name,
			Subheading: fmt.Sprintf("%s - %s", team.Country, p.Position),
			PlayerName: p.Name,
			MLBID:      p.MLBID,
			Position:   p.Position,
			Points: []string{
				"Key player for " + team.Country,
				"Position: " + p.Position,
				"Expected to lead the roster in 2026",
			},
			Narration: fmt.Sprintf("%s is the headliner for %s. Playing %s, %s brings elite talent and will be critical to %s's success at the %s.",
				p.Name, team.Country, p.Position, p.Name, team.Country, brand.Event),
		})
	}

	slides = append(slides,
		Slide{
			Kind:       KindStats,
			Heading:    "Track Record",
			Subheading: team.Country,
			Points:     []string{firstSentence(team.History), firstSentence(team.Outlook)},
			Narration:  strings.TrimSpace(team.History + " " + team.Outlook),
		},
		Slide{
			Kind:       KindOutro,
			Heading:    "Subscribe for " + brand.Event + " Coverage",
			Subheading: fmt.Sprintf("More %s content coming soon", team.Country),
			Narration: fmt.Sprintf("That's our preview of %s at the %s. Subscribe to %s for more coverage, and hit the bell for notifications when new videos drop.",
				team.Country, brand.Event, brand.Brand),
		},
	)

	return Script{
		Title:       fmt.Sprintf("%s %s Preview | Pool %s", team.Country, brand.Event, team.Pool),
		Description: fmt.Sprintf("Complete preview of %s heading into the %s. Key players, strengths, and predictions for Pool %s.", team.Country, brand.Event, team.Pool),
		Tags:        []string{brand.Event, team.Country, "Baseball", "Preview", "Pool " + team.Pool},
		Slides:      slides,
	}
}

// MatchupPreview builds a head-to-head preview script.
func MatchupPreview(a, b TeamProfile, pool string, brand Branding) Script {
	brand = brand.orDefault()
	a.normalize()
	b.normalize()

	slides := []Slide{
		{
			Kind:       KindTitle,
			Heading:    fmt.Sprintf("%s vs %s", a.Country, b.Country),
			Subheading: fmt.Sprintf("%s - Pool %s", brand.Event, pool),
			Narration: fmt.Sprintf("Welcome to %s. It's %s versus %s in Pool %s of the %s. Let's break down this matchup.",
				brand.Brand, a.Country, b.Country, pool, brand.Event),
		},
		teamSlide(a, pool, fmt.Sprintf("%s comes in ranked %s. %s. Their key strengths include %s.",
			a.Country, a.Ranking, strings.TrimSuffix(a.Description, "."), strings.ToLower(strings.Join(limit(a.Strengths, 2), " and ")))),
		teamSlide(b, pool, fmt.Sprintf("On the other side, %s is ranked %s. %s. They bring %s.",
			b.Country, b.Ranking, strings.TrimSuffix(b.Description, "."), strings.ToLower(strings.Join(limit(b.Strengths, 2), " and ")))),
	}

	if len(a.Players) > 0 && len(b.Players) > 0 {
		pa, pb := a.Players[0], b.Players[0]
		slides = append(slides, Slide{
			Kind:       KindMatchupPlayers,
			Heading:    "Key Matchup",
			Subheading: fmt.Sprintf("%s vs %s", pa.Name, pb.Name),
			PlayerImages: []PlayerRef{
				{Name: pa.Name, MLBID: pa.MLBID, Position: a.Country},
				{Name: pb.Name, MLBID: pb.MLBID, Position: b.Country},
			},
			Points: []string{fmt.Sprintf("%s %s vs %s %s", a.Country, pa.Position, b.Country, pb.Position)},
			Narration: fmt.Sprintf("The matchup to watch: %s of %s against %s of %s. Two elite talents on the biggest international stage.",
				pa.Name, a.Country, pb.Name, b.Country),
		})
	} else {
		slides = append(slides, Slide{
			Kind:       KindMatchup,
			Heading:    "Prediction",
			Subheading: fmt.Sprintf("%s vs %s", a.Country, b.Country),
			Points:     []string{a.Country + ": " + a.Strengths[0], b.Country + ": " + b.Strengths[0]},
			Narration: fmt.Sprintf("This matchup comes down to %s's %s against %s's %s. It should be a great game.",
				a.Country, strings.ToLower(a.Strengths[0]), b.Country, strings.ToLower(b.Strengths[0])),
		})
	}

	slides = append(slides, Slide{
		Kind:       KindOutro,
		Heading:    "Subscribe for " + brand.Event + " Coverage",
		Subheading: fmt.Sprintf("Full Pool %s coverage on %s", pool, brand.Brand),
		Narration: fmt.Sprintf("Don't miss any action. Subscribe to %s for previews, recaps, and analysis of every Pool %s game.",
			brand.Brand, pool),
	})

	return Script{
		Title:       fmt.Sprintf("%s vs %s | %s Pool %s Preview", a.Country, b.Country, brand.Event, pool),
		Description: fmt.Sprintf("Preview of %s vs %s in Pool %s of the %s.", a.Country, b.Country, pool, brand.Event),
		Tags:        []string{brand.Event, a.Country, b.Country, "Baseball", "Preview", "Pool " + pool},
		Slides:      slides,
	}
}

func teamSlide(t TeamProfile, pool, narration string) Slide {
	return Slide{
		Kind:         KindTeam,
		Heading:      t.Country,
		Subheading:   fmt.Sprintf("%s | Pool %s", t.Ranking, pool),
		Points:       limit(t.Strengths, 3),
		PlayerImages: playerRefs(t.Players, 2),
		Narration:    narration,
	}
}

func limit(values []string, n int) []string {
	if len(values) > n {
		values = values[:n]
	}
	return append([]string(nil), values...)
}

// Sample returns a showcase script that exercises every slide layout.
func Sample(brand Branding) Script {
	brand = brand.orDefault()
	return Script{
		Title:       brand.Event + " Power Rankings: Top Contenders",
		Description: "Who are the favorites heading into the World Baseball Classic?",
		Tags:        []string{brand.Event, "Power Rankings", "Baseball"},
		Slides: []Slide{
			{
				Kind:       KindTitle,
				Heading:    brand.Event + " Power Rankings",
				Subheading: "The Top Contenders",
				Narration:  fmt.Sprintf("Welcome to %s. Let's rank the top contenders for the %s.", brand.Brand, brand.Event),
			},
			{
				Kind:       KindTeam,
				Heading:    "1. Japan",
				Subheading: "Defending Champions",
				Points: []string{
					"Won the 2023 title with a perfect 7-0 record",
					"Deepest pitching staff in the tournament",
					"Elite contact hitting throughout the lineup",
				},
				PlayerImages: []PlayerRef{
					{Name: "Shohei Ohtani", MLBID: "660271", Position: "DH / SP"},
					{Name: "Yoshinobu Yamamoto", MLBID: "808967", Position: "SP"},
				},
				Narration: "Japan sits at number one. The defending champions won the 2023 title without losing a game, and their pitching depth is unmatched.",
			},
			{
				Kind:       KindPlayer,
				Heading:    "Shohei Ohtani",
				Subheading: "Japan - Two-Way Star",
				PlayerName: "Shohei Ohtani",
				MLBID:      "660271",
				Position:   "DH / SP",
				Points:     []string{"2023 tournament MVP", "Struck out Mike Trout to end the final"},
				Narration:  "Shohei Ohtani was the 2023 tournament MVP and closed out the final by striking out Mike Trout.",
			},
			{
				Kind:       KindStats,
				Heading:    "By the Numbers",
				Subheading: "2023 Classic",
				Points:     []string{"20 teams", "47 games", "1.3M fans"},
				Narration:  "The 2023 Classic featured twenty teams, forty seven games, and more than one point three million fans.",
			},
			{
				Kind:       KindMatchup,
				Heading:    "The Rematch",
				Subheading: "Japan vs USA",
				Points:     []string{"Japan: Pitching depth", "USA: Power lineup"},
				Narration:  "A rematch of the 2023 final would pit Japan's pitching depth against the power of the American lineup.",
			},
			{
				Kind:       KindMatchupPlayers,
				Heading:    "Key Matchup",
				Subheading: "Ohtani vs Trout",
				PlayerImages: []PlayerRef{
					{Name: "Shohei Ohtani", MLBID: "660271", Position: "Japan"},
					{Name: "Mike Trout", MLBID: "545361", Position: "USA"},
				},
				Points:    []string{"The at-bat that ended the 2023 final"},
				Narration: "And the matchup everyone wants to see again: Ohtani against Trout.",
			},
			{
				Kind:      KindOutro,
				Heading:   "Subscribe for More",
				Narration: fmt.Sprintf("Thanks for watching. Subscribe to %s for daily coverage.", brand.Brand),
			},
		},
	}
}
