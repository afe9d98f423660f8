package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const teamsYAML = `
- country: japan
  pool: B
  ranking: "#1"
  desc: Defending champions with elite pitching.
  strengths: [Pitching depth, Contact hitting, Defense]
  history: Three titles. Won in 2023.
  outlook: Favorites again. Deep roster.
  players:
    - name: Shohei Ohtani
      mlbId: 660271
      position: DH
    - name: Yoshinobu Yamamoto
      mlbId: 808967
      position: SP
    - name: Roki Sasaki
      mlbId: 808963
      position: SP
- country: USA
  pool: C
  ranking: "#3"
  desc: A lineup full of stars
  strengths: [Power hitting]
  history: Won in 2017.
  outlook: Hungry for revenge.
`

func loadTestTeams(t *testing.T) []TeamProfile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teams.yaml")
	if err := os.WriteFile(path, []byte(teamsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	teams, err := LoadTeams(path)
	if err != nil {
		t.Fatalf("load teams: %v", err)
	}
	return teams
}

func TestLoadTeamsNormalizesCountry(t *testing.T) {
	teams := loadTestTeams(t)
	if teams[0].Country != "Japan" {
		t.Fatalf("expected title-cased country, got %q", teams[0].Country)
	}
	if teams[1].Country != "USA" {
		t.Fatalf("expected acronym preserved, got %q", teams[1].Country)
	}
	if _, ok := FindTeam(teams, "usa"); !ok {
		t.Fatal("expected case-insensitive lookup")
	}
}

func TestTeamPreview(t *testing.T) {
	japan := loadTestTeams(t)[0]
	s := TeamPreview(japan, Branding{})
	kinds := make([]Kind, len(s.Slides))
	for i, slide := range s.Slides {
		kinds[i] = slide.Kind
	}
	want := []Kind{KindTitle, KindTeam, KindPlayer, KindStats, KindOutro}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected slide kinds %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("slide %d kind %q, want %q", i, kinds[i], want[i])
		}
	}
	if len(s.Slides[1].PlayerImages) != 2 {
		t.Fatalf("expected two portraits, got %d", len(s.Slides[1].PlayerImages))
	}
	if s.Slides[3].Points[0] != "Three titles" {
		t.Fatalf("unexpected first sentence %q", s.Slides[3].Points[0])
	}
	if !strings.Contains(s.Slides[0].Narration, "GlobalBaseball") {
		t.Fatalf("expected default brand in narration: %q", s.Slides[0].Narration)
	}
	if fatal := s.Validate().Fatal(); len(fatal) != 0 {
		t.Fatalf("template produced invalid script: %v", fatal)
	}
}

func TestMatchupPreviewFallsBackWithoutPlayers(t *testing.T) {
	teams := loadTestTeams(t)
	s := MatchupPreview(teams[0], teams[1], "B", Branding{Brand: "Diamond Daily", Event: "WBC 2026"})
	var hasMatchup bool
	for _, slide := range s.Slides {
		if slide.Kind == KindMatchupPlayers {
			t.Fatal("USA has no players; expected plain matchup slide")
		}
		if slide.Kind == KindMatchup {
			hasMatchup = true
			if len(slide.Points) != 2 {
				t.Fatalf("expected two sides, got %v", slide.Points)
			}
		}
	}
	if !hasMatchup {
		t.Fatal("expected matchup slide")
	}
	if !strings.Contains(s.Slides[0].Narration, "Diamond Daily") {
		t.Fatalf("expected custom brand, got %q", s.Slides[0].Narration)
	}
}
