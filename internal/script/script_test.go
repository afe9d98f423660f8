package script

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKindVariant(t *testing.T) {
	cases := map[Kind]Variant{
		"title":           VariantTitle,
		"TEAM":            VariantTeam,
		"matchup_players": VariantMatchupPlayers,
		"points":          VariantPoints,
		"lineup":          VariantFallback,
		"":                VariantFallback,
	}
	for kind, want := range cases {
		if got := kind.Variant(); got != want {
			t.Fatalf("Kind(%q).Variant() = %v, want %v", kind, got, want)
		}
	}
}

func TestParseJSONNumericPlayerIDs(t *testing.T) {
	data := []byte(`{
		"title": "Preview",
		"tags": ["WBC"],
		"slides": [
			{"type": "Team", "heading": "Japan", "narration": "Japan overview.",
			 "playerImages": [{"name": "Shohei Ohtani", "mlbId": 660271, "position": "DH"}]},
			{"type": "player", "heading": "Mike Trout", "playerName": "Mike Trout", "mlbId": "545361", "narration": "Trout."}
		]
	}`)
	s, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Slides[0].Kind != KindTeam {
		t.Fatalf("expected normalized kind, got %q", s.Slides[0].Kind)
	}
	if got := s.Slides[0].PlayerImages[0].MLBID; got != "660271" {
		t.Fatalf("unexpected numeric id %q", got)
	}
	if got := s.Slides[1].MLBID; got != "545361" {
		t.Fatalf("unexpected string id %q", got)
	}

	out, err := json.Marshal(s.Slides[0].PlayerImages[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"mlbId":660271`) {
		t.Fatalf("expected numeric id in output, got %s", out)
	}
}

func TestParseJSONRejectsBadID(t *testing.T) {
	_, err := ParseJSON([]byte(`{"slides":[{"type":"player","narration":"x","mlbId":12.5}]}`))
	if err == nil {
		t.Fatal("expected error for fractional id")
	}
}

func TestLoadYAMLAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	contents := `
title: Sample
slides:
  - type: title
    heading: Hello
    narration: Welcome to the show.
  - type: player
    heading: Ohtani
    mlbId: 660271
    narration: A two-way star.
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Slides) != 2 || s.Slides[1].MLBID != "660271" {
		t.Fatalf("unexpected script %+v", s)
	}

	jsonPath := filepath.Join(dir, "out", "script.json")
	if err := s.Save(jsonPath); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := Load(jsonPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Slides[1].Heading != "Ohtani" || again.Slides[1].MLBID != "660271" {
		t.Fatalf("round trip lost data: %+v", again.Slides[1])
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty script")
	}
}

func TestValidate(t *testing.T) {
	s := Script{Slides: []Slide{
		{Kind: KindTitle, Heading: "Hi", Narration: "Hello."},
		{Kind: KindTeam, Heading: "Japan"},
		{Kind: "lineup", Heading: "Lineup", Narration: "The lineup."},
		{Kind: KindMatchup, Heading: "VS", Narration: "Versus.", Points: []string{"only one"}},
	}}
	errs := s.Validate()
	fatal := errs.Fatal()
	if len(fatal) != 1 || fatal[0].Slide != 1 || fatal[0].Field != "narration" {
		t.Fatalf("expected one fatal narration error on slide 1, got %v", fatal)
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 issues including warnings, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs.Error(), "slide 2 type") {
		t.Fatalf("unexpected message %q", errs.Error())
	}

	if got := (Script{}).Validate().Fatal(); len(got) != 1 || got[0].Slide != -1 {
		t.Fatalf("expected script-level error for empty script, got %v", got)
	}
}

func TestPlayerRefsDeduplicates(t *testing.T) {
	s := Script{Slides: []Slide{
		{Kind: KindPlayer, PlayerName: "Shohei Ohtani", MLBID: "660271", Narration: "x"},
		{Kind: KindTeam, Narration: "y", PlayerImages: []PlayerRef{
			{Name: "Shohei Ohtani", MLBID: "660271"},
			{Name: "Mike Trout", MLBID: "545361"},
			{Name: "Local Hero"},
		}},
	}}
	refs := s.PlayerRefs()
	if len(refs) != 3 {
		t.Fatalf("expected 3 distinct players, got %v", refs)
	}
	if refs[0].Name != "Shohei Ohtani" || refs[1].Name != "Mike Trout" || refs[2].Name != "Local Hero" {
		t.Fatalf("unexpected order %v", refs)
	}
}

func TestSampleValidates(t *testing.T) {
	s := Sample(Branding{})
	if fatal := s.Validate().Fatal(); len(fatal) != 0 {
		t.Fatalf("sample script invalid: %v", fatal)
	}
	seen := map[Variant]bool{}
	for _, slide := range s.Slides {
		seen[slide.Variant()] = true
	}
	for _, v := range []Variant{VariantTitle, VariantTeam, VariantPlayer, VariantStats, VariantMatchup, VariantMatchupPlayers, VariantOutro} {
		if !seen[v] {
			t.Fatalf("sample missing variant %v", v)
		}
	}
}
