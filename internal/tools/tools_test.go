package tools

import "testing"

func TestNormalizeVersionLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"ffmpeg", "ffmpeg version 6.1.1 Copyright (c) 2000-2023", "6.1.1"},
		{"ffprobe", "ffprobe version n7.0 Copyright", "n7.0"},
		{"edge-tts", "edge-tts 6.1.12", "6.1.12"},
		{"other", "v1", "v1"},
	}
	for _, tc := range cases {
		if got := normalizeVersionLine(tc.name, tc.line); got != tc.want {
			t.Fatalf("normalizeVersionLine(%q, %q) = %q, want %q", tc.name, tc.line, got, tc.want)
		}
	}
}

func TestDefinitionsAndMissingRequired(t *testing.T) {
	if _, ok := Definition("ffmpeg"); !ok {
		t.Fatal("expected ffmpeg definition")
	}
	if _, ok := Definition("yt-dlp"); ok {
		t.Fatal("unexpected yt-dlp definition")
	}
	infos := []ToolInfo{
		{Name: "ffmpeg", Required: true, Available: true},
		{Name: "ffprobe", Required: false, Available: false},
		{Name: "edge-tts", Required: true, Available: false},
	}
	missing := MissingRequired(infos)
	if len(missing) != 1 || missing[0] != "edge-tts" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("nope"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if got := LookupOr("nope"); got != "nope" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
