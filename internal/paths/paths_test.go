package paths

import (
	"os"
	"path/filepath"
	"testing"

	"broadcast/internal/config"
)

func TestResolveUsesFlag(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pp.Root != root {
		t.Fatalf("expected root %s, got %s", root, pp.Root)
	}
	if pp.ConfigFile != filepath.Join(root, "broadcast.yaml") {
		t.Fatalf("unexpected config file %s", pp.ConfigFile)
	}
}

func TestResolvePrefersTOMLWhenOnlyTOMLExists(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "broadcast.toml"), []byte("version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if filepath.Base(pp.ConfigFile) != "broadcast.toml" {
		t.Fatalf("expected toml config, got %s", pp.ConfigFile)
	}
}

func TestApplyConfigRelativeAndAbsolute(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	cfg := config.Default()
	cfg.Cache.Dir = "shared/cache"
	abs := filepath.Join(t.TempDir(), "out")
	cfg.Pipeline.OutputDir = abs

	applied := ApplyConfig(pp, cfg)
	if applied.CacheDir != filepath.Join(root, "shared/cache") {
		t.Fatalf("unexpected cache dir %s", applied.CacheDir)
	}
	if applied.OutputDir != abs {
		t.Fatalf("unexpected output dir %s", applied.OutputDir)
	}
}

func TestRunPathsEnsureAndRemove(t *testing.T) {
	pp := newProjectPaths(t.TempDir())
	run := pp.Run("abc")
	if err := run.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, dir := range []string{run.AudioDir, run.OverlayDir, run.SegmentsDir, run.LogsDir} {
		ok, err := DirExists(dir)
		if err != nil || !ok {
			t.Fatalf("expected %s to exist (err=%v)", dir, err)
		}
	}
	if err := run.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := DirExists(run.Root); ok {
		t.Fatalf("expected run root removed")
	}
}

func TestOutputFile(t *testing.T) {
	pp := newProjectPaths("/work")
	cases := map[string]string{
		"usa-preview":    filepath.Join("/work", "videos", "usa-preview.mp4"),
		"final.mp4":      filepath.Join("/work", "videos", "final.mp4"),
		"out/final.mp4":  filepath.Join("/work", "out", "final.mp4"),
		"/tmp/final.mp4": "/tmp/final.mp4",
	}
	for input, want := range cases {
		if got := pp.OutputFile(input); got != want {
			t.Fatalf("OutputFile(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if ok, err := FileExists(file); err != nil || ok {
		t.Fatalf("expected missing file, got ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := FileExists(file); err != nil || !ok {
		t.Fatalf("expected file to exist, got ok=%v err=%v", ok, err)
	}
	if ok, _ := FileExists(dir); ok {
		t.Fatalf("directory should not count as file")
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Japan vs South Korea - Pool A": "japan-vs-south-korea-pool-a",
		"  WBC 2026: Preview!  ":        "wbc-2026-preview",
		"---":                           "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
