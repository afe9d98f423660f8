package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/paths"
	"broadcast/internal/render"
	"broadcast/internal/script"
	"broadcast/internal/sources"
)

const narrationSeconds = 3.2

type fakeEngine struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Synthesize(_ context.Context, text, _ string, outPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return os.WriteFile(outPath, []byte("mp3:"+text), 0o644)
}

// mediaRunner fakes ffmpeg and ffprobe. ffmpeg records the -t length of each
// output so ffprobe can report it back; concat sums the listed inputs.
// Narration lasts narrationSeconds unless narration names the file.
type mediaRunner struct {
	mu        sync.Mutex
	lengths   map[string]float64
	narration map[string]float64
	failOut  string
	segments [][]string
	concat   []string
	ffmpeg   int
}

func newMediaRunner() *mediaRunner {
	return &mediaRunner{lengths: map[string]float64{}}
}

func (m *mediaRunner) Run(_ context.Context, command string, args []string, _ cache.RunOptions) (cache.RunResult, error) {
	switch filepath.Base(command) {
	case "ffmpeg":
		return m.runFFmpeg(args)
	case "ffprobe":
		target := args[len(args)-1]
		if slices.Contains(args, "stream=codec_type") {
			return cache.RunResult{Stdout: []byte("audio\n")}, nil
		}
		if strings.HasSuffix(target, ".mp3") {
			d, ok := m.narration[filepath.Base(target)]
			if !ok {
				d = narrationSeconds
			}
			return cache.RunResult{Stdout: []byte(fmt.Sprintf("%.3f\n", d))}, nil
		}
		m.mu.Lock()
		d, ok := m.lengths[filepath.Base(target)]
		m.mu.Unlock()
		if !ok {
			return cache.RunResult{}, errors.New("no duration")
		}
		return cache.RunResult{Stdout: []byte(fmt.Sprintf("%.3f\n", d))}, nil
	}
	return cache.RunResult{}, fmt.Errorf("unexpected command %s", command)
}

func (m *mediaRunner) runFFmpeg(args []string) (cache.RunResult, error) {
	out := args[len(args)-1]
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ffmpeg++

	if filepath.Base(out) == m.failOut {
		return cache.RunResult{}, errors.New("exit status 1")
	}
	if i := slices.Index(args, "concat"); i >= 0 {
		list := args[slices.Index(args, "-i")+1]
		data, err := os.ReadFile(list)
		if err != nil {
			return cache.RunResult{}, err
		}
		m.concat = nil
		total := 0.0
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			entry := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
			m.concat = append(m.concat, entry)
			total += m.lengths[filepath.Base(entry)]
		}
		m.lengths[filepath.Base(out)] = total
	} else if i := slices.Index(args, "-t"); i >= 0 {
		d, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return cache.RunResult{}, err
		}
		m.lengths[filepath.Base(out)] = d
	}
	if strings.HasPrefix(filepath.Base(out), "segment_") {
		m.segments = append(m.segments, append([]string(nil), args...))
	}
	return cache.RunResult{}, os.WriteFile(out, []byte("media"), 0o644)
}

func (m *mediaRunner) concatNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.concat))
	for i, entry := range m.concat {
		names[i] = filepath.Base(filepath.Dir(entry)) + "/" + filepath.Base(entry)
	}
	return names
}

// newStatsServer serves an empty schedule and perGame playable highlights
// (after the recap) for every game.
func newStatsServer(t *testing.T, perGame int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/schedule", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"dates": []any{}})
	})
	var srv *httptest.Server
	mux.HandleFunc("/api/v1/game/", func(w http.ResponseWriter, r *http.Request) {
		var pk int
		if _, err := fmt.Sscanf(r.URL.Path, "/api/v1/game/%d/content", &pk); err != nil {
			http.NotFound(w, r)
			return
		}
		items := []any{map[string]any{"title": "Recap", "playbacks": []any{map[string]any{"name": "mp4Avc", "url": fmt.Sprintf("%s/video/%d_0.mp4", srv.URL, pk)}}}}
		for i := 1; i <= perGame; i++ {
			items = append(items, map[string]any{
				"title":     fmt.Sprintf("Play %d", i),
				"playbacks": []any{map[string]any{"name": "mp4Avc", "url": fmt.Sprintf("%s/video/%d_%d.mp4", srv.URL, pk, i)}},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"highlights": map[string]any{"highlights": map[string]any{"items": items}},
		})
	})
	mux.HandleFunc("/video/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "video %s", r.URL.Path)
	})
	mux.HandleFunc("/headshots/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "404") {
			http.NotFound(w, r)
			return
		}
		img := image.NewRGBA(image.Rect(0, 0, 40, 40))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 30, G: 60, B: 200, A: 255}), image.Point{}, draw.Src)
		_ = png.Encode(w, img)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testRig struct {
	p      *Pipeline
	runner *mediaRunner
	engine *fakeEngine
}

func newTestRig(t *testing.T, perGame int) testRig {
	t.Helper()
	srv := newStatsServer(t, perGame)

	cfg := config.Default()
	cfg.Video.Width, cfg.Video.Height = 1280, 720
	cfg.Sources.StatsBaseURL = srv.URL
	cfg.Sources.HeadshotURL = srv.URL + "/headshots/{id}.jpg"
	cfg.Pipeline.Concurrency = 2

	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	pp = paths.ApplyConfig(pp, cfg)

	runner := newMediaRunner()
	engine := &fakeEngine{}
	p := &Pipeline{
		Config: cfg,
		Paths:  pp,
		Cache:  cache.New(cache.NewFSStore(pp.CacheDir), nil),
		Runner: runner,
		Tools:  Tools{FFmpeg: "ffmpeg", FFprobe: "ffprobe"},
		Engine: engine,
		Client: sources.NewClient(cfg, srv.Client(), nil),
	}
	return testRig{p: p, runner: runner, engine: engine}
}

func threeSlides() script.Script {
	return script.Script{
		Title: "Pool A Preview",
		Slides: []script.Slide{
			{Kind: script.KindTitle, Heading: "Pool A", Narration: "Welcome to the pool A preview."},
			{Kind: script.KindPlayer, Heading: "Missing Player", PlayerName: "Missing Player", MLBID: "404", Narration: "A player whose portrait is unavailable."},
			{Kind: script.KindOutro, Heading: "Subscribe", Narration: "Thanks for watching."},
		},
	}
}

type recordingReporter struct {
	mu      sync.Mutex
	started []Stage
	status  map[int][]string
}

func (r *recordingReporter) StageStarted(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, stage)
}

func (r *recordingReporter) StageFinished(Stage, error) {}

func (r *recordingReporter) SlideStatus(stage Stage, index int, status, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		r.status = map[int][]string{}
	}
	r.status[index] = append(r.status[index], string(stage)+":"+status)
}

func TestRunBroadcastEndToEnd(t *testing.T) {
	rig := newTestRig(t, 2)
	rep := &recordingReporter{}

	res, err := rig.p.Run(context.Background(), threeSlides(), Options{Output: "preview", Reporter: rep})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := filepath.Join(rig.p.Paths.OutputDir, "preview.mp4")
	if res.Output != want || res.Video.Path != want {
		t.Fatalf("output = %s / %s, want %s", res.Output, res.Video.Path, want)
	}
	if ok, _ := paths.FileExists(want); !ok {
		t.Fatalf("final video missing")
	}
	for _, leftover := range []string{partialPath(want), want + ".lock"} {
		if ok, _ := paths.FileExists(leftover); ok {
			t.Fatalf("unexpected leftover %s", leftover)
		}
	}
	if entries, _ := os.ReadDir(rig.p.Paths.WorkDir); len(entries) != 0 {
		t.Fatalf("work dir not cleaned: %v", entries)
	}

	if res.Mode != config.ModeBroadcast {
		t.Fatalf("mode = %s", res.Mode)
	}
	var ids []string
	for _, c := range res.Clips {
		ids = append(ids, c.ID)
	}
	if got := strings.Join(ids, ","); got != "719497_1,719497_2,719499_1" {
		t.Fatalf("clips = %s", got)
	}

	wantNames := []string{"segments/segment_000.mp4", "segments/segment_001.mp4", "segments/segment_002.mp4"}
	if got := rig.runner.concatNames(); !slices.Equal(got, wantNames) {
		t.Fatalf("concat order = %v", got)
	}
	if math.Abs(res.Video.DurationSeconds-3*narrationSeconds) > 1e-6 {
		t.Fatalf("duration = %v, want %v", res.Video.DurationSeconds, 3*narrationSeconds)
	}
	for _, args := range rig.runner.segments {
		if !slices.Contains(args, "-stream_loop") {
			t.Fatalf("broadcast segment without looping clip: %v", args)
		}
	}
	if !slices.Equal(res.Degraded, []int{1}) {
		t.Fatalf("degraded = %v, want [1]", res.Degraded)
	}
	if !slices.Equal(rep.started, Stages) {
		t.Fatalf("stages = %v", rep.started)
	}
	if !slices.Contains(rep.status[1], "overlays:degraded") || !slices.Contains(rep.status[2], "segments:encoded") {
		t.Fatalf("unexpected slide statuses %v", rep.status)
	}
}

func TestRunSegmentsFollowTheirOwnNarration(t *testing.T) {
	rig := newTestRig(t, 1)
	rig.runner.narration = map[string]float64{
		"slide_000.mp3": 3.5,
		"slide_001.mp3": 5.25,
		"slide_002.mp3": 4.75,
	}
	s := script.Script{
		Title: "Japan Preview",
		Slides: []script.Slide{
			{Kind: script.KindTitle, Heading: "Japan", Narration: "Japan returns as champion."},
			{
				Kind:      script.KindTeam,
				Heading:   "Japan",
				Points:    []string{"Yamamoto leads the rotation", "Ohtani bats third"},
				Narration: "Two stars carry the roster.",
				PlayerImages: []script.PlayerRef{
					{Name: "Shohei Ohtani", MLBID: "660271"},
					{Name: "Yoshinobu Yamamoto", MLBID: "808967"},
				},
			},
			{Kind: script.KindOutro, Narration: "See you in Tokyo."},
		},
	}

	res, err := rig.p.Run(context.Background(), s, Options{Output: "japan", MaxClips: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Clips) != 1 {
		t.Fatalf("expected a one-clip pool, got %d", len(res.Clips))
	}
	if len(res.Degraded) != 0 {
		t.Fatalf("both portraits are available, degraded = %v", res.Degraded)
	}

	want := []float64{3.5, 5.25, 4.75}
	if len(rig.runner.segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(rig.runner.segments))
	}
	for _, args := range rig.runner.segments {
		out := filepath.Base(args[len(args)-1])
		var i int
		if _, err := fmt.Sscanf(out, "segment_%03d.mp4", &i); err != nil {
			t.Fatalf("unexpected segment %s", out)
		}
		got, err := strconv.ParseFloat(args[slices.Index(args, "-t")+1], 64)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-want[i]) > 1e-6 {
			t.Errorf("%s lasts %v, want its narration %v", out, got, want[i])
		}
		if clip := args[slices.Index(args, "-i")+1]; clip != res.Clips[0].Path {
			t.Errorf("%s loops %s, want the single pool clip %s", out, clip, res.Clips[0].Path)
		}
	}
	if math.Abs(res.Video.DurationSeconds-(3.5+5.25+4.75)) > 1e-6 {
		t.Fatalf("duration = %v, want the narration total", res.Video.DurationSeconds)
	}
}

func TestRunAutoFallsBackToClassic(t *testing.T) {
	rig := newTestRig(t, 0)

	res, err := rig.p.Run(context.Background(), threeSlides(), Options{Mode: config.ModeAuto, KeepWork: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Mode != config.ModeClassic || len(res.Clips) != 0 {
		t.Fatalf("mode = %s clips = %d", res.Mode, len(res.Clips))
	}
	if res.WorkDir == "" {
		t.Fatalf("work dir not reported")
	}
	for i := range 3 {
		if ok, _ := paths.FileExists(filepath.Join(res.WorkDir, "overlays", fmt.Sprintf("slide_%03d.png", i))); !ok {
			t.Fatalf("classic slide %d not rendered", i)
		}
	}
	for _, args := range rig.runner.segments {
		if !strings.Contains(strings.Join(args, " "), "zoompan") {
			t.Fatalf("classic segment without zoom: %v", args)
		}
	}
	if filepath.Base(res.Output) != "pool-a-preview.mp4" {
		t.Fatalf("derived output name = %s", res.Output)
	}
}

func TestRunClassicInterleavesBroll(t *testing.T) {
	rig := newTestRig(t, 3)
	s := threeSlides()
	s.Slides = append(s.Slides, script.Slide{Kind: script.KindStats, Heading: "Numbers", Narration: "One more slide."})

	res, err := rig.p.Run(context.Background(), s, Options{Mode: config.ModeClassic, Output: "classic"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Clips) != 2 {
		t.Fatalf("classic run should source one clip per b-roll slot, got %d", len(res.Clips))
	}
	got := rig.runner.concatNames()
	want := []string{
		"segments/segment_000.mp4",
		"segments/segment_001.mp4",
		"normalized/719497_1_" + render.ProfileFromConfig(rig.p.Config).ShortHash() + ".mp4",
		"segments/segment_002.mp4",
		"segments/segment_003.mp4",
		"normalized/719497_2_" + render.ProfileFromConfig(rig.p.Config).ShortHash() + ".mp4",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("timeline = %v\nwant %v", got, want)
	}
}

func TestRunRejectsLockedOutput(t *testing.T) {
	rig := newTestRig(t, 2)
	out := rig.p.Paths.OutputFile("busy")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(out + ".lock")
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err := rig.p.Run(context.Background(), threeSlides(), Options{Output: "busy"})
	if !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("expected ErrOutputLocked, got %v", err)
	}
	if rig.engine.calls != 0 || rig.runner.ffmpeg != 0 {
		t.Fatalf("locked run did work: tts=%d ffmpeg=%d", rig.engine.calls, rig.runner.ffmpeg)
	}
}

func TestRunSegmentFailureIsStageTagged(t *testing.T) {
	rig := newTestRig(t, 2)
	rig.runner.failOut = "segment_001.mp4"

	res, err := rig.p.Run(context.Background(), threeSlides(), Options{Output: "broken"})
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Stage != StageSegments || se.Index != 1 {
		t.Fatalf("stage error = %s/%d", se.Stage, se.Index)
	}
	if !errors.Is(err, render.ErrSegmentEncodeFailed) {
		t.Fatalf("expected segment encode failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "(see ") {
		t.Fatalf("error should point at the ffmpeg log: %v", err)
	}
	out := rig.p.Paths.OutputFile("broken")
	for _, p := range []string{out, partialPath(out)} {
		if ok, _ := paths.FileExists(p); ok {
			t.Fatalf("failed run left %s", p)
		}
	}
	if ok, _ := paths.DirExists(res.WorkDir); !ok {
		t.Fatalf("failed run should keep its work dir")
	}
}

func TestRunRejectsInvalidScript(t *testing.T) {
	rig := newTestRig(t, 2)
	s := threeSlides()
	s.Slides[1].Narration = "  "

	if _, err := rig.p.Run(context.Background(), s, Options{}); err == nil || !strings.Contains(err.Error(), "narration") {
		t.Fatalf("expected narration validation error, got %v", err)
	}
	if rig.engine.calls != 0 {
		t.Fatalf("engine called for invalid script")
	}
}

func TestRunBatchContinuesAfterFailure(t *testing.T) {
	rig := newTestRig(t, 2)
	dir := t.TempDir()
	if err := threeSlides().Save(filepath.Join(dir, "good.json")); err != nil {
		t.Fatalf("save script: %v", err)
	}
	batch := Batch{
		Dir: dir,
		Jobs: []Job{
			{Name: "missing", Template: TemplateScript, Script: "missing.json"},
			{Name: "good", Template: TemplateScript, Script: "good.json"},
		},
	}

	var seen []string
	results := rig.p.RunBatch(context.Background(), batch, Options{}, func(_ int, res JobResult) {
		seen = append(seen, res.Name+":"+res.Status)
	})
	if got := strings.Join(seen, ","); got != "missing:failed,good:ok" {
		t.Fatalf("results = %s", got)
	}
	if results[0].Error == "" {
		t.Fatalf("failed job should carry its error")
	}
	if ok, _ := paths.FileExists(results[1].Output); !ok || filepath.Base(results[1].Output) != "good.mp4" {
		t.Fatalf("good job output = %s", results[1].Output)
	}
}

func TestRunBatchSkipsAfterCancel(t *testing.T) {
	rig := newTestRig(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := rig.p.RunBatch(ctx, Batch{Jobs: []Job{{Template: TemplateSample}}}, Options{}, nil)
	if len(results) != 1 || results[0].Status != JobSkipped {
		t.Fatalf("results = %+v", results)
	}
}

const teamsYAML = `
- country: Japan
  pool: A
  ranking: "#1"
  desc: Defending champions
  strengths: [Pitching, Defense]
  players:
    - {name: Shohei Ohtani, mlbId: 660271, position: DH/P}
- country: South Korea
  pool: A
  ranking: "#3"
  desc: A perennial powerhouse
  strengths: [Hitting]
- country: Australia
  pool: A
  ranking: "#10"
  desc: Rising force
  strengths: [Athleticism]
- country: Mexico
  pool: B
  ranking: "#4"
  desc: Semifinalists
  strengths: [Depth]
`

func TestLoadBatchExpandsPool(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "teams.yaml"), []byte(teamsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	batchYAML := `
teams_file: teams.yaml
jobs:
  - name: japan
    template: team
    teams: [Japan]
    game: 719497
  - template: pool
    pool: A
    mode: classic
`
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(batchYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	var names []string
	for _, j := range b.Jobs {
		names = append(names, JobName(j))
	}
	want := []string{"japan", "japan-vs-south-korea-pool-a", "japan-vs-australia-pool-a", "south-korea-vs-australia-pool-a"}
	if !slices.Equal(names, want) {
		t.Fatalf("jobs = %v", names)
	}
	if b.Jobs[1].Mode != config.ModeClassic {
		t.Fatalf("pool jobs should inherit mode")
	}

	s, cc, err := b.Build(b.Jobs[1], script.DefaultBranding)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(s.Slides) == 0 || cc.String() != "Japan vs South Korea" {
		t.Fatalf("matchup build = %d slides, context %s", len(s.Slides), cc)
	}
	_, pinned, err := b.Build(b.Jobs[0], script.DefaultBranding)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if pinned.GamePK != 719497 || len(pinned.Teams) != 1 {
		t.Fatalf("team job should pin game 719497 and keep its team, got %+v", pinned)
	}
	if _, _, err := b.Build(Job{Template: TemplateTeam, Teams: []string{"Atlantis"}}, script.DefaultBranding); err == nil {
		t.Fatalf("expected unknown team error")
	}
}

func TestPartialPath(t *testing.T) {
	cases := map[string]string{
		"/v/out.mp4": "/v/out.partial.mp4",
		"/v/out.mov": "/v/out.partial.mov",
		"/v/out":     "/v/out.partial.mp4",
	}
	for in, want := range cases {
		if got := partialPath(in); got != want {
			t.Errorf("partialPath(%s) = %s, want %s", in, got, want)
		}
	}
}
