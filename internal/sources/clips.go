package sources

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/logx"
	"broadcast/internal/render"
)

// Tier records which lookup produced a clip.
type Tier string

const (
	TierGame       Tier = "game"
	TierHeadToHead Tier = "head_to_head"
	TierTeam       Tier = "team"
	TierCurated    Tier = "curated"
)

// CuratedGame is a notable fixture from the 2023 tournament.
type CuratedGame struct {
	PK    int
	Label string
}

// CuratedGames lists the curated pool in priority order: final, semifinals,
// then quarterfinals.
var CuratedGames = []CuratedGame{
	{PK: 719497, Label: "2023 Final: USA vs Japan"},
	{PK: 719499, Label: "2023 Semi: Mexico vs Japan"},
	{PK: 719498, Label: "2023 Semi: Cuba vs USA"},
	{PK: 719501, Label: "2023 QF: USA vs Venezuela"},
	{PK: 719500, Label: "2023 QF: Puerto Rico vs Mexico"},
	{PK: 719502, Label: "2023 QF: Italy vs Japan"},
	{PK: 719506, Label: "2023: PR vs Dominican Republic"},
}

// Highlights taken per game, after skipping the recap at index 0.
const (
	curatedPerGame = 3
	teamPerGame    = 2
)

// ClipContext selects which games clips come from. A game pins one fixture;
// otherwise no teams means the curated pool, one team its games, two teams
// their head-to-head fixtures.
type ClipContext struct {
	GamePK int      `json:"game_pk,omitempty"`
	Teams  []string `json:"teams,omitempty"`
}

// Curated is the context with no team preference.
func Curated() ClipContext { return ClipContext{} }

// ForTeam prefers one team's games.
func ForTeam(team string) ClipContext { return ClipContext{Teams: []string{team}} }

// HeadToHead prefers games between a and b.
func HeadToHead(a, b string) ClipContext { return ClipContext{Teams: []string{a, b}} }

// ForGame pins clips to one game. Teams still apply when it has no footage.
func (cc ClipContext) ForGame(pk int) ClipContext {
	cc.GamePK = pk
	return cc
}

func (cc ClipContext) String() string {
	if cc.GamePK > 0 {
		return fmt.Sprintf("game %d", cc.GamePK)
	}
	switch len(cc.Teams) {
	case 0:
		return "curated"
	case 1:
		return "team " + cc.Teams[0]
	default:
		return strings.Join(cc.Teams, " vs ")
	}
}

// ClipAsset is a trimmed, profile-conformant highlight clip owned by the
// media cache.
type ClipAsset struct {
	ID                  string  `json:"id"`
	Path                string  `json:"path"`
	Title               string  `json:"title"`
	SourceLabel         string  `json:"source"`
	DurationHintSeconds float64 `json:"duration_hint_s"`
	Tier                Tier    `json:"tier"`
}

// Sourcer resolves highlight clips through the media cache.
type Sourcer struct {
	Client  *Client
	Cache   *cache.Cache
	Runner  cache.Runner
	FFmpeg  string
	Profile render.Profile
	// SkipSeconds drops the intro graphics at the head of each highlight.
	SkipSeconds   float64
	LengthSeconds float64
	HeadshotURL   string
	Concurrency   int
	LogsDir       string
	Logger        logx.Logger
}

// NewSourcer wires a sourcer from configuration.
func NewSourcer(cfg config.Config, client *Client, c *cache.Cache, runner cache.Runner, ffmpeg, logsDir string, logger logx.Logger) *Sourcer {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	return &Sourcer{
		Client:        client,
		Cache:         c,
		Runner:        runner,
		FFmpeg:        ffmpeg,
		Profile:       render.ProfileFromConfig(cfg),
		SkipSeconds:   cfg.Sources.ClipSkipSec,
		LengthSeconds: cfg.Sources.ClipLengthSec,
		HeadshotURL:   cfg.Sources.HeadshotURL,
		Concurrency:   cfg.Pipeline.Concurrency,
		LogsDir:       logsDir,
		Logger:        logx.OrDiscard(logger),
	}
}

// ResolveClips returns up to maxClips clips for cc. A pinned game is tried
// first, then head-to-head games, then each team's games, then the curated
// pool; a lower tier is only consulted when every higher one produced
// nothing. Individual clip failures are logged and skipped, so the result may
// be short or empty. The only error returned is context cancellation.
func (s *Sourcer) ResolveClips(ctx context.Context, cc ClipContext, maxClips int) ([]ClipAsset, error) {
	if maxClips <= 0 {
		return nil, nil
	}

	if cc.GamePK > 0 {
		clips, err := s.game(ctx, cc.GamePK, maxClips)
		if err != nil || len(clips) > 0 {
			return clips, err
		}
		s.Logger.Printf("clips: no footage for game %d", cc.GamePK)
	}
	if len(cc.Teams) >= 2 {
		clips, err := s.headToHead(ctx, cc.Teams[0], cc.Teams[1], maxClips)
		if err != nil || len(clips) > 0 {
			return clips, err
		}
		s.Logger.Printf("clips: no head-to-head footage for %s", cc)
	}
	if len(cc.Teams) >= 1 {
		clips, err := s.teams(ctx, cc.Teams, maxClips)
		if err != nil || len(clips) > 0 {
			return clips, err
		}
		s.Logger.Printf("clips: no team footage for %s, using curated pool", cc)
	}
	return s.curated(ctx, maxClips)
}

// ClipID names a highlight in the media cache. It depends only on the game
// and highlight, so every context resolving the same highlight shares one
// download and one trim.
func ClipID(pk, index int) string {
	return fmt.Sprintf("%d_%d", pk, index)
}

// game takes a pinned game's highlights in order, recap included.
func (s *Sourcer) game(ctx context.Context, pk, maxClips int) ([]ClipAsset, error) {
	return s.fromGame(ctx, pk, s.gameLabel(ctx, pk), TierGame, 0, maxClips, maxClips)
}

func (s *Sourcer) gameLabel(ctx context.Context, pk int) string {
	for _, g := range CuratedGames {
		if g.PK == pk {
			return g.Label
		}
	}
	if games, _ := s.schedule(ctx); games != nil {
		for _, g := range games {
			if g.PK == pk {
				return g.Label()
			}
		}
	}
	return fmt.Sprintf("Game %d", pk)
}

func (s *Sourcer) headToHead(ctx context.Context, a, b string, maxClips int) ([]ClipAsset, error) {
	games, ok := s.schedule(ctx)
	if !ok {
		return nil, ctx.Err()
	}
	var clips []ClipAsset
	for _, g := range games {
		if len(clips) >= maxClips {
			break
		}
		if !(TeamMatches(g.Away, a) && TeamMatches(g.Home, b)) && !(TeamMatches(g.Away, b) && TeamMatches(g.Home, a)) {
			continue
		}
		got, err := s.fromGame(ctx, g.PK, g.Label(), TierHeadToHead, 1, maxClips, maxClips-len(clips))
		clips = append(clips, got...)
		if err != nil {
			return clips, err
		}
	}
	return clips, nil
}

// teams splits the budget across the given teams, the first team taking the
// larger half.
func (s *Sourcer) teams(ctx context.Context, names []string, maxClips int) ([]ClipAsset, error) {
	games, ok := s.schedule(ctx)
	if !ok {
		return nil, ctx.Err()
	}
	per := (maxClips + len(names) - 1) / len(names)

	var clips []ClipAsset
	for _, name := range names {
		budget := min(per, maxClips-len(clips))
		count := 0
		for _, g := range games {
			if count >= budget {
				break
			}
			if !TeamMatches(g.Away, name) && !TeamMatches(g.Home, name) {
				continue
			}
			got, err := s.fromGame(ctx, g.PK, g.Label(), TierTeam, 1, teamPerGame, budget-count)
			clips = append(clips, got...)
			count += len(got)
			if err != nil {
				return clips, err
			}
		}
	}
	return clips, nil
}

func (s *Sourcer) curated(ctx context.Context, maxClips int) ([]ClipAsset, error) {
	var clips []ClipAsset
	for _, g := range CuratedGames {
		if len(clips) >= maxClips {
			break
		}
		got, err := s.fromGame(ctx, g.PK, g.Label, TierCurated, 1, curatedPerGame, maxClips-len(clips))
		clips = append(clips, got...)
		if err != nil {
			return clips, err
		}
	}
	return clips, nil
}

func (s *Sourcer) schedule(ctx context.Context) ([]Game, bool) {
	games, err := s.Client.Schedule(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		s.Logger.Printf("clips: %v", err)
		return nil, true
	}
	return games, true
}

// fromGame acquires up to perGame highlights of a game starting at first,
// stopping after limit successes. Context tiers pass first 1 to skip the recap.
func (s *Sourcer) fromGame(ctx context.Context, pk int, label string, tier Tier, first, perGame, limit int) ([]ClipAsset, error) {
	highlights, err := s.Client.Highlights(ctx, pk)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.Logger.Printf("clips: %v", err)
		return nil, nil
	}
	if len(highlights) <= first {
		return nil, nil
	}
	end := min(len(highlights), first+perGame)

	var clips []ClipAsset
	for _, hl := range highlights[first:end] {
		if len(clips) >= limit {
			break
		}
		id := ClipID(pk, hl.Index)
		clip, err := s.Acquire(ctx, id, hl, label, tier)
		if err != nil {
			if ctx.Err() != nil {
				return clips, ctx.Err()
			}
			s.Logger.Printf("clips: skip %s: %v", id, err)
			continue
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// Acquire downloads one highlight into the raw cache and derives the trimmed
// clip from it.
func (s *Sourcer) Acquire(ctx context.Context, id string, hl Highlight, label string, tier Tier) (ClipAsset, error) {
	if s.Cache == nil {
		return ClipAsset{}, errors.New("no media cache configured")
	}
	httpClient := cache.DefaultHTTPClient
	if s.Client != nil && s.Client.HTTP != nil {
		httpClient = s.Client.HTTP
	}

	raw, err := s.Cache.FetchOrGet(ctx, cache.KindRaw, id, cache.FetchURL(httpClient, hl.URL))
	if err != nil {
		return ClipAsset{}, err
	}
	s.Cache.Label(ctx, cache.KindRaw, id, label)

	clip, err := s.Cache.FetchOrTransform(ctx, cache.KindClip, id, func(ctx context.Context, dest string) error {
		return s.trim(ctx, id, raw, dest)
	})
	if err != nil {
		return ClipAsset{}, err
	}
	s.Cache.Label(ctx, cache.KindClip, id, label+": "+hl.Title)

	return ClipAsset{
		ID:                  id,
		Path:                clip,
		Title:               hl.Title,
		SourceLabel:         label,
		DurationHintSeconds: s.LengthSeconds,
		Tier:                tier,
	}, nil
}

func (s *Sourcer) trim(ctx context.Context, id, raw, dest string) error {
	if s.Runner == nil {
		return errors.New("no process runner configured")
	}
	logDir := s.LogsDir
	if logDir == "" {
		logDir = filepath.Dir(dest)
	}
	logFile, logPath, err := cache.OpenProcessLog(logDir, "trim_"+id+".log")
	if err != nil {
		return err
	}
	defer logFile.Close()

	args := render.BuildTrimArgs(s.Profile, raw, s.SkipSeconds, s.LengthSeconds, dest)
	if _, err := s.Runner.Run(ctx, s.FFmpeg, args, cache.RunOptions{Stderr: logFile}); err != nil {
		return fmt.Errorf("ffmpeg trim failed: %w (see %s)", err, logPath)
	}
	return nil
}
