package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config captures every setting the broadcast pipeline reads. A single value is
// threaded into each component; nothing reads ambient state.
type Config struct {
	Version   int             `yaml:"version" toml:"version"`
	Video     VideoConfig     `yaml:"video" toml:"video"`
	Audio     AudioConfig     `yaml:"audio" toml:"audio"`
	Narration NarrationConfig `yaml:"narration" toml:"narration"`
	Overlay   OverlayConfig   `yaml:"overlay" toml:"overlay"`
	Cache     CacheConfig     `yaml:"cache" toml:"cache"`
	Sources   SourcesConfig   `yaml:"sources" toml:"sources"`
	Pipeline  PipelineConfig  `yaml:"pipeline" toml:"pipeline"`
}

// VideoConfig contains frame sizing, framerate and the encoder profile shared
// by every segment.
type VideoConfig struct {
	Width      int    `yaml:"width" toml:"width"`
	Height     int    `yaml:"height" toml:"height"`
	FPS        int    `yaml:"fps" toml:"fps"`
	Codec      string `yaml:"codec" toml:"codec"`
	Preset     string `yaml:"preset" toml:"preset"`
	CRF        int    `yaml:"crf" toml:"crf"`
	Background string `yaml:"background" toml:"background"`
}

// AudioConfig describes audio encoding parameters.
type AudioConfig struct {
	ACodec      string `yaml:"acodec" toml:"acodec"`
	BitrateKbps int    `yaml:"bitrate_kbps" toml:"bitrate_kbps"`
	SampleRate  int    `yaml:"sample_rate" toml:"sample_rate"`
}

// NarrationConfig controls speech synthesis and duration estimation.
type NarrationConfig struct {
	Engine            string  `yaml:"engine" toml:"engine"`
	Voice             string  `yaml:"voice" toml:"voice"`
	WordsPerMinute    float64 `yaml:"words_per_minute" toml:"words_per_minute"`
	LeadInSeconds     float64 `yaml:"lead_in_s" toml:"lead_in_s"`
	MinSegmentSeconds float64 `yaml:"min_segment_s" toml:"min_segment_s"`
	ToleranceSeconds  float64 `yaml:"tolerance_s" toml:"tolerance_s"`
}

// OverlayConfig groups graphic styling.
type OverlayConfig struct {
	MaxBulletPoints int          `yaml:"max_bullet_points" toml:"max_bullet_points"`
	FontFile        string       `yaml:"font_file" toml:"font_file"`
	BoldFontFile    string       `yaml:"bold_font_file" toml:"bold_font_file"`
	Brand           string       `yaml:"brand" toml:"brand"`
	Tagline         string       `yaml:"tagline" toml:"tagline"`
	CallToAction    string       `yaml:"call_to_action" toml:"call_to_action"`
	Colors          ColorPalette `yaml:"colors" toml:"colors"`
}

// ColorPalette holds hex colors used by the renderer.
type ColorPalette struct {
	Background      string `yaml:"bg" toml:"bg"`
	BackgroundLight string `yaml:"bg_light" toml:"bg_light"`
	Text            string `yaml:"text" toml:"text"`
	TextDim         string `yaml:"text_dim" toml:"text_dim"`
	Accent          string `yaml:"accent" toml:"accent"`
	Blue            string `yaml:"blue" toml:"blue"`
	Green           string `yaml:"green" toml:"green"`
	Red             string `yaml:"red" toml:"red"`
}

// CacheConfig locates the shared media cache.
type CacheConfig struct {
	Dir       string `yaml:"dir" toml:"dir"`
	StaleDays int    `yaml:"stale_days" toml:"stale_days"`
}

// SourcesConfig points clip and headshot lookups at their upstreams.
type SourcesConfig struct {
	StatsBaseURL   string  `yaml:"stats_base_url" toml:"stats_base_url"`
	HeadshotURL    string  `yaml:"headshot_url" toml:"headshot_url"`
	Season         int     `yaml:"season" toml:"season"`
	SportID        int     `yaml:"sport_id" toml:"sport_id"`
	ClipSkipSec    float64 `yaml:"clip_skip_s" toml:"clip_skip_s"`
	ClipLengthSec  float64 `yaml:"clip_length_s" toml:"clip_length_s"`
	MaxClips       int     `yaml:"max_clips" toml:"max_clips"`
	TimeoutSeconds int     `yaml:"timeout_s" toml:"timeout_s"`
}

// PipelineConfig controls run orchestration.
type PipelineConfig struct {
	Mode        string `yaml:"mode" toml:"mode"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency"`
	KeepWork    bool   `yaml:"keep_work" toml:"keep_work"`
	OutputDir   string `yaml:"output_dir" toml:"output_dir"`
	// NoZoom renders classic slides as still frames instead of a slow zoom.
	NoZoom bool `yaml:"no_zoom" toml:"no_zoom"`
}

// Pipeline modes.
const (
	ModeBroadcast = "broadcast"
	ModeClassic   = "classic"
	ModeAuto      = "auto"
)

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Video: VideoConfig{
			Width:      1920,
			Height:     1080,
			FPS:        30,
			Codec:      "libx264",
			Preset:     "veryfast",
			CRF:        20,
			Background: "0c1929",
		},
		Audio: AudioConfig{
			ACodec:      "aac",
			BitrateKbps: 192,
			SampleRate:  48000,
		},
		Narration: NarrationConfig{
			Engine:            "edge-tts",
			Voice:             "en-US-AndrewNeural",
			WordsPerMinute:    150,
			LeadInSeconds:     1.5,
			MinSegmentSeconds: 3,
			ToleranceSeconds:  2,
		},
		Overlay: OverlayConfig{
			MaxBulletPoints: 4,
			Brand:           "GlobalBaseball",
			Tagline:         "WBC 2026",
			CallToAction:    "Like & Subscribe for daily WBC coverage",
			Colors: ColorPalette{
				Background:      "#0c1929",
				BackgroundLight: "#162a4a",
				Text:            "#ffffff",
				TextDim:         "#94a3b8",
				Accent:          "#d4a44c",
				Blue:            "#3b82f6",
				Green:           "#22c55e",
				Red:             "#ef4444",
			},
		},
		Cache: CacheConfig{
			Dir:       "cache",
			StaleDays: 90,
		},
		Sources: SourcesConfig{
			StatsBaseURL:   "https://statsapi.mlb.com",
			HeadshotURL:    "https://securea.mlb.com/mlb/images/players/head_shot/{id}.jpg",
			Season:         2023,
			SportID:        51,
			ClipSkipSec:    1,
			ClipLengthSec:  10,
			MaxClips:       10,
			TimeoutSeconds: 60,
		},
		Pipeline: PipelineConfig{
			Mode:        ModeBroadcast,
			Concurrency: 1,
			OutputDir:   "videos",
		},
	}
}

// Load reads the configuration from disk if it exists, otherwise returns the
// default configuration. Files ending in .toml are decoded as TOML; anything
// else is YAML.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			cfg.ApplyEnv()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if isTOML(path) {
		if err := toml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// file omits them.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Video.Width == 0 {
		c.Video.Width = d.Video.Width
	}
	if c.Video.Height == 0 {
		c.Video.Height = d.Video.Height
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = d.Video.FPS
	}
	if c.Video.Codec == "" {
		c.Video.Codec = d.Video.Codec
	}
	if c.Video.Preset == "" {
		c.Video.Preset = d.Video.Preset
	}
	if c.Video.Background == "" {
		c.Video.Background = d.Video.Background
	}
	if c.Audio.ACodec == "" {
		c.Audio.ACodec = d.Audio.ACodec
	}
	if c.Audio.BitrateKbps == 0 {
		c.Audio.BitrateKbps = d.Audio.BitrateKbps
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Narration.Engine == "" {
		c.Narration.Engine = d.Narration.Engine
	}
	if c.Narration.Voice == "" {
		c.Narration.Voice = d.Narration.Voice
	}
	if c.Narration.WordsPerMinute == 0 {
		c.Narration.WordsPerMinute = d.Narration.WordsPerMinute
	}
	if c.Narration.LeadInSeconds == 0 {
		c.Narration.LeadInSeconds = d.Narration.LeadInSeconds
	}
	if c.Narration.MinSegmentSeconds == 0 {
		c.Narration.MinSegmentSeconds = d.Narration.MinSegmentSeconds
	}
	if c.Narration.ToleranceSeconds == 0 {
		c.Narration.ToleranceSeconds = d.Narration.ToleranceSeconds
	}
	if c.Overlay.MaxBulletPoints == 0 {
		c.Overlay.MaxBulletPoints = d.Overlay.MaxBulletPoints
	}
	if c.Overlay.Brand == "" {
		c.Overlay.Brand = d.Overlay.Brand
	}
	if c.Overlay.Tagline == "" {
		c.Overlay.Tagline = d.Overlay.Tagline
	}
	if c.Overlay.CallToAction == "" {
		c.Overlay.CallToAction = d.Overlay.CallToAction
	}
	c.Overlay.Colors.applyDefaults(d.Overlay.Colors)
	if c.Cache.Dir == "" {
		c.Cache.Dir = d.Cache.Dir
	}
	if c.Cache.StaleDays == 0 {
		c.Cache.StaleDays = d.Cache.StaleDays
	}
	if c.Sources.StatsBaseURL == "" {
		c.Sources.StatsBaseURL = d.Sources.StatsBaseURL
	}
	if c.Sources.HeadshotURL == "" {
		c.Sources.HeadshotURL = d.Sources.HeadshotURL
	}
	if c.Sources.Season == 0 {
		c.Sources.Season = d.Sources.Season
	}
	if c.Sources.SportID == 0 {
		c.Sources.SportID = d.Sources.SportID
	}
	if c.Sources.ClipLengthSec == 0 {
		c.Sources.ClipLengthSec = d.Sources.ClipLengthSec
	}
	if c.Sources.MaxClips == 0 {
		c.Sources.MaxClips = d.Sources.MaxClips
	}
	if c.Sources.TimeoutSeconds == 0 {
		c.Sources.TimeoutSeconds = d.Sources.TimeoutSeconds
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = d.Pipeline.Mode
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = d.Pipeline.Concurrency
	}
	if c.Pipeline.OutputDir == "" {
		c.Pipeline.OutputDir = d.Pipeline.OutputDir
	}
}

func (p *ColorPalette) applyDefaults(d ColorPalette) {
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&p.Background, d.Background)
	fill(&p.BackgroundLight, d.BackgroundLight)
	fill(&p.Text, d.Text)
	fill(&p.TextDim, d.TextDim)
	fill(&p.Accent, d.Accent)
	fill(&p.Blue, d.Blue)
	fill(&p.Green, d.Green)
	fill(&p.Red, d.Red)
}

// FrameInterval returns the duration of one frame in seconds.
func (c Config) FrameInterval() float64 {
	if c.Video.FPS <= 0 {
		return 0
	}
	return 1 / float64(c.Video.FPS)
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// MarshalTOML returns the TOML encoding of the configuration.
func (c Config) MarshalTOML() ([]byte, error) {
	buf, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
