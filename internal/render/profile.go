package render

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"broadcast/internal/config"
)

// Profile is the fixed encoding every segment shares. Stream-copy concat only
// works when all inputs agree on it.
type Profile struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	FPS              int    `json:"fps"`
	VideoCodec       string `json:"video_codec"`
	Preset           string `json:"preset"`
	CRF              int    `json:"crf"`
	Background       string `json:"background"`
	AudioCodec       string `json:"audio_codec"`
	AudioBitrateKbps int    `json:"audio_bitrate_kbps"`
	SampleRate       int    `json:"sample_rate"`
}

// ProfileFromConfig derives the encoding profile from configuration.
func ProfileFromConfig(cfg config.Config) Profile {
	return Profile{
		Width:            cfg.Video.Width,
		Height:           cfg.Video.Height,
		FPS:              cfg.Video.FPS,
		VideoCodec:       cfg.Video.Codec,
		Preset:           cfg.Video.Preset,
		CRF:              cfg.Video.CRF,
		Background:       strings.TrimPrefix(strings.TrimSpace(cfg.Video.Background), "#"),
		AudioCodec:       cfg.Audio.ACodec,
		AudioBitrateKbps: cfg.Audio.BitrateKbps,
		SampleRate:       cfg.Audio.SampleRate,
	}
}

// FrameInterval is the length of one frame in seconds.
func (p Profile) FrameInterval() float64 {
	if p.FPS <= 0 {
		return 0
	}
	return 1 / float64(p.FPS)
}

// Hash returns a deterministic digest of the profile. Cached derivatives
// carry it in their id so a profile change never reuses stale encodes.
func (p Profile) Hash() string {
	return hashJSON(p)
}

// ShortHash is the first twelve hex digits of Hash.
func (p Profile) ShortHash() string {
	h := strings.TrimPrefix(p.Hash(), "sha256:")
	if len(h) > 12 {
		h = h[:12]
	}
	return h
}

func hashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("sha256:error-%v", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", sum)
}
