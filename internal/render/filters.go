package render

import (
	"fmt"
	"math"
	"strconv"
)

// Ken Burns zoom applied to classic slides.
const (
	classicZoomStart = 1.0
	classicZoomEnd   = 1.15
)

// FitFilter scales any input into the frame without distortion, pads with the
// background color and locks the frame rate.
func FitFilter(p Profile) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s,setsar=1,fps=%d",
		p.Width, p.Height, p.Width, p.Height, p.Background, p.FPS,
	)
}

// BuildSegmentFilterGraph composes input 0 (looped clip), input 1 (overlay
// still) and input 2 (narration) into [vout] and [aout].
func BuildSegmentFilterGraph(p Profile) string {
	return fmt.Sprintf("[0:v]%s[bg];[bg][1:v]overlay=0:0:format=auto[vout];[2:a]%s[aout]",
		FitFilter(p), BuildAudioFilters(p))
}

// BuildAudioFilters pads narration with silence so a short track never ends
// the stream before -t does, and resamples to the profile rate.
func BuildAudioFilters(p Profile) string {
	return fmt.Sprintf("apad,aresample=%d", p.SampleRate)
}

// BuildZoomFilter is the classic still-image zoom for a segment of the given
// duration.
func BuildZoomFilter(p Profile, duration float64) string {
	frames := FrameCount(p, duration)
	step := (classicZoomEnd - classicZoomStart) / float64(frames)
	return fmt.Sprintf(
		"scale=%d:%d,zoompan=z='min(zoom+%s,%s)':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d:fps=%d,setsar=1",
		p.Width, p.Height, formatFloat(step), formatFloat(classicZoomEnd), frames, p.Width, p.Height, p.FPS,
	)
}

// FrameCount is the number of frames covering duration, never less than one.
func FrameCount(p Profile, duration float64) int {
	frames := int(math.Ceil(duration * float64(p.FPS)))
	if frames < 1 {
		return 1
	}
	return frames
}

// BuildSegmentArgs returns the ffmpeg arguments for a broadcast segment.
func BuildSegmentArgs(p Profile, clip, overlay, audio string, duration float64, out string) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-stream_loop", "-1", "-i", clip,
		"-loop", "1", "-framerate", strconv.Itoa(p.FPS), "-i", overlay,
		"-i", audio,
		"-filter_complex", BuildSegmentFilterGraph(p),
		"-map", "[vout]",
		"-map", "[aout]",
	}
	args = append(args, encodeArgs(p, duration)...)
	return append(args, out)
}

// BuildClassicArgs returns the ffmpeg arguments for a slide segment: a slow
// zoom, or a still frame fitted to the profile when still is set.
func BuildClassicArgs(p Profile, slide, audio string, duration float64, still bool, out string) []string {
	video := BuildZoomFilter(p, duration)
	if still {
		video = FitFilter(p)
	}
	graph := fmt.Sprintf("[0:v]%s[vout];[1:a]%s[aout]", video, BuildAudioFilters(p))
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loop", "1", "-framerate", strconv.Itoa(p.FPS), "-i", slide,
		"-i", audio,
		"-filter_complex", graph,
		"-map", "[vout]",
		"-map", "[aout]",
	}
	args = append(args, encodeArgs(p, duration)...)
	return append(args, out)
}

// BuildNormalizeArgs re-encodes a b-roll clip to the profile. Without an
// audio stream a silent track is generated so every timeline entry carries
// audio.
func BuildNormalizeArgs(p Profile, clip string, hasAudio bool, out string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", clip}
	if !hasAudio {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", p.SampleRate),
		)
	}
	args = append(args, "-vf", FitFilter(p), "-map", "0:v:0")
	if hasAudio {
		args = append(args, "-map", "0:a:0")
	} else {
		args = append(args, "-map", "1:a:0", "-shortest")
	}
	args = append(args, encodeArgs(p, 0)...)
	return append(args, out)
}

// BuildTrimArgs cuts length seconds starting at skip from a downloaded
// highlight and fits it to the profile. Audio is kept when present.
func BuildTrimArgs(p Profile, in string, skip, length float64, out string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	if skip > 0 {
		args = append(args, "-ss", formatFloat(skip))
	}
	args = append(args,
		"-i", in,
		"-vf", FitFilter(p),
		"-map", "0:v:0",
		"-map", "0:a:0?",
	)
	args = append(args, encodeArgs(p, length)...)
	return append(args, out)
}

func encodeArgs(p Profile, duration float64) []string {
	args := []string{"-c:v", p.VideoCodec}
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	args = append(args,
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(p.FPS),
		"-c:a", p.AudioCodec,
		"-b:a", fmt.Sprintf("%dk", p.AudioBitrateKbps),
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", "2",
	)
	if duration > 0 {
		args = append(args, "-t", formatFloat(duration))
	}
	return append(args, "-movflags", "+faststart")
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
