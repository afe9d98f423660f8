package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type probeRunner struct {
	stdout string
	err    error
	args   []string
}

func (p *probeRunner) Run(_ context.Context, command string, args []string, _ RunOptions) (RunResult, error) {
	if filepath.Base(command) != "ffprobe" {
		return RunResult{}, errors.New("unexpected command " + command)
	}
	p.args = append([]string(nil), args...)
	return RunResult{Stdout: []byte(p.stdout)}, p.err
}

func TestProberDuration(t *testing.T) {
	runner := &probeRunner{stdout: "12.533333\n"}
	p := Prober{Runner: runner, Command: "/usr/bin/ffprobe"}
	got, err := p.Duration(context.Background(), "seg.mp4")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if got != 12.533333 {
		t.Fatalf("unexpected duration %v", got)
	}
	if runner.args[len(runner.args)-1] != "seg.mp4" {
		t.Fatalf("expected path as last arg, got %v", runner.args)
	}

	runner.stdout = "N/A"
	if _, err := p.Duration(context.Background(), "seg.mp4"); err == nil {
		t.Fatal("expected error for N/A duration")
	}
}

func TestProberUnavailable(t *testing.T) {
	if _, err := (Prober{}).Duration(context.Background(), "x"); !errors.Is(err, ErrProbeUnavailable) {
		t.Fatalf("expected ErrProbeUnavailable, got %v", err)
	}
}

func TestProberHasAudio(t *testing.T) {
	runner := &probeRunner{stdout: "audio\n"}
	p := Prober{Runner: runner, Command: "ffprobe"}
	ok, err := p.HasAudio(context.Background(), "clip.mp4")
	if err != nil || !ok {
		t.Fatalf("expected audio, got %v %v", ok, err)
	}
	runner.stdout = ""
	ok, err = p.HasAudio(context.Background(), "clip.mp4")
	if err != nil || ok {
		t.Fatalf("expected no audio, got %v %v", ok, err)
	}
}
