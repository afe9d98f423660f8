package narration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"broadcast/internal/cache"
)

// Engine turns text into a speech audio file at outPath.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// EdgeTTS shells out to the edge-tts command line client.
type EdgeTTS struct {
	Runner  cache.Runner
	Command string
	// LogsDir receives one log per invocation; empty discards tool output.
	LogsDir string
}

// NewEdgeTTS returns an engine using command (defaults to "edge-tts").
func NewEdgeTTS(runner cache.Runner, command, logsDir string) *EdgeTTS {
	if runner == nil {
		runner = cache.CmdRunner{}
	}
	if strings.TrimSpace(command) == "" {
		command = "edge-tts"
	}
	return &EdgeTTS{Runner: runner, Command: command, LogsDir: logsDir}
}

func (e *EdgeTTS) Name() string { return "edge-tts" }

func (e *EdgeTTS) Synthesize(ctx context.Context, text, voice, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("narration text is empty")
	}
	args := []string{
		"--voice", voice,
		"--text", text,
		"--write-media", outPath,
	}

	opts := cache.RunOptions{}
	logPath := ""
	if e.LogsDir != "" {
		stem := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
		logFile, path, err := cache.OpenProcessLog(e.LogsDir, "tts_"+strings.TrimPrefix(stem, "slide_")+".log")
		if err != nil {
			return err
		}
		defer logFile.Close()
		opts.Stdout, opts.Stderr = logFile, logFile
		logPath = path
	}

	if _, err := e.Runner.Run(ctx, e.Command, args, opts); err != nil {
		if logPath != "" {
			return fmt.Errorf("edge-tts: %w (see %s)", err, logPath)
		}
		return fmt.Errorf("edge-tts: %w", err)
	}
	return nil
}

var _ Engine = (*EdgeTTS)(nil)
