package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/logx"
	"broadcast/internal/paths"
	"broadcast/internal/pipeline"
	"broadcast/internal/tools"
)

// workspace is the resolved project state shared by every command.
type workspace struct {
	paths  paths.ProjectPaths
	config config.Config
	logger *log.Logger
	closer io.Closer
	cache  *cache.Cache
}

// loadWorkspace resolves the project, loads .env files and configuration and
// opens the run log. Configuration errors fail the command; warnings are
// written to stderr.
func loadWorkspace(cmd *cobra.Command) (*workspace, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(pp.Root); err != nil {
		return nil, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	results := cfg.Validate(pp.Root)
	for _, r := range results {
		if r.Level == config.LevelWarning {
			fmt.Fprintf(cmd.ErrOrStderr(), "config warning: %s\n", r.Message)
		}
	}
	if config.HasErrors(results) {
		var msgs []string
		for _, r := range results {
			if r.Level == config.LevelError {
				msgs = append(msgs, r.Message)
			}
		}
		return nil, fmt.Errorf("invalid config %s: %s", pp.ConfigFile, strings.Join(msgs, "; "))
	}
	pp = paths.ApplyConfig(pp, cfg)

	logger, closer, err := logx.New(pp)
	if err != nil {
		return nil, err
	}
	return &workspace{paths: pp, config: cfg, logger: logger, closer: closer}, nil
}

// openCache opens the disk cache and its catalog.
func (w *workspace) openCache() (*cache.Cache, error) {
	if w.cache != nil {
		return w.cache, nil
	}
	c, err := cache.Open(w.paths.CacheDir, w.logger)
	if err != nil {
		return nil, err
	}
	w.cache = c
	return c, nil
}

// newPipeline wires a pipeline against real tools and the disk cache.
func (w *workspace) newPipeline() (*pipeline.Pipeline, error) {
	c, err := w.openCache()
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Config: w.config,
		Paths:  w.paths,
		Cache:  c,
		Runner: cache.CmdRunner{},
		Tools: pipeline.Tools{
			FFmpeg:  tools.LookupOr("ffmpeg"),
			FFprobe: tools.LookupOr("ffprobe"),
			EdgeTTS: tools.LookupOr("edge-tts"),
		},
		Logger: w.logger,
	}, nil
}

func (w *workspace) Close() error {
	var errs []error
	if w.cache != nil {
		errs = append(errs, w.cache.Close())
	}
	if w.closer != nil {
		errs = append(errs, w.closer.Close())
	}
	return errors.Join(errs...)
}

// requireTools fails when a required external tool is missing.
func requireTools(cmd *cobra.Command) error {
	missing := tools.MissingRequired(tools.Probe(cmd.Context()))
	if len(missing) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "missing required tools: %s", strings.Join(missing, ", "))
	for _, name := range missing {
		for _, hint := range tools.InstallHints(name) {
			fmt.Fprintf(&b, "\n  %s", hint)
		}
	}
	return errors.New(b.String())
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func nonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
