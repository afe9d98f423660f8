package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"broadcast/internal/config"
	"broadcast/internal/pipeline"
	"broadcast/internal/script"
	"broadcast/internal/sources"
	"broadcast/internal/tui"
)

// scriptSource selects where a command's script comes from: a file argument,
// or one of the built-in templates.
type scriptSource struct {
	sample    bool
	team      string
	matchup   []string
	pool      string
	teamsFile string
	context   string
	game      int
}

func (s *scriptSource) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.sample, "sample", false, "Use the built-in sample script")
	cmd.Flags().StringVar(&s.team, "team", "", "Build a team preview for this team")
	cmd.Flags().StringSliceVar(&s.matchup, "matchup", nil, "Build a matchup preview for two teams, e.g. --matchup Japan,Korea")
	cmd.Flags().StringVar(&s.pool, "pool", "", "Pool label shown on matchup previews")
	cmd.Flags().StringVar(&s.teamsFile, "teams-file", "teams.yaml", "Team profiles used by --team and --matchup")
	cmd.Flags().StringVar(&s.context, "context", "", "Clip context override: curated, team or matchup")
	cmd.Flags().IntVar(&s.game, "game", 0, "Take clips from this game (MLB gamePk) before any team lookup")
}

// build resolves the script and clip context. A script file argument wins;
// otherwise exactly one template flag must be set.
func (s *scriptSource) build(ws *workspace, args []string) (script.Script, sources.ClipContext, error) {
	b := pipeline.Batch{Dir: ws.paths.Root}
	job := pipeline.Job{Context: s.context, Pool: s.pool, Game: s.game}

	templates := 0
	if s.sample {
		templates++
		job.Template = pipeline.TemplateSample
	}
	if strings.TrimSpace(s.team) != "" {
		templates++
		job.Template = pipeline.TemplateTeam
		job.Teams = []string{s.team}
	}
	if len(s.matchup) > 0 {
		templates++
		job.Template = pipeline.TemplateMatchup
		job.Teams = s.matchup
	}

	switch {
	case len(args) == 1 && templates > 0:
		return script.Script{}, sources.ClipContext{}, errors.New("pass a script file or a template flag, not both")
	case len(args) == 1:
		job.Template = pipeline.TemplateScript
		job.Script = args[0]
		if s.team != "" {
			job.Teams = []string{s.team}
		}
	case templates == 0:
		return script.Script{}, sources.ClipContext{}, errors.New("no script: pass a script file or one of --sample, --team, --matchup")
	case templates > 1:
		return script.Script{}, sources.ClipContext{}, errors.New("--sample, --team and --matchup are mutually exclusive")
	}

	if job.Template == pipeline.TemplateTeam || job.Template == pipeline.TemplateMatchup {
		teams, err := script.LoadTeams(config.ResolvePath(ws.paths.Root, s.teamsFile))
		if err != nil {
			return script.Script{}, sources.ClipContext{}, err
		}
		b.Teams = teams
	}
	return b.Build(job, branding(ws.config))
}

func branding(cfg config.Config) script.Branding {
	return script.Branding{Brand: cfg.Overlay.Brand, Event: cfg.Overlay.Tagline}
}

var (
	generateSource      scriptSource
	generateOutput      string
	generateMode        string
	generateConcurrency int
	generateMaxClips    int
	generateKeepWork    bool
	generateNoZoom      bool
	generateNoProgress  bool
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [script.json|script.yaml]",
		Short: "Render a script into a finished video",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGenerate,
	}

	generateSource.register(cmd)
	cmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: slug of the script title in the output directory)")
	cmd.Flags().StringVar(&generateMode, "mode", "", "Composition mode: broadcast, classic or auto (default from config)")
	cmd.Flags().IntVar(&generateConcurrency, "concurrency", 0, "Workers per stage (default from config)")
	cmd.Flags().IntVar(&generateMaxClips, "max-clips", 0, "Maximum highlight clips to source (default from config)")
	cmd.Flags().BoolVar(&generateKeepWork, "keep-work", false, "Keep the run's scratch directory after success")
	cmd.Flags().BoolVar(&generateNoZoom, "no-zoom", false, "Hold classic slides still instead of zooming")
	cmd.Flags().BoolVar(&generateNoProgress, "no-progress", false, "Disable interactive progress output")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	s, cc, err := generateSource.build(ws, args)
	if err != nil {
		return err
	}
	if err := requireTools(cmd); err != nil {
		return err
	}
	p, err := ws.newPipeline()
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Output:      generateOutput,
		Mode:        generateMode,
		Clips:       cc,
		MaxClips:    generateMaxClips,
		Concurrency: generateConcurrency,
		KeepWork:    generateKeepWork,
		NoZoom:      generateNoZoom,
	}

	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, generateNoProgress, outputJSON)

	var (
		res    pipeline.Result
		runErr error
	)
	switch mode {
	case tui.ModeJSON:
		res, runErr = p.Run(cmd.Context(), s, opts)
		if runErr != nil {
			return runErr
		}
		return writeJSON(out, res)

	case tui.ModeTUI:
		res, runErr = runGenerateTUI(cmd.Context(), out, p, s, opts)

	default:
		fmt.Fprintf(out, "Generating %q (%d slides, clips: %s)\n", s.Title, len(s.Slides), cc)
		opts.Reporter = newLineReporter(out)
		res, runErr = p.Run(cmd.Context(), s, opts)
	}
	if runErr != nil {
		if res.WorkDir != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "work kept at %s\n", res.WorkDir)
		}
		return runErr
	}
	writeGenerateSummary(out, res)
	return nil
}

func runGenerateTUI(ctx context.Context, out io.Writer, p *pipeline.Pipeline, s script.Script, opts pipeline.Options) (pipeline.Result, error) {
	model := tui.NewSlideModel(s.Title, s.Slides)
	var res pipeline.Result
	err := tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) error {
		opts.Reporter = tui.NewPipelineReporter(send)
		var err error
		res, err = p.Run(ctx, s, opts)
		return err
	})
	return res, err
}

func writeGenerateSummary(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "wrote %s (%s mode, %.1fs, %d segments) in %s\n",
		res.Output, res.Mode, res.Video.DurationSeconds, len(res.Video.Segments), res.Elapsed.Round(time.Second))
	if len(res.Clips) > 0 {
		fmt.Fprintf(w, "clips: %d (%s tier)\n", len(res.Clips), res.Clips[0].Tier)
	}
	if len(res.Degraded) > 0 {
		fmt.Fprintf(w, "slides without headshots: %v\n", res.Degraded)
	}
	if res.WorkDir != "" {
		fmt.Fprintf(w, "work kept at %s\n", res.WorkDir)
	}
	if size, ok := fileSize(res.Output); ok {
		fmt.Fprintf(w, "size: %s\n", humanize.Bytes(uint64(size)))
	}
}

// lineReporter prints one line per stage and per notable slide event. It is
// used when stdout is not a terminal.
type lineReporter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
	at  time.Time
}

func newLineReporter(w io.Writer) *lineReporter {
	return &lineReporter{w: w, now: time.Now}
}

func (r *lineReporter) StageStarted(stage pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.at = r.now()
	fmt.Fprintf(r.w, "%s...\n", stage)
}

func (r *lineReporter) StageFinished(stage pipeline.Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := r.now().Sub(r.at).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(r.w, "%s failed after %s\n", stage, elapsed)
		return
	}
	fmt.Fprintf(r.w, "%s done in %s\n", stage, elapsed)
}

func (r *lineReporter) SlideStatus(stage pipeline.Stage, index int, status, detail string) {
	if status != pipeline.StatusDegraded && status != pipeline.StatusError {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "  slide %03d %s: %s\n", index, status, detail)
}
