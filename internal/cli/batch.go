package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"broadcast/internal/config"
	"broadcast/internal/pipeline"
	"broadcast/internal/tui"
)

var (
	batchConcurrency int
	batchKeepWork    bool
	batchNoProgress  bool
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <batch.yaml>",
		Short: "Render every job in a batch file",
		Long: "Render the jobs of a YAML batch file one after another. A failed job is\n" +
			"reported and the next job starts; the command exits non-zero when any job failed.",
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Workers per stage (default from config)")
	cmd.Flags().BoolVar(&batchKeepWork, "keep-work", false, "Keep each run's scratch directory")
	cmd.Flags().BoolVar(&batchNoProgress, "no-progress", false, "Disable interactive progress output")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	b, err := pipeline.LoadBatch(config.ResolvePath(ws.paths.Root, args[0]))
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

	out := cmd.OutOrStdout()
	opts := pipeline.Options{Concurrency: batchConcurrency, KeepWork: batchKeepWork}

	var onDone func(int, pipeline.JobResult)
	switch tui.DetectMode(out, batchNoProgress, outputJSON) {
	case tui.ModeJSON:
	case tui.ModeTUI:
		sw := tui.NewStatusWriter(out)
		defer sw.Stop()
		opts.Reporter = tui.NewStatusReporter(sw, 0)
		sw.SetPrefix(fmt.Sprintf("job 1/%d %s", len(b.Jobs), pipeline.JobName(b.Jobs[0])))
		onDone = func(i int, res pipeline.JobResult) {
			sw.Line(formatJobLine(i, len(b.Jobs), res))
			if i+1 < len(b.Jobs) {
				sw.SetPrefix(fmt.Sprintf("job %d/%d %s", i+2, len(b.Jobs), pipeline.JobName(b.Jobs[i+1])))
				sw.Update("")
			}
		}
	default:
		onDone = func(i int, res pipeline.JobResult) {
			fmt.Fprintln(out, formatJobLine(i, len(b.Jobs), res))
		}
	}

	results := p.RunBatch(cmd.Context(), b, opts, onDone)

	if outputJSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		writeBatchSummary(out, results)
	}

	failed := 0
	for _, res := range results {
		if res.Status != pipeline.JobOK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch jobs did not complete", failed, len(results))
	}
	return nil
}

func formatJobLine(i, total int, res pipeline.JobResult) string {
	line := fmt.Sprintf("[%d/%d] %s %s (%s)", i+1, total, res.Name, res.Status, res.Duration.Round(time.Second))
	if res.Error != "" {
		line += ": " + res.Error
	}
	return line
}

func writeBatchSummary(w io.Writer, results []pipeline.JobResult) {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		size := "-"
		if n, ok := fileSize(res.Output); ok && res.Status == pipeline.JobOK {
			size = humanize.Bytes(uint64(n))
		}
		video := "-"
		if res.Video > 0 {
			video = fmt.Sprintf("%.1fs", res.Video)
		}
		rows = append(rows, []string{
			res.Name,
			res.Status,
			video,
			size,
			res.Duration.Round(time.Second).String(),
			nonEmptyOrDash(res.Output),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Job", "Status", "Video", "Size", "Took", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

func fileSize(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}
