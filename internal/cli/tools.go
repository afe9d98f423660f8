package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"broadcast/internal/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Check the external tools the pipeline shells out to",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
}

func runTools(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	infos := tools.Probe(ctx)
	missing := tools.MissingRequired(infos)

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), infos); err != nil {
			return err
		}
	} else {
		printToolTable(cmd, infos)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
	return nil
}

func printToolTable(cmd *cobra.Command, infos []tools.ToolInfo) {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		ok := "yes"
		if !info.Available {
			ok = "no"
		}
		required := "optional"
		if info.Required {
			required = "required"
		}
		path := info.Path
		if path == "" {
			path = "(missing)"
		}
		rows = append(rows, []string{info.Name, ok, nonEmptyOrDash(info.Version), required, info.Purpose, path})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Tool", "OK", "Version", "Need", "Purpose", "Path"}, rows, nil))

	for _, info := range infos {
		if info.Available {
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", info.Name, nonEmptyOrDash(info.Error))
		for _, hint := range tools.InstallHints(info.Name) {
			fmt.Fprintf(out, "  %s\n", hint)
		}
		if info.Name == "ffprobe" {
			fmt.Fprintln(out, "  without ffprobe, narration lengths fall back to word-count estimates")
		}
	}
}
