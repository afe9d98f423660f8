package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"broadcast/internal/config"
	"broadcast/internal/script"
)

var (
	sampleSource scriptSource
	sampleFormat string
)

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Create and check slide scripts",
	}
	cmd.AddCommand(newScriptSampleCmd())
	cmd.AddCommand(newScriptValidateCmd())
	return cmd
}

func newScriptSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample [output]",
		Short: "Write a sample or template-built script",
		Long: "Write the built-in sample script, or a team/matchup preview when --team or\n" +
			"--matchup is set. Without an output path the script is printed to stdout.",
		Args: cobra.MaximumNArgs(1),
		RunE: runScriptSample,
	}
	cmd.Flags().StringVar(&sampleSource.team, "team", "", "Build a team preview for this team")
	cmd.Flags().StringSliceVar(&sampleSource.matchup, "matchup", nil, "Build a matchup preview for two teams")
	cmd.Flags().StringVar(&sampleSource.pool, "pool", "", "Pool label shown on matchup previews")
	cmd.Flags().StringVar(&sampleSource.teamsFile, "teams-file", "teams.yaml", "Team profiles used by --team and --matchup")
	cmd.Flags().StringVar(&sampleFormat, "format", "json", "Stdout format: json or yaml")
	return cmd
}

func runScriptSample(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	src := sampleSource
	src.sample = strings.TrimSpace(src.team) == "" && len(src.matchup) == 0
	s, _, err := src.build(ws, nil)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		path := config.ResolvePath(ws.paths.Root, args[0])
		if err := s.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d slides)\n", path, len(s.Slides))
		return nil
	}

	var data []byte
	switch strings.ToLower(sampleFormat) {
	case "yaml", "yml":
		data, err = yaml.Marshal(&s)
	case "json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		return fmt.Errorf("unknown format %q", sampleFormat)
	}
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
	return nil
}

func newScriptValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <script>",
		Short: "Check a script for problems without rendering",
		Args:  cobra.ExactArgs(1),
		RunE:  runScriptValidate,
	}
}

type validationIssue struct {
	Slide   int    `json:"slide"`
	Field   string `json:"field,omitempty"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func runScriptValidate(cmd *cobra.Command, args []string) error {
	s, err := script.Load(args[0])
	if err != nil {
		return err
	}
	issues := s.Validate()
	fatal := issues.Fatal()

	if outputJSON {
		payload := struct {
			Script string            `json:"script"`
			Title  string            `json:"title"`
			Slides int               `json:"slides"`
			Valid  bool              `json:"valid"`
			Issues []validationIssue `json:"issues"`
		}{
			Script: args[0],
			Title:  s.Title,
			Slides: len(s.Slides),
			Valid:  len(fatal) == 0,
			Issues: make([]validationIssue, 0, len(issues)),
		}
		for _, issue := range issues {
			level := config.LevelError
			if issue.Warning {
				level = config.LevelWarning
			}
			payload.Issues = append(payload.Issues, validationIssue{Slide: issue.Slide, Field: issue.Field, Level: level, Message: issue.Message})
		}
		if err := writeJSON(cmd.OutOrStdout(), payload); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, issue := range issues {
			level := "error"
			if issue.Warning {
				level = "warning"
			}
			fmt.Fprintf(out, "%s: %s\n", level, issue.Error())
		}
		if len(fatal) == 0 {
			fmt.Fprintf(out, "%s: %d slides, %d warnings\n", args[0], len(s.Slides), len(issues))
		}
	}

	if len(fatal) > 0 {
		return fmt.Errorf("%s has %d error(s)", args[0], len(fatal))
	}
	return nil
}
