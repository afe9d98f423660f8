package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"broadcast/internal/cache"
	"broadcast/internal/sources"
	"broadcast/internal/tools"
	"broadcast/internal/tui"
)

var (
	clipsTeams      []string
	clipsMax        int
	clipsGame       int
	clipsNoProgress bool
)

func newClipsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clips",
		Short: "Resolve highlight clips for a context without rendering",
		Long: "Look up highlight clips the way generate would: the --game fixture when\n" +
			"given, head-to-head games when two teams are given, then each team's games,\n" +
			"then the curated pool. Clips are downloaded and trimmed into the cache.",
		Args: cobra.NoArgs,
		RunE: runClips,
	}
	cmd.Flags().StringSliceVar(&clipsTeams, "team", nil, "Team to prefer (repeat or comma-separate for a head-to-head)")
	cmd.Flags().IntVar(&clipsMax, "max", 0, "Maximum clips (default from config)")
	cmd.Flags().IntVar(&clipsGame, "game", 0, "Take clips from this game (MLB gamePk) first")
	cmd.Flags().BoolVar(&clipsNoProgress, "no-progress", false, "Disable the status spinner")
	return cmd
}

func runClips(cmd *cobra.Command, _ []string) error {
	if len(clipsTeams) > 2 {
		return fmt.Errorf("at most two teams, got %d", len(clipsTeams))
	}
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	c, err := ws.openCache()
	if err != nil {
		return err
	}
	if _, err := tools.Lookup("ffmpeg"); err != nil {
		return err
	}

	cc := sources.Curated()
	switch len(clipsTeams) {
	case 1:
		cc = sources.ForTeam(clipsTeams[0])
	case 2:
		cc = sources.HeadToHead(clipsTeams[0], clipsTeams[1])
	}
	if clipsGame > 0 {
		cc = cc.ForGame(clipsGame)
	}
	limit := clipsMax
	if limit <= 0 {
		limit = ws.config.Sources.MaxClips
	}

	client := sources.NewClient(ws.config, nil, ws.logger)
	sourcer := sources.NewSourcer(ws.config, client, c, cache.CmdRunner{}, tools.LookupOr("ffmpeg"), ws.paths.LogsDir, ws.logger)

	out := cmd.OutOrStdout()
	var sw *tui.StatusWriter
	if tui.DetectMode(out, clipsNoProgress, outputJSON) == tui.ModeTUI {
		sw = tui.NewStatusWriter(out)
		sw.Update(fmt.Sprintf("resolving clips (%s)", cc))
	}
	clips, err := sourcer.ResolveClips(cmd.Context(), cc, limit)
	if sw != nil {
		sw.Stop()
	}
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(out, struct {
			Context string              `json:"context"`
			Clips   []sources.ClipAsset `json:"clips"`
		}{Context: cc.String(), Clips: clips})
	}

	if len(clips) == 0 {
		fmt.Fprintf(out, "no clips found for %s\n", cc)
		return nil
	}
	rows := make([][]string, 0, len(clips))
	for i, clip := range clips {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			clip.ID,
			string(clip.Tier),
			nonEmptyOrDash(clip.SourceLabel),
			tui.TruncateWithEllipsis(nonEmptyOrDash(clip.Title), 48),
			fmt.Sprintf("%.1fs", clip.DurationHintSeconds),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "ID", "Tier", "Game", "Title", "Length"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}
