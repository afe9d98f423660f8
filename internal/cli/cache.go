package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"broadcast/internal/cache"
)

var (
	cacheKind      string
	pruneOlderThan int
	pruneDryRun    bool
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the media cache",
	}

	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePruneCmd())
	return cmd
}

func newCacheListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List catalogued cache entries",
		Args:    cobra.NoArgs,
		RunE:    runCacheList,
	}
	cmd.Flags().StringVar(&cacheKind, "kind", "", "Only list one kind: headshot, clip, raw or normalized")
	return cmd
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	var kind cache.Kind
	if cacheKind != "" {
		k, err := cache.ParseKind(cacheKind)
		if err != nil {
			return err
		}
		kind = k
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

	entries, err := c.Catalog.List(cmd.Context(), kind)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(cache is empty)")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			string(e.Kind),
			e.ID,
			humanize.Bytes(uint64(e.SizeBytes)),
			humanize.Time(e.LastUsedAt),
			nonEmptyOrDash(e.Source),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Kind", "ID", "Size", "Last used", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize cache usage per kind",
		Args:  cobra.NoArgs,
		RunE:  runCacheStats,
	}
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()
	c, err := ws.openCache()
	if err != nil {
		return err
	}

	stats, err := c.Catalog.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Root  string            `json:"root"`
			Kinds []cache.KindStats `json:"kinds"`
		}{Root: c.Root(), Kinds: stats})
	}

	var (
		rows       [][]string
		totalCount int
		totalBytes int64
	)
	for _, s := range stats {
		rows = append(rows, []string{string(s.Kind), fmt.Sprintf("%d", s.Count), humanize.Bytes(uint64(s.SizeBytes))})
		totalCount += s.Count
		totalBytes += s.SizeBytes
	}
	rows = append(rows, []string{"total", fmt.Sprintf("%d", totalCount), humanize.Bytes(uint64(totalBytes))})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache: %s\n", c.Root())
	fmt.Fprintln(out, renderTable([]string{"Kind", "Entries", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	return nil
}

func newCachePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cache entries that have not been used recently",
		Args:  cobra.NoArgs,
		RunE:  runCachePrune,
	}
	cmd.Flags().IntVar(&pruneOlderThan, "older-than", 0, "Age in days (default: cache.stale_days from config)")
	cmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be removed without deleting")
	return cmd
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()
	c, err := ws.openCache()
	if err != nil {
		return err
	}

	days := pruneOlderThan
	if days <= 0 {
		days = ws.config.Cache.StaleDays
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := c.Catalog.Prune(cmd.Context(), cutoff, pruneDryRun)
	if err != nil {
		return err
	}

	var freed int64
	for _, e := range removed {
		freed += e.SizeBytes
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			DryRun     bool          `json:"dry_run"`
			Cutoff     time.Time     `json:"cutoff"`
			Removed    []cache.Entry `json:"removed"`
			FreedBytes int64         `json:"freed_bytes"`
		}{DryRun: pruneDryRun, Cutoff: cutoff, Removed: removed, FreedBytes: freed})
	}

	out := cmd.OutOrStdout()
	verb := "removed"
	if pruneDryRun {
		verb = "would remove"
	}
	for _, e := range removed {
		fmt.Fprintf(out, "%s %s %s (last used %s)\n", verb, e.Kind, e.ID, humanize.Time(e.LastUsedAt))
	}
	fmt.Fprintf(out, "%s %d entries, %s unused since %s\n", verb, len(removed), humanize.Bytes(uint64(freed)), cutoff.Format(time.DateOnly))
	return nil
}
