package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roundlot/ticker-scout/internal/cli"
	"github.com/roundlot/ticker-scout/internal/model"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate mapping statistics",
		Long: `Recomputes aggregate statistics from the mapping corpus and prints
them. Stats are derived from a single consistent snapshot of mapping
records, so the counts always add up even while classifications are
being submitted concurrently.`,
		RunE: runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.RecomputeStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	cmd.Println(cli.TitleStyle.Render("Mapping Statistics"))
	cmd.Printf("%s %d\n", cli.BoldStyle.Render("Total mappings:"), stats.TotalMappings)
	cmd.Printf("%s %d\n", cli.BoldStyle.Render("Processed today:"), stats.ProcessedToday)

	statuses := []model.MappingStatus{
		model.StatusPending,
		model.StatusAutoApplied,
		model.StatusNeedsReview,
		model.StatusApproved,
		model.StatusRejected,
	}
	cmd.Println()
	for _, status := range statuses {
		count := stats.ByStatus[status]
		label := cli.StatusStyle(status).Render(string(status))
		cmd.Printf("  %-40s %d\n", label, count)
	}

	if stats.AvgAppliedConfidence > 0 {
		cmd.Printf("\n%s %.1f\n",
			cli.BoldStyle.Render("Avg confidence (approved + auto):"),
			stats.AvgAppliedConfidence)
	}
	cmd.Println(cli.SubtleStyle.Render(fmt.Sprintf("Computed at %s", stats.ComputedAt.Format("2006-01-02 15:04:05"))))

	return nil
}
