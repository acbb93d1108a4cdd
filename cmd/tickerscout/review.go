package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roundlot/ticker-scout/internal/cli"
	"github.com/roundlot/ticker-scout/internal/engine"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/refdata"
	"github.com/roundlot/ticker-scout/internal/service"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review queued merchant mappings",
	}

	cmd.AddCommand(reviewListCmd())
	cmd.AddCommand(reviewApproveCmd())
	cmd.AddCommand(reviewRejectCmd())

	return cmd
}

func reviewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mappings awaiting review",
		RunE:  runReviewList,
	}

	cmd.Flags().String("status", string(model.StatusNeedsReview), "status filter (pending, needs_review, auto_applied, approved, rejected)")
	cmd.Flags().Int("limit", 20, "maximum records to show")
	cmd.Flags().Int("offset", 0, "pagination offset")

	return cmd
}

func runReviewList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	records, err := store.GetQueue(ctx, service.QueueFilter{
		Status: model.MappingStatus(status),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}

	if len(records) == 0 {
		cmd.Println(cli.SubtleStyle.Render("No mappings match the filter"))
		return nil
	}

	cmd.Println(cli.TitleStyle.Render(fmt.Sprintf("Mappings (%s)", status)))
	for _, record := range records {
		ticker := record.Ticker
		if ticker == "" {
			ticker = "?"
		}
		line := fmt.Sprintf("  %s  %-30s -> %-6s %3.0f%%  %s",
			record.ID[:8],
			truncate(record.MerchantName, 30),
			ticker,
			record.Confidence,
			cli.StatusStyle(record.Status).Render(string(record.Status)))
		cmd.Println(line)
		if record.AIRequested {
			evidence := aiEvidence(cmd, store, record.ID)
			if evidence != "" {
				cmd.Println(cli.SubtleStyle.Render("           " + truncate(evidence, 70)))
			}
		}
	}

	return nil
}

// aiEvidence surfaces the latest AI reasoning for a mapping, if any. Raw
// transport errors are never shown to reviewers.
func aiEvidence(cmd *cobra.Command, store service.Storage, mappingID string) string {
	exchanges, err := store.GetExchangesByMapping(cmd.Context(), mappingID)
	if err != nil || len(exchanges) == 0 {
		return ""
	}
	latest := exchanges[0]
	if latest.IsError {
		return "AI opinion unavailable"
	}
	if latest.Reasoning != "" {
		return "AI: " + latest.Reasoning
	}
	return ""
}

func reviewApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <mapping-id>",
		Short: "Approve a queued mapping",
		Args:  cobra.ExactArgs(1),
		RunE:  runReviewApprove,
	}

	cmd.Flags().String("actor", "", "reviewer identity (required)")
	cmd.Flags().String("note", "", "optional note")
	cmd.Flags().String("ticker", "", "override the suggested ticker")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	actor, _ := cmd.Flags().GetString("actor")
	note, _ := cmd.Flags().GetString("note")
	ticker, _ := cmd.Flags().GetString("ticker")

	moderator := engine.NewModerator(store, refdata.DefaultReferenceData(), slog.Default())
	mapping, err := moderator.Approve(ctx, args[0], actor, note, ticker)
	if err != nil {
		return err
	}

	cmd.Println(cli.SuccessStyle.Render(
		fmt.Sprintf("Approved: %s -> %s (%s)", mapping.MerchantName, mapping.Ticker, mapping.Category)))

	return nil
}

func reviewRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <mapping-id>",
		Short: "Reject a queued mapping",
		Args:  cobra.ExactArgs(1),
		RunE:  runReviewReject,
	}

	cmd.Flags().String("actor", "", "reviewer identity (required)")
	cmd.Flags().String("reason", "", "optional rejection reason")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	actor, _ := cmd.Flags().GetString("actor")
	reason, _ := cmd.Flags().GetString("reason")

	moderator := engine.NewModerator(store, refdata.DefaultReferenceData(), slog.Default())
	mapping, err := moderator.Reject(ctx, args[0], actor, reason)
	if err != nil {
		return err
	}

	cmd.Println(cli.ErrorStyle.Render(
		fmt.Sprintf("Rejected: %s (%s)", mapping.MerchantName, mapping.ID[:8])))

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
