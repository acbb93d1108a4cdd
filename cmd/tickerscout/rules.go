package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roundlot/ticker-scout/internal/cli"
	"github.com/roundlot/ticker-scout/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List classification rules",
		RunE:  runRulesList,
	}
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ruleSet, err := store.GetRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	if len(ruleSet) == 0 {
		cmd.Println(cli.SubtleStyle.Render("No rules configured."))
		return nil
	}

	cmd.Println(cli.TitleStyle.Render(fmt.Sprintf("Classification Rules (%d)", len(ruleSet))))
	cmd.Printf("%-6s %-25s %-10s %-8s %-22s %-6s %s\n",
		"ID", "PATTERN", "MATCH", "TICKER", "COMPANY", "CONF", "PRIORITY")
	for _, r := range ruleSet {
		cmd.Printf("%-6d %-25s %-10s %-8s %-22s %-6.0f %d\n",
			r.ID, truncate(r.Pattern, 25), r.MatchType, r.Ticker,
			truncate(r.CanonicalName, 22), r.BaseConfidence, r.Priority)
	}

	return nil
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add PATTERN TICKER",
		Short: "Add a classification rule",
		Long: `Adds a rule mapping a merchant pattern to a ticker. The pattern is
normalized the same way merchant names are at classification time, so
"Starbucks  coffee" and "STARBUCKS COFFEE" define the same rule.`,
		Args: cobra.ExactArgs(2),
		RunE: runRulesAdd,
	}

	cmd.Flags().String("match", string(model.MatchPrefix), "match type (exact, prefix, substring, fuzzy)")
	cmd.Flags().String("company", "", "canonical company name")
	cmd.Flags().String("category", "", "spending category")
	cmd.Flags().Float64("confidence", 95, "base confidence (0-100)")
	cmd.Flags().Int("priority", 100, "tie-break priority within a match tier (lower wins)")

	return cmd
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	matchType, _ := cmd.Flags().GetString("match")
	company, _ := cmd.Flags().GetString("company")
	category, _ := cmd.Flags().GetString("category")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	priority, _ := cmd.Flags().GetInt("priority")

	mt := model.MatchType(matchType)
	switch mt {
	case model.MatchExact, model.MatchPrefix, model.MatchSubstring, model.MatchFuzzy:
	default:
		return fmt.Errorf("invalid match type: %s", matchType)
	}
	if confidence < 0 || confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %.1f", confidence)
	}

	ticker := strings.ToUpper(strings.TrimSpace(args[1]))
	if ticker == "" {
		return fmt.Errorf("ticker must not be empty")
	}
	if company == "" {
		company = ticker
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rule := &model.Rule{
		Pattern:        args[0],
		MatchType:      mt,
		Ticker:         ticker,
		CanonicalName:  company,
		Category:       category,
		BaseConfidence: confidence,
		Priority:       priority,
	}

	if err := store.SaveRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	cmd.Println(cli.SuccessStyle.Render(
		fmt.Sprintf("✓ Rule %d added: %s %s → %s", rule.ID, rule.MatchType, rule.Pattern, rule.Ticker)))

	return nil
}
