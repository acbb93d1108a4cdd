package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roundlot/ticker-scout/internal/cli"
	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/engine"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify merchants into ticker mappings",
		Long: `Submit one transaction for classification, or a CSV file of them.

The CSV format is: transaction_id,user_id,merchant_name,amount[,category_hint]`,
		RunE: runClassify,
	}

	cmd.Flags().String("transaction", "", "transaction ID")
	cmd.Flags().String("user", "", "user ID")
	cmd.Flags().String("merchant", "", "raw merchant name")
	cmd.Flags().String("amount", "0", "transaction amount (decimal dollars)")
	cmd.Flags().String("hint", "", "optional category hint")
	cmd.Flags().String("file", "", "CSV file of transactions to classify")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, cleanup, err := buildEngine(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		return classifyFile(cmd, eng, file)
	}

	transactionID, _ := cmd.Flags().GetString("transaction")
	userID, _ := cmd.Flags().GetString("user")
	merchant, _ := cmd.Flags().GetString("merchant")
	amountStr, _ := cmd.Flags().GetString("amount")
	hint, _ := cmd.Flags().GetString("hint")

	if transactionID == "" || userID == "" {
		return fmt.Errorf("--transaction and --user are required (or use --file)")
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	mappingID, err := eng.Submit(ctx, engine.SubmitRequest{
		TransactionID: transactionID,
		UserID:        userID,
		MerchantName:  merchant,
		CategoryHint:  hint,
		Amount:        amount,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateMapping) {
			return fmt.Errorf("an active mapping already exists for this transaction: %w", err)
		}
		return err
	}

	mapping, err := eng.GetMapping(ctx, transactionID, userID)
	if err != nil {
		return err
	}

	cmd.Println(cli.TitleStyle.Render("Classification result"))
	cmd.Printf("  Mapping:    %s\n", mappingID)
	cmd.Printf("  Merchant:   %s\n", mapping.MerchantName)
	if mapping.Ticker != "" {
		cmd.Printf("  Ticker:     %s (%s)\n", cli.BoldStyle.Render(mapping.Ticker), mapping.CanonicalCompanyName)
		cmd.Printf("  Category:   %s\n", mapping.Category)
		cmd.Printf("  Confidence: %.0f%%\n", mapping.Confidence)
	} else {
		cmd.Printf("  Ticker:     %s\n", cli.SubtleStyle.Render("no match found"))
	}
	cmd.Printf("  Status:     %s\n", cli.StatusStyle(mapping.Status).Render(string(mapping.Status)))
	if mapping.RoundUpCents > 0 {
		cmd.Printf("  Round-up:   $%d.%02d\n", mapping.RoundUpCents/100, mapping.RoundUpCents%100)
	}

	return nil
}

func classifyFile(cmd *cobra.Command, eng *engine.Engine, path string) error {
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var requests []engine.SubmitRequest
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read CSV: %w", readErr)
		}
		if len(record) < 4 {
			return fmt.Errorf("line %d: expected at least 4 fields, got %d", len(requests)+1, len(record))
		}

		amount, amountErr := decimal.NewFromString(record[3])
		if amountErr != nil {
			return fmt.Errorf("line %d: invalid amount %q: %w", len(requests)+1, record[3], amountErr)
		}

		req := engine.SubmitRequest{
			TransactionID: record[0],
			UserID:        record[1],
			MerchantName:  record[2],
			Amount:        amount,
		}
		if len(record) > 4 {
			req.CategoryHint = record[4]
		}
		requests = append(requests, req)
	}

	if len(requests) == 0 {
		cmd.Println("No transactions to classify")
		return nil
	}

	bar := progressbar.NewOptions(len(requests),
		progressbar.OptionSetWriter(cmd.OutOrStdout()),
		progressbar.OptionSetDescription("Classifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var submitted, duplicates, failed int
	for _, req := range requests {
		_, submitErr := eng.Submit(ctx, req)
		switch {
		case submitErr == nil:
			submitted++
		case errors.Is(submitErr, common.ErrDuplicateMapping):
			duplicates++
		default:
			failed++
			common.LogError(submitErr, "classification failed", common.Fields{
				"transaction_id": req.TransactionID,
			})
		}
		_ = bar.Add(1)
	}

	cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf("Classified %d transactions", submitted)))
	if duplicates > 0 {
		cmd.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d skipped (active mapping exists)", duplicates)))
	}
	if failed > 0 {
		cmd.Println(cli.ErrorStyle.Render(fmt.Sprintf("%d failed", failed)))
	}

	return nil
}
