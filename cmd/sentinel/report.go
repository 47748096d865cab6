package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize approval rate and category spending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			since := time.Now().AddDate(0, 0, -days)
			stats, err := store.ApprovalRate(ctx, since)
			if err != nil {
				return fmt.Errorf("failed to compute approval rate: %w", err)
			}

			cmd.Printf("Decisions since %s:\n", since.Format("2006-01-02"))
			cmd.Printf("  Approved: %d\n", stats.Approved)
			cmd.Printf("  Rejected: %d\n", stats.Rejected)
			if stats.Approved+stats.Rejected > 0 {
				cmd.Printf("  Approval rate: %.1f%%\n", stats.Rate*100)
			}

			spends, err := store.SpendByCategory(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute category spend: %w", err)
			}

			if len(spends) == 0 {
				return nil
			}
			cmd.Println("\nCategory spending:")
			cmd.Printf("%-16s %-14s %-14s %-14s %s\n", "CATEGORY", "LIMIT", "SPENT", "REMAINING", "APPROVALS")
			for _, spend := range spends {
				cmd.Printf("%-16s %-14s %-14s %-14s %d\n",
					spend.Category, spend.Limit, spend.Spent, spend.Remaining, spend.Approvals)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "report window in days")

	return cmd
}
