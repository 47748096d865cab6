package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mshadianto/mnee-sentinel/internal/model"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage category budgets",
		Long:  `View and manage monthly category budgets. Every mutation is recorded in the audit log.`,
	}

	cmd.AddCommand(budgetsListCmd())
	cmd.AddCommand(budgetsSetCmd())
	cmd.AddCommand(budgetsResetCmd())

	return cmd
}

func budgetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List category budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			budgets, err := store.ListBudgets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}

			if len(budgets) == 0 {
				cmd.Println("No budgets configured.")
				return nil
			}

			cmd.Printf("%-16s %-14s %-14s %-14s %s\n", "CATEGORY", "LIMIT", "SPENT", "REMAINING", "RESET AT")
			for _, budget := range budgets {
				cmd.Printf("%-16s %-14s %-14s %-14s %s\n",
					budget.Category, budget.MonthlyLimit, budget.Spent,
					budget.Remaining(), budget.ResetAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func budgetsSetCmd() *cobra.Command {
	var limit string

	cmd := &cobra.Command{
		Use:   "set <category>",
		Short: "Create a budget or update its monthly limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			monthlyLimit, err := decimal.NewFromString(limit)
			if err != nil {
				return fmt.Errorf("invalid --limit %q: %w", limit, err)
			}

			budget := &model.Budget{
				Category:     args[0],
				MonthlyLimit: monthlyLimit,
			}
			if err := store.SaveBudget(ctx, budget); err != nil {
				return fmt.Errorf("failed to save budget: %w", err)
			}

			// Updating the limit keeps the period's spending, so the
			// headroom is what matters to the operator.
			remaining, err := store.Remaining(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to read remaining budget: %w", err)
			}

			cmd.Printf("Budget %s set to %s MNEE per month (%s remaining)\n", args[0], monthlyLimit, remaining)
			return nil
		},
	}

	cmd.Flags().StringVar(&limit, "limit", "", "monthly limit in MNEE")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

func budgetsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <category>",
		Short: "Zero a category's spending for a new period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ResetBudget(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to reset budget: %w", err)
			}
			cmd.Printf("Budget %s reset\n", args[0])
			return nil
		},
	}
}
