package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mshadianto/mnee-sentinel/internal/model"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}

	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditShowCmd())

	return cmd
}

func auditShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one audit entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entry, err := store.GetAuditEntry(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get audit entry %s: %w", args[0], err)
			}

			printAuditEntry(cmd, entry)
			return nil
		},
	}
}

func printAuditEntry(cmd *cobra.Command, entry *model.AuditEntry) {
	cmd.Printf("ID:         %s\n", entry.ID)
	if entry.ParentID != "" {
		cmd.Printf("Parent:     %s\n", entry.ParentID)
	}
	cmd.Printf("Kind:       %s\n", entry.Kind)
	cmd.Printf("Created:    %s\n", entry.CreatedAt.Format(time.RFC3339))
	cmd.Printf("Vendor:     %s (%s)\n", entry.VendorName, entry.VendorAddress)
	cmd.Printf("Category:   %s\n", entry.Category)
	cmd.Printf("Amount:     %s MNEE\n", entry.Amount)
	cmd.Printf("Outcome:    %s\n", entry.Outcome)
	cmd.Printf("Risk:       %s\n", entry.Risk)
	cmd.Printf("Confidence: %.2f\n", entry.Confidence)
	if entry.SettlementRef != "" {
		cmd.Printf("Settlement: %s\n", entry.SettlementRef)
	}
	if entry.ProposalText != "" {
		cmd.Printf("Proposal:   %s\n", entry.ProposalText)
	}
	if entry.Reasoning != "" {
		cmd.Println("Reasoning:")
		for _, line := range strings.Split(entry.Reasoning, "\n") {
			cmd.Printf("  %s\n", line)
		}
	}
}

func auditListCmd() *cobra.Command {
	var (
		decision string
		vendor   string
		category string
		kind     string
		since    string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries in insertion order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := model.AuditFilter{
				Outcome:  model.Outcome(decision),
				Address:  vendor,
				Category: category,
				Kind:     model.AuditKind(kind),
				Limit:    limit,
			}
			if since != "" {
				parsed, parseErr := time.Parse("2006-01-02", since)
				if parseErr != nil {
					return fmt.Errorf("invalid --since %q (want YYYY-MM-DD): %w", since, parseErr)
				}
				filter.Since = parsed
			}

			entries, err := store.QueryAudit(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to query audit log: %w", err)
			}

			if len(entries) == 0 {
				cmd.Println("No audit entries match.")
				return nil
			}

			for _, entry := range entries {
				cmd.Printf("%s  %-10s %-8s %-8s %-14s %s %s\n",
					entry.CreatedAt.Format(time.RFC3339), entry.Kind, entry.Outcome,
					entry.Risk, entry.Category, entry.Amount, entry.VendorName)
				if entry.SettlementRef != "" {
					cmd.Printf("    settlement: %s (decision %s)\n", entry.SettlementRef, entry.ParentID)
				}
			}
			cmd.Printf("%d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&decision, "decision", "", "filter by outcome (APPROVED, REJECTED)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "filter by vendor address")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by entry kind (DECISION, ADMIN, SETTLEMENT)")
	cmd.Flags().StringVar(&since, "since", "", "only entries on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to return")

	return cmd
}
