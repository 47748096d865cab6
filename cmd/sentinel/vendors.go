package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mshadianto/mnee-sentinel/internal/address"
	"github.com/mshadianto/mnee-sentinel/internal/model"
)

func vendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Manage the vendor whitelist",
		Long:  `View and manage whitelisted vendors. Every mutation is recorded in the audit log.`,
	}

	cmd.AddCommand(vendorsListCmd())
	cmd.AddCommand(vendorsAddCmd())
	cmd.AddCommand(vendorsDeactivateCmd())
	cmd.AddCommand(vendorsRemoveCmd())

	return cmd
}

func vendorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whitelisted vendors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			vendors, err := store.ListVendors(ctx)
			if err != nil {
				return fmt.Errorf("failed to list vendors: %w", err)
			}

			if len(vendors) == 0 {
				cmd.Println("No vendors registered.")
				return nil
			}

			cmd.Printf("%-30s %-44s %-14s %-12s %s\n", "NAME", "ADDRESS", "CATEGORY", "MAX TX", "ACTIVE")
			for _, vendor := range vendors {
				// Stored lowercase; display the EIP-55 rendering.
				addr := vendor.Address
				if checksummed, csErr := address.Checksummed(addr); csErr == nil {
					addr = checksummed
				}
				cmd.Printf("%-30s %-44s %-14s %-12s %t\n",
					vendor.Name, addr, vendor.Category, vendor.MaxTxLimit, vendor.IsActive)
			}
			return nil
		},
	}
}

func vendorsAddCmd() *cobra.Command {
	var (
		name     string
		addr     string
		category string
		maxTx    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a whitelisted vendor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			limit, err := decimal.NewFromString(maxTx)
			if err != nil {
				return fmt.Errorf("invalid --max-tx %q: %w", maxTx, err)
			}

			vendor := &model.VendorEntry{
				Address:    addr,
				Name:       name,
				Category:   category,
				MaxTxLimit: limit,
				IsActive:   true,
			}
			if err := store.SaveVendor(ctx, vendor); err != nil {
				return fmt.Errorf("failed to save vendor: %w", err)
			}

			cmd.Printf("Vendor %s registered at %s (category %s, max tx %s)\n",
				name, vendor.Address, category, limit)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor name")
	cmd.Flags().StringVar(&addr, "address", "", "vendor wallet address")
	cmd.Flags().StringVar(&category, "category", "", "budget category (must exist)")
	cmd.Flags().StringVar(&maxTx, "max-tx", "", "per-transaction ceiling in MNEE")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("max-tx")

	return cmd
}

func vendorsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <address>",
		Short: "Deactivate a vendor without removing its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeactivateVendor(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to deactivate vendor: %w", err)
			}
			cmd.Printf("Vendor %s deactivated\n", args[0])
			return nil
		},
	}
}

func vendorsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <address>",
		Short: "Remove a vendor from the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteVendor(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to remove vendor: %w", err)
			}
			cmd.Printf("Vendor %s removed\n", args[0])
			return nil
		},
	}
}
