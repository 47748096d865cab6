package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mshadianto/mnee-sentinel/internal/engine"
	"github.com/mshadianto/mnee-sentinel/internal/model"
	"github.com/mshadianto/mnee-sentinel/internal/settlement"
)

func evaluateCmd() *cobra.Command {
	var (
		text       string
		file       string
		vendor     string
		addr       string
		amountStr  string
		category   string
		confidence float64
		settle     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a payment proposal against treasury policy",
		Long: `Evaluate a payment proposal. Provide free text (--text or --file) to run
the interpreter, or pass structured fields (--vendor, --address, --amount)
directly. On approval, --settle executes a simulated settlement and links
its reference to the decision's audit entry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			var candidate model.CandidatePayment
			switch {
			case addr != "":
				amount, parseErr := decimal.NewFromString(amountStr)
				if parseErr != nil {
					return fmt.Errorf("invalid --amount %q: %w", amountStr, parseErr)
				}
				candidate = model.CandidatePayment{
					VendorName:    vendor,
					VendorAddress: addr,
					Category:      category,
					Amount:        amount,
					Confidence:    confidence,
					RawText:       fmt.Sprintf("structured: pay %s MNEE to %s (%s)", amount, vendor, addr),
				}
			default:
				proposal := text
				if file != "" {
					data, readErr := os.ReadFile(file) // #nosec G304 -- user-supplied proposal file
					if readErr != nil {
						return fmt.Errorf("failed to read proposal file: %w", readErr)
					}
					proposal = string(data)
				}
				if proposal == "" {
					return fmt.Errorf("provide --text, --file, or structured flags")
				}

				interp, initErr := initInterpreter()
				if initErr != nil {
					return initErr
				}
				candidate, err = interp.Interpret(ctx, proposal)
				if err != nil {
					return fmt.Errorf("failed to interpret proposal: %w", err)
				}
			}

			eng := engine.NewWithConfig(store, engineConfig())
			decision, entry, err := eng.Evaluate(ctx, candidate)
			if err != nil {
				printDecision(cmd, candidate, decision, "")
				return err
			}

			ref := ""
			if settle && decision.Approved() {
				executor := settlement.NewSimulator()
				ref, err = executor.Execute(ctx, entry.VendorAddress, entry.Amount)
				if err != nil {
					return fmt.Errorf("settlement failed: %w", err)
				}
				if _, err := store.AppendSettlementRef(ctx, entry.ID, ref); err != nil {
					return fmt.Errorf("failed to record settlement reference: %w", err)
				}
			}

			printDecision(cmd, candidate, decision, ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "proposal text to interpret")
	cmd.Flags().StringVar(&file, "file", "", "file containing the proposal text")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name (structured mode)")
	cmd.Flags().StringVar(&addr, "address", "", "vendor wallet address (structured mode)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "amount in MNEE (structured mode)")
	cmd.Flags().StringVar(&category, "category", "", "proposed budget category (structured mode)")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "parse confidence (structured mode)")
	cmd.Flags().BoolVar(&settle, "settle", false, "execute a simulated settlement on approval")

	return cmd
}

func engineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if v := viper.GetFloat64("policy.confidence_threshold"); v > 0 {
		cfg.ConfidenceThreshold = v
	}
	if v := viper.GetInt("policy.max_tx_per_window"); v > 0 {
		cfg.MaxTxPerWindow = v
	}
	if v := viper.GetString("policy.max_amount_per_window"); v != "" {
		if amount, err := decimal.NewFromString(v); err == nil {
			cfg.MaxAmountPerWindow = amount
		}
	}
	if v := viper.GetInt("policy.window_hours"); v > 0 {
		cfg.WindowLength = time.Duration(v) * time.Hour
	}
	return cfg
}

func printDecision(cmd *cobra.Command, candidate model.CandidatePayment, decision *model.Decision, settlementRef string) {
	if decision == nil {
		return
	}

	cmd.Printf("Outcome:    %s\n", decision.Outcome)
	cmd.Printf("Risk:       %s\n", decision.Risk)
	cmd.Printf("Vendor:     %s (%s)\n", candidate.VendorName, candidate.VendorAddress)
	cmd.Printf("Amount:     %s MNEE\n", candidate.Amount)
	cmd.Printf("Confidence: %.2f\n", decision.Confidence)
	cmd.Println("Checks:")
	for _, check := range decision.Checks {
		status := "PASS"
		if !check.Passed {
			status = "FAIL"
		}
		cmd.Printf("  [%s] %s: %s\n", status, check.Name, check.Detail)
	}
	if settlementRef != "" {
		cmd.Printf("Settlement: %s\n", settlementRef)
	}
}
