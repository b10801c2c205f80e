package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrice  string
	simulateTarget string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one check cycle against a synthetic page to exercise alerting",
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := decimal.NewFromString(simulatePrice)
		if err != nil {
			return fmt.Errorf("--price must be a number: %q", simulatePrice)
		}
		target, err := decimal.NewFromString(simulateTarget)
		if err != nil {
			return fmt.Errorf("--target must be a number: %q", simulateTarget)
		}

		return getApp().SimulateAlert(cmd.Context(), price, target)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePrice, "price", "", "Simulated current price")
	simulateCmd.Flags().StringVar(&simulateTarget, "target", "", "Simulated target price")
	_ = simulateCmd.MarkFlagRequired("price")
	_ = simulateCmd.MarkFlagRequired("target")
}
