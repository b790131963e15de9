package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateSymbol    string
	simulateCondition string
	simulateThreshold float64
	simulatePrevious  float64
	simulateCurrent   float64
	simulateToken     string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Drive one synthetic price crossing through the notifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateThreshold <= 0 || simulatePrevious <= 0 || simulateCurrent <= 0 {
			return errors.New("--threshold, --previous and --current must be greater than 0")
		}
		if simulateToken == "" {
			return errors.New("--token is required")
		}

		return getApp().SimulateAlert(cmd.Context(),
			simulateSymbol, simulateCondition,
			decimal.NewFromFloat(simulateThreshold),
			decimal.NewFromFloat(simulatePrevious),
			decimal.NewFromFloat(simulateCurrent),
			simulateToken)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "EUR-USD", "Instrument symbol")
	simulateCmd.Flags().StringVar(&simulateCondition, "condition", ">", "Crossing condition (> or <)")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", 0, "Rule threshold")
	simulateCmd.Flags().Float64Var(&simulatePrevious, "previous", 0, "Previous price sample")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "Current price sample")
	simulateCmd.Flags().StringVar(&simulateToken, "token", "", "Device token to deliver to")
}
