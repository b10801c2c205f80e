package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addName   string
	addURL    string
	addTarget string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Track a new product",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addName == "" || addURL == "" || addTarget == "" {
			return fmt.Errorf("--name, --url and --target are required")
		}
		return getApp().Add(cmd.Context(), addName, addURL, addTarget)
	},
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Display name for the product")
	addCmd.Flags().StringVar(&addURL, "url", "", "Product page URL")
	addCmd.Flags().StringVar(&addTarget, "target", "", "Target price that triggers an alert")
}
