package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"price-tracker/internal/app"
)

var (
	exportName      string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a product's price history as CSV and/or a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportName == "" {
			return fmt.Errorf("--name is required")
		}

		opts := app.ExportOptions{
			Name:      exportName,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportName, "name", "", "Tracked product name")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write history to this CSV file")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Render history to this PNG file")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Cap on exported data points (0 uses config default)")
}
