package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"price-tracker/internal/storage"
)

// Show prints the tracked-product table.
func (a *App) Show(ctx context.Context) error {
	tracker, closeStore, err := a.newTracker(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	products := tracker.Products()
	if len(products) == 0 {
		fmt.Fprintln(os.Stdout, "no products tracked")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Name\tCurrent Price\tTarget Price\tSavings\tStatus\tAlerts\tLast Checked")

	for _, p := range products {
		fmt.Fprintf(
			writer,
			"%s\t%s\t$%s\t%s\t%s\t%d\t%s\n",
			truncateName(p.Name),
			formatCurrent(p),
			p.TargetPrice.StringFixed(2),
			formatSavings(p),
			formatStatus(p),
			p.AlertsSent,
			formatLastChecked(p),
		)
	}

	writer.Flush()
	return nil
}

func formatCurrent(p storage.Product) string {
	if p.CurrentPrice == nil {
		return "N/A"
	}
	return "$" + p.CurrentPrice.StringFixed(2)
}

// formatSavings shows how far the current price sits from the target:
// positive when at or below target, negative when above.
func formatSavings(p storage.Product) string {
	if p.CurrentPrice == nil {
		return "N/A"
	}
	if p.TargetReached() {
		return "+$" + p.TargetPrice.Sub(*p.CurrentPrice).StringFixed(2)
	}
	return "-$" + p.CurrentPrice.Sub(p.TargetPrice).StringFixed(2)
}

func formatStatus(p storage.Product) string {
	switch {
	case p.TargetReached():
		return "target reached"
	case p.CurrentPrice != nil:
		return "tracking"
	default:
		return "no price"
	}
}

func formatLastChecked(p storage.Product) string {
	if p.LastChecked.IsZero() {
		return "never"
	}
	return p.LastChecked.Format("01/02 15:04")
}

func truncateName(name string) string {
	if len(name) > 30 {
		return name[:30] + "..."
	}
	return name
}
