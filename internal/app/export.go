package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"price-tracker/internal/storage"
)

// Export renders one product's price history as CSV and/or a PNG trend chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	products, err := store.Load(ctx)
	if err != nil {
		return err
	}

	var product *storage.Product
	for i := range products {
		if products[i].Name == opts.Name {
			product = &products[i]
			break
		}
	}
	if product == nil {
		return fmt.Errorf("product not tracked: %s", opts.Name)
	}
	if len(product.PriceHistory) == 0 {
		a.Logger.Info().Str("product", opts.Name).Msg("no price history to export")
		return nil
	}

	points := downsampleHistory(product.PriceHistory, opts.MaxPoints)
	a.Logger.Info().
		Str("product", opts.Name).
		Int("total", len(product.PriceHistory)).
		Int("exported", len(points)).
		Msg("exporting price history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, *product, points); err != nil {
			return err
		}
	}

	return nil
}

func downsampleHistory(points []storage.PricePoint, max int) []storage.PricePoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.PricePoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeHistoryCSV(path string, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "price"}); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.Timestamp.Format(time.RFC3339),
			point.Price.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path string, product storage.Product, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if len(points) < 2 {
		return errors.New("need at least two history points to render a chart")
	}

	x := make([]time.Time, len(points))
	prices := make([]float64, len(points))
	target := make([]float64, len(points))
	for i, point := range points {
		x[i] = point.Timestamp
		prices[i] = point.Price.InexactFloat64()
		target[i] = product.TargetPrice.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "$%.2f")
	}
	graph := chart.Chart{
		Title:  product.Name,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Price",
				XValues: x,
				YValues: prices,
			},
			chart.TimeSeries{
				Name:    "Target",
				XValues: x,
				YValues: target,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
