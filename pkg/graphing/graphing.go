// Package graphing renders flushed session files as HTML line charts.
package graphing

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"

	"ResourceMonitor/pkg/exporting"
	"ResourceMonitor/pkg/utils"
)

// Series holds one metric column against session time.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
}

// Render writes one line chart per metric column of the session file at
// inputPath into a single HTML page at outputPath.
func Render(inputPath, outputPath string) error {
	records, columns, err := exporting.LoadRecords(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%s has no rows to graph", inputPath)
	}

	series, err := buildSeries(records, columns)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "Resource Monitor - " + filepath.Base(inputPath)
	for _, s := range series {
		page.AddCharts(createLineChart(s))
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return f.Close()
}

// DefaultOutputPath names the HTML page for a session file inside dir.
func DefaultOutputPath(inputPath, dir string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_graphs.html")
}

// buildSeries extracts every column other than time, in file order.
// Missing cells become NaN.
func buildSeries(records []exporting.Record, columns []string) ([]*Series, error) {
	times := make([]float64, len(records))
	for i, r := range records {
		ts, ok := utils.ToFloat64Ok(r[utils.TimeColumn])
		if !ok {
			return nil, fmt.Errorf("row %d has no numeric %s", i+1, utils.TimeColumn)
		}
		times[i] = ts
	}

	var out []*Series
	for _, col := range columns {
		if col == utils.TimeColumn {
			continue
		}
		s := &Series{Name: col, Times: times, Values: make([]float64, len(records))}
		for i, r := range records {
			v, ok := utils.ToFloat64Ok(r[col])
			if !ok {
				v = math.NaN()
			}
			s.Values[i] = v
		}
		out = append(out, s)
	}
	return out, nil
}
