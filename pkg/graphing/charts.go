package graphing

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// createLineChart creates a line chart of a metric over session time.
func createLineChart(s *Series) *charts.Line {
	line := charts.NewLine()

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    formatName(s.Name),
			Subtitle: "Category: " + category(s.Name),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit(s.Name), Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	// Labels are relative to the first tick.
	xLabels := make([]string, len(s.Times))
	for i, ts := range s.Times {
		xLabels[i] = strconv.FormatFloat(ts-s.Times[0], 'f', 2, 64)
	}

	data := make([]opts.LineData, len(s.Values))
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// echarts treats "-" as a gap.
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}

	line.SetXAxis(xLabels).AddSeries(s.Name, data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
	)
	return line
}

func category(name string) string {
	if strings.HasPrefix(name, "gpu_") {
		if i := strings.LastIndexByte(name, '_'); i >= 0 {
			return "GPU " + name[i+1:]
		}
		return "GPU"
	}
	return "Process"
}

func unit(name string) string {
	switch {
	case strings.Contains(name, "percent"):
		return "%"
	case strings.Contains(name, "MiB"):
		return "MiB"
	}
	return "Value"
}

func formatName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
