package benchmark

import (
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
	"go.uber.org/multierr"

	"ResourceMonitor/pkg/exporting"
	"ResourceMonitor/pkg/utils"
)

// ColumnStats summarizes one metric column of a session file.
type ColumnStats struct {
	Column string
	Max    float64
	Min    float64
	Mean   float64
	Median float64
}

// Fields returns the stats keyed <column>_max, _min, _mean and _median.
func (c ColumnStats) Fields() map[string]float64 {
	return map[string]float64{
		c.Column + "_max":    c.Max,
		c.Column + "_min":    c.Min,
		c.Column + "_mean":   c.Mean,
		c.Column + "_median": c.Median,
	}
}

// SummaryStats loads a flushed session file and summarizes every column
// except time, in file column order. Missing and NaN cells are skipped;
// a column with no values summarizes to NaN.
func SummaryStats(path string) ([]ColumnStats, error) {
	records, columns, err := exporting.LoadRecords(path)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(columns, utils.TimeColumn) {
		return nil, fmt.Errorf("%s has no %q column", path, utils.TimeColumn)
	}

	var out []ColumnStats
	for _, col := range columns {
		if col == utils.TimeColumn {
			continue
		}

		data := make(stats.Float64Data, 0, len(records))
		for i, rec := range records {
			v, ok := rec[col]
			if !ok || v == nil {
				continue
			}
			f, ok := numeric(v)
			if !ok {
				return nil, fmt.Errorf("%s row %d: non-numeric %s value %v", path, i+1, col, v)
			}
			if math.IsNaN(f) {
				continue
			}
			data = append(data, f)
		}

		cs, err := summarize(col, data)
		if err != nil {
			return nil, fmt.Errorf("%s column %s: %w", path, col, err)
		}
		out = append(out, cs)
	}
	return out, nil
}

func summarize(col string, data stats.Float64Data) (ColumnStats, error) {
	cs := ColumnStats{Column: col}
	if data.Len() == 0 {
		nan := math.NaN()
		cs.Max, cs.Min, cs.Mean, cs.Median = nan, nan, nan, nan
		return cs, nil
	}

	var errs []error
	var err error
	cs.Max, err = data.Max()
	errs = append(errs, err)
	cs.Min, err = data.Min()
	errs = append(errs, err)
	cs.Mean, err = data.Mean()
	errs = append(errs, err)
	cs.Median, err = data.Median()
	errs = append(errs, err)
	return cs, multierr.Combine(errs...)
}

func numeric(v interface{}) (float64, bool) {
	switch v.(type) {
	case string, bool:
		return 0, false
	}
	return utils.ToFloat64Ok(v)
}

// CalcSummaryStats joins the summary stats of the session file at path
// into the named block.
func (r *Record) CalcSummaryStats(name, path string) error {
	b, ok := r.blocks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotStarted, name)
	}

	summary, err := SummaryStats(path)
	if err != nil {
		return err
	}
	for _, cs := range summary {
		for k, v := range cs.Fields() {
			b.Stats[k] = v
		}
	}
	return nil
}
