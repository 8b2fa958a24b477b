// Package sampling runs the background sampling worker and the controller
// that drives its sessions.
package sampling

import (
	"fmt"

	"ResourceMonitor/pkg/exporting"
	"ResourceMonitor/pkg/utils"
)

// Tick is one timestamped set of metric values, aligned with the
// metric names of the Buffer it is appended to.
type Tick struct {
	Time   float64
	Values []float64
}

// Buffer is an append-only, time-indexed set of named series. Every
// series holds exactly one value per timestamp.
type Buffer struct {
	names  []string
	index  map[string]int
	times  []float64
	series [][]float64
}

func NewBuffer(names []string) *Buffer {
	b := &Buffer{
		names:  append([]string(nil), names...),
		index:  make(map[string]int, len(names)),
		series: make([][]float64, len(names)),
	}
	for i, n := range b.names {
		b.index[n] = i
	}
	return b
}

func (b *Buffer) Names() []string {
	return append([]string(nil), b.names...)
}

// Append adds one tick. A tick with the wrong number of values or a
// timestamp not after the last one is rejected and the buffer is left
// unchanged.
func (b *Buffer) Append(t Tick) error {
	if len(t.Values) != len(b.names) {
		return fmt.Errorf("tick has %d values, buffer has %d series", len(t.Values), len(b.names))
	}
	if n := len(b.times); n > 0 && t.Time <= b.times[n-1] {
		return fmt.Errorf("tick time %v is not after %v", t.Time, b.times[n-1])
	}

	b.times = append(b.times, t.Time)
	for i, v := range t.Values {
		b.series[i] = append(b.series[i], v)
	}
	return nil
}

func (b *Buffer) Len() int {
	return len(b.times)
}

func (b *Buffer) Times() []float64 {
	return append([]float64(nil), b.times...)
}

// Series returns a copy of the values recorded for name.
func (b *Buffer) Series(name string) ([]float64, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), b.series[i]...), true
}

// Reset drops all ticks but keeps the metric names.
func (b *Buffer) Reset() {
	b.times = b.times[:0]
	for i := range b.series {
		b.series[i] = b.series[i][:0]
	}
}

// Columns is the flushed column order: time, then the metric names.
func (b *Buffer) Columns() []string {
	return append([]string{utils.TimeColumn}, b.names...)
}

func (b *Buffer) Records() []exporting.Record {
	records := make([]exporting.Record, len(b.times))
	for row, ts := range b.times {
		rec := make(exporting.Record, len(b.names)+1)
		rec[utils.TimeColumn] = ts
		for i, name := range b.names {
			rec[name] = b.series[i][row]
		}
		records[row] = rec
	}
	return records
}

// Flush writes the buffer to path in the format chosen by its extension
// and returns the number of rows written. The buffer is not reset.
func (b *Buffer) Flush(path string) (int, error) {
	if err := exporting.SaveRecords(path, b.Columns(), b.Records()); err != nil {
		return 0, fmt.Errorf("failed to flush session to %s: %w", path, err)
	}
	return b.Len(), nil
}
