// Package benchmark records wall-clock and process-CPU spans of named
// blocks and joins them with summary statistics of flushed sessions.
package benchmark

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"ResourceMonitor/pkg/exporting"
	"ResourceMonitor/pkg/utils"
)

// ErrBlockNotStarted is the panic value of EndTiming on an unknown block.
var ErrBlockNotStarted = errors.New("timing block was never started")

// Block holds the timing of one named block. Stats is filled by
// CalcSummaryStats with <metric>_max/_min/_mean/_median entries.
type Block struct {
	Name            string
	ElapsedStart    float64
	ProcessStart    float64
	ElapsedEnd      float64
	ProcessEnd      float64
	ElapsedDuration float64
	ProcessDuration float64
	Ended           bool
	Stats           map[string]float64
}

// Record maps block names to their timing blocks.
type Record struct {
	ID     string
	blocks map[string]*Block
	order  []string
}

func NewRecord() *Record {
	return &Record{
		ID:     uuid.NewString(),
		blocks: make(map[string]*Block),
	}
}

// StartTiming stamps the start of name, replacing any earlier block of
// the same name.
func (r *Record) StartTiming(name string) *Block {
	if _, ok := r.blocks[name]; !ok {
		r.order = append(r.order, name)
	}
	b := &Block{
		Name:         name,
		ElapsedStart: utils.Monotonic(),
		ProcessStart: utils.ProcessTime(),
		Stats:        make(map[string]float64),
	}
	r.blocks[name] = b
	return b
}

// EndTiming stamps the end of name and computes both durations. Calling
// it for a block that was never started is a programming error and panics.
func (r *Record) EndTiming(name string) *Block {
	b, ok := r.blocks[name]
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrBlockNotStarted, name))
	}
	b.ElapsedEnd = utils.Monotonic()
	b.ProcessEnd = utils.ProcessTime()
	b.ElapsedDuration = b.ElapsedEnd - b.ElapsedStart
	b.ProcessDuration = b.ProcessEnd - b.ProcessStart
	b.Ended = true
	return b
}

func (r *Record) Block(name string) (*Block, bool) {
	b, ok := r.blocks[name]
	return b, ok
}

// Blocks returns blocks in the order they were first started.
func (r *Record) Blocks() []*Block {
	out := make([]*Block, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.blocks[name])
	}
	return out
}

// Fields flattens the block into a single row.
func (b *Block) Fields() exporting.Record {
	rec := exporting.Record{
		"block":            b.Name,
		"elapsed_start":    b.ElapsedStart,
		"process_start":    b.ProcessStart,
		"elapsed_end":      b.ElapsedEnd,
		"process_end":      b.ProcessEnd,
		"elapsed_duration": b.ElapsedDuration,
		"process_duration": b.ProcessDuration,
	}
	for k, v := range b.Stats {
		rec[k] = v
	}
	return rec
}

var fixedColumns = []string{
	"record", "block",
	"elapsed_start", "elapsed_end", "elapsed_duration",
	"process_start", "process_end", "process_duration",
}

// Save writes one row per block to path, in the format chosen by its
// extension.
func (r *Record) Save(path string) error {
	records := make([]exporting.Record, 0, len(r.order))
	statCols := make(map[string]struct{})
	for _, b := range r.Blocks() {
		rec := b.Fields()
		rec["record"] = r.ID
		records = append(records, rec)
		for k := range b.Stats {
			statCols[k] = struct{}{}
		}
	}

	extra := make([]string, 0, len(statCols))
	for k := range statCols {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	columns := append(append([]string(nil), fixedColumns...), extra...)

	return exporting.SaveRecords(path, columns, records)
}
