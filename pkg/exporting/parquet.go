package exporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/multierr"
)

const ParquetBatchSize = 1000

func init() {
	Register(&ParquetFormat{})
}

// ParquetFormat handles Parquet files.
type ParquetFormat struct{}

func (f *ParquetFormat) Name() string         { return "parquet" }
func (f *ParquetFormat) Extensions() []string { return []string{".parquet"} }
func (f *ParquetFormat) Reader() Reader       { return &ParquetReader{} }
func (f *ParquetFormat) Writer() Writer       { return &ParquetWriter{} }

// ParquetReader reads Parquet files.
type ParquetReader struct {
	file    *os.File
	pfile   *parquet.File
	columns []string
}

func (r *ParquetReader) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	r.file = file

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to open parquet file: %w", err)
	}
	r.pfile = pf

	return nil
}

func (r *ParquetReader) Read() ([]Record, error) {
	if r.pfile == nil {
		return nil, fmt.Errorf("reader not initialized")
	}

	fields := r.pfile.Schema().Fields()
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		fieldNames[i] = f.Name()
	}
	r.columns = orderColumns(append([]string(nil), fieldNames...))

	records := make([]Record, 0, r.pfile.NumRows())
	rowBuf := make([]parquet.Row, 100)

	for _, rg := range r.pfile.RowGroups() {
		rows := rg.Rows()

		for {
			n, err := rows.ReadRows(rowBuf)
			for i := 0; i < n; i++ {
				record := make(Record, len(fields))
				for _, val := range rowBuf[i] {
					col := val.Column()
					if col < 0 || col >= len(fieldNames) || val.IsNull() {
						continue
					}
					record[fieldNames[col]] = parquetValueToGo(val)
				}
				records = append(records, record)
			}

			if err != nil {
				if !errors.Is(err, io.EOF) {
					rows.Close()
					return nil, fmt.Errorf("failed to read rows: %w", err)
				}
				break
			}
			if n == 0 {
				break
			}
		}
		rows.Close()
	}

	return records, nil
}

// Columns returns the schema field names, time first.
func (r *ParquetReader) Columns() []string {
	return r.columns
}

func parquetValueToGo(v parquet.Value) interface{} {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func (r *ParquetReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParquetWriter writes Parquet files using the Row API. The schema is
// fixed by the first record, or by the requested columns as doubles when
// no record is ever written.
type ParquetWriter struct {
	path       string
	file       *os.File
	writer     *parquet.Writer
	schema     *parquet.Schema
	requested  []string
	columns    []string
	schemaInit bool
	buffer     []parquet.Row
	mu         sync.Mutex
}

func (w *ParquetWriter) Init(path string, columns []string) error {
	w.path = path
	w.requested = columns
	w.buffer = make([]parquet.Row, 0, ParquetBatchSize)
	return nil
}

func (w *ParquetWriter) initSchema(record Record) error {
	names := w.requested
	if len(names) == 0 {
		names = recordKeys(record)
	}

	group := make(parquet.Group, len(names))
	for _, name := range names {
		group[name] = valueToParquetNode(record[name])
	}
	w.schema = parquet.NewSchema("session", group)

	// Group fields are stored in name order; rows must follow the schema.
	fields := w.schema.Fields()
	w.columns = make([]string, len(fields))
	for i, f := range fields {
		w.columns[i] = f.Name()
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w.file = file

	w.writer = parquet.NewWriter(file, w.schema,
		parquet.Compression(&parquet.Snappy),
	)
	w.schemaInit = true
	return nil
}

func valueToParquetNode(val interface{}) parquet.Node {
	switch val.(type) {
	case int, int32, int64, uint32, uint64:
		return parquet.Optional(parquet.Int(64))
	case bool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case string:
		return parquet.Optional(parquet.String())
	default:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}
}

func (w *ParquetWriter) recordToRow(record Record) parquet.Row {
	row := make(parquet.Row, len(w.columns))
	for i, name := range w.columns {
		val, ok := record[name]
		if !ok || val == nil {
			row[i] = parquet.NullValue().Level(0, 0, i)
			continue
		}
		row[i] = goToParquetValue(val, i)
	}
	return row
}

func goToParquetValue(val interface{}, columnIndex int) parquet.Value {
	switch v := val.(type) {
	case bool:
		return parquet.BooleanValue(v).Level(0, 1, columnIndex)
	case int:
		return parquet.Int64Value(int64(v)).Level(0, 1, columnIndex)
	case int32:
		return parquet.Int64Value(int64(v)).Level(0, 1, columnIndex)
	case int64:
		return parquet.Int64Value(v).Level(0, 1, columnIndex)
	case uint32:
		return parquet.Int64Value(int64(v)).Level(0, 1, columnIndex)
	case uint64:
		return parquet.Int64Value(int64(v)).Level(0, 1, columnIndex)
	case float32:
		return parquet.DoubleValue(float64(v)).Level(0, 1, columnIndex)
	case float64:
		return parquet.DoubleValue(v).Level(0, 1, columnIndex)
	case string:
		return parquet.ByteArrayValue([]byte(v)).Level(0, 1, columnIndex)
	default:
		return parquet.ByteArrayValue([]byte(fmt.Sprintf("%v", v))).Level(0, 1, columnIndex)
	}
}

func (w *ParquetWriter) Write(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.write(record)
}

func (w *ParquetWriter) write(record Record) error {
	if !w.schemaInit {
		if err := w.initSchema(record); err != nil {
			return err
		}
	}

	w.buffer = append(w.buffer, w.recordToRow(record))

	if len(w.buffer) >= ParquetBatchSize {
		return w.flushBuffer()
	}

	return nil
}

func (w *ParquetWriter) WriteBatch(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, r := range records {
		if err := w.write(r); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return nil
}

func (w *ParquetWriter) flushBuffer() error {
	if len(w.buffer) == 0 || w.writer == nil {
		return nil
	}

	if _, err := w.writer.WriteRows(w.buffer); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}

	w.buffer = w.buffer[:0]
	return nil
}

func (w *ParquetWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushBuffer(); err != nil {
		return err
	}

	if w.writer != nil {
		return w.writer.Flush()
	}
	return nil
}

func (w *ParquetWriter) Close() error {
	w.mu.Lock()
	if !w.schemaInit {
		// Nothing was written; still produce a file with the requested schema.
		if err := w.initSchema(Record{}); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	err := w.Flush()
	if w.writer != nil {
		err = multierr.Append(err, w.writer.Close())
	}
	if w.file != nil {
		err = multierr.Append(err, w.file.Close())
	}
	return err
}

func (w *ParquetWriter) Path() string {
	return w.path
}
