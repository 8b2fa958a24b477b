// Package exporting reads and writes time-indexed session files.
package exporting

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"ResourceMonitor/pkg/utils"
)

// Record is a generic map representing a single row.
type Record = map[string]interface{}

// Format defines the interface for a data format.
type Format interface {
	Name() string
	Extensions() []string
	Reader() Reader
	Writer() Writer
}

// Reader reads records from a file.
type Reader interface {
	Open(path string) error
	Read() ([]Record, error)
	Columns() []string
	Close() error
}

// Writer writes records to a file. A nil columns slice lets the writer
// derive the column set from the first record.
type Writer interface {
	Init(path string, columns []string) error
	Write(record Record) error
	WriteBatch(records []Record) error
	Flush() error
	Close() error
	Path() string
}

// Registry management
var (
	registry    = make(map[string]Format)
	extRegistry = make(map[string]Format)
)

// Register adds a format to the registry.
func Register(f Format) {
	name := strings.ToLower(f.Name())
	registry[name] = f
	for _, ext := range f.Extensions() {
		extRegistry[strings.ToLower(ext)] = f
	}
}

// Get returns a format by name.
func Get(name string) (Format, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// GetByExtension returns a format by file extension.
func GetByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := extRegistry[ext]
	return f, ok
}

// GetByPath returns the format registered for the file's extension,
// falling back to CSV for unknown or missing extensions.
func GetByPath(path string) Format {
	if f, ok := GetByExtension(filepath.Ext(path)); ok {
		return f
	}
	f, _ := Get(utils.DefaultFormat)
	return f
}

// GetExtension returns the file extension for a format name.
func GetExtension(format string) string {
	switch strings.ToLower(format) {
	case "jsonl", "json":
		return ".jsonl"
	case "parquet":
		return ".parquet"
	case "tsv":
		return ".tsv"
	default:
		return ".csv"
	}
}

// LoadRecords loads all records from a file along with its column order.
func LoadRecords(path string) ([]Record, []string, error) {
	reader := GetByPath(path).Reader()
	if err := reader.Open(path); err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	records, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, reader.Columns(), nil
}

// SaveRecords writes records to a file in the given column order.
func SaveRecords(path string, columns []string, records []Record) error {
	writer := GetByPath(path).Writer()
	if err := writer.Init(path, columns); err != nil {
		return fmt.Errorf("failed to initialize writer: %w", err)
	}

	if err := writer.WriteBatch(records); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}

	return writer.Close()
}

// orderColumns sorts keys with the time column first.
func orderColumns(keys []string) []string {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == utils.TimeColumn || keys[j] == utils.TimeColumn {
			return keys[i] == utils.TimeColumn && keys[j] != utils.TimeColumn
		}
		return keys[i] < keys[j]
	})
	return keys
}

func recordKeys(record Record) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	return orderColumns(keys)
}
