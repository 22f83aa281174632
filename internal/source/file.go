package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

// FileLoader reads <Dir>/<category>.<format> exports.
type FileLoader struct {
	Dir    string
	Format schema.SourceFormat
}

var _ contract.SourceLoader = &FileLoader{} // Compile-time check

// NewFileLoader returns a loader over dir. An empty format means CSV.
func NewFileLoader(dir string, format schema.SourceFormat) *FileLoader {
	if format == "" {
		format = schema.CSVSource
	}
	return &FileLoader{Dir: dir, Format: format}
}

// Path returns the file that holds the records of category.
func (l *FileLoader) Path(category schema.Category) string {
	return filepath.Join(l.Dir, string(category)+"."+string(l.Format))
}

// Load reads and decodes the records of category.
func (l *FileLoader) Load(ctx context.Context, category schema.Category) (schema.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return schema.RecordSet{}, err
	}
	f, err := os.Open(l.Path(category))
	if err != nil {
		return schema.RecordSet{}, fmt.Errorf("failed to open %s records: %w", category, err)
	}
	defer func() { _ = f.Close() }()

	switch l.Format {
	case schema.JSONSource:
		return decodeJSON(category, f)
	case schema.CSVSource:
		return decodeCSV(category, f)
	default:
		return schema.RecordSet{}, fmt.Errorf("unsupported source format '%s'", l.Format)
	}
}

// Fingerprint returns the size and modification time of the category file.
func (l *FileLoader) Fingerprint(_ context.Context, category schema.Category) (string, error) {
	info, err := os.Stat(l.Path(category))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(info.Size(), 10) + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}

// Location returns the absolute source directory when it can be resolved.
func (l *FileLoader) Location() string {
	if abs, err := filepath.Abs(l.Dir); err == nil {
		return abs
	}
	return l.Dir
}

// decodeCSV reads a CSV export with a header row.
func decodeCSV(category schema.Category, r io.Reader) (schema.RecordSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return schema.RecordSet{}, fmt.Errorf("%s records have no header row", category)
	}
	if err != nil {
		return schema.RecordSet{}, fmt.Errorf("failed to read %s header: %w", category, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	b, err := newRecordBuilder(category, header)
	if err != nil {
		return schema.RecordSet{}, err
	}

	var records []schema.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return schema.RecordSet{}, fmt.Errorf("failed to read %s line %d: %w", category, line, err)
		}
		cells := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				cells[col] = row[i]
			}
		}
		records = append(records, b.add(cells))
	}
	return b.build(records), nil
}
