package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// DataMarker separates the metadata block from the table in CSV files.
const DataMarker = "[DATA]"

// ErrNoData is returned by ReadCSV when the input has no DataMarker row.
var ErrNoData = errors.New("report: missing [DATA] section")

// Table is a parsed result file.
type Table struct {
	Metadata [][2]string
	Columns  []string
	Rows     [][]string
}

// Meta returns the metadata value for key.
func (t *Table) Meta(key string) (string, bool) {
	for _, kv := range t.Metadata {
		if kv[0] == key {
			return kv[1], true
		}
	}

	return "", false
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}

	return -1
}

// WriteCSV writes the rows of one group in the sectioned layout.
func WriteCSV(w io.Writer, h sweep.Header, rows []sweep.Row) error {
	cw := csv.NewWriter(w)

	for _, kv := range Metadata(h) {
		if err := cw.Write(kv[:]); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{DataMarker}); err != nil {
		return err
	}

	if err := cw.Write(Columns(h)); err != nil {
		return err
	}

	for _, r := range rows {
		if err := cw.Write(Fields(h, r)); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV. Blank lines are skipped and
// metadata rows with fewer than two fields are ignored.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	t := &Table{}
	inData := false

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("report: read csv: %w", err)
		}

		switch {
		case len(rec) == 0:
			continue
		case !inData && strings.TrimSpace(rec[0]) == DataMarker:
			inData = true
		case !inData:
			if len(rec) >= 2 {
				t.Metadata = append(t.Metadata, [2]string{strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])})
			}
		case t.Columns == nil:
			t.Columns = rec
		default:
			t.Rows = append(t.Rows, rec)
		}
	}

	if !inData {
		return nil, ErrNoData
	}

	return t, nil
}

// CSV records every group to its own file in a directory.
type CSV struct {
	dir    string
	logger *log.Logger
}

// Option configures a file recorder.
type Option func(*fileOptions)

type fileOptions struct {
	logger *log.Logger
}

// WithLogger logs the name of every written file.
func WithLogger(l *log.Logger) Option {
	return func(o *fileOptions) { o.logger = l }
}

func applyOptions(opts []Option) fileOptions {
	o := fileOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}

	return o
}

// NewCSV creates a CSV recorder writing into dir.
func NewCSV(dir string, opts ...Option) *CSV {
	o := applyOptions(opts)
	return &CSV{dir: dir, logger: o.logger}
}

// Path returns the file the rows of h are written to.
func (c *CSV) Path(h sweep.Header) string {
	return filepath.Join(c.dir, FilePrefix(h)+".csv")
}

// Record writes h and rows, replacing an existing file.
func (c *CSV) Record(_ context.Context, h sweep.Header, rows []sweep.Row) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	path := c.Path(h)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := WriteCSV(f, h, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	c.logger.Printf("Write results to file: %s", path)

	return nil
}

var _ sweep.Recorder = (*CSV)(nil)
