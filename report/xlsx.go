package report

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// Sheet names of the XLSX workbook.
const (
	SummarySheet = "Summary"
	DataSheet    = "Data"
)

// BuildXLSX renders the rows of one group as a workbook.
func BuildXLSX(h sweep.Header, rows []sweep.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName("Sheet1", SummarySheet)
	f.NewSheet(DataSheet)

	for i, kv := range Metadata(h) {
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}

	header := Columns(h)
	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}

		_ = f.SetCellValue(DataSheet, cell, name)
	}

	for i, r := range rows {
		for col, v := range cells(h, r) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}

			_ = f.SetCellValue(DataSheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// cells returns typed values so numbers stay numeric in the sheet.
func cells(h sweep.Header, r sweep.Row) []any {
	out := []any{
		r.Serial,
		r.DateTime,
		r.Point.Mode.String(),
		r.Point.DSP.String(),
		r.Point.ACComp,
		r.Point.Width,
		r.Point.LengthNS(),
		r.Point.Amplitude,
		r.Measured,
		r.Attenuator,
	}

	if h.Unattenuated() {
		out = append(out, r.Unattenuated)
	}

	return append(out, Status(r))
}

// XLSX records every group to its own workbook in a directory.
type XLSX struct {
	dir    string
	logger *log.Logger
}

// NewXLSX creates an XLSX recorder writing into dir.
func NewXLSX(dir string, opts ...Option) *XLSX {
	o := applyOptions(opts)
	return &XLSX{dir: dir, logger: o.logger}
}

// Path returns the workbook the rows of h are written to.
func (x *XLSX) Path(h sweep.Header) string {
	return filepath.Join(x.dir, FilePrefix(h)+".xlsx")
}

// Record writes h and rows, replacing an existing workbook.
func (x *XLSX) Record(_ context.Context, h sweep.Header, rows []sweep.Row) error {
	data, err := BuildXLSX(h, rows)
	if err != nil {
		return fmt.Errorf("report: build workbook: %w", err)
	}

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	path := x.Path(h)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	x.logger.Printf("Write results to file: %s", path)

	return nil
}

var _ sweep.Recorder = (*XLSX)(nil)
