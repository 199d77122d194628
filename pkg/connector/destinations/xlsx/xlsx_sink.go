// Package xlsx renders rows as a spreadsheet workbook with one sheet.
package xlsx

import (
	"context"
	"io"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Option keys understood by the xlsx sink.
const (
	OptionSheet = "sheet"
)

// MaxRows is the number of data rows a sheet can hold below its header.
const MaxRows = excelize.TotalRows - 1

// Integers beyond this magnitude lose precision as spreadsheet numbers and
// are stored as text.
const maxExactInteger = 1 << 53

const defaultSheet = "Sheet1"

// Sink holds every row until End, because column widths are sized from
// the whole result and the workbook is a zip archive written in one go.
type Sink struct {
	sheet  string
	format models.FormatOptions

	out    io.Writer
	header []string
	rows   [][]interface{}
	widths []int
}

// New creates an xlsx sink.
func New(opts core.Options) (core.Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	sheet := opts.String(OptionSheet, defaultSheet)
	if err := validateSheetName(sheet); err != nil {
		return nil, err
	}
	return &Sink{sheet: sheet, format: format}, nil
}

// validateSheetName applies excelize's naming rules up front so a bad
// option fails before any row is buffered.
func validateSheetName(name string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(defaultSheet, name); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid sheet name").WithDetail("option", OptionSheet)
	}
	return nil
}

// Capabilities implements core.Sink.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeBuffered, Truncation: core.TruncationDiscard, MaxRows: MaxRows}
}

// Begin implements core.Sink.
func (s *Sink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	s.out = out
	s.header = schema.Names()
	s.rows = nil
	s.widths = make([]int, len(s.header))
	for i, name := range s.header {
		s.widths[i] = utf8.RuneCountInString(name)
	}
	return nil
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(_ context.Context, row models.Row) error {
	if int64(len(s.rows)) >= MaxRows {
		return errors.Newf(errors.ErrorTypeSink, "xlsx sheet limit of %d rows exceeded", MaxRows)
	}
	cells := make([]interface{}, len(row.Values))
	for i, v := range row.Values {
		cell, text := s.cellValue(v)
		if len(text) > excelize.TotalCellChars && utf16Len(text) > excelize.TotalCellChars {
			return errors.Newf(errors.ErrorTypeSink, "value exceeds the xlsx cell limit of %d characters", excelize.TotalCellChars).
				WithDetail("column", row.Name(i))
		}
		cells[i] = cell
		s.widths[i] = max(s.widths[i], utf8.RuneCountInString(text))
	}
	s.rows = append(s.rows, cells)
	return nil
}

// cellValue returns the typed cell and the text used for width sizing.
func (s *Sink) cellValue(v models.Value) (interface{}, string) {
	text := models.DisplayText(v, s.format)
	switch v.Kind() {
	case models.KindNull:
		if text == "" {
			return nil, ""
		}
	case models.KindBool:
		b, _ := v.AsBool()
		return b, text
	case models.KindInteger:
		if i, _ := v.AsInteger(); i > -maxExactInteger && i < maxExactInteger {
			return i, text
		}
	case models.KindFloat:
		if f, _ := v.AsFloat(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, text
		}
	}
	return text, text
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// End implements core.Sink. The workbook is only produced for a complete
// stream.
func (s *Sink) End(_ context.Context, cause error) error {
	defer s.release()
	if cause != nil {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()
	if s.sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, s.sheet); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid sheet name").WithDetail("option", OptionSheet)
		}
	}
	sw, err := f.NewStreamWriter(s.sheet)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create xlsx stream writer")
	}
	for i, w := range s.widths {
		width := math.Min(float64(w)+2, 80)
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to size xlsx column")
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create xlsx header style")
	}
	header := make([]interface{}, len(s.header))
	for i, name := range s.header {
		header[i] = excelize.Cell{StyleID: bold, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write xlsx header")
	}
	for i, cells := range s.rows {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to address xlsx row")
		}
		if err := sw.SetRow(ref, cells); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to write xlsx row").WithDetail("sheet_row", i+2)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to finish xlsx sheet")
	}
	if _, err := f.WriteTo(s.out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write xlsx workbook")
	}
	return nil
}

// Discard implements core.Discarder.
func (s *Sink) Discard() error {
	s.release()
	return nil
}

func (s *Sink) release() {
	s.rows = nil
}
