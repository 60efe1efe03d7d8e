package invoice

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrNoLineItems is returned when an export is requested for an empty
// record set. Nothing is written in that case.
var ErrNoLineItems = errors.New("no line items to export")

// Envelope is the JSON document shape used for both input and output:
// a single object with a LineItems array.
type Envelope struct {
	LineItems []LineItem `json:"LineItems"`
}

// headerFor returns the column header derived from the first record. After
// normalization every record shares one schema, so the first record's field
// order is the export order.
func headerFor(items []LineItem) []string {
	return items[0].Names()
}

// WriteJSON writes the line items as an indented {"LineItems": [...]} object
func WriteJSON(w io.Writer, items []LineItem) error {
	if len(items) == 0 {
		return ErrNoLineItems
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Envelope{LineItems: items}); err != nil {
		return fmt.Errorf("encoding line items: %w", err)
	}
	return nil
}

// WriteCSV writes a header row of field names followed by one row per line
// item in sequence order
func WriteCSV(w io.Writer, items []LineItem) error {
	if len(items) == 0 {
		return ErrNoLineItems
	}

	header := headerFor(items)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, item := range items {
		for i, field := range header {
			row[i], _ = item.Get(field)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the line items as a single-sheet workbook with the same
// tabular structure as the CSV export
func WriteXLSX(w io.Writer, items []LineItem) error {
	if len(items) == 0 {
		return ErrNoLineItems
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := headerFor(items)

	headerRow := make([]any, len(header))
	for i, name := range header {
		headerRow[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("writing workbook header: %w", err)
	}

	for rowIdx, item := range items {
		row := make([]any, len(header))
		for i, field := range header {
			row[i], _ = item.Get(field)
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return fmt.Errorf("addressing workbook row: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing workbook row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
