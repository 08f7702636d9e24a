package approval

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/jobtriage/internal/types"
)

const exportSheet = "Queue"

var exportColumns = []struct {
	header string
	width  float64
	value  func(types.Submission) any
}{
	{"ID", 38, func(s types.Submission) any { return s.ID }},
	{"Created", 20, func(s types.Submission) any { return s.CreatedAt.Format(time.DateTime) }},
	{"Status", 18, func(s types.Submission) any { return string(s.Status) }},
	{"Source", 10, func(s types.Submission) any { return string(s.Source) }},
	{"Role", 36, func(s types.Submission) any { return s.Parsed.Role }},
	{"Cloud", 8, func(s types.Submission) any { return strings.ToUpper(string(s.Parsed.Cloud)) }},
	{"Location", 24, func(s types.Submission) any { return s.Parsed.Location }},
	{"Recruiter", 24, func(s types.Submission) any { return s.Parsed.RecruiterName }},
	{"To", 30, func(s types.Submission) any { return s.EmailTo }},
	{"Subject", 48, func(s types.Submission) any { return s.EmailSubject }},
	{"Valid", 8, func(s types.Submission) any {
		if s.Validation.OK {
			return "yes"
		}
		return "no"
	}},
	{"Issues", 48, func(s types.Submission) any {
		return strings.Join(append(append([]string{}, s.Validation.Errors...), s.Validation.Warnings...), "; ")
	}},
	{"Sent At", 20, func(s types.Submission) any {
		if s.SentAt == nil {
			return ""
		}
		return s.SentAt.Format(time.DateTime)
	}},
	{"Comments", 40, func(s types.Submission) any { return s.Comments }},
}

// ExportXLSX writes the submissions as a single-sheet workbook to w.
func ExportXLSX(subs []types.Submission, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, c := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, c.header); err != nil {
			return err
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(exportSheet, name, name, c.width); err != nil {
			return err
		}
	}

	for row, s := range subs {
		for col, c := range exportColumns {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, c.value(s)); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
