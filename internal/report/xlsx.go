package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/uberfrank/bierephilo/internal/questionbank"
)

// QuestionsSheet is the worksheet name of the question export.
const QuestionsSheet = "Questions"

var exportColumns = []struct {
	header string
	prefix string
}{
	{"Category", questionbank.CategoryPrefix},
	{"Branch", questionbank.TopicBranch.Prefix()},
	{"Movement", questionbank.TopicMovement.Prefix()},
	{"Theme", questionbank.TopicTheme.Prefix()},
	{"Difficulty", questionbank.TopicDifficulty.Prefix()},
}

// WriteQuestionsXLSX streams qs as a spreadsheet: id, text, one column per
// known tag namespace and the raw tag list. categoryName maps a category id
// to its display name and may be nil.
func WriteQuestionsXLSX(w io.Writer, qs []questionbank.Question, categoryName func(id string) string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", QuestionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(QuestionsSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetColWidth(2, 2, 80); err != nil {
		return err
	}

	headers := []interface{}{"ID", "Question"}
	for _, col := range exportColumns {
		headers = append(headers, col.header)
	}
	headers = append(headers, "Tags")
	if err := sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, q := range qs {
		row := []interface{}{q.ID, sanitizeForExcel(q.Text)}
		for _, col := range exportColumns {
			v, _ := q.TagValue(col.prefix)
			if col.prefix == questionbank.CategoryPrefix && categoryName != nil && v != "" {
				v = categoryName(v)
			}
			row = append(row, sanitizeForExcel(v))
		}
		row = append(row, sanitizeForExcel(strings.Join(q.Tags, " ")))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

// sanitizeForExcel neutralises cells that a spreadsheet would read as a formula.
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
