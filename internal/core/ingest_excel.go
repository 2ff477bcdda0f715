package core

import (
	"bytes"
	"errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// decodeXLSX reads the first sheet of an .xlsx workbook.
// Cell values arrive as formatted strings; type inference happens later in
// buildTable, exactly as for CSV input.
func decodeXLSX(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ParseError{Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyFile
	}

	return splitHeader(rows)
}

// decodeXLS reads the first sheet of a legacy .xls workbook.
func decodeXLS(data []byte) ([]string, [][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, &ParseError{Err: errors.New("workbook has no sheets")}
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyFile
	}

	return splitHeader(rows)
}
