package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet holds the rows of a single worksheet keyed by its header row.
type Sheet struct {
	Headers []string
	Rows    []map[string]string
}

// ReadFirstSheet parses the first worksheet of an .xlsx document. The first
// row is treated as the header; every following row becomes a map keyed by
// header name. Cells missing at the end of a row yield empty values, columns
// without a header are dropped.
func ReadFirstSheet(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return &Sheet{}, nil
	}

	headers := make([]string, 0, len(raw[0]))
	for _, cell := range raw[0] {
		headers = append(headers, strings.TrimSpace(cell))
	}

	rows := make([]map[string]string, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		if isBlank(cells) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(cells) {
				row[header] = strings.TrimSpace(cells[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Sheet{Headers: headers, Rows: rows}, nil
}

func isBlank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
