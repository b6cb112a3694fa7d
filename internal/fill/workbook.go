package fill

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// FuzzyCutoff is the minimum similarity score for a workbook scheme name to
// adopt a rate-sheet scheme's rates when no exact normalized match exists.
const FuzzyCutoff = 90

// rateColumn and mirrorColumn are the headers of the two columns the fill
// appends to the workbook, both carrying the resolved rate.
const (
	rateColumn   = "T15"
	mirrorColumn = "B15"
)

// brokerageAliases canonicalizes the free-text BrokerageName column to one or
// more buckets. Combined "1 to 3 years" labels resolve to the first bucket
// that actually has a rate.
var brokerageAliases = map[string][]string{
	"FIRST YEAR TRAIL":    {FirstYearTrail},
	"SECOND YEAR TRAIL":   {SecondYearTrail},
	"THIRD YEAR TRAIL":    {ThirdYearTrail},
	"FOURTH YEAR TRAIL":   {FourthYearTrail},
	"LONGTERM YEAR TRAIL": {LongtermYearTrail},
	"FOURTH YEAR":         {FourthYearTrail},
	"4TH YEAR TRAIL":      {FourthYearTrail},
	"4TH YEAR":            {FourthYearTrail},
	"LONG TERM TRAIL":     {LongtermYearTrail},
	"LONG TERM":           {LongtermYearTrail},
	"1 TO 3 YEARS TRAIL":  {FirstYearTrail, SecondYearTrail, ThirdYearTrail},
	"1-3 YEARS TRAIL":     {FirstYearTrail, SecondYearTrail, ThirdYearTrail},
	"1 TO 3 YEARS":        {FirstYearTrail, SecondYearTrail, ThirdYearTrail},
	"1-3 YEARS":           {FirstYearTrail, SecondYearTrail, ThirdYearTrail},
	"TRAIL 1-3":           {FirstYearTrail, SecondYearTrail, ThirdYearTrail},
	"TRAIL YEARS 1-3":     {FirstYearTrail, SecondYearTrail, ThirdYearTrail},
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"01-02-06",
	time.RFC3339,
}

// FillWorkbook reads the brokerage workbook, resolves a rate for every row
// from the extracted rate table and returns the filled workbook bytes. Two
// columns (T15, B15) are appended; rows whose scheme or brokerage type cannot
// be resolved are left blank in those columns. Date columns (any header
// containing "date" but not "brokerage") are reformatted to DD-MM-YYYY.
func FillWorkbook(r io.Reader, table RateTable) ([]byte, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read workbook rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook is empty")
	}

	header := rows[0]
	schemeCol, brokerageCol := -1, -1
	dateCols := []int{}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch {
		case lower == "schemename":
			schemeCol = i
		case lower == "brokeragename":
			brokerageCol = i
		case strings.Contains(lower, "date") && !strings.Contains(lower, "brokerage"):
			dateCols = append(dateCols, i)
		}
	}
	if schemeCol < 0 || brokerageCol < 0 {
		return nil, fmt.Errorf("workbook is missing Schemename or BrokerageName column")
	}

	schemes := make([]string, 0, len(table))
	for scheme := range table {
		schemes = append(schemes, scheme)
	}

	rateColName, err := excelize.ColumnNumberToName(len(header) + 1)
	if err != nil {
		return nil, err
	}
	mirrorColName, err := excelize.ColumnNumberToName(len(header) + 2)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStr(sheet, rateColName+"1", rateColumn); err != nil {
		return nil, err
	}
	if err := f.SetCellStr(sheet, mirrorColName+"1", mirrorColumn); err != nil {
		return nil, err
	}

	for i, row := range rows[1:] {
		rowNum := i + 2

		if rate, ok := resolveRate(row, schemeCol, brokerageCol, table, schemes); ok {
			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", rateColName, rowNum), rate); err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", mirrorColName, rowNum), rate); err != nil {
				return nil, err
			}
		}

		for _, col := range dateCols {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			if formatted, ok := reformatDate(row[col]); ok {
				colName, err := excelize.ColumnNumberToName(col + 1)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellStr(sheet, fmt.Sprintf("%s%d", colName, rowNum), formatted); err != nil {
					return nil, err
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// resolveRate finds the rate for one workbook row: canonicalize the brokerage
// type, match the scheme exactly or fuzzily, then take the first bucket that
// carries a rate.
func resolveRate(row []string, schemeCol, brokerageCol int, table RateTable, schemes []string) (float64, bool) {
	if schemeCol >= len(row) || brokerageCol >= len(row) {
		return 0, false
	}
	scheme := Normalize(row[schemeCol])
	brokerageType := strings.ToUpper(strings.TrimSpace(row[brokerageCol]))
	if scheme == "" || brokerageType == "" {
		return 0, false
	}

	buckets, ok := brokerageAliases[brokerageType]
	if !ok {
		return 0, false
	}

	rates, ok := table[scheme]
	if !ok {
		match, found := BestMatch(scheme, schemes, FuzzyCutoff)
		if !found {
			return 0, false
		}
		rates = table[match]
	}

	for _, bucket := range buckets {
		if rate, ok := rates[bucket]; ok {
			return rate, true
		}
	}
	return 0, false
}

func reformatDate(value string) (string, bool) {
	v := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("02-01-2006"), true
		}
	}
	return "", false
}
