package fill

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, header []string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func TestFillWorkbook(t *testing.T) {
	table := RateTable{
		"hsbc value fund": {
			FirstYearTrail:    1.20,
			SecondYearTrail:   1.10,
			LongtermYearTrail: 0.95,
		},
	}

	src := buildWorkbook(t,
		[]string{"Schemename", "BrokerageName", "Amount"},
		[][]string{
			{"HSBC Value Fund", "FIRST YEAR TRAIL", "100"},
			{"HSBC Value Fund", "LONG TERM", "200"},
			{"Unknown Fund", "FIRST YEAR TRAIL", "300"},
			{"HSBC Value Fund", "UNRECOGNIZED TYPE", "400"},
		},
	)

	out, err := FillWorkbook(bytes.NewReader(src), table)
	require.NoError(t, err)

	rows := readSheet(t, out)
	require.Len(t, rows, 5)

	// Appended headers.
	assert.Equal(t, "T15", rows[0][3])
	assert.Equal(t, "B15", rows[0][4])

	// Exact scheme + canonical type.
	assert.Equal(t, "1.2", rows[1][3])
	assert.Equal(t, "1.2", rows[1][4])

	// Alias resolves LONG TERM to the longterm bucket.
	assert.Equal(t, "0.95", rows[2][3])

	// Unknown scheme and unknown type leave the rate cells blank.
	assert.True(t, len(rows[3]) < 4 || rows[3][3] == "")
	assert.True(t, len(rows[4]) < 4 || rows[4][3] == "")
}

func TestFillWorkbook_FuzzySchemeMatch(t *testing.T) {
	table := RateTable{
		"hsbc india export opportunities fund": {ThirdYearTrail: 1.45},
	}

	// One character off the rate-sheet spelling.
	src := buildWorkbook(t,
		[]string{"Schemename", "BrokerageName"},
		[][]string{{"HSBC India Export Opportunitees Fund", "THIRD YEAR TRAIL"}},
	)

	out, err := FillWorkbook(bytes.NewReader(src), table)
	require.NoError(t, err)

	rows := readSheet(t, out)
	assert.Equal(t, "1.45", rows[1][2])
}

func TestFillWorkbook_CombinedBucketTakesFirstAvailable(t *testing.T) {
	table := RateTable{
		"hsbc value fund": {SecondYearTrail: 1.10},
	}

	src := buildWorkbook(t,
		[]string{"Schemename", "BrokerageName"},
		[][]string{{"HSBC Value Fund", "1 TO 3 YEARS"}},
	)

	out, err := FillWorkbook(bytes.NewReader(src), table)
	require.NoError(t, err)

	// First bucket has no rate, so the second-year rate is used.
	rows := readSheet(t, out)
	assert.Equal(t, "1.1", rows[1][2])
}

func TestFillWorkbook_DateReformatting(t *testing.T) {
	src := buildWorkbook(t,
		[]string{"Schemename", "BrokerageName", "TradeDate", "BrokerageDate"},
		[][]string{{"Some Fund", "FIRST YEAR TRAIL", "2025-03-15", "2025-03-15"}},
	)

	out, err := FillWorkbook(bytes.NewReader(src), RateTable{})
	require.NoError(t, err)

	rows := readSheet(t, out)
	// TradeDate is reformatted; BrokerageDate is left alone.
	assert.Equal(t, "15-03-2025", rows[1][2])
	assert.Equal(t, "2025-03-15", rows[1][3])
}

func TestFillWorkbook_MissingRequiredColumns(t *testing.T) {
	src := buildWorkbook(t,
		[]string{"SomethingElse"},
		[][]string{{"x"}},
	)

	_, err := FillWorkbook(bytes.NewReader(src), RateTable{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Schemename")
}

func TestFillWorkbook_NotAWorkbook(t *testing.T) {
	_, err := FillWorkbook(bytes.NewReader([]byte("not an xlsx")), RateTable{})
	assert.Error(t, err)
}
