package fill

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Trail-commission buckets a rate sheet can quote, in declaration order.
const (
	FirstYearTrail    = "FIRST YEAR TRAIL"
	SecondYearTrail   = "SECOND YEAR TRAIL"
	ThirdYearTrail    = "THIRD YEAR TRAIL"
	FourthYearTrail   = "FOURTH YEAR TRAIL"
	LongtermYearTrail = "LONGTERM YEAR TRAIL"
)

// BrokerageTypes lists the buckets in the order rates appear on sheets that
// print one rate per line without labels.
var BrokerageTypes = []string{
	FirstYearTrail,
	SecondYearTrail,
	ThirdYearTrail,
	FourthYearTrail,
	LongtermYearTrail,
}

// MaxReasonableRate caps plausible trail commission percentages. Values above
// it are treated as parsing noise (years, amounts) and discarded.
const MaxReasonableRate = 10.0

// SchemeRates maps a bucket to its quoted rate. Missing keys mean the sheet
// quoted no rate for that bucket.
type SchemeRates map[string]float64

// RateTable maps normalized scheme names to their bucket rates.
type RateTable map[string]SchemeRates

var ratePattern = regexp.MustCompile(`(\d*\.\d{1,2}%?)`)

type columnPattern struct {
	re      *regexp.Regexp
	buckets []string
}

// columnPatterns recognize the many ways sheets label their rate columns,
// including combined "years 1-3" columns that feed three buckets at once.
var columnPatterns = []columnPattern{
	{regexp.MustCompile(`(?i)\b(first|1st)\s*(year|yr)\s*(trail|commission|rate)?\b`), []string{FirstYearTrail}},
	{regexp.MustCompile(`(?i)\b(second|2nd)\s*(year|yr)\s*(trail|commission|rate)?\b`), []string{SecondYearTrail}},
	{regexp.MustCompile(`(?i)\b(third|3rd)\s*(year|yr)\s*(trail|commission|rate)?\b`), []string{ThirdYearTrail}},
	{regexp.MustCompile(`(?i)\b(fourth|4th)\s*(year|yr)\s*(trail|commission|rate)?\b`), []string{FourthYearTrail}},
	{regexp.MustCompile(`(?i)\b(longterm|long\s*term|5\+?|beyond\s*4)\s*(year|yr)?\s*(trail|commission|rate)?\b`), []string{LongtermYearTrail}},
	{regexp.MustCompile(`(?i)\b(1\s*[-to]\s*3|1\s*through\s*3|first\s*3|initial\s*3)\s*(year|years|yr|yrs)\s*(trail|commission|rate)?\b`), []string{FirstYearTrail, SecondYearTrail, ThirdYearTrail}},
	{regexp.MustCompile(`(?i)\b(trail\s*(1\s*[-to]\s*3|1-3)|years?\s*1-3)\b`), []string{FirstYearTrail, SecondYearTrail, ThirdYearTrail}},
}

// schemeValidations pins rates the distributor publishes out-of-band; when a
// sheet disagrees, the published figure wins.
var schemeValidations = map[string]SchemeRates{
	"hsbc financial services fund": {
		FourthYearTrail: 1.35,
	},
	"hsbc india export opportunities fund": {
		ThirdYearTrail:  1.45,
		FourthYearTrail: 1.35,
	},
	"hsbc midcap fund": {
		ThirdYearTrail:    1.15,
		FourthYearTrail:   1.05,
		LongtermYearTrail: 1.05,
	},
}

var skipMarkers = []string{"scheme name", "total", "aggregate"}

func isSkippable(line string) bool {
	for _, m := range skipMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// parseRate converts a matched rate token to a float, returning false for
// malformed or implausible values.
func parseRate(token string) (float64, bool) {
	v := strings.TrimSuffix(strings.ReplaceAll(token, ",", "."), "%")
	rate, err := strconv.ParseFloat(v, 64)
	if err != nil || rate > MaxReasonableRate {
		return 0, false
	}
	return rate, true
}

// matchBuckets returns the buckets a label line refers to, or nil.
func matchBuckets(line string) []string {
	for _, cp := range columnPatterns {
		if cp.re.MatchString(line) {
			return cp.buckets
		}
	}
	return nil
}

// ExtractRateTable opens the rate sheet PDF (trying the given passwords for
// encrypted sheets), reconstructs its text lines and extracts per-scheme
// trail rates. An empty table with nil error means the sheet was readable
// but carried no recognizable rates.
func ExtractRateTable(r io.Reader, passwords []string) (RateTable, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rate sheet: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("rate sheet is empty")
	}

	// The reader always tries the blank password itself; the callback feeds
	// the remaining candidates and ends the attempt by returning "".
	idx := 0
	nextPassword := func() string {
		for idx < len(passwords) {
			p := passwords[idx]
			idx++
			if p != "" {
				return p
			}
		}
		return ""
	}

	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(b), int64(len(b)), nextPassword)
	if err != nil {
		return nil, fmt.Errorf("open rate sheet: %w", err)
	}

	table := RateTable{}
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		lines, err := pageLines(page)
		if err != nil {
			continue
		}
		if cols := extractColumnar(lines, table); !cols {
			extractLinear(lines, table)
		}
	}

	finalize(table)
	return table, nil
}

// finalize applies the long-term fallback (a sheet quoting only a fourth-year
// rate implies the same rate beyond year four) and the published per-scheme
// rate overrides.
func finalize(table RateTable) {
	for scheme, rates := range table {
		if _, ok := rates[LongtermYearTrail]; !ok {
			if fourth, ok := rates[FourthYearTrail]; ok {
				rates[LongtermYearTrail] = fourth
			}
		}
		if expected, ok := schemeValidations[scheme]; ok {
			for bucket, rate := range expected {
				rates[bucket] = rate
			}
		}
	}
}

// pageLines rebuilds visual text lines from positioned glyph runs: runs are
// bucketed by their baseline Y, then each line is assembled left to right.
// Runs far apart horizontally become separate cells ("  " separated), which
// lets columnar sheets keep their structure.
func pageLines(page pdf.Page) ([]string, error) {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil, nil
	}

	byRow := map[int][]pdf.Text{}
	for _, t := range content.Text {
		row := int(t.Y + 0.5)
		byRow[row] = append(byRow[row], t)
	}

	rows := make([]int, 0, len(byRow))
	for row := range byRow {
		rows = append(rows, row)
	}
	// PDF Y grows upward, so higher rows come first on the page.
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		runs := byRow[row]
		sort.Slice(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

		var sb strings.Builder
		lastEnd := -1.0
		for _, run := range runs {
			if lastEnd >= 0 {
				gap := run.X - lastEnd
				if gap > run.FontSize*1.5 {
					sb.WriteString("  ")
				} else if gap > run.FontSize*0.2 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(run.S)
			lastEnd = run.X + run.W
		}
		lines = append(lines, sb.String())
	}
	return lines, nil
}

// extractColumnar handles sheets whose header row labels rate columns. It
// maps header cells to buckets, then reads each following row as one scheme.
// Returns false when no usable header row exists on the page.
func extractColumnar(lines []string, table RateTable) bool {
	headerIdx := -1
	var colBuckets map[int][]string
	schemeCol := -1

	for i, line := range lines {
		cells := splitCells(line)
		if len(cells) < 2 {
			continue
		}
		mapping := map[int][]string{}
		scheme := -1
		for col, cell := range cells {
			lower := strings.ToLower(cell)
			if strings.Contains(lower, "scheme") || strings.Contains(lower, "fund") || strings.Contains(lower, "name") {
				if scheme < 0 {
					scheme = col
				}
				continue
			}
			if buckets := matchBuckets(lower); buckets != nil {
				mapping[col] = buckets
			}
		}
		if scheme >= 0 && len(mapping) > 0 {
			headerIdx, colBuckets, schemeCol = i, mapping, scheme
			break
		}
	}
	if headerIdx < 0 {
		return false
	}

	found := false
	for _, line := range lines[headerIdx+1:] {
		cells := splitCells(line)
		if len(cells) <= schemeCol {
			continue
		}
		scheme := Normalize(cells[schemeCol])
		if scheme == "" || isSkippable(scheme) {
			continue
		}

		rates := SchemeRates{}
		for col, buckets := range colBuckets {
			if col >= len(cells) {
				continue
			}
			matches := ratePattern.FindAllString(cells[col], -1)
			if len(matches) == 0 {
				continue
			}
			if rate, ok := parseRate(matches[0]); ok {
				for _, bucket := range buckets {
					rates[bucket] = rate
				}
			}
		}
		if len(rates) > 0 {
			table[scheme] = rates
			found = true
		}
	}
	return found
}

// extractLinear handles sheets that print a scheme name followed by labeled
// or bare rate lines. Bare rates fill buckets in declaration order.
func extractLinear(lines []string, table RateTable) {
	for i, raw := range lines {
		line := Normalize(strings.TrimSpace(raw))
		if line == "" || isSkippable(line) {
			continue
		}
		matches := ratePattern.FindAllString(line, -1)
		scheme := Normalize(strings.TrimSpace(ratePattern.ReplaceAllString(line, "")))
		if len(matches) == 0 || scheme == "" || mentionsBucket(scheme) {
			continue
		}

		rates := SchemeRates{}
		rateIdx := 0
		for j := i; j < i+len(BrokerageTypes) && j < len(lines); j++ {
			subline := Normalize(strings.TrimSpace(lines[j]))
			subMatches := ratePattern.FindAllString(subline, -1)
			labeled := matchBuckets(subline)

			for _, token := range subMatches {
				rate, ok := parseRate(token)
				if !ok {
					continue
				}
				switch {
				case labeled != nil && rateIdx < len(labeled):
					for _, bucket := range labeled {
						rates[bucket] = rate
					}
					rateIdx += len(labeled)
				case rateIdx < len(BrokerageTypes):
					rates[BrokerageTypes[rateIdx]] = rate
					rateIdx++
				}
			}
		}
		if len(rates) > 0 {
			table[scheme] = rates
		}
	}
}

func splitCells(line string) []string {
	parts := strings.Split(line, "  ")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

func mentionsBucket(scheme string) bool {
	for _, bt := range BrokerageTypes {
		if strings.Contains(scheme, strings.ToLower(bt)) {
			return true
		}
	}
	return false
}
