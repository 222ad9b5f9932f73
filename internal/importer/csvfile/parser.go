package csvfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	enc "github.com/MrJamesThe3rd/rfmseg/internal/encoding"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

var ErrNoProfile = errors.New("no matching column profile")

// RowError reports a rejected data row. Row is the 1-based line in the file.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var (
	errMissing   = errors.New("missing value")
	errNegative  = errors.New("negative amount")
	errDuplicate = errors.New("duplicate id")
)

// Parser reads delimited transaction exports. The header row is matched
// against the candidate profiles in order and the first full match wins.
type Parser struct {
	profiles []Profile
}

func NewParser(profiles ...Profile) *Parser {
	if len(profiles) == 0 {
		profiles = []Profile{Ecommerce, Orders}
	}

	return &Parser{profiles: profiles}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string

	var lines []int

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}

	profile, cols, headerIdx := p.detectProfile(rows)
	if profile == nil {
		names := make([]string, len(p.profiles))
		for i, pr := range p.profiles {
			names[i] = pr.Name
		}

		return nil, fmt.Errorf("%w: expected the columns of %s", ErrNoProfile, strings.Join(names, " or "))
	}

	return parseRows(profile, cols, rows[headerIdx+1:], lines[headerIdx+1:])
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the first line.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(head, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}

	return best
}

// colIndex maps normalised column names to their index in the row.
type colIndex map[string]int

func (c colIndex) lookup(name string) (int, bool) {
	if name == "" {
		return -1, false
	}

	i, ok := c[name]

	return i, ok
}

func normalise(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (p *Parser) detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := normalise(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range p.profiles {
			if matchesProfile(&p.profiles[i], cols) {
				return &p.profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows converts data rows. lines holds the file line of each row.
func parseRows(p *Profile, cols colIndex, rows [][]string, lines []int) ([]transaction.CreateParams, error) {
	statusIdx, hasStatus := cols.lookup(p.StatusCol)
	seen := make(map[string]int, len(rows))

	var txs []transaction.CreateParams

	for i, row := range rows {
		rowNum := lines[i]

		if blank(row) {
			continue
		}

		if hasStatus && !slices.Contains(p.KeepStatuses, normalise(cellValue(row, statusIdx))) {
			continue
		}

		params, err := parseRow(p, cols, row, rowNum)
		if err != nil {
			return nil, err
		}

		if first, dup := seen[params.ID]; dup {
			return nil, &RowError{Row: rowNum, Column: p.IDCol, Err: fmt.Errorf("%w %q, first seen on row %d", errDuplicate, params.ID, first)}
		}

		seen[params.ID] = rowNum

		txs = append(txs, params)
	}

	return txs, nil
}

func parseRow(p *Profile, cols colIndex, row []string, rowNum int) (transaction.CreateParams, error) {
	var params transaction.CreateParams

	required := func(col string) (string, error) {
		v := cellValue(row, cols[col])
		if v == "" {
			return "", &RowError{Row: rowNum, Column: col, Err: errMissing}
		}

		return v, nil
	}

	var err error

	if params.ID, err = required(p.IDCol); err != nil {
		return params, err
	}

	if params.CustomerID, err = required(p.CustomerCol); err != nil {
		return params, err
	}

	rawDate, err := required(p.DateCol)
	if err != nil {
		return params, err
	}

	if params.Date, err = parseDate(rawDate); err != nil {
		return params, &RowError{Row: rowNum, Column: p.DateCol, Err: err}
	}

	rawAmount, err := required(p.AmountCol)
	if err != nil {
		return params, err
	}

	if params.Amount, err = parseAmount(rawAmount); err != nil {
		return params, &RowError{Row: rowNum, Column: p.AmountCol, Err: err}
	}

	if params.Amount.IsNegative() {
		return params, &RowError{Row: rowNum, Column: p.AmountCol, Err: errNegative}
	}

	params.Quantity = 1

	if idx, ok := cols.lookup(p.QuantityCol); ok {
		if v := cellValue(row, idx); v != "" {
			q, err := strconv.Atoi(v)
			if err != nil || q < 0 {
				return params, &RowError{Row: rowNum, Column: p.QuantityCol, Err: fmt.Errorf("invalid quantity %q", v)}
			}

			params.Quantity = q
		}
	}

	params.Category = optional(cols, row, p.CategoryCol)
	params.PaymentMethod = optional(cols, row, p.PaymentCol)
	params.Country = optional(cols, row, p.CountryCol)

	return params, nil
}

func optional(cols colIndex, row []string, col string) string {
	idx, ok := cols.lookup(col)
	if !ok {
		return ""
	}

	return cellValue(row, idx)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
