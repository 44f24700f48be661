package refdata

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultProbeRows is how many leading rows are searched for the header
const DefaultProbeRows = 10

var xlsxMagic = []byte("PK\x03\x04")

// Loader reads CSV and XLSX reference tables
type Loader struct {
	ProbeRows int
}

// NewLoader creates a loader probing the given number of rows for the header
func NewLoader(probeRows int) *Loader {
	if probeRows <= 0 {
		probeRows = DefaultProbeRows
	}
	return &Loader{ProbeRows: probeRows}
}

// Load reads a table from disk. Any read failure wraps ErrMissingInput.
func (l *Loader) Load(path string, kind Kind) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingInput, kind, err)
	}
	defer f.Close()

	return l.Read(f, filepath.Base(path), kind)
}

// Read parses a table from r. The format is chosen by file extension, falling back
// to content sniffing for unnamed uploads.
func (l *Loader) Read(r io.Reader, name string, kind Kind) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingInput, kind, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", ErrMissingInput, kind)
	}

	var raw [][]string
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case ext == ".xlsx" || ext == ".xlsm":
		raw, err = readWorkbook(data)
	case ext == ".csv" || ext == ".txt":
		raw, err = readDelimited(data)
	case ext == "" && bytes.HasPrefix(data, xlsxMagic):
		raw, err = readWorkbook(data)
	case ext == "":
		raw, err = readDelimited(data)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, name, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingInput, kind, err)
	}

	return l.build(kind, name, raw)
}

func readDelimited(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	// Raw values keep numeric identifiers free of display formatting.
	rows, err := xl.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// build locates the header row and normalises the remaining rows
func (l *Loader) build(kind Kind, name string, raw [][]string) (*Table, error) {
	headerRow, err := l.detectHeader(kind, raw)
	if err != nil {
		return nil, err
	}

	header := raw[headerRow]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeHeader(h)
	}

	rows := make([][]string, 0, len(raw)-headerRow-1)
	for _, rec := range raw[headerRow+1:] {
		row := make([]string, len(columns))
		empty := true
		for i := range columns {
			if i >= len(rec) {
				break
			}
			row[i] = NormalizeCell(rec[i])
			if row[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	t := NewTable(kind, name, columns, rows)
	t.HeaderRow = headerRow
	return t, nil
}

// detectHeader returns the first probed row that satisfies every requirement of the kind.
// On failure the missing keywords of the closest candidate are reported.
func (l *Loader) detectHeader(kind Kind, raw [][]string) (int, error) {
	reqs := kind.requirements()
	probe := l.ProbeRows
	if probe <= 0 {
		probe = DefaultProbeRows
	}
	if probe > len(raw) {
		probe = len(raw)
	}

	var bestMissing []string
	for i := 0; i < probe; i++ {
		present := make(map[string]bool, len(raw[i]))
		for _, cell := range raw[i] {
			present[NormalizeHeader(cell)] = true
		}

		var missing []string
		for _, req := range reqs {
			if !satisfied(req, present) {
				missing = append(missing, strings.Join(req, "|"))
			}
		}
		if len(missing) == 0 {
			return i, nil
		}
		if bestMissing == nil || len(missing) < len(bestMissing) {
			bestMissing = missing
		}
	}

	if bestMissing == nil {
		bestMissing = kind.RequiredKeywords()
	}
	return 0, &HeaderError{Kind: kind, Missing: bestMissing, ProbedRows: probe}
}

func satisfied(req requirement, present map[string]bool) bool {
	for _, alt := range req {
		if present[alt] {
			return true
		}
	}
	return false
}
