// Package export writes review views to XLSX workbooks
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidFilename is returned for export filenames that cannot be used as a download name
var ErrInvalidFilename = errors.New("invalid export filename")

// ContentType is the media type of exported workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	maxFilenameLength = 100
	maxSheetName      = 31
	xlsxExt           = ".xlsx"
)

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.()-]*$`)

// Sheet is one worksheet in display order. Cells are strings, decimals or numbers.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// ValidateFilename checks a user chosen export name and returns it with the .xlsx extension
func ValidateFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: filename is required", ErrInvalidFilename)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q must not contain path separators", ErrInvalidFilename, name)
	}

	ext := filepath.Ext(name)
	switch {
	case ext == "":
		name += xlsxExt
	case strings.EqualFold(ext, xlsxExt):
		name = strings.TrimSuffix(name, ext) + xlsxExt
	default:
		return "", fmt.Errorf("%w: %q must end in .xlsx", ErrInvalidFilename, name)
	}

	if len(name) > maxFilenameLength {
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidFilename, name, maxFilenameLength)
	}
	if !filenamePattern.MatchString(strings.TrimSuffix(name, xlsxExt)) {
		return "", fmt.Errorf("%w: %q may only use letters, digits, spaces and _ . ( ) -", ErrInvalidFilename, name)
	}
	return name, nil
}

// Write renders the sheets into one workbook
func Write(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, errors.New("nothing to export")
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	used := map[string]bool{}
	for i, s := range sheets {
		base := sanitizeSheetName(s.Name)
		name := base
		idx := 1
		for used[name] {
			idx++
			name = truncateSheetName(fmt.Sprintf("%s_%d", base, idx))
		}
		used[name] = true

		if i == 0 {
			if err := xl.SetSheetName(xl.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := xl.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		header := s.Header
		if err := xl.SetSheetRow(name, "A1", &header); err != nil {
			return nil, fmt.Errorf("failed to write header of %q: %w", name, err)
		}
		for ri, row := range s.Rows {
			record := row
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			if err := xl.SetSheetRow(name, cellRef, &record); err != nil {
				return nil, fmt.Errorf("failed to write row %d of %q: %w", ri+2, name, err)
			}
		}
		if len(header) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(header), 1)
			_ = xl.AutoFilter(name, "A1:"+last, nil)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	return truncateSheetName(strings.TrimSpace(replacer.Replace(name)))
}

func truncateSheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
