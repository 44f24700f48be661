package refdata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingInput means a table could not be read; the dependent feature is unavailable
	ErrMissingInput = errors.New("reference table unavailable")
	// ErrSchemaMismatch means an expected column is absent; the step using it is skipped
	ErrSchemaMismatch = errors.New("reference table is missing an expected column")
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// HeaderError reports that no probed row carried the required header keywords
type HeaderError struct {
	Kind       Kind
	Missing    []string
	ProbedRows int
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: no header row found in the first %d rows; missing keywords: %s",
		e.Kind, e.ProbedRows, strings.Join(e.Missing, ", "))
}

// IsHeaderError reports whether err is a header detection failure
func IsHeaderError(err error) bool {
	var he *HeaderError
	return errors.As(err, &he)
}

func schemaMismatch(kind Kind, columns ...string) error {
	return fmt.Errorf("%w: %s requires %s", ErrSchemaMismatch, kind, strings.Join(columns, " or "))
}
