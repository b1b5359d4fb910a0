package lcov

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrReportNotFound is returned when the tracefile does not exist.
	ErrReportNotFound = errors.New("lcov report not found")
	// ErrEmptyReport is returned when the tracefile has no content at all.
	ErrEmptyReport = errors.New("lcov report is empty")
)

// ReadFile loads a tracefile. The path "-" reads from stdin.
func ReadFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w at %s", ErrReportNotFound, path)
		}
		return "", fmt.Errorf("failed to read lcov report %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyReport, path)
	}
	return string(data), nil
}

// ParseFile reads and parses the tracefile at path.
func ParseFile(path, root string) (*Report, error) {
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(text, root), nil
}
