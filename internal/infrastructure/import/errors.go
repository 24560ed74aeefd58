package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	ErrCodeMalformedRow  = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidValue  = "ERR_IMPORT_INVALID_VALUE"
	ErrCodeDuplicateRow  = "ERR_IMPORT_DUPLICATE_IN_FILE"
)

var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
	ErrNoDataRows      = errors.New("CSV file contains no data rows")
)

// RowError is a problem with one line of the file
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// ErrorCollection gathers row errors up to a limit while counting all of them
type ErrorCollection struct {
	errors []RowError
	limit  int
	total  int
}

// NewErrorCollection creates a collection keeping at most limit errors
func NewErrorCollection(limit int) *ErrorCollection {
	if limit <= 0 {
		limit = 100
	}
	return &ErrorCollection{limit: limit}
}

// Add records an error
func (c *ErrorCollection) Add(err RowError) {
	c.total++
	if len(c.errors) < c.limit {
		c.errors = append(c.errors, err)
	}
}

// Errors returns the kept errors in insertion order
func (c *ErrorCollection) Errors() []RowError {
	return c.errors
}

// Total counts every error added, kept or not
func (c *ErrorCollection) Total() int {
	return c.total
}

// HasErrors reports whether anything was added
func (c *ErrorCollection) HasErrors() bool {
	return c.total > 0
}

// Truncated reports whether errors were dropped over the limit
func (c *ErrorCollection) Truncated() bool {
	return c.total > c.limit
}

// Error summarises the collection so it can be returned as an error
func (c *ErrorCollection) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d row error(s)", c.total)
	for i, e := range c.errors {
		if i == 3 {
			fmt.Fprintf(&b, "; ...")
			break
		}
		fmt.Fprintf(&b, "; %s", e.Error())
	}
	return b.String()
}
