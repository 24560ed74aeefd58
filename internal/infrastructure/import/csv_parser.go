// Package csvimport reads spreadsheet exports (CSV) into typed rows.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is how much of the input is checked for encoding and delimiter
const sniffSize = 4096

// Parser reads a CSV with a header row. A UTF-8 or UTF-16 byte order mark is
// honoured and dropped; input without one must be UTF-8.
type Parser struct {
	reader    *csv.Reader
	headers   []string
	index     map[string]int
	line      int
	delimiter rune
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithDelimiter fixes the delimiter instead of detecting it
func WithDelimiter(d rune) ParserOption {
	return func(p *Parser) { p.delimiter = d }
}

// NewParser prepares r for reading and consumes the header row
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	p := &Parser{index: make(map[string]int)}
	for _, opt := range opts {
		opt(p)
	}

	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	br := bufio.NewReaderSize(decoded, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	// the decoder turns invalid bytes into U+FFFD
	if bytes.ContainsRune(trimPartialRune(head), utf8.RuneError) {
		return nil, ErrInvalidEncoding
	}
	if p.delimiter == 0 {
		p.delimiter = detectDelimiter(head)
	}

	p.reader = csv.NewReader(br)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1

	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	p.line, _ = p.reader.FieldPos(0)
	p.headers = make([]string, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		p.headers[i] = h
		p.index[normalizeHeader(h)] = i
	}
	return p, nil
}

// Headers returns the header row as written
func (p *Parser) Headers() []string {
	return p.headers
}

// Missing returns the required headers that are absent. Matching ignores
// case, spaces and underscores.
func (p *Parser) Missing(required ...string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.index[normalizeHeader(h)]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data line
type Row struct {
	// Line is the 1-based line number, the header being line 1
	Line   int
	fields []string
	index  map[string]int
}

// Get returns the trimmed value of a column, "" when absent
func (r Row) Get(header string) string {
	i, ok := r.index[normalizeHeader(header)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// IsBlank reports whether every field is empty
func (r Row) IsBlank() bool {
	for _, f := range r.fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Next returns the next non-blank row or io.EOF
func (p *Parser) Next() (Row, error) {
	for {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.line = perr.Line
				return Row{}, NewRowError(perr.Line, "", ErrCodeMalformedRow, perr.Err.Error())
			}
			return Row{}, fmt.Errorf("failed to read row: %w", err)
		}
		// encoding/csv skips empty lines, so count from the reader
		p.line, _ = p.reader.FieldPos(0)
		row := Row{Line: p.line, fields: record, index: p.index}
		if !row.IsBlank() {
			return row, nil
		}
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// detectDelimiter picks ';' for spreadsheets exported with a comma decimal
// locale, ',' otherwise
func detectDelimiter(head []byte) rune {
	firstLine := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = head[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

// trimPartialRune drops a multi-byte rune cut off at the end of a peek
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
