package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/rt44/backend/internal/domain/dues"
)

// House import columns
const (
	ColBlock          = "Blok"
	ColNumber         = "Nomor"
	ColName           = "Nama"
	ColEmail          = "Email"
	ColPhone          = "Phone"
	ColOccupancy      = "StatusHuni"
	ColResidentStatus = "StatusResiden"
)

// HouseColumns is the header of the import template
var HouseColumns = []string{ColBlock, ColNumber, ColName, ColEmail, ColPhone, ColOccupancy, ColResidentStatus}

var houseExample = []string{"G", "1", "Budi Santoso", "budi@example.com", "08123456789", "berpenghuni", "pemilik"}

// HouseRow is one validated line of a house import
type HouseRow struct {
	Line           int
	Block          string
	Number         string
	OwnerName      string
	Email          string
	Phone          string
	Occupancy      dues.Occupancy
	ResidentStatus dues.ResidentStatus
}

// ReadHouseRows parses and validates a house import. Row problems are
// collected into the returned ErrorCollection; a non-nil error means the file
// itself could not be read.
func ReadHouseRows(r io.Reader) ([]HouseRow, *ErrorCollection, error) {
	p, err := NewParser(r)
	if err != nil {
		return nil, nil, err
	}
	if missing := p.Missing(ColBlock, ColNumber); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing columns %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	errs := NewErrorCollection(100)
	seen := make(map[string]int)
	rows := make([]HouseRow, 0)
	for {
		row, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			errs.Add(rowErr)
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		hr, ok := decodeHouseRow(row, errs)
		if !ok {
			continue
		}
		key := strings.ToUpper(hr.Block) + "/" + strings.ToUpper(hr.Number)
		if first, dup := seen[key]; dup {
			errs.Add(NewRowError(row.Line, ColNumber, ErrCodeDuplicateRow,
				fmt.Sprintf("house %s/%s already appears on row %d", hr.Block, hr.Number, first)))
			continue
		}
		seen[key] = row.Line
		rows = append(rows, hr)
	}

	if len(rows) == 0 && !errs.HasErrors() {
		return nil, nil, ErrNoDataRows
	}
	return rows, errs, nil
}

func decodeHouseRow(row Row, errs *ErrorCollection) (HouseRow, bool) {
	hr := HouseRow{
		Line:      row.Line,
		Block:     row.Get(ColBlock),
		Number:    row.Get(ColNumber),
		OwnerName: row.Get(ColName),
		Email:     strings.ToLower(row.Get(ColEmail)),
		Phone:     row.Get(ColPhone),
	}
	ok := true
	if hr.Block == "" {
		errs.Add(NewRowError(row.Line, ColBlock, ErrCodeRequiredField, "block is required"))
		ok = false
	}
	if hr.Number == "" {
		errs.Add(NewRowError(row.Line, ColNumber, ErrCodeRequiredField, "house number is required"))
		ok = false
	}
	if hr.Email != "" {
		if _, err := mail.ParseAddress(hr.Email); err != nil {
			errs.Add(NewRowError(row.Line, ColEmail, ErrCodeInvalidValue, fmt.Sprintf("%q is not an email address", hr.Email)))
			ok = false
		}
	}

	occ, err := dues.ParseOccupancy(row.Get(ColOccupancy))
	if err != nil {
		errs.Add(NewRowError(row.Line, ColOccupancy, ErrCodeInvalidValue, "expected berpenghuni or kosong"))
		ok = false
	}
	hr.Occupancy = occ

	status := row.Get(ColResidentStatus)
	if status == "" {
		status = "pemilik"
	}
	rs, err := dues.ParseResidentStatus(status)
	if err != nil {
		errs.Add(NewRowError(row.Line, ColResidentStatus, ErrCodeInvalidValue, "expected pemilik or kontrak"))
		ok = false
	}
	hr.ResidentStatus = rs
	return hr, ok
}

// WriteHouseTemplate writes the header and one example row
func WriteHouseTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HouseColumns); err != nil {
		return err
	}
	if err := cw.Write(houseExample); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
