package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used in requests
const DateLayout = "2006-01-02"

// parseID reads a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

// parsePeriodParam reads a YYYY-MM path parameter
func (h *BaseHandler) parsePeriodParam(c *gin.Context, param string) (valueobject.Period, bool) {
	p, err := valueobject.ParsePeriod(c.Param(param))
	if err != nil {
		h.HandleError(c, shared.WrapDomainError("INVALID_PERIOD", "Period must be in YYYY-MM format", err))
		return valueobject.Period{}, false
	}
	return p, true
}

// parseYear reads an optional year query parameter, defaulting to fallback
func (h *BaseHandler) parseYear(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 9999 {
		h.HandleError(c, shared.NewDomainError("INVALID_PERIOD", "Year must be a four digit number"))
		return 0, false
	}
	return year, true
}

// parseAmount parses a rupiah amount given as a decimal string
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, shared.WrapDomainError("INVALID_AMOUNT", "Amount must be a number", err)
	}
	return amount, nil
}

// parseDate parses an optional YYYY-MM-DD date; empty means nil
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_DATE", "Date must be in YYYY-MM-DD format", err)
	}
	return &t, nil
}

// parseUUIDs parses a list of ids, rejecting the first malformed one
func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, shared.WrapDomainError("INVALID_ID", "Invalid id "+strconv.Quote(s), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_ID", "Invalid id "+strconv.Quote(*raw), err)
	}
	return &id, nil
}

// upload is a file taken from a multipart form
type upload struct {
	file        multipart.File
	name        string
	size        int64
	contentType string
}

// formFile opens an uploaded file. A missing file yields (nil, true) unless
// required; an oversized or wrongly typed file is answered here.
func (h *BaseHandler) formFile(c *gin.Context, field string, required bool, maxSize int64, allowed ...string) (*upload, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Upload exceeds maximum allowed size")
			return nil, false
		}
		h.BadRequest(c, field+" file is required")
		return nil, false
	}

	if maxSize > 0 && header.Size > maxSize {
		_ = file.Close()
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			fmt.Sprintf("%s exceeds maximum size of %d KB", field, maxSize>>10))
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && len(allowed) > 0 && !slices.Contains(allowed, strings.ToLower(contentType)) {
		_ = file.Close()
		h.Error(c, http.StatusUnsupportedMediaType, "INVALID_FILE", field+" must be one of: "+strings.Join(allowed, ", "))
		return nil, false
	}

	return &upload{file: file, name: header.Filename, size: header.Size, contentType: contentType}, true
}

func (u *upload) close() {
	if u != nil {
		_ = u.file.Close()
	}
}
