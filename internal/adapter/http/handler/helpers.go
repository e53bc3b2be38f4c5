package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
)

// maxJSONBody caps request bodies other than statement uploads.
const maxJSONBody = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrMissingCompany):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status. Internal errors are logged and not echoed.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeError(w, status, message, "internal error")
		return
	}

	resp := dto.ErrorResponse{Error: message, Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	var cerr *domain.ConfigurationError
	if errors.As(err, &cerr) {
		resp.MissingCodes = cerr.MissingCodes
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON body into v and runs its struct validation.
// An empty body decodes as the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return domain.NewValidationError("", "invalid request body: "+err.Error())
	}
	return dto.Validate(v)
}

// companyFromRequest returns the company the caller is scoped to.
func companyFromRequest(r *http.Request) (string, error) {
	p, ok := domain.PrincipalFromContext(r.Context())
	if !ok || p.CompanyID == "" {
		return "", domain.ErrMissingCompany
	}
	return p.CompanyID, nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	d, err := dto.ParseDate(val)
	if err != nil {
		return nil, domain.NewValidationError(key, "expected YYYY-MM-DD, got "+val)
	}
	return &d.Time, nil
}

// requireDateRange parses mandatory from/to query parameters.
func requireDateRange(r *http.Request) (from, to time.Time, err error) {
	f, err := parseDateQuery(r, "from")
	if err != nil {
		return from, to, err
	}
	t, err := parseDateQuery(r, "to")
	if err != nil {
		return from, to, err
	}
	if f == nil || t == nil {
		return from, to, domain.NewValidationError("from", "from and to are required")
	}
	return *f, *t, nil
}

// parsePeriod reads the {year}/{month} path segments.
func parsePeriod(yearStr, monthStr string) (year, month int, err error) {
	year, err = strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, domain.NewValidationError("year", fmt.Sprintf("invalid year %q", yearStr))
	}
	month, err = strconv.Atoi(monthStr)
	if err != nil {
		return 0, 0, domain.NewValidationError("month", fmt.Sprintf("invalid month %q", monthStr))
	}
	return year, month, nil
}
