// Package http serves the JSON API.
//
// This file implements utilities for decoding request bodies and parsing
// path and query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budgetly/internal/core"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values; zero means not given.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads optional year and month query parameters.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	var params MonthParams
	v := core.NewValidationError()

	if s := strings.TrimSpace(query.Get("year")); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 || y > 9999 {
			v.Add("year", "The year must be a valid year.")
		}
		params.Year = y
	}
	if s := strings.TrimSpace(query.Get("month")); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			v.Add("month", "The month must be between 1 and 12.")
		}
		params.Month = m
	}

	if err := v.OrNil(); err != nil {
		return MonthParams{}, err
	}
	return params, nil
}

// ParseID reads a positive integer path parameter. Anything else is reported
// as core.ErrNotFound, since no record can have that ID.
func ParseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// DecodeJSON decodes a single JSON object into dst. Unknown fields, trailing
// data and bodies over MaxBodyBytes are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return core.FieldError("body", "The request body must contain a single JSON object.")
	}
	return nil
}

func bodyError(err error) error {
	var (
		syntaxErr  *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
		maxByteErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return core.FieldError("body", "The request body must not be empty.")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return core.FieldError("body", "The request body is not valid JSON.")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return core.FieldError(field, fmt.Sprintf("The %s field has the wrong type.", field))
	case errors.As(err, &maxByteErr):
		return core.FieldError("body", "The request body is too large.")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return core.FieldError(field, fmt.Sprintf("The %s field is not allowed.", field))
	default:
		return core.FieldError("body", "The request body could not be read.")
	}
}
