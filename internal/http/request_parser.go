package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moneymanager/internal/core"
)

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are ignored so clients may echo whole records back.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return jsonError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return core.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

func jsonError(err error) error {
	var (
		verr      *core.ValidationError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &tooLarge):
		return err
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return core.NewValidationError(typeErr.Field, "is invalid")
		}
		return core.NewValidationError("", "request body must be a JSON object")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return core.NewValidationError("", "malformed JSON body")
	case errors.Is(err, io.EOF):
		return core.NewValidationError("", "request body is required")
	default:
		return core.NewValidationError("", fmt.Sprintf("invalid request body: %v", err))
	}
}

// parseFilter reads division, category, startDate and endDate from q.
// Dates are YYYY-MM-DD and endDate includes its whole day.
func parseFilter(q url.Values) (core.Filter, error) {
	f := core.Filter{
		Division: strings.TrimSpace(q.Get("division")),
		Category: strings.TrimSpace(q.Get("category")),
	}

	from, err := parseDayParam(q, "startDate")
	if err != nil {
		return core.Filter{}, err
	}
	if from != nil {
		f.From = from
	}

	to, err := parseDayParam(q, "endDate")
	if err != nil {
		return core.Filter{}, err
	}
	if to != nil {
		end := core.EndOfDay(*to)
		f.To = &end
	}
	return f, nil
}

func parseDayParam(q url.Values, name string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(core.DateLayout, v)
	if err != nil {
		return nil, core.NewValidationError(name, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}
