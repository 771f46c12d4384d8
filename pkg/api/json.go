package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errBadJSON      = errors.New("request body is not valid JSON")
)

// readJSON decodes exactly one JSON value into dst and rejects unknown fields.
// An unknown field is reported by name.
func readJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return fmt.Errorf("%w: unknown field %s", errBadJSON, field)
		}
		return errBadJSON
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errBadJSON
	}
	return nil
}
