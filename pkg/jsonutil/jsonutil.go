package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrTooLarge is returned by Decode when the body exceeds the limit.
var ErrTooLarge = errors.New("request body too large")

// JSON writes a JSON response with status code.
func JSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg} with status code.
func Error(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, map[string]string{"error": msg})
}

// Decode reads at most limit bytes of JSON from r into v.
func Decode(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	body := io.Reader(r.Body)
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return ErrTooLarge
		}
		return err
	}
	return nil
}
