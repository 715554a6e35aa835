package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// decode parses a JSON request body. On failure it writes the error envelope
// and reports false.
func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError emits the shared error envelope. Messages must never contain a
// BSN or other citizen data.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": message,
	})
}

// ValidateBSN checks the nine-digit format and the elfproef checksum.
func ValidateBSN(bsn string) error {
	if len(bsn) != 9 {
		return fmt.Errorf("bsn must be nine digits")
	}
	sum := 0
	for i, c := range bsn {
		if c < '0' || c > '9' {
			return fmt.Errorf("bsn must be nine digits")
		}
		digit := int(c - '0')
		weight := 9 - i
		if weight == 1 {
			weight = -1
		}
		sum += digit * weight
	}
	if sum%11 != 0 {
		return fmt.Errorf("bsn fails the elfproef check")
	}
	return nil
}
