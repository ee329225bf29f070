package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/edulane/assessd/internal/assess"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	AttemptID string `json:"attempt_id,omitempty"`
}

// writeErr maps domain error kinds to HTTP statuses. attempt_already_active
// carries the existing attempt's ID so clients resume instead of duplicating.
func writeErr(w http.ResponseWriter, err error) {
	var de *assess.Error
	if !errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal", Message: err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch de.Kind {
	case assess.KindValidation:
		status = http.StatusBadRequest
	case assess.KindConflict:
		status = http.StatusConflict
	case assess.KindAuthorization:
		status = http.StatusForbidden
	case assess.KindNotFound:
		status = http.StatusNotFound
	case assess.KindInfra:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errBody{Error: de.Code, Message: de.Message, AttemptID: de.AttemptID})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
