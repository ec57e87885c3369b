package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/quizforge/quizforge/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEngineError maps question-engine failures onto HTTP statuses:
// malformed payloads are 400, unresolvable references 422, not-found 404,
// and anything that aborted a transaction mid-flight 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var vErr *quiz.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": vErr.Fields,
		})
		return
	}
	var rErr *quiz.ReferenceError
	if errors.As(err, &rErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": rErr.Error(),
			"path":  rErr.Path,
			"ref":   rErr.Ref,
		})
		return
	}
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound),
		errors.Is(err, quiz.ErrQuestionNotFound),
		errors.Is(err, quiz.ErrOptionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
