package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quizforge/quizforge/internal/attempt"
	authmw "github.com/quizforge/quizforge/internal/auth/middleware"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/rbac"
)

var validate = validator.New()

type quizPayload struct {
	Title        string `json:"title" validate:"required,max=300"`
	Description  string `json:"description"`
	TimeLimitSec int    `json:"time_limit_sec" validate:"gte=0"`
	Published    bool   `json:"published"`
}

// POST /quizzes
func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q := quiz.Quiz{
			OwnerID:      authmw.SubjectFromContext(r.Context()),
			Title:        strings.TrimSpace(req.Title),
			Description:  req.Description,
			TimeLimitSec: req.TimeLimitSec,
			Published:    req.Published,
		}
		id, err := store.CreateQuiz(r.Context(), q)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		q.ID = id
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /quizzes?q=&limit=&offset=&mine=1
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := quiz.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if r.URL.Query().Get("mine") == "1" {
			opts.OwnerID = authmw.SubjectFromContext(r.Context())
		}
		list, err := store.ListQuizzes(r.Context(), opts)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type questionView struct {
	quiz.Question
	Options []quiz.Option `json:"options"`
}

type quizView struct {
	quiz.Quiz
	Questions []questionView `json:"questions"`
}

// GET /quizzes/{quizID}
//
// Owners and admins get the full authoring view. Everyone else gets the
// taking view: answer keys stripped, and option rows dropped entirely for
// types whose option content IS the answer.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		full := canManage(r, q)
		questions, err := store.ListQuestions(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		view := quizView{Quiz: q, Questions: make([]questionView, 0, len(questions))}
		for _, qq := range questions {
			opts, err := store.ListOptions(r.Context(), qq.ID)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			if !full {
				opts = redactOptions(qq.Type, opts)
			}
			view.Questions = append(view.Questions, questionView{Question: qq, Options: opts})
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(store quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !canManage(r, q) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		has, err := attempts.HasAttempts(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if has {
			http.Error(w, "quiz has attempts", http.StatusConflict)
			return
		}
		if err := store.DeleteQuiz(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func canManage(r *http.Request, q quiz.Quiz) bool {
	role := rbac.RoleFromContext(r.Context())
	if role == "admin" {
		return true
	}
	sub := authmw.SubjectFromContext(r.Context())
	return sub != "" && sub == q.OwnerID && rbac.Has(role, "question:edit")
}

// redactOptions builds the student-safe projection of a question's options.
func redactOptions(t quiz.QuestionType, opts []quiz.Option) []quiz.Option {
	switch t {
	case quiz.TypeShortAnswer, quiz.TypeFillBlank:
		// option content is the answer key
		return []quiz.Option{}
	}
	out := make([]quiz.Option, 0, len(opts))
	for _, o := range opts {
		o.IsCorrect = false
		o.MatchID = ""
		out = append(out, o)
	}
	return out
}
