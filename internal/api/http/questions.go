package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizforge/quizforge/internal/attempt"
	"github.com/quizforge/quizforge/internal/quiz"
)

type optionPayload struct {
	ID        string `json:"id,omitempty"`
	ClientRef string `json:"client_ref,omitempty"` // temp tag, resolvable by sibling match_id
	Content   string `json:"content"`
	Group     string `json:"group,omitempty" validate:"omitempty,oneof=premise response"`
	MatchID   string `json:"match_id,omitempty"`
	BlankPos  *int   `json:"blank_position,omitempty" validate:"omitempty,gte=0"`
	Position  *int   `json:"position,omitempty" validate:"omitempty,gte=0"`
	IsCorrect bool   `json:"is_correct"`
}

type questionPayload struct {
	Text     string           `json:"text" validate:"required"`
	Type     string           `json:"type" validate:"required"`
	Points   float64          `json:"points" validate:"gte=0"`
	Position *int             `json:"position,omitempty" validate:"omitempty,gte=0"`
	MediaKey string           `json:"media_key,omitempty"`
	Settings json.RawMessage  `json:"settings,omitempty"`
	Options  *[]optionPayload `json:"options,omitempty" validate:"omitempty,dive"`
}

func (p questionPayload) toEdit() (quiz.QuestionEdit, error) {
	edit := quiz.QuestionEdit{
		Text:     p.Text,
		Type:     quiz.QuestionType(p.Type),
		Points:   p.Points,
		Position: p.Position,
		MediaKey: p.MediaKey,
		Settings: p.Settings,
	}
	if p.Options == nil {
		return edit, nil
	}
	opts := make([]quiz.OptionEdit, 0, len(*p.Options))
	for i, o := range *p.Options {
		var ref quiz.OptionRef
		switch {
		case o.ID != "" && o.ClientRef != "":
			return quiz.QuestionEdit{}, &quiz.ValidationError{Fields: []quiz.FieldError{{
				Path:   fieldPath("options", i, "id"),
				Reason: "id and client_ref are mutually exclusive",
			}}}
		case o.ID != "":
			ref = quiz.PersistedRef(o.ID)
		case o.ClientRef != "":
			ref = quiz.TempRef(o.ClientRef)
		default:
			ref = quiz.NewRef()
		}
		opts = append(opts, quiz.OptionEdit{
			Ref:       ref,
			Content:   o.Content,
			Group:     o.Group,
			MatchID:   o.MatchID,
			BlankPos:  o.BlankPos,
			Position:  o.Position,
			IsCorrect: o.IsCorrect,
		})
	}
	edit.Options = &opts
	return edit, nil
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (quiz.QuestionEdit, bool) {
	var req questionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return quiz.QuestionEdit{}, false
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return quiz.QuestionEdit{}, false
	}
	edit, err := req.toEdit()
	if err != nil {
		writeEngineError(w, err)
		return quiz.QuestionEdit{}, false
	}
	return edit, true
}

// POST /quizzes/{quizID}/questions
func CreateQuestionHandler(svc *quiz.Service, store quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), quizID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !canManage(r, q) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if blocked(w, r, attempts, quizID) {
			return
		}
		edit, ok := decodeQuestion(w, r)
		if !ok {
			return
		}
		question, opts, err := svc.CreateQuestion(r.Context(), quizID, edit)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, questionView{Question: question, Options: opts})
	}
}

// PUT /questions/{questionID}
//
// The payload replaces the whole question. An absent options field leaves
// existing options untouched; an empty array deletes them all.
func EditQuestionHandler(svc *quiz.Service, store quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID := chi.URLParam(r, "questionID")
		existing, err := store.GetQuestion(r.Context(), questionID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		q, err := store.GetQuiz(r.Context(), existing.QuizID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !canManage(r, q) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if blocked(w, r, attempts, existing.QuizID) {
			return
		}
		edit, ok := decodeQuestion(w, r)
		if !ok {
			return
		}
		question, opts, err := svc.EditQuestion(r.Context(), questionID, edit)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questionView{Question: question, Options: opts})
	}
}

// DELETE /questions/{questionID}
func DeleteQuestionHandler(svc *quiz.Service, store quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID := chi.URLParam(r, "questionID")
		existing, err := store.GetQuestion(r.Context(), questionID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		q, err := store.GetQuiz(r.Context(), existing.QuizID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !canManage(r, q) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if blocked(w, r, attempts, existing.QuizID) {
			return
		}
		if err := svc.DeleteQuestion(r.Context(), questionID); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// blocked rejects structural edits once a quiz has attempts: rewriting
// questions under graded work would silently invalidate scores.
func blocked(w http.ResponseWriter, r *http.Request, attempts attempt.Store, quizID string) bool {
	has, err := attempts.HasAttempts(r.Context(), quizID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return true
	}
	if has {
		http.Error(w, "quiz has attempts; edits are locked", http.StatusConflict)
		return true
	}
	return false
}

func fieldPath(field string, i int, sub string) string {
	return field + "[" + strconv.Itoa(i) + "]." + sub
}
