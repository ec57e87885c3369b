package quiz

import (
	"context"
	"errors"
	"log"
	"sort"
)

// Service runs whole-question edits end to end: pure validation first, then
// one transaction covering the question update, option reconciliation,
// sibling re-sequencing and the defensive rechecks. Authorization and the
// attempt-existence gate are the caller's job; the service never checks them.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateQuestion appends a question to a quiz. Without an explicit position
// it lands at max+1; with one, siblings are compacted around it. Option rules
// for the type are enforced exactly as on edit.
func (s *Service) CreateQuestion(ctx context.Context, quizID string, edit QuestionEdit) (Question, []Option, error) {
	if err := ValidateEdit(edit); err != nil {
		return Question{}, nil, err
	}
	if edit.Type.UsesOptions() && edit.Options == nil {
		return Question{}, nil, &ValidationError{Fields: []FieldError{{Path: "options", Reason: "required when creating a " + string(edit.Type) + " question"}}}
	}
	settings, err := NormalizeSettings(edit.Type, edit.Settings, nil)
	if err != nil {
		return Question{}, nil, err
	}

	var out Question
	var outOpts []Option
	txErr := s.store.WithTx(ctx, func(tx Tx) error {
		siblings, err := tx.ListQuestions(ctx, quizID)
		if err != nil {
			return &PersistenceError{Op: "list questions", Err: err}
		}
		q := Question{
			QuizID:   quizID,
			Text:     edit.Text,
			Type:     edit.Type,
			Points:   edit.Points,
			MediaKey: edit.MediaKey,
			Settings: settings,
		}
		positions := make([]int, 0, len(siblings))
		for _, sib := range siblings {
			positions = append(positions, sib.Position)
		}
		if edit.Position != nil {
			q.Position = *edit.Position
		} else {
			q.Position = NextPosition(positions)
		}

		id, err := tx.CreateQuestion(ctx, q)
		if err != nil {
			return &PersistenceError{Op: "create question", Err: err}
		}
		q.ID = id

		if edit.Position != nil {
			if err := resequenceQuiz(ctx, tx, quizID); err != nil {
				return err
			}
		}

		if edit.Options != nil {
			if err := s.applyOptions(ctx, tx, q, *edit.Options); err != nil {
				return err
			}
		}

		out, err = tx.GetQuestion(ctx, id)
		if err != nil {
			return &PersistenceError{Op: "get question", Err: err}
		}
		outOpts, err = tx.ListOptions(ctx, id)
		if err != nil {
			return &PersistenceError{Op: "list options", Err: err}
		}
		return nil
	})
	if txErr != nil {
		return Question{}, nil, s.surface(quizID, txErr)
	}
	return out, outOpts, nil
}

// EditQuestion applies one whole-question edit payload. An absent options
// field leaves existing options completely untouched; an empty array deletes
// them all. No partial success: the transaction commits everything or
// nothing.
func (s *Service) EditQuestion(ctx context.Context, questionID string, edit QuestionEdit) (Question, []Option, error) {
	if err := ValidateEdit(edit); err != nil {
		return Question{}, nil, err
	}

	var out Question
	var outOpts []Option
	txErr := s.store.WithTx(ctx, func(tx Tx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			if errors.Is(err, ErrQuestionNotFound) {
				return err
			}
			return &PersistenceError{Op: "get question", Err: err}
		}

		settings, err := NormalizeSettings(edit.Type, edit.Settings, q.Settings)
		if err != nil {
			return err
		}

		q.Text = edit.Text
		q.Type = edit.Type
		q.Points = edit.Points
		q.MediaKey = edit.MediaKey
		q.Settings = settings
		if edit.Position != nil {
			q.Position = *edit.Position
		}
		if err := tx.UpdateQuestion(ctx, q); err != nil {
			return &PersistenceError{Op: "update question", Err: err}
		}
		if edit.Position != nil {
			if err := resequenceQuiz(ctx, tx, q.QuizID); err != nil {
				return err
			}
		}

		if edit.Options != nil {
			if err := s.applyOptions(ctx, tx, q, *edit.Options); err != nil {
				return err
			}
		}

		out, err = tx.GetQuestion(ctx, questionID)
		if err != nil {
			return &PersistenceError{Op: "get question", Err: err}
		}
		outOpts, err = tx.ListOptions(ctx, questionID)
		if err != nil {
			return &PersistenceError{Op: "list options", Err: err}
		}
		return nil
	})
	if txErr != nil {
		return Question{}, nil, s.surface(questionID, txErr)
	}
	return out, outOpts, nil
}

// DeleteQuestion removes a question and renumbers the survivors 0..N-1 in
// their prior relative order. The owning quiz's attempt gate is checked by
// the caller, not here.
func (s *Service) DeleteQuestion(ctx context.Context, questionID string) error {
	txErr := s.store.WithTx(ctx, func(tx Tx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			if errors.Is(err, ErrQuestionNotFound) {
				return err
			}
			return &PersistenceError{Op: "get question", Err: err}
		}
		if err := tx.DeleteQuestion(ctx, questionID); err != nil {
			return &PersistenceError{Op: "delete question", Err: err}
		}
		return resequenceQuiz(ctx, tx, q.QuizID)
	})
	return s.surface(questionID, txErr)
}

func (s *Service) applyOptions(ctx context.Context, tx Tx, q Question, submitted []OptionEdit) error {
	if q.Type == TypeMatching {
		return syncMatching(ctx, tx, q, submitted)
	}
	return reconcileOptions(ctx, tx, q, submitted)
}

// surface logs invariant violations apart from ordinary failures before
// handing the error back.
func (s *Service) surface(id string, err error) error {
	var inv *InvariantViolationError
	if errors.As(err, &inv) {
		log.Printf("quiz: invariant violation on question %s: %v", id, inv)
	}
	return err
}

// resequenceQuiz compacts question positions within a quiz to 0..N-1,
// preserving relative order.
func resequenceQuiz(ctx context.Context, tx Tx, quizID string) error {
	siblings, err := tx.ListQuestions(ctx, quizID)
	if err != nil {
		return &PersistenceError{Op: "list questions", Err: err}
	}
	sort.SliceStable(siblings, func(a, b int) bool {
		return siblings[a].Position < siblings[b].Position
	})
	for i, sib := range siblings {
		if sib.Position == i {
			continue
		}
		if err := tx.SetQuestionPosition(ctx, sib.ID, i); err != nil {
			return &PersistenceError{Op: "set question position", Err: err}
		}
	}
	return nil
}
