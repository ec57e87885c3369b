package quiz

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory gateway for offline development and tests.
// WithTx snapshots the maps up front and restores them if the function
// fails, so rollback semantics match the SQL store.
type MemStore struct {
	mu        sync.Mutex
	quizzes   map[string]Quiz
	questions map[string]Question
	options   map[string]Option
}

func NewMemStore() *MemStore {
	return &MemStore{
		quizzes:   map[string]Quiz{},
		questions: map[string]Question{},
		options:   map[string]Option{},
	}
}

func (m *MemStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapQuizzes := cloneMap(m.quizzes)
	snapQuestions := cloneMap(m.questions)
	snapOptions := cloneMap(m.options)
	if err := fn(&memTx{store: m}); err != nil {
		m.quizzes = snapQuizzes
		m.questions = snapQuestions
		m.options = snapOptions
		return err
	}
	return nil
}

func (m *MemStore) CreateQuiz(ctx context.Context, q Quiz) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now().Unix()
	m.quizzes[q.ID] = q
	return q.ID, nil
}

func (m *MemStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

func (m *MemStore) DeleteQuiz(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return ErrQuizNotFound
	}
	delete(m.quizzes, id)
	for qid, q := range m.questions {
		if q.QuizID != id {
			continue
		}
		delete(m.questions, qid)
		for oid, o := range m.options {
			if o.QuestionID == qid {
				delete(m.options, oid)
			}
		}
	}
	return nil
}

func (m *MemStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Quiz{}
	for _, q := range m.quizzes {
		if opts.OwnerID != "" && q.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Q != "" && !strings.Contains(strings.ToLower(q.Title), strings.ToLower(opts.Q)) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt > out[b].CreatedAt })
	return out, nil
}

func (m *MemStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getQuestion(id)
}

func (m *MemStore) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listQuestions(quizID), nil
}

func (m *MemStore) ListOptions(ctx context.Context, questionID string) ([]Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listOptions(questionID), nil
}

func (m *MemStore) getQuestion(id string) (Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (m *MemStore) listQuestions(quizID string) []Question {
	out := []Question{}
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Position < out[b].Position })
	return out
}

func (m *MemStore) listOptions(questionID string) []Option {
	out := []Option{}
	for _, o := range m.options {
		if o.QuestionID == questionID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Group != out[b].Group {
			return out[a].Group < out[b].Group
		}
		return out[a].Position < out[b].Position
	})
	return out
}

// memTx mutates the store directly; WithTx already holds the lock and the
// rollback snapshot.
type memTx struct {
	store *MemStore
}

func (t *memTx) GetQuestion(ctx context.Context, id string) (Question, error) {
	return t.store.getQuestion(id)
}

func (t *memTx) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	return t.store.listQuestions(quizID), nil
}

func (t *memTx) ListOptions(ctx context.Context, questionID string) ([]Option, error) {
	return t.store.listOptions(questionID), nil
}

func (t *memTx) CreateQuestion(ctx context.Context, q Question) (string, error) {
	q.ID = uuid.NewString()
	t.store.questions[q.ID] = q
	return q.ID, nil
}

func (t *memTx) UpdateQuestion(ctx context.Context, q Question) error {
	if _, ok := t.store.questions[q.ID]; !ok {
		return ErrQuestionNotFound
	}
	t.store.questions[q.ID] = q
	return nil
}

func (t *memTx) DeleteQuestion(ctx context.Context, id string) error {
	delete(t.store.questions, id)
	for oid, o := range t.store.options {
		if o.QuestionID == id {
			delete(t.store.options, oid)
		}
	}
	return nil
}

func (t *memTx) SetQuestionPosition(ctx context.Context, id string, pos int) error {
	q, ok := t.store.questions[id]
	if !ok {
		return ErrQuestionNotFound
	}
	q.Position = pos
	t.store.questions[id] = q
	return nil
}

func (t *memTx) CreateOption(ctx context.Context, o Option) (string, error) {
	o.ID = uuid.NewString()
	t.store.options[o.ID] = o
	return o.ID, nil
}

func (t *memTx) UpdateOption(ctx context.Context, o Option) error {
	if _, ok := t.store.options[o.ID]; !ok {
		return ErrOptionNotFound
	}
	t.store.options[o.ID] = o
	return nil
}

func (t *memTx) DeleteOptions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(t.store.options, id)
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
