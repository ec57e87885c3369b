package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge/internal/quiz"
)

var ErrNotFound = errors.New("attempt not found")
var ErrAlreadySubmitted = errors.New("attempt already submitted")

// SQLStore persists attempts and grades them on submit against the quiz
// store's questions and options.
type SQLStore struct {
	db      *sql.DB
	driver  string
	quizzes quiz.Store
}

func NewSQLStore(db *sql.DB, driver string, quizzes quiz.Store) *SQLStore {
	return &SQLStore{db: db, driver: driver, quizzes: quizzes}
}

func (s *SQLStore) Start(ctx context.Context, quizID, userID string) (Attempt, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return Attempt{}, err
	}
	a := Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		UserID:    userID,
		Status:    StatusInProgress,
		Responses: map[string]any{},
		StartedAt: time.Now().Unix(),
	}
	buf, _ := json.Marshal(a.Responses)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id,quiz_id,user_id,status,score,responses_json,started_at)
		 VALUES ($1,$2,$3,$4,0,$5,$6)`,
		a.ID, a.QuizID, a.UserID, a.Status, string(buf), a.StartedAt)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,quiz_id,user_id,status,score,responses_json,started_at,COALESCE(submitted_at,0)
		 FROM attempts WHERE id=$1`, id)
	return scanAttempt(row.Scan)
}

func (s *SQLStore) SaveResponses(ctx context.Context, id string, resp map[string]any) (Attempt, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == StatusSubmitted {
		return Attempt{}, ErrAlreadySubmitted
	}
	if a.Responses == nil {
		a.Responses = map[string]any{}
	}
	for k, v := range resp {
		a.Responses[k] = v
	}
	buf, _ := json.Marshal(a.Responses)
	if _, err := s.db.ExecContext(ctx, `UPDATE attempts SET responses_json=$1 WHERE id=$2`, string(buf), id); err != nil {
		return Attempt{}, err
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) Submit(ctx context.Context, id string) (Attempt, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == StatusSubmitted {
		return a, nil
	}

	questions, err := s.quizzes.ListQuestions(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	score := 0.0
	for _, q := range questions {
		resp, has := a.Responses[q.ID]
		if !has {
			continue
		}
		opts, err := s.quizzes.ListOptions(ctx, q.ID)
		if err != nil {
			return Attempt{}, err
		}
		score += scoreQuestion(q, opts, resp)
	}

	buf, _ := json.Marshal(a.Responses)
	_, err = s.db.ExecContext(ctx,
		`UPDATE attempts SET status=$1, score=$2, responses_json=$3, submitted_at=$4 WHERE id=$5`,
		StatusSubmitted, score, string(buf), time.Now().Unix(), id)
	if err != nil {
		return Attempt{}, err
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	query := `SELECT id,quiz_id,user_id,status,score,responses_json,started_at,COALESCE(submitted_at,0) FROM attempts WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if opts.QuizID != "" {
		query += ` AND quiz_id=` + arg(opts.QuizID)
	}
	if opts.UserID != "" {
		query += ` AND user_id=` + arg(opts.UserID)
	}
	if opts.Status != "" {
		query += ` AND status=` + arg(opts.Status)
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += ` ORDER BY started_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) HasAttempts(ctx context.Context, quizID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM attempts WHERE quiz_id=$1 LIMIT 1`, quizID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanAttempt(scan func(...any) error) (Attempt, error) {
	var a Attempt
	var rjson string
	if err := scan(&a.ID, &a.QuizID, &a.UserID, &a.Status, &a.Score, &rjson, &a.StartedAt, &a.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
		a.Responses = map[string]any{}
	}
	return a, nil
}
