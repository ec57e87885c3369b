package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLStore is the durable gateway over database/sql. Placeholders use the $N
// form, which both the pgx stdlib driver and modernc sqlite accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// querier is the subset shared by *sql.DB and *sql.Tx so reads can run both
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id,owner_id,title,description,time_limit_sec,published,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.OwnerID, q.Title, q.Description, q.TimeLimitSec, q.Published, time.Now().Unix())
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,owner_id,title,description,time_limit_sec,published,created_at FROM quizzes WHERE id=$1`, id)
	var q Quiz
	if err := row.Scan(&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.TimeLimitSec, &q.Published, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrQuizNotFound
	}
	return nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	where := []string{"1=1"}
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if opts.OwnerID != "" {
		where = append(where, "owner_id="+arg(opts.OwnerID))
	}
	if strings.TrimSpace(opts.Q) != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(opts.Q)) + "%"
		where = append(where, "LOWER(title) LIKE "+arg(like))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id,owner_id,title,description,time_limit_sec,published,created_at FROM quizzes WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.TimeLimitSec, &q.Published, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	return getQuestion(ctx, s.db, id)
}

func (s *SQLStore) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	return listQuestions(ctx, s.db, quizID)
}

func (s *SQLStore) ListOptions(ctx context.Context, questionID string) ([]Option, error) {
	return listOptions(ctx, s.db, questionID)
}

// ---- transactional mutation surface ----

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) GetQuestion(ctx context.Context, id string) (Question, error) {
	return getQuestion(ctx, t.tx, id)
}

func (t *sqlTx) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	return listQuestions(ctx, t.tx, quizID)
}

func (t *sqlTx) ListOptions(ctx context.Context, questionID string) ([]Option, error) {
	return listOptions(ctx, t.tx, questionID)
}

func (t *sqlTx) CreateQuestion(ctx context.Context, q Question) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO questions (id,quiz_id,prompt,qtype,points,position,media_key,settings_json,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)`,
		id, q.QuizID, q.Text, string(q.Type), q.Points, q.Position, q.MediaKey, settingsColumn(q.Settings), time.Now().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (t *sqlTx) UpdateQuestion(ctx context.Context, q Question) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE questions SET prompt=$1,qtype=$2,points=$3,position=$4,media_key=$5,settings_json=$6,updated_at=$7 WHERE id=$8`,
		q.Text, string(q.Type), q.Points, q.Position, q.MediaKey, settingsColumn(q.Settings), time.Now().Unix(), q.ID)
	return err
}

func (t *sqlTx) DeleteQuestion(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	return err
}

func (t *sqlTx) SetQuestionPosition(ctx context.Context, id string, pos int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE questions SET position=$1 WHERE id=$2`, pos, id)
	return err
}

func (t *sqlTx) CreateOption(ctx context.Context, o Option) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO question_options (id,question_id,content,grp,match_id,blank_position,position,is_correct)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, o.QuestionID, o.Content, o.Group, o.MatchID, blankColumn(o.BlankPos), o.Position, o.IsCorrect)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (t *sqlTx) UpdateOption(ctx context.Context, o Option) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE question_options SET content=$1,grp=$2,match_id=$3,blank_position=$4,position=$5,is_correct=$6 WHERE id=$7`,
		o.Content, o.Group, o.MatchID, blankColumn(o.BlankPos), o.Position, o.IsCorrect, o.ID)
	return err
}

func (t *sqlTx) DeleteOptions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM question_options WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	return err
}

// ---- shared row helpers ----

func getQuestion(ctx context.Context, q querier, id string) (Question, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id,quiz_id,prompt,qtype,points,position,media_key,settings_json FROM questions WHERE id=$1`, id)
	out, err := scanQuestion(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, err
	}
	return out, nil
}

func listQuestions(ctx context.Context, q querier, quizID string) ([]Question, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id,quiz_id,prompt,qtype,points,position,media_key,settings_json FROM questions
		 WHERE quiz_id=$1 ORDER BY position ASC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

func scanQuestion(scan func(...any) error) (Question, error) {
	var q Question
	var typ, settings string
	if err := scan(&q.ID, &q.QuizID, &q.Text, &typ, &q.Points, &q.Position, &q.MediaKey, &settings); err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(typ)
	if settings != "" {
		q.Settings = json.RawMessage(settings)
	}
	return q, nil
}

func listOptions(ctx context.Context, q querier, questionID string) ([]Option, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id,question_id,content,grp,match_id,blank_position,position,is_correct FROM question_options
		 WHERE question_id=$1 ORDER BY grp ASC, position ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Option{}
	for rows.Next() {
		var o Option
		var blank sql.NullInt64
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Content, &o.Group, &o.MatchID, &blank, &o.Position, &o.IsCorrect); err != nil {
			return nil, err
		}
		if blank.Valid {
			v := int(blank.Int64)
			o.BlankPos = &v
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func settingsColumn(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}

func blankColumn(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
