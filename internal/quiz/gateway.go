package quiz

import "context"

// ListOpts filters quiz listings.
type ListOpts struct {
	Q       string
	OwnerID string
	Limit   int
	Offset  int
}

// Tx is the mutation surface of one ambient transaction. Everything issued
// through one Tx commits or rolls back as a unit; option identity is assigned
// here, never by the client.
type Tx interface {
	GetQuestion(ctx context.Context, id string) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) error
	CreateQuestion(ctx context.Context, q Question) (string, error)
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, quizID string) ([]Question, error)
	SetQuestionPosition(ctx context.Context, id string, pos int) error

	ListOptions(ctx context.Context, questionID string) ([]Option, error)
	CreateOption(ctx context.Context, o Option) (string, error)
	UpdateOption(ctx context.Context, o Option) error
	DeleteOptions(ctx context.Context, ids []string) error
}

// Store is the persistence gateway. Reads outside a transaction serve the
// GET surface; every mutation goes through WithTx.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	CreateQuiz(ctx context.Context, q Quiz) (string, error)
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error

	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, quizID string) ([]Question, error)
	ListOptions(ctx context.Context, questionID string) ([]Option, error)
}
