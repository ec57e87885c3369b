package attempt

import "context"

const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
)

type Attempt struct {
	ID          string         `json:"id"`
	QuizID      string         `json:"quiz_id"`
	UserID      string         `json:"user_id"`
	Status      string         `json:"status"`
	Score       float64        `json:"score"`
	Responses   map[string]any `json:"responses"` // questionID -> response payload
	StartedAt   int64          `json:"started_at"`
	SubmittedAt int64          `json:"submitted_at,omitempty"`
}

type ListOpts struct {
	QuizID string
	UserID string
	Status string
	Limit  int
	Offset int
}

type Store interface {
	Start(ctx context.Context, quizID, userID string) (Attempt, error)
	Get(ctx context.Context, id string) (Attempt, error)
	SaveResponses(ctx context.Context, id string, resp map[string]any) (Attempt, error)
	Submit(ctx context.Context, id string) (Attempt, error)
	List(ctx context.Context, opts ListOpts) ([]Attempt, error)

	// HasAttempts is the gate consumed by question handlers before allowing
	// structural edits or deletes that would invalidate graded attempts.
	HasAttempts(ctx context.Context, quizID string) (bool, error)
}
