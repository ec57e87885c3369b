package attempt

import (
	"encoding/json"
	"testing"

	"github.com/quizforge/quizforge/internal/quiz"
)

func selectQuestion(points float64, settings string) quiz.Question {
	q := quiz.Question{ID: "q1", Type: quiz.TypeSingleSelect, Points: points}
	if settings != "" {
		q.Settings = json.RawMessage(settings)
	}
	return q
}

var selectOptions = []quiz.Option{
	{ID: "o1", Content: "a", IsCorrect: true},
	{ID: "o2", Content: "b", IsCorrect: true},
	{ID: "o3", Content: "c"},
}

func TestScoreSelectSingle(t *testing.T) {
	q := selectQuestion(2, "")
	if got := scoreQuestion(q, selectOptions, "o1"); got != 2 {
		t.Fatalf("correct pick scored %v, want 2", got)
	}
	if got := scoreQuestion(q, selectOptions, "o3"); got != 0 {
		t.Fatalf("wrong pick scored %v, want 0", got)
	}
	if got := scoreQuestion(q, selectOptions, 42); got != 0 {
		t.Fatalf("non-string response scored %v, want 0", got)
	}
}

func TestScoreSelectMultiple(t *testing.T) {
	q := selectQuestion(2, `{"allowMultiple":true}`)

	if got := scoreQuestion(q, selectOptions, []any{"o1", "o2"}); got != 2 {
		t.Fatalf("full pick scored %v, want 2", got)
	}
	if got := scoreQuestion(q, selectOptions, []any{"o1"}); got != 1 {
		t.Fatalf("half pick scored %v, want 1", got)
	}
	// any wrong pick forfeits the partial credit
	if got := scoreQuestion(q, selectOptions, []any{"o1", "o3"}); got != 0 {
		t.Fatalf("pick with a wrong option scored %v, want 0", got)
	}
	// a list without allowMultiple is rejected
	if got := scoreQuestion(selectQuestion(2, ""), selectOptions, []any{"o1", "o2"}); got != 0 {
		t.Fatalf("list response without allowMultiple scored %v, want 0", got)
	}
}

func TestScoreShortAnswer(t *testing.T) {
	q := quiz.Question{Type: quiz.TypeShortAnswer, Points: 1,
		Settings: json.RawMessage(`{"acceptedVariants":["H2O"]}`)}
	opts := []quiz.Option{{Content: "water", IsCorrect: true}}

	if got := scoreQuestion(q, opts, "  Water "); got != 1 {
		t.Fatalf("case-insensitive match scored %v, want 1", got)
	}
	if got := scoreQuestion(q, opts, "h2o"); got != 1 {
		t.Fatalf("accepted variant scored %v, want 1", got)
	}
	if got := scoreQuestion(q, opts, "ice"); got != 0 {
		t.Fatalf("wrong answer scored %v, want 0", got)
	}

	q.Settings = json.RawMessage(`{"caseSensitive":true}`)
	if got := scoreQuestion(q, opts, "Water"); got != 0 {
		t.Fatalf("case-sensitive mismatch scored %v, want 0", got)
	}
}

func TestScoreFillBlank(t *testing.T) {
	zero, one := 0, 1
	q := quiz.Question{Type: quiz.TypeFillBlank, Points: 2}
	opts := []quiz.Option{
		{Content: "cat", BlankPos: &zero},
		{Content: "mat", BlankPos: &one},
	}
	resp := map[string]any{"0": "Cat", "1": "hat"}
	if got := scoreQuestion(q, opts, resp); got != 1 {
		t.Fatalf("half-right blanks scored %v, want 1", got)
	}
	if got := scoreQuestion(q, opts, map[string]any{"0": "cat", "1": "mat"}); got != 2 {
		t.Fatalf("all blanks scored %v, want 2", got)
	}
}

func TestScoreMatching(t *testing.T) {
	q := quiz.Question{Type: quiz.TypeMatching, Points: 2}
	opts := []quiz.Option{
		{ID: "r1", Group: quiz.GroupResponse},
		{ID: "r2", Group: quiz.GroupResponse},
		{ID: "p1", Group: quiz.GroupPremise, MatchID: "r1"},
		{ID: "p2", Group: quiz.GroupPremise, MatchID: "r2"},
	}
	if got := scoreQuestion(q, opts, map[string]any{"p1": "r1", "p2": "r2"}); got != 2 {
		t.Fatalf("all pairs scored %v, want 2", got)
	}
	if got := scoreQuestion(q, opts, map[string]any{"p1": "r1", "p2": "r1"}); got != 1 {
		t.Fatalf("one pair scored %v, want 1", got)
	}
	if got := scoreQuestion(q, opts, "p1=r1"); got != 0 {
		t.Fatalf("malformed response scored %v, want 0", got)
	}
}

func TestUngradedTypesScoreZero(t *testing.T) {
	for _, typ := range []quiz.QuestionType{quiz.TypeEssay, quiz.TypeCode, quiz.TypeFileUpload} {
		q := quiz.Question{Type: typ, Points: 5}
		if got := scoreQuestion(q, nil, "anything"); got != 0 {
			t.Fatalf("%s scored %v, want 0 until graded by hand", typ, got)
		}
	}
}
