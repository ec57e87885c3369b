package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func newTestQuiz(t *testing.T, store Store) string {
	t.Helper()
	id, err := store.CreateQuiz(context.Background(), Quiz{OwnerID: "t-1", Title: "unit 3 review"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return id
}

func singleSelectEdit(contents ...string) QuestionEdit {
	opts := make([]OptionEdit, len(contents))
	for i, c := range contents {
		opts[i] = OptionEdit{Content: c, IsCorrect: i == 0}
	}
	return QuestionEdit{Text: "pick one", Type: TypeSingleSelect, Points: 1, Options: &opts}
}

func assertPositionsDense(t *testing.T, opts []Option) {
	t.Helper()
	seen := map[int]bool{}
	for _, o := range opts {
		seen[o.Position] = true
	}
	for i := 0; i < len(opts); i++ {
		if !seen[i] {
			t.Fatalf("positions not dense 0..%d: %+v", len(opts)-1, opts)
		}
	}
}

func TestCreateQuestionAssignsDensePositions(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)

	q, opts, err := svc.CreateQuestion(context.Background(), quizID, singleSelectEdit("a", "b", "c"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Position != 0 {
		t.Fatalf("first question position = %d, want 0", q.Position)
	}
	if len(opts) != 3 {
		t.Fatalf("got %d options, want 3", len(opts))
	}
	assertPositionsDense(t, opts)
	if !opts[0].IsCorrect {
		t.Fatalf("correct flag lost: %+v", opts)
	}
}

func TestCreateQuestionRequiresOptionsForOptionTypes(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)

	_, _, err := svc.CreateQuestion(context.Background(), quizID,
		QuestionEdit{Text: "pick one", Type: TypeSingleSelect, Points: 1})
	assertFieldError(t, err, "options")
}

func TestCreateQuestionMigratesLegacySettings(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)

	edit := singleSelectEdit("a", "b")
	edit.Settings = json.RawMessage(`{"allowMultipleAnswers":true}`)
	q, _, err := svc.CreateQuestion(context.Background(), quizID, edit)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(q.Settings, &m); err != nil {
		t.Fatalf("settings: %v", err)
	}
	if m["allowMultiple"] != true {
		t.Fatalf("legacy key not migrated on create: %v", m)
	}
}

func TestEditQuestionDeletesOrphans(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, opts, err := svc.CreateQuestion(ctx, quizID, singleSelectEdit("a", "b", "c"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	keepID := opts[1].ID

	edit := QuestionEdit{
		Text: "pick one", Type: TypeSingleSelect, Points: 1,
		Options: &[]OptionEdit{
			{Ref: PersistedRef(keepID), Content: "b updated", IsCorrect: true},
			{Content: "d"},
		},
	}
	_, final, err := svc.EditQuestion(ctx, q.ID, edit)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("got %d options, want 2: %+v", len(final), final)
	}
	byID := optionsByID(final)
	kept, ok := byID[keepID]
	if !ok {
		t.Fatalf("kept option %s missing from %+v", keepID, final)
	}
	if kept.Content != "b updated" {
		t.Fatalf("kept option not updated: %+v", kept)
	}
	assertPositionsDense(t, final)
}

func TestEditQuestionOmittedOptionsUntouched(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, before, err := svc.CreateQuestion(ctx, quizID, singleSelectEdit("a", "b"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, after, err := svc.EditQuestion(ctx, q.ID,
		QuestionEdit{Text: "reworded prompt", Type: TypeSingleSelect, Points: 2})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("options changed on omitted field: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Content != after[i].Content {
			t.Fatalf("option %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestEditQuestionEmptyOptionsDeletesAll(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, _, err := svc.CreateQuestion(ctx, quizID, singleSelectEdit("a", "b"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// converting to essay with an explicit empty array drops the rows
	empty := []OptionEdit{}
	_, after, err := svc.EditQuestion(ctx, q.ID,
		QuestionEdit{Text: "write instead", Type: TypeEssay, Points: 5, Options: &empty})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("options survived delete-all: %+v", after)
	}
}

func TestEditQuestionStaleIDBecomesCreate(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, _, err := svc.CreateQuestion(ctx, quizID, singleSelectEdit("a", "b"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, final, err := svc.EditQuestion(ctx, q.ID, QuestionEdit{
		Text: "pick one", Type: TypeSingleSelect, Points: 1,
		Options: &[]OptionEdit{
			{Ref: PersistedRef("gone-forever"), Content: "resurrected", IsCorrect: true},
			{Content: "fresh"},
		},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("got %d options, want 2", len(final))
	}
	var found bool
	for _, o := range final {
		if o.ID == "gone-forever" {
			t.Fatalf("stale id persisted verbatim: %+v", o)
		}
		if o.Content == "resurrected" {
			found = true
		}
	}
	if !found {
		t.Fatalf("content of stale-id option lost: %+v", final)
	}
}

func TestEditQuestionIdempotent(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, first, err := svc.CreateQuestion(ctx, quizID, singleSelectEdit("a", "b", "c"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// re-submit exactly what is persisted
	resubmit := make([]OptionEdit, len(first))
	for i, o := range first {
		resubmit[i] = OptionEdit{
			Ref: PersistedRef(o.ID), Content: o.Content,
			Position: intp(o.Position), IsCorrect: o.IsCorrect,
		}
	}
	_, second, err := svc.EditQuestion(ctx, q.ID,
		QuestionEdit{Text: "pick one", Type: TypeSingleSelect, Points: 1, Options: &resubmit})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("option count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("option %d changed on idempotent resubmit: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestEditQuestionSkipsEmptyNewOptions(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	// a blank row from the editor UI: no id, no content
	q, opts, err := svc.CreateQuestion(ctx, quizID, QuestionEdit{
		Text: "pick one", Type: TypeSingleSelect, Points: 1,
		Options: &[]OptionEdit{
			{Content: "a", IsCorrect: true},
			{Content: "   "},
			{Content: "b"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = q
	if len(opts) != 2 {
		t.Fatalf("blank option was persisted: %+v", opts)
	}
	assertPositionsDense(t, opts)
}

func TestEditQuestionNotFound(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)

	_, _, err := svc.EditQuestion(context.Background(), "nope", singleSelectEdit("a", "b"))
	if !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("want ErrQuestionNotFound, got %v", err)
	}
}

func TestDeleteQuestionRenumbersSurvivors(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"q1", "q2", "q3"} {
		edit := singleSelectEdit("a", "b")
		edit.Text = text
		q, _, err := svc.CreateQuestion(ctx, quizID, edit)
		if err != nil {
			t.Fatalf("create %s: %v", text, err)
		}
		ids = append(ids, q.ID)
	}

	if err := svc.DeleteQuestion(ctx, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, err := store.ListQuestions(ctx, quizID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("got %d questions, want 2", len(left))
	}
	if left[0].ID != ids[0] || left[0].Position != 0 {
		t.Fatalf("first survivor wrong: %+v", left[0])
	}
	if left[1].ID != ids[2] || left[1].Position != 1 {
		t.Fatalf("second survivor wrong: %+v", left[1])
	}
}

func TestCreateQuestionSparsePositionCompacted(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	for _, text := range []string{"q1", "q2"} {
		edit := singleSelectEdit("a", "b")
		edit.Text = text
		if _, _, err := svc.CreateQuestion(ctx, quizID, edit); err != nil {
			t.Fatalf("create %s: %v", text, err)
		}
	}
	edit := singleSelectEdit("a", "b")
	edit.Text = "q3"
	edit.Position = intp(10)
	q, _, err := svc.CreateQuestion(ctx, quizID, edit)
	if err != nil {
		t.Fatalf("create q3: %v", err)
	}
	if q.Position != 2 {
		t.Fatalf("sparse position not compacted: got %d, want 2", q.Position)
	}
}

func TestCorrectFlagMaskedOutsideFlagTypes(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)

	_, opts, err := svc.CreateQuestion(context.Background(), quizID, QuestionEdit{
		Text: "blanks", Type: TypeFillBlank, Points: 1,
		Options: &[]OptionEdit{
			{Content: "cat", BlankPos: intp(0), IsCorrect: true},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if opts[0].IsCorrect {
		t.Fatalf("is_correct persisted for a type that doesn't use it: %+v", opts[0])
	}
}

// ---- rollback on mid-transaction failure ----

type failingStore struct {
	*MemStore
	failOp string
}

func (s *failingStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.MemStore.WithTx(ctx, func(tx Tx) error {
		return fn(&failingTx{Tx: tx, op: s.failOp})
	})
}

type failingTx struct {
	Tx
	op string
}

func (t *failingTx) DeleteOptions(ctx context.Context, ids []string) error {
	if t.op == "delete options" {
		return errors.New("disk full")
	}
	return t.Tx.DeleteOptions(ctx, ids)
}

func TestEditQuestionRollsBackOnFailure(t *testing.T) {
	mem := NewMemStore()
	quizID := newTestQuiz(t, mem)
	ctx := context.Background()

	// seed through the plain store
	q, before, err := NewService(mem).CreateQuestion(ctx, quizID, singleSelectEdit("a", "b", "c"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := NewService(&failingStore{MemStore: mem, failOp: "delete options"})
	_, _, err = svc.EditQuestion(ctx, q.ID, QuestionEdit{
		Text: "pick one", Type: TypeSingleSelect, Points: 1,
		Options: &[]OptionEdit{
			{Ref: PersistedRef(before[0].ID), Content: "only survivor", IsCorrect: true},
			{Content: "replacement"},
		},
	})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("want PersistenceError, got %v", err)
	}

	after, err := mem.ListOptions(ctx, q.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("state changed despite rollback: %d -> %d options", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("option %d changed despite rollback: %+v -> %+v", i, before[i], after[i])
		}
	}
}
