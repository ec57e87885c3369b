package quiz

import (
	"context"
	"errors"
	"testing"
)

func matchingEdit() QuestionEdit {
	return QuestionEdit{
		Text: "match the capitals", Type: TypeMatching, Points: 2,
		Options: &[]OptionEdit{
			{Ref: TempRef("tmp-paris"), Content: "Paris", Group: GroupResponse},
			{Ref: TempRef("tmp-rome"), Content: "Rome", Group: GroupResponse},
			{Content: "France", Group: GroupPremise, MatchID: "tmp-paris"},
			{Content: "Italy", Group: GroupPremise, MatchID: "tmp-rome"},
		},
	}
}

func splitGroups(opts []Option) (premises, responses []Option) {
	for _, o := range opts {
		if o.Group == GroupPremise {
			premises = append(premises, o)
		} else {
			responses = append(responses, o)
		}
	}
	return
}

func TestMatchingResolvesForwardTempReferences(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)

	_, opts, err := svc.CreateQuestion(context.Background(), quizID, matchingEdit())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	premises, responses := splitGroups(opts)
	if len(premises) != 2 || len(responses) != 2 {
		t.Fatalf("groups wrong: %d premises, %d responses", len(premises), len(responses))
	}

	respIDs := map[string]string{} // content -> id
	for _, o := range responses {
		respIDs[o.Content] = o.ID
	}
	for _, p := range premises {
		want := map[string]string{"France": respIDs["Paris"], "Italy": respIDs["Rome"]}[p.Content]
		if p.MatchID != want {
			t.Fatalf("premise %q match_id = %q, want %q", p.Content, p.MatchID, want)
		}
		if p.MatchID == "tmp-paris" || p.MatchID == "tmp-rome" {
			t.Fatalf("temp tag leaked into storage: %+v", p)
		}
	}
}

func TestMatchingPerGroupPositions(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)

	_, opts, err := svc.CreateQuestion(context.Background(), quizID, matchingEdit())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	premises, responses := splitGroups(opts)
	assertPositionsDense(t, premises)
	assertPositionsDense(t, responses)
}

func TestMatchingEditReplacesResponseAndRepoints(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, opts, err := svc.CreateQuestion(ctx, quizID, matchingEdit())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	premises, responses := splitGroups(opts)

	var parisID, romeID, franceID, italyID string
	for _, o := range responses {
		if o.Content == "Paris" {
			parisID = o.ID
		} else {
			romeID = o.ID
		}
	}
	for _, o := range premises {
		if o.Content == "France" {
			franceID = o.ID
		} else {
			italyID = o.ID
		}
	}

	// swap Rome out for Madrid; Italy becomes Spain and points at the new row
	_, final, err := svc.EditQuestion(ctx, q.ID, QuestionEdit{
		Text: "match the capitals", Type: TypeMatching, Points: 2,
		Options: &[]OptionEdit{
			{Ref: PersistedRef(parisID), Content: "Paris", Group: GroupResponse},
			{Ref: TempRef("tmp-madrid"), Content: "Madrid", Group: GroupResponse},
			{Ref: PersistedRef(franceID), Content: "France", Group: GroupPremise, MatchID: parisID},
			{Ref: PersistedRef(italyID), Content: "Spain", Group: GroupPremise, MatchID: "tmp-madrid"},
		},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(final) != 4 {
		t.Fatalf("got %d options, want 4: %+v", len(final), final)
	}
	byID := optionsByID(final)
	if _, gone := byID[romeID]; gone {
		t.Fatalf("orphaned response survived: %+v", final)
	}
	spain := byID[italyID]
	if spain.Content != "Spain" {
		t.Fatalf("premise not updated in place: %+v", spain)
	}
	if spain.MatchID == "tmp-madrid" || spain.MatchID == "" {
		t.Fatalf("temp reference not resolved: %+v", spain)
	}
	if target, ok := byID[spain.MatchID]; !ok || target.Content != "Madrid" {
		t.Fatalf("premise points at %q, want the Madrid row", spain.MatchID)
	}
}

func TestMatchingGroupFlipKeepsIdentity(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, opts, err := svc.CreateQuestion(ctx, quizID, matchingEdit())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	premises, responses := splitGroups(opts)

	var parisID, romeID, franceID string
	for _, o := range responses {
		if o.Content == "Paris" {
			parisID = o.ID
		} else {
			romeID = o.ID
		}
	}
	for _, o := range premises {
		if o.Content == "France" {
			franceID = o.ID
		}
	}

	// Rome moves from the response column to the premise column under its
	// persisted id; Italy is dropped and Madrid fills the response gap
	_, final, err := svc.EditQuestion(ctx, q.ID, QuestionEdit{
		Text: "match the capitals", Type: TypeMatching, Points: 2,
		Options: &[]OptionEdit{
			{Ref: PersistedRef(parisID), Content: "Paris", Group: GroupResponse},
			{Ref: TempRef("tmp-madrid"), Content: "Madrid", Group: GroupResponse},
			{Ref: PersistedRef(franceID), Content: "France", Group: GroupPremise, MatchID: parisID},
			{Ref: PersistedRef(romeID), Content: "Rome", Group: GroupPremise, MatchID: "tmp-madrid"},
		},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(final) != 4 {
		t.Fatalf("got %d options, want 4: %+v", len(final), final)
	}
	rome, ok := optionsByID(final)[romeID]
	if !ok {
		t.Fatalf("flipped row lost its id %q: %+v", romeID, final)
	}
	if rome.Group != GroupPremise {
		t.Fatalf("flipped row group = %q, want premise", rome.Group)
	}
	if target, ok := optionsByID(final)[rome.MatchID]; !ok || target.Content != "Madrid" {
		t.Fatalf("flipped premise points at %q, want the Madrid row", rome.MatchID)
	}
}

func TestRecheckMatchingCatchesStaleReference(t *testing.T) {
	store := NewMemStore()
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, _, err := NewService(store).CreateQuestion(ctx, quizID, matchingEdit())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// corrupt a premise behind the validator's back, then recheck
	err = store.WithTx(ctx, func(tx Tx) error {
		opts, err := tx.ListOptions(ctx, q.ID)
		if err != nil {
			return err
		}
		for _, o := range opts {
			if o.Group == GroupPremise {
				o.MatchID = "dangling"
				if err := tx.UpdateOption(ctx, o); err != nil {
					return err
				}
				break
			}
		}
		return recheckMatching(ctx, tx, q)
	})
	var rerr *ReferenceError
	if !errors.As(err, &rerr) {
		t.Fatalf("want ReferenceError, got %v", err)
	}
}

func TestRecheckMatchingCatchesDoubleClaim(t *testing.T) {
	store := NewMemStore()
	quizID := newTestQuiz(t, store)
	ctx := context.Background()

	q, opts, err := NewService(store).CreateQuestion(ctx, quizID, matchingEdit())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	premises, _ := splitGroups(opts)

	err = store.WithTx(ctx, func(tx Tx) error {
		// both premises now claim the same response
		p := premises[1]
		p.MatchID = premises[0].MatchID
		if err := tx.UpdateOption(ctx, p); err != nil {
			return err
		}
		return recheckMatching(ctx, tx, q)
	})
	var ierr *InvariantViolationError
	if !errors.As(err, &ierr) {
		t.Fatalf("want InvariantViolationError, got %v", err)
	}
}
