package quiz

import "context"

// syncMatching reconciles a matching question's two option groups. The client
// may submit new premises wired to new responses through temporary ids, so
// the forward-referencing graph is flattened into two ordered passes:
//
//  1. responses are reconciled first, which fills the ReconcileContext with
//     every temp id that became a real identifier;
//  2. each premise's match reference is resolved through that context
//     (unknown values pass through, assumed already persisted);
//  3. premises are reconciled with the resolved references;
//  4. the one-to-one premise→response invariant is re-verified over the
//     final persisted rows.
//
// The pass order is a data dependency, not a scheduling preference: a premise
// row cannot be written until the response identifier it points at exists.
func syncMatching(ctx context.Context, tx Tx, q Question, submitted []OptionEdit) error {
	existingList, err := tx.ListOptions(ctx, q.ID)
	if err != nil {
		return &PersistenceError{Op: "list options", Err: err}
	}
	existing := optionsByID(existingList)

	submitted = pruneEdits(submitted)
	var responses, premises []OptionEdit
	for _, o := range submitted {
		if o.Group == GroupResponse {
			responses = append(responses, o)
		} else {
			premises = append(premises, o)
		}
	}

	// Both passes classify against the full persisted set: a persisted id
	// submitted under the other group is still an in-place update (the row
	// changes group, its id survives), not a delete-and-recreate.
	respRes, err := applyScope(ctx, tx, q, existing, responses, nil)
	if err != nil {
		return err
	}
	premRes, err := applyScope(ctx, tx, q, existing, premises, respRes.rctx.Resolve)
	if err != nil {
		return err
	}

	if err := deleteOrphans(ctx, tx, existing, respRes.keep, premRes.keep); err != nil {
		return err
	}
	return recheckMatching(ctx, tx, q)
}

// recheckMatching re-verifies, over the final resolved rows, that every
// premise's match reference lands on a response of the same question and that
// no response is claimed twice. A failure here means a temp-id collision or a
// stale client reference survived the earlier checks; it aborts the
// transaction rather than silently correcting.
func recheckMatching(ctx context.Context, tx Tx, q Question) error {
	final, err := tx.ListOptions(ctx, q.ID)
	if err != nil {
		return &PersistenceError{Op: "list options", Err: err}
	}
	responseIDs := map[string]bool{}
	for _, o := range final {
		if o.Group == GroupResponse {
			responseIDs[o.ID] = true
		}
	}
	claimed := map[string]bool{}
	for _, o := range final {
		if o.Group != GroupPremise || o.MatchID == "" {
			continue
		}
		if !responseIDs[o.MatchID] {
			return &ReferenceError{Path: "options", Ref: o.MatchID}
		}
		if claimed[o.MatchID] {
			return &InvariantViolationError{Detail: "response " + o.MatchID + " matched by more than one premise"}
		}
		claimed[o.MatchID] = true
	}
	return nil
}
