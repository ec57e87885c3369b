package quiz

import (
	"context"
	"sort"
	"strings"
)

// ReconcileContext maps temporary client ids to the identifiers the store
// assigned when the corresponding rows were created. It is built during one
// reconciliation pass, is read-only afterwards, and never outlives the
// request.
type ReconcileContext struct {
	ids map[string]string
}

// Resolve substitutes a temporary id with its persisted identifier. Unknown
// references pass through unchanged: they are assumed to already be persisted
// ids (or are stale, which the post-pass recheck catches).
func (c ReconcileContext) Resolve(ref string) string {
	if id, ok := c.ids[ref]; ok {
		return id
	}
	return ref
}

type scopeResult struct {
	keep map[string]bool
	rctx ReconcileContext
}

// prunable marks a submitted item that carries no identity and no content.
// Such rows are never created, never consume a position slot, and never count
// toward a type's minimum option counts.
func prunable(o OptionEdit) bool {
	return o.Ref.Kind() == RefNew && strings.TrimSpace(o.Content) == ""
}

func pruneEdits(opts []OptionEdit) []OptionEdit {
	out := make([]OptionEdit, 0, len(opts))
	for _, o := range opts {
		if prunable(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// applyScope classifies and persists one sibling scope of submitted options:
// persisted-and-found ids become in-place updates and join the keep-set,
// everything else becomes a create. A persisted id that no longer exists is
// treated as a create rather than dropped: the row is gone but the content
// is not the client's fault. resolve, when non-nil, rewrites match references
// before rows are written (premise pass of matching questions).
func applyScope(ctx context.Context, tx Tx, q Question, existing map[string]Option, opts []OptionEdit, resolve func(string) string) (scopeResult, error) {
	positions := sequenceEdits(opts)
	keep := map[string]bool{}
	temp := map[string]string{}

	for i, o := range opts {
		matchID := o.MatchID
		if resolve != nil && matchID != "" {
			matchID = resolve(matchID)
		}
		row := Option{
			QuestionID: q.ID,
			Content:    o.Content,
			Group:      o.Group,
			MatchID:    matchID,
			BlankPos:   o.BlankPos,
			Position:   positions[i],
			IsCorrect:  o.IsCorrect && q.Type.UsesCorrectFlag(),
		}

		switch o.Ref.Kind() {
		case RefTemp:
			id, err := tx.CreateOption(ctx, row)
			if err != nil {
				return scopeResult{}, &PersistenceError{Op: "create option", Err: err}
			}
			temp[o.Ref.Tag()] = id
		case RefPersisted:
			if _, found := existing[o.Ref.ID()]; !found {
				if _, err := tx.CreateOption(ctx, row); err != nil {
					return scopeResult{}, &PersistenceError{Op: "create option", Err: err}
				}
				continue
			}
			row.ID = o.Ref.ID()
			if err := tx.UpdateOption(ctx, row); err != nil {
				return scopeResult{}, &PersistenceError{Op: "update option", Err: err}
			}
			keep[row.ID] = true
		default: // RefNew; empty-content items were pruned already
			if _, err := tx.CreateOption(ctx, row); err != nil {
				return scopeResult{}, &PersistenceError{Op: "create option", Err: err}
			}
		}
	}

	return scopeResult{keep: keep, rctx: ReconcileContext{ids: temp}}, nil
}

// reconcileOptions is the single-pass path for every type except matching.
// The orphan set is whatever was persisted but not kept.
func reconcileOptions(ctx context.Context, tx Tx, q Question, submitted []OptionEdit) error {
	existingList, err := tx.ListOptions(ctx, q.ID)
	if err != nil {
		return &PersistenceError{Op: "list options", Err: err}
	}
	existing := optionsByID(existingList)

	res, err := applyScope(ctx, tx, q, existing, pruneEdits(submitted), nil)
	if err != nil {
		return err
	}
	if err := deleteOrphans(ctx, tx, existing, res.keep); err != nil {
		return err
	}

	if q.Type == TypeFillBlank {
		return recheckBlanks(ctx, tx, q)
	}
	return nil
}

// recheckBlanks re-verifies blank position uniqueness over the final rows,
// mirroring the matching path's defense-in-depth recheck.
func recheckBlanks(ctx context.Context, tx Tx, q Question) error {
	final, err := tx.ListOptions(ctx, q.ID)
	if err != nil {
		return &PersistenceError{Op: "list options", Err: err}
	}
	seen := map[int]bool{}
	for _, o := range final {
		if o.BlankPos == nil {
			continue
		}
		if seen[*o.BlankPos] {
			return &InvariantViolationError{Detail: "duplicate blank position after reconciliation"}
		}
		seen[*o.BlankPos] = true
	}
	return nil
}

func deleteOrphans(ctx context.Context, tx Tx, existing map[string]Option, keep ...map[string]bool) error {
	var orphans []string
	for id := range existing {
		kept := false
		for _, k := range keep {
			if k[id] {
				kept = true
				break
			}
		}
		if !kept {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	sort.Strings(orphans)
	if err := tx.DeleteOptions(ctx, orphans); err != nil {
		return &PersistenceError{Op: "delete options", Err: err}
	}
	return nil
}

func optionsByID(opts []Option) map[string]Option {
	m := make(map[string]Option, len(opts))
	for _, o := range opts {
		m[o.ID] = o
	}
	return m
}
