package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Per-type settings shapes. The settings blob is opaque to storage; these are
// the fields the validator and the grader care about.

type ShortAnswerSettings struct {
	CaseSensitive    bool     `json:"caseSensitive"`
	AcceptedVariants []string `json:"acceptedVariants,omitempty"`
}

type CodeSettings struct {
	Language string `json:"language"`
}

type FileUploadSettings struct {
	AllowedFileTypes []string `json:"allowedFileTypes"`
}

// ValidateEdit checks a question edit against the structural rules of its
// type. Pure: no storage, always terminates with a decision. Option rules
// apply only when the options field was submitted; settings rules always
// apply to whatever settings were submitted.
func ValidateEdit(e QuestionEdit) error {
	verr := &ValidationError{}

	if !e.Type.Known() {
		verr.add("type", fmt.Sprintf("unknown question type %q", e.Type))
		return verr
	}
	if strings.TrimSpace(e.Text) == "" {
		verr.add("text", "required")
	}
	if e.Points < 0 {
		verr.add("points", "must be >= 0")
	}

	validateSettings(e.Type, e.Settings, verr)

	if e.Options != nil {
		opts := *e.Options
		validateOptionShapes(e.Type, opts, verr)
		// Count minimums over what reconciliation will actually persist:
		// blank identity-less rows are pruned before they ever become rows.
		counted := pruneEdits(opts)
		switch e.Type {
		case TypeSingleSelect:
			if len(counted) < 2 {
				verr.add("options", "single_select needs at least 2 options")
			}
			if countCorrect(counted) < 1 {
				verr.add("options", "at least one option must be marked correct")
			}
		case TypeTrueFalse:
			if len(counted) != 2 {
				verr.add("options", "true_false needs exactly 2 options")
			}
			if c := countCorrect(counted); c != 1 {
				verr.add("options", fmt.Sprintf("exactly one option must be marked correct, got %d", c))
			}
		case TypeShortAnswer:
			if countCorrect(counted) < 1 {
				verr.add("options", "at least one option must be marked correct (acceptable answer)")
			}
		case TypeMatching:
			validateMatching(opts, verr)
		case TypeFillBlank:
			if len(counted) < 1 {
				verr.add("options", "fill_blank needs at least 1 option")
			}
			validateBlankPositions(opts, verr)
		case TypeEssay, TypeCode, TypeFileUpload:
			if len(counted) > 0 {
				verr.add("options", fmt.Sprintf("%s questions carry no options", e.Type))
			}
		}
	}

	return verr.orNil()
}

func validateSettings(t QuestionType, raw json.RawMessage, verr *ValidationError) {
	switch t {
	case TypeShortAnswer:
		if len(raw) == 0 {
			return
		}
		var s ShortAnswerSettings
		if err := json.Unmarshal(raw, &s); err != nil {
			verr.add("settings", "malformed short_answer settings: "+err.Error())
		}
	case TypeCode:
		var s CodeSettings
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &s); err != nil {
				verr.add("settings", "malformed code settings: "+err.Error())
				return
			}
		}
		if strings.TrimSpace(s.Language) == "" {
			verr.add("settings.language", "required for code questions")
		}
	case TypeFileUpload:
		var s FileUploadSettings
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &s); err != nil {
				verr.add("settings", "malformed file_upload settings: "+err.Error())
				return
			}
		}
		if len(s.AllowedFileTypes) == 0 {
			verr.add("settings.allowedFileTypes", "at least one allowed file type required")
		}
	}
}

// validateOptionShapes rejects fields that mean nothing for the type: groups
// outside matching, match_id outside matching premises, blank positions
// outside fill_blank.
func validateOptionShapes(t QuestionType, opts []OptionEdit, verr *ValidationError) {
	for i, o := range opts {
		if prunable(o) {
			continue
		}
		p := func(f string) string { return fmt.Sprintf("options[%d].%s", i, f) }
		if t == TypeMatching {
			if o.Group != GroupPremise && o.Group != GroupResponse {
				verr.add(p("group"), "must be premise or response")
			}
			if o.Group == GroupResponse && o.MatchID != "" {
				verr.add(p("match_id"), "only premises carry a match reference")
			}
		} else {
			if o.Group != "" {
				verr.add(p("group"), "group is only valid for matching questions")
			}
			if o.MatchID != "" {
				verr.add(p("match_id"), "match_id is only valid for matching questions")
			}
		}
		if t != TypeFillBlank && o.BlankPos != nil {
			verr.add(p("blank_position"), "blank_position is only valid for fill_blank questions")
		}
	}
}

// validateMatching checks the bipartite shape of a submitted matching payload:
// group sizes, that every non-empty match reference names a submitted
// response (by persisted id or temp tag), and that no response is targeted
// twice. Resolution of temp tags to real ids happens later; only existence is
// checked here. Blank identity-less rows are skipped from the counts, since
// reconciliation will never create them.
func validateMatching(opts []OptionEdit, verr *ValidationError) {
	var total, premises, responses int
	refs := map[string]bool{} // identifiers a premise may point at
	for _, o := range opts {
		if prunable(o) {
			continue
		}
		total++
		switch o.Group {
		case GroupPremise:
			premises++
		case GroupResponse:
			responses++
			switch o.Ref.Kind() {
			case RefPersisted:
				refs[o.Ref.ID()] = true
			case RefTemp:
				refs[o.Ref.Tag()] = true
			}
		}
	}
	if total < 4 {
		verr.add("options", "matching needs at least 4 options")
	}
	if premises < 2 {
		verr.add("options", "matching needs at least 2 premises")
	}
	if responses < 2 {
		verr.add("options", "matching needs at least 2 responses")
	}

	seen := map[string]int{} // match target -> first premise index
	for i, o := range opts {
		if o.Group != GroupPremise || o.MatchID == "" {
			continue
		}
		p := fmt.Sprintf("options[%d].match_id", i)
		if !refs[o.MatchID] {
			verr.add(p, fmt.Sprintf("%q is not a submitted response identifier", o.MatchID))
			continue
		}
		if j, dup := seen[o.MatchID]; dup {
			verr.add(p, fmt.Sprintf("response %q already matched by options[%d]", o.MatchID, j))
			continue
		}
		seen[o.MatchID] = i
	}
}

func validateBlankPositions(opts []OptionEdit, verr *ValidationError) {
	seen := map[int]int{}
	for i, o := range opts {
		if prunable(o) {
			continue
		}
		if o.BlankPos == nil {
			verr.add(fmt.Sprintf("options[%d].blank_position", i), "required for fill_blank options")
			continue
		}
		if j, dup := seen[*o.BlankPos]; dup {
			verr.add(fmt.Sprintf("options[%d].blank_position", i),
				fmt.Sprintf("position %d already used by options[%d]", *o.BlankPos, j))
			continue
		}
		seen[*o.BlankPos] = i
	}
}

func countCorrect(opts []OptionEdit) int {
	n := 0
	for _, o := range opts {
		if o.IsCorrect {
			n++
		}
	}
	return n
}
