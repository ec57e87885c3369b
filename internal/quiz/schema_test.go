package quiz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func intp(v int) *int { return &v }

func optsOf(opts ...OptionEdit) *[]OptionEdit { return &opts }

func TestValidateEditUnknownType(t *testing.T) {
	err := ValidateEdit(QuestionEdit{Text: "q", Type: "multi_choice"})
	assertFieldError(t, err, "type")
}

func TestValidateEditRequiredText(t *testing.T) {
	err := ValidateEdit(QuestionEdit{Text: "   ", Type: TypeEssay})
	assertFieldError(t, err, "text")
}

func TestValidateEditNegativePoints(t *testing.T) {
	err := ValidateEdit(QuestionEdit{Text: "q", Type: TypeEssay, Points: -1})
	assertFieldError(t, err, "points")
}

func TestValidateSingleSelect(t *testing.T) {
	// too few options
	err := ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeSingleSelect,
		Options: optsOf(OptionEdit{Content: "a", IsCorrect: true}),
	})
	assertFieldError(t, err, "options")

	// no correct option
	err = ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeSingleSelect,
		Options: optsOf(OptionEdit{Content: "a"}, OptionEdit{Content: "b"}),
	})
	assertFieldError(t, err, "options")

	// valid
	err = ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeSingleSelect,
		Options: optsOf(OptionEdit{Content: "a", IsCorrect: true}, OptionEdit{Content: "b"}),
	})
	if err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateTrueFalseExactlyOneCorrect(t *testing.T) {
	err := ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeTrueFalse,
		Options: optsOf(
			OptionEdit{Content: "true", IsCorrect: true},
			OptionEdit{Content: "false", IsCorrect: true},
		),
	})
	assertFieldError(t, err, "options")

	err = ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeTrueFalse,
		Options: optsOf(
			OptionEdit{Content: "true", IsCorrect: true},
			OptionEdit{Content: "false"},
		),
	})
	if err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateOptionShapesForeignFields(t *testing.T) {
	err := ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeSingleSelect,
		Options: optsOf(
			OptionEdit{Content: "a", IsCorrect: true, Group: GroupPremise},
			OptionEdit{Content: "b", MatchID: "x"},
			OptionEdit{Content: "c", BlankPos: intp(0)},
		),
	})
	assertFieldError(t, err, "options[0].group")
	assertFieldError(t, err, "options[1].match_id")
	assertFieldError(t, err, "options[2].blank_position")
}

func TestValidateMatching(t *testing.T) {
	base := func() []OptionEdit {
		return []OptionEdit{
			{Ref: TempRef("r1"), Content: "red", Group: GroupResponse},
			{Ref: TempRef("r2"), Content: "blue", Group: GroupResponse},
			{Content: "fire truck", Group: GroupPremise, MatchID: "r1"},
			{Content: "sky", Group: GroupPremise, MatchID: "r2"},
		}
	}

	if err := ValidateEdit(QuestionEdit{Text: "q", Type: TypeMatching, Options: optsOf(base()...)}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	// match reference to nothing submitted
	bad := base()
	bad[2].MatchID = "r9"
	err := ValidateEdit(QuestionEdit{Text: "q", Type: TypeMatching, Options: optsOf(bad...)})
	assertFieldError(t, err, "options[2].match_id")

	// two premises claiming the same response
	bad = base()
	bad[3].MatchID = "r1"
	err = ValidateEdit(QuestionEdit{Text: "q", Type: TypeMatching, Options: optsOf(bad...)})
	assertFieldError(t, err, "options[3].match_id")

	// responses never carry a match reference
	bad = base()
	bad[0].MatchID = "r2"
	err = ValidateEdit(QuestionEdit{Text: "q", Type: TypeMatching, Options: optsOf(bad...)})
	assertFieldError(t, err, "options[0].match_id")

	// too few per group
	err = ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeMatching,
		Options: optsOf(
			OptionEdit{Ref: TempRef("r1"), Content: "red", Group: GroupResponse},
			OptionEdit{Content: "a", Group: GroupPremise, MatchID: "r1"},
			OptionEdit{Content: "b", Group: GroupPremise},
			OptionEdit{Content: "c", Group: GroupPremise},
		),
	})
	assertFieldError(t, err, "options")
}

func TestValidateMatchingIgnoresBlankRows(t *testing.T) {
	// a blank editor row must not count toward the group minimums: it gets
	// pruned before reconciliation, so only one response would persist
	err := ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeMatching,
		Options: optsOf(
			OptionEdit{Ref: TempRef("r1"), Content: "red", Group: GroupResponse},
			OptionEdit{Content: "   ", Group: GroupResponse},
			OptionEdit{Content: "fire truck", Group: GroupPremise, MatchID: "r1"},
			OptionEdit{Content: "sky", Group: GroupPremise},
		),
	})
	assertFieldError(t, err, "options")
}

func TestValidateSingleSelectIgnoresBlankRows(t *testing.T) {
	err := ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeSingleSelect,
		Options: optsOf(
			OptionEdit{Content: "a", IsCorrect: true},
			OptionEdit{Content: "  "},
		),
	})
	assertFieldError(t, err, "options")
}

func TestValidateFillBlankDuplicatePositions(t *testing.T) {
	err := ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeFillBlank,
		Options: optsOf(
			OptionEdit{Content: "cat", BlankPos: intp(0)},
			OptionEdit{Content: "dog", BlankPos: intp(0)},
		),
	})
	assertFieldError(t, err, "options[1].blank_position")

	err = ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeFillBlank,
		Options: optsOf(OptionEdit{Content: "cat"}),
	})
	assertFieldError(t, err, "options[0].blank_position")
}

func TestValidateNoOptionTypesRejectOptions(t *testing.T) {
	for _, typ := range []QuestionType{TypeEssay, TypeCode, TypeFileUpload} {
		edit := QuestionEdit{Text: "q", Type: typ, Options: optsOf(OptionEdit{Content: "a"})}
		switch typ {
		case TypeCode:
			edit.Settings = json.RawMessage(`{"language":"go"}`)
		case TypeFileUpload:
			edit.Settings = json.RawMessage(`{"allowedFileTypes":[".pdf"]}`)
		}
		assertFieldError(t, ValidateEdit(edit), "options")
	}
}

func TestValidateSettings(t *testing.T) {
	err := ValidateEdit(QuestionEdit{Text: "q", Type: TypeCode})
	assertFieldError(t, err, "settings.language")

	err = ValidateEdit(QuestionEdit{Text: "q", Type: TypeFileUpload})
	assertFieldError(t, err, "settings.allowedFileTypes")

	err = ValidateEdit(QuestionEdit{
		Text: "q", Type: TypeShortAnswer,
		Settings: json.RawMessage(`{"caseSensitive":"yes"}`),
		Options:  optsOf(OptionEdit{Content: "42", IsCorrect: true}),
	})
	assertFieldError(t, err, "settings")
}

func assertFieldError(t *testing.T, err error, path string) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError with %q, got %v", path, err)
	}
	for _, f := range verr.Fields {
		if f.Path == path {
			return
		}
	}
	var got []string
	for _, f := range verr.Fields {
		got = append(got, f.Path)
	}
	t.Fatalf("no field error at %q; got paths [%s]", path, strings.Join(got, ", "))
}
