package quiz

import "encoding/json"

// QuestionType tags the structural rules a question follows.
type QuestionType string

const (
	TypeSingleSelect QuestionType = "single_select"
	TypeTrueFalse    QuestionType = "true_false"
	TypeShortAnswer  QuestionType = "short_answer"
	TypeMatching     QuestionType = "matching"
	TypeFillBlank    QuestionType = "fill_blank"
	TypeEssay        QuestionType = "essay"
	TypeCode         QuestionType = "code"
	TypeFileUpload   QuestionType = "file_upload"
)

func (t QuestionType) Known() bool {
	switch t {
	case TypeSingleSelect, TypeTrueFalse, TypeShortAnswer, TypeMatching,
		TypeFillBlank, TypeEssay, TypeCode, TypeFileUpload:
		return true
	}
	return false
}

// UsesOptions reports whether the type stores answer content as option rows.
// Essay, code and file-upload answers live entirely in the attempt payload.
func (t QuestionType) UsesOptions() bool {
	switch t {
	case TypeEssay, TypeCode, TypeFileUpload:
		return false
	}
	return true
}

// UsesCorrectFlag reports whether is_correct means anything for the type.
func (t QuestionType) UsesCorrectFlag() bool {
	switch t {
	case TypeSingleSelect, TypeTrueFalse, TypeShortAnswer:
		return true
	}
	return false
}

// Option groups for matching questions.
const (
	GroupPremise  = "premise"
	GroupResponse = "response"
)

type Quiz struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	TimeLimitSec int    `json:"time_limit_sec"`
	Published    bool   `json:"published"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

type Question struct {
	ID       string          `json:"id"`
	QuizID   string          `json:"quiz_id"`
	Text     string          `json:"text"`
	Type     QuestionType    `json:"type"`
	Points   float64         `json:"points"`
	Position int             `json:"position"` // dense 0-based within the quiz
	MediaKey string          `json:"media_key,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"` // shape depends on Type
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Content    string `json:"content"`
	Group      string `json:"group,omitempty"`          // matching only: premise|response
	MatchID    string `json:"match_id,omitempty"`       // premise -> response option id
	BlankPos   *int   `json:"blank_position,omitempty"` // fill_blank only
	Position   int    `json:"position"`                 // dense 0-based within its sibling scope
	IsCorrect  bool   `json:"is_correct"`
}

// RefKind discriminates how a submitted option identifies itself.
type RefKind int

const (
	RefNew       RefKind = iota // no identifier at all
	RefTemp                     // client-invented placeholder, not yet persisted
	RefPersisted                // identifier assigned by the store
)

// OptionRef is the tagged identity of a submitted option. The zero value is
// RefNew.
type OptionRef struct {
	kind RefKind
	id   string
	tag  string
}

func NewRef() OptionRef               { return OptionRef{} }
func TempRef(tag string) OptionRef    { return OptionRef{kind: RefTemp, tag: tag} }
func PersistedRef(id string) OptionRef { return OptionRef{kind: RefPersisted, id: id} }

func (r OptionRef) Kind() RefKind { return r.kind }

// ID returns the persisted identifier; empty unless Kind is RefPersisted.
func (r OptionRef) ID() string { return r.id }

// Tag returns the temporary client tag; empty unless Kind is RefTemp.
func (r OptionRef) Tag() string { return r.tag }

// OptionEdit is one submitted option within a question edit.
type OptionEdit struct {
	Ref       OptionRef
	Content   string
	Group     string // matching only
	MatchID   string // matching premises: persisted id or a response's temp tag
	BlankPos  *int   // fill_blank only
	Position  *int   // nil: append at current max+1
	IsCorrect bool
}

// QuestionEdit is a whole-question edit payload. Options distinguishes three
// states: nil (field absent: existing options untouched), empty (delete all),
// non-empty (reconcile).
type QuestionEdit struct {
	Text     string
	Type     QuestionType
	Points   float64
	Position *int
	MediaKey string
	Settings json.RawMessage // nil: not submitted
	Options  *[]OptionEdit
}
