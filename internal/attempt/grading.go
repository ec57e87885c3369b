package attempt

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/quizforge/quizforge/internal/quiz"
)

// Auto-scoring on submit. One strategy per question type; types without a
// strategy (essay, code, file_upload) earn zero until graded by hand.
type strategy func(q quiz.Question, opts []quiz.Option, resp any) float64

var strategies = map[quiz.QuestionType]strategy{
	quiz.TypeSingleSelect: scoreSelect,
	quiz.TypeTrueFalse:    scoreSelect,
	quiz.TypeShortAnswer:  scoreShortAnswer,
	quiz.TypeFillBlank:    scoreFillBlank,
	quiz.TypeMatching:     scoreMatching,
}

func scoreQuestion(q quiz.Question, opts []quiz.Option, resp any) float64 {
	s, ok := strategies[q.Type]
	if !ok {
		return 0
	}
	return s(q, opts, resp)
}

// scoreSelect accepts an option id (or, with allowMultiple, a list of ids).
// Multi-select gives partial credit on the correct fraction as long as no
// wrong option was picked.
func scoreSelect(q quiz.Question, opts []quiz.Option, resp any) float64 {
	correct := map[string]bool{}
	for _, o := range opts {
		if o.IsCorrect {
			correct[o.ID] = true
		}
	}
	if len(correct) == 0 {
		return 0
	}

	if id, ok := resp.(string); ok {
		if correct[id] {
			return q.Points
		}
		return 0
	}

	if !allowMultiple(q.Settings) {
		return 0
	}
	picked, ok := toStringSlice(resp)
	if !ok {
		return 0
	}
	hits := 0
	for _, id := range picked {
		if !correct[id] {
			return 0
		}
		hits++
	}
	return q.Points * float64(hits) / float64(len(correct))
}

func scoreShortAnswer(q quiz.Question, opts []quiz.Option, resp any) float64 {
	text, ok := resp.(string)
	if !ok {
		return 0
	}
	var s quiz.ShortAnswerSettings
	if len(q.Settings) > 0 {
		_ = json.Unmarshal(q.Settings, &s)
	}

	accepted := make([]string, 0, len(opts)+len(s.AcceptedVariants))
	for _, o := range opts {
		if o.IsCorrect {
			accepted = append(accepted, o.Content)
		}
	}
	accepted = append(accepted, s.AcceptedVariants...)

	got := strings.TrimSpace(text)
	for _, want := range accepted {
		want = strings.TrimSpace(want)
		if s.CaseSensitive {
			if got == want {
				return q.Points
			}
		} else if strings.EqualFold(got, want) {
			return q.Points
		}
	}
	return 0
}

// scoreFillBlank expects responses keyed by blank position: {"0": "word"}.
// Every blank must match for full credit; otherwise the correct fraction.
func scoreFillBlank(q quiz.Question, opts []quiz.Option, resp any) float64 {
	answers, ok := resp.(map[string]any)
	if !ok {
		return 0
	}
	total, hits := 0, 0
	for _, o := range opts {
		if o.BlankPos == nil {
			continue
		}
		total++
		v, has := answers[strconv.Itoa(*o.BlankPos)]
		if !has {
			continue
		}
		text, ok := v.(string)
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(o.Content)) {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return q.Points * float64(hits) / float64(total)
}

// scoreMatching expects {"<premiseID>": "<responseID>"} and awards the
// fraction of correctly paired premises.
func scoreMatching(q quiz.Question, opts []quiz.Option, resp any) float64 {
	pairs, ok := resp.(map[string]any)
	if !ok {
		return 0
	}
	total, hits := 0, 0
	for _, o := range opts {
		if o.Group != quiz.GroupPremise || o.MatchID == "" {
			continue
		}
		total++
		v, has := pairs[o.ID]
		if !has {
			continue
		}
		if id, ok := v.(string); ok && id == o.MatchID {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return q.Points * float64(hits) / float64(total)
}

func allowMultiple(settings json.RawMessage) bool {
	if len(settings) == 0 {
		return false
	}
	var s struct {
		AllowMultiple bool `json:"allowMultiple"`
	}
	if err := json.Unmarshal(settings, &s); err != nil {
		return false
	}
	return s.AllowMultiple
}

func toStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
