package quiz

import "encoding/json"

// Legacy settings key for single_select, replaced by allowMultiple. Migrated
// on write; never generalized to other types without an explicit mapping.
const (
	settingsKeyAllowMultiple       = "allowMultiple"
	settingsKeyAllowMultipleLegacy = "allowMultipleAnswers"
)

// NormalizeSettings produces the settings blob to persist for an edit.
// For single_select it migrates allowMultipleAnswers to allowMultiple,
// preferring an explicitly submitted canonical value over the legacy one and
// falling back to the previously persisted value when the edit names neither.
// Other types pass through: submitted wins, otherwise persisted is kept.
func NormalizeSettings(t QuestionType, submitted, persisted json.RawMessage) (json.RawMessage, error) {
	if t != TypeSingleSelect {
		if submitted != nil {
			return submitted, nil
		}
		return persisted, nil
	}

	src := submitted
	if src == nil {
		// Settings omitted: keep the persisted blob, still migrating the
		// legacy key if it is present there.
		src = persisted
	}
	out := map[string]json.RawMessage{}
	if len(src) > 0 {
		if err := json.Unmarshal(src, &out); err != nil {
			return nil, &ValidationError{Fields: []FieldError{{Path: "settings", Reason: "malformed settings: " + err.Error()}}}
		}
	}

	canonical, hasCanonical := out[settingsKeyAllowMultiple]
	legacy, hasLegacy := out[settingsKeyAllowMultipleLegacy]
	delete(out, settingsKeyAllowMultipleLegacy)

	switch {
	case hasCanonical:
		out[settingsKeyAllowMultiple] = canonical
	case hasLegacy:
		out[settingsKeyAllowMultiple] = legacy
	default:
		if prev, ok := persistedAllowMultiple(persisted); ok {
			out[settingsKeyAllowMultiple] = prev
		}
	}

	if len(out) == 0 {
		return nil, nil
	}
	return json.Marshal(out)
}

func persistedAllowMultiple(persisted json.RawMessage) (json.RawMessage, bool) {
	if len(persisted) == 0 {
		return nil, false
	}
	prev := map[string]json.RawMessage{}
	if err := json.Unmarshal(persisted, &prev); err != nil {
		return nil, false
	}
	if v, ok := prev[settingsKeyAllowMultiple]; ok {
		return v, true
	}
	if v, ok := prev[settingsKeyAllowMultipleLegacy]; ok {
		return v, true
	}
	return nil, false
}
