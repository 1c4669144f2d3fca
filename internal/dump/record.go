package dump

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValidationError reports a record whose fields fail the shape constraints
// of its stats table. It is scoped to one record; callers tally it and move
// on to the next line.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// transformCountRecord maps a character or person record onto
// (id, comments, collects, data_date). Counts are advisory, so anything
// that is not a usable number coerces to 0 instead of rejecting the record.
func transformCountRecord(raw map[string]any, dataDate string) ([]any, error) {
	id, err := recordID(raw)
	if err != nil {
		return nil, err
	}
	return []any{id, countValue(raw["comments"]), countValue(raw["collects"]), dataDate}, nil
}

// transformSubjectRecord maps a subject record onto
// (id, score, score_details, rank, favorite, data_date). The analytic
// fields are nullable and stay NULL when absent or implausible; they are
// never coerced to 0.
func transformSubjectRecord(raw map[string]any, dataDate string) ([]any, error) {
	id, err := recordID(raw)
	if err != nil {
		return nil, err
	}
	details, err := opaqueJSON("score_details", raw["score_details"])
	if err != nil {
		return nil, err
	}
	favorite, err := opaqueJSON("favorite", raw["favorite"])
	if err != nil {
		return nil, err
	}
	return []any{id, scoreValue(raw["score"]), details, rankValue(raw["rank"]), favorite, dataDate}, nil
}

// recordID coerces the required id field to a non-negative integer.
func recordID(raw map[string]any) (int64, error) {
	v, ok := raw["id"]
	if !ok || v == nil {
		return 0, &ValidationError{Field: "id", Reason: "missing"}
	}
	switch id := v.(type) {
	case float64:
		if id != math.Trunc(id) {
			return 0, &ValidationError{Field: "id", Reason: fmt.Sprintf("not an integer: %v", id)}
		}
		if id < 0 {
			return 0, &ValidationError{Field: "id", Reason: fmt.Sprintf("negative: %v", id)}
		}
		return int64(id), nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n < 0 {
			return 0, &ValidationError{Field: "id", Reason: fmt.Sprintf("not a non-negative integer: %q", id)}
		}
		return n, nil
	default:
		return 0, &ValidationError{Field: "id", Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}

// countValue leniently coerces a counter field to an int64, defaulting to 0.
func countValue(v any) int64 {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0
		}
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil || parsed < 0 {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// scoreValue parses a subject score into a one-decimal value within the
// site's 0..10 scale, or NULL for anything absent or implausible.
func scoreValue(v any) *float64 {
	var score float64
	switch n := v.(type) {
	case float64:
		score = n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		score = parsed
	default:
		return nil
	}
	if score < 0 || score > 10 {
		return nil
	}
	score = math.Round(score*10) / 10
	return &score
}

// rankValue parses a subject rank as a positive integer, or NULL.
func rankValue(v any) *int64 {
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || n <= 0 {
		return nil
	}
	rank := int64(n)
	return &rank
}

// opaqueJSON re-marshals a schema-free object field for a jsonb column,
// or yields NULL when the field is absent. The field's inner keys are not
// validated, but the value itself must be an object when present.
func opaqueJSON(field string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("expected object, got %T", v)}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}
	return data, nil
}
