package evals

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// CriticResult is the outcome of one field comparison.
type CriticResult struct {
	Match bool
	Score float64
}

// Critic compares one expected argument field against its actual
// counterpart and contributes a weighted score.
type Critic interface {
	// Field is the argument name this critic inspects.
	Field() string
	// Weight is this critic's share of the case's argument score.
	Weight() float64
	// Evaluate scores the actual value against the expected one. An error
	// means the critic could not judge the pair at all; callers log it and
	// drop the critic's weight from the total.
	Evaluate(expected, actual any) (CriticResult, error)
}

// WeightError reports an out-of-range critic weight.
type WeightError struct {
	msg string
}

func (e *WeightError) Error() string { return e.msg }

type baseCritic struct {
	field  string
	weight float64
}

func newBaseCritic(field string, weight float64) (baseCritic, error) {
	if weight < 0 || weight > 1 {
		return baseCritic{}, &WeightError{msg: fmt.Sprintf("critic weight must be between 0 and 1, got %v", weight)}
	}
	return baseCritic{field: field, weight: weight}, nil
}

func (b baseCritic) Field() string   { return b.field }
func (b baseCritic) Weight() float64 { return b.weight }

// BinaryCritic awards full weight on exact equality and nothing otherwise.
// Before comparing, the actual value is coerced toward the expected value's
// type, since models frequently emit numbers and booleans as strings.
type BinaryCritic struct {
	baseCritic
}

// NewBinaryCritic creates a critic for exact matches on field.
func NewBinaryCritic(field string, weight float64) (*BinaryCritic, error) {
	b, err := newBaseCritic(field, weight)
	if err != nil {
		return nil, err
	}
	return &BinaryCritic{baseCritic: b}, nil
}

func (c *BinaryCritic) Evaluate(expected, actual any) (CriticResult, error) {
	exp := canonicalValue(expected)
	act := coerceActual(exp, canonicalValue(actual))
	match := reflect.DeepEqual(exp, act)
	score := 0.0
	if match {
		score = c.weight
	}
	return CriticResult{Match: match, Score: score}, nil
}

// canonicalValue collapses the representations JSON decoding and model
// output produce into comparable forms: the literal string "None" becomes
// nil, and every integer kind becomes float64.
func canonicalValue(v any) any {
	switch x := v.(type) {
	case string:
		if x == "None" {
			return nil
		}
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// coerceActual casts actual toward expected's type where a lossless reading
// exists. A value that cannot be read as the expected type is returned
// unchanged and left to fail the equality check.
func coerceActual(expected, actual any) any {
	if expected == nil || actual == nil {
		return actual
	}
	switch expected.(type) {
	case string:
		switch a := actual.(type) {
		case float64:
			return strconv.FormatFloat(a, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(a)
		}
	case float64:
		if s, ok := actual.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case bool:
		if s, ok := actual.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	}
	return actual
}

// NumericCritic scores the closeness of two numbers relative to a declared
// range. Values are normalized into [0,1] over the range, the similarity is
// one minus their absolute difference, and the score is similarity times
// weight.
type NumericCritic struct {
	baseCritic
	min, max       float64
	matchThreshold float64
}

// NewNumericCritic creates a fuzzy numeric critic over [min, max] with the
// default 0.8 match threshold.
func NewNumericCritic(field string, weight, min, max float64) (*NumericCritic, error) {
	return NewNumericCriticWithThreshold(field, weight, min, max, 0.8)
}

// NewNumericCriticWithThreshold creates a fuzzy numeric critic with an
// explicit match threshold.
func NewNumericCriticWithThreshold(field string, weight, min, max, matchThreshold float64) (*NumericCritic, error) {
	b, err := newBaseCritic(field, weight)
	if err != nil {
		return nil, err
	}
	if min >= max {
		return nil, fmt.Errorf("invalid value_range: minimum must be less than maximum")
	}
	return &NumericCritic{baseCritic: b, min: min, max: max, matchThreshold: matchThreshold}, nil
}

func (c *NumericCritic) Evaluate(expected, actual any) (CriticResult, error) {
	exp, err := asFloat(expected)
	if err != nil {
		return CriticResult{}, fmt.Errorf("expected value for field %s is not numeric: %w", c.field, err)
	}
	act, err := asFloat(actual)
	if err != nil {
		return CriticResult{}, fmt.Errorf("actual value for field %s is not numeric: %w", c.field, err)
	}

	span := c.max - c.min
	normExpected := (exp - c.min) / span
	normActual := (act - c.min) / span
	similarity := 1 - abs(normExpected-normActual)
	return CriticResult{
		Match: similarity >= c.matchThreshold,
		Score: similarity * c.weight,
	}, nil
}

func asFloat(v any) (float64, error) {
	switch x := canonicalValue(v).(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case nil:
		return 0, fmt.Errorf("value is nil")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// SimilarityCritic scores free-text fields by TF-IDF cosine similarity.
// Cosine is the only supported metric.
type SimilarityCritic struct {
	baseCritic
	similarityThreshold float64
}

// NewSimilarityCritic creates a cosine-similarity critic with the default
// 0.8 similarity threshold.
func NewSimilarityCritic(field string, weight float64) (*SimilarityCritic, error) {
	return NewSimilarityCriticWithThreshold(field, weight, 0.8)
}

// NewSimilarityCriticWithThreshold creates a cosine-similarity critic with
// an explicit threshold.
func NewSimilarityCriticWithThreshold(field string, weight, similarityThreshold float64) (*SimilarityCritic, error) {
	b, err := newBaseCritic(field, weight)
	if err != nil {
		return nil, err
	}
	return &SimilarityCritic{baseCritic: b, similarityThreshold: similarityThreshold}, nil
}

func (c *SimilarityCritic) Evaluate(expected, actual any) (CriticResult, error) {
	exp, ok := asText(expected)
	if !ok {
		return CriticResult{}, fmt.Errorf("expected value for field %s is not text", c.field)
	}
	act, ok := asText(actual)
	if !ok {
		return CriticResult{}, fmt.Errorf("actual value for field %s is not text", c.field)
	}

	similarity, err := cosineSimilarity(exp, act)
	if err != nil {
		return CriticResult{}, err
	}
	score := similarity * c.weight
	if score > c.weight {
		score = c.weight
	}
	return CriticResult{
		Match: similarity >= c.similarityThreshold,
		Score: score,
	}, nil
}

func asText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// DatetimeCritic scores the closeness of two timestamps. Differences within
// the tolerance earn full weight; beyond maxDifference the score is zero;
// in between the score decays linearly.
type DatetimeCritic struct {
	baseCritic
	tolerance     time.Duration
	maxDifference time.Duration
}

// NewDatetimeCritic creates a datetime critic with the default tolerances:
// 500 seconds for a full match and two hours for any partial credit.
func NewDatetimeCritic(field string, weight float64) (*DatetimeCritic, error) {
	return NewDatetimeCriticWithTolerance(field, weight, 500*time.Second, 2*time.Hour)
}

// NewDatetimeCriticWithTolerance creates a datetime critic with explicit
// tolerances.
func NewDatetimeCriticWithTolerance(field string, weight float64, tolerance, maxDifference time.Duration) (*DatetimeCritic, error) {
	b, err := newBaseCritic(field, weight)
	if err != nil {
		return nil, err
	}
	return &DatetimeCritic{baseCritic: b, tolerance: tolerance, maxDifference: maxDifference}, nil
}

// datetimeLayouts are tried in order when parsing timestamp arguments.
// Models emit a mix of RFC 3339 and bare date/time forms.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

func parseDatetime(v any) (time.Time, bool, error) {
	s, ok := asText(v)
	if !ok {
		return time.Time{}, false, fmt.Errorf("value %v is not a timestamp", v)
	}
	s = strings.TrimSpace(s)
	for i, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// The first two layouts carry an explicit offset.
			return t, i < 2, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized timestamp %q", s)
}

func (c *DatetimeCritic) Evaluate(expected, actual any) (CriticResult, error) {
	expectedAt, expectedZoned, err := parseDatetime(expected)
	if err != nil {
		return CriticResult{Match: false, Score: 0}, nil
	}
	actualAt, actualZoned, err := parseDatetime(actual)
	if err != nil {
		return CriticResult{Match: false, Score: 0}, nil
	}

	// When only one side carries a zone, compare wall-clock readings so a
	// model that dropped the offset is not penalized by the comparison zone.
	if expectedZoned != actualZoned {
		expectedAt = stripZone(expectedAt)
		actualAt = stripZone(actualAt)
	}

	diff := expectedAt.Sub(actualAt)
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff <= c.tolerance:
		return CriticResult{Match: true, Score: c.weight}, nil
	case diff >= c.maxDifference:
		return CriticResult{Match: false, Score: 0}, nil
	default:
		ratio := 1 - float64(diff)/float64(c.maxDifference)
		return CriticResult{Match: false, Score: c.weight * ratio}, nil
	}
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
