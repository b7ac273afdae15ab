package evals

import "fmt"

// EvalRubric defines pass/fail criteria for a case. Scores at or above
// WarnThreshold pass; scores between the two thresholds are warnings;
// anything below FailThreshold fails outright.
type EvalRubric struct {
	// FailThreshold is the floor of the warning band.
	FailThreshold float64 `json:"fail_threshold"`
	// WarnThreshold is the minimum normalized score required to pass.
	WarnThreshold float64 `json:"warn_threshold"`
	// FailOnToolSelection fails the case outright when the set of tools
	// called does not match the set expected.
	FailOnToolSelection bool `json:"fail_on_tool_selection"`
	// FailOnToolCallQuantity fails the case outright when the number of
	// tool calls differs from the number expected.
	FailOnToolCallQuantity bool `json:"fail_on_tool_call_quantity"`
	// ToolSelectionWeight is the weight of picking the right tool,
	// relative to the critic weights.
	ToolSelectionWeight float64 `json:"tool_selection_weight"`
}

// DefaultRubric returns the standard rubric: pass at 0.8, warn at 0.9,
// hard-fail on wrong tools or wrong call counts, full selection weight.
func DefaultRubric() EvalRubric {
	return EvalRubric{
		FailThreshold:          0.8,
		WarnThreshold:          0.9,
		FailOnToolSelection:    true,
		FailOnToolCallQuantity: true,
		ToolSelectionWeight:    1.0,
	}
}

func (r EvalRubric) String() string {
	return fmt.Sprintf("Fail threshold: %v\nWarn threshold: %v\n", r.FailThreshold, r.WarnThreshold)
}

// CriticOutcome records one scored comparison inside a case result. The
// synthetic field name "tool_selection" marks the tool-name comparison.
type CriticOutcome struct {
	Field    string  `json:"field"`
	Match    bool    `json:"match"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Expected any     `json:"expected"`
	Actual   any     `json:"actual"`
}

// EvaluationResult is the outcome of evaluating one case.
type EvaluationResult struct {
	// Score is the normalized score in [0, 1].
	Score float64 `json:"score"`
	// Passed reports whether Score cleared the rubric's fail threshold.
	Passed bool `json:"passed"`
	// Warning is set when the case failed but cleared the warn threshold.
	Warning bool `json:"warning"`
	// Results holds the per-field outcomes behind the score.
	Results []CriticOutcome `json:"results"`
	// FailureReason explains a hard failure triggered by the rubric; empty
	// when the case was scored normally.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Fail reports whether the case failed outright, with no warning consolation.
func (r *EvaluationResult) Fail() bool {
	return !r.Passed && !r.Warning
}

func (r *EvaluationResult) add(field string, cr CriticResult, weight float64, expected, actual any) {
	r.Results = append(r.Results, CriticOutcome{
		Field:    field,
		Match:    cr.Match,
		Score:    cr.Score,
		Weight:   weight,
		Expected: expected,
		Actual:   actual,
	})
}

// scoreToolSelection records the tool-name comparison for one matched pair
// and returns its score.
func (r *EvaluationResult) scoreToolSelection(expected, actual string, weight float64) float64 {
	match := compareToolNames(expected, actual)
	score := 0.0
	if match {
		score = weight
	}
	r.add("tool_selection", CriticResult{Match: match, Score: score}, weight, expected, actual)
	return score
}

// computeFinalScore normalizes the accumulated outcome scores by the total
// weight in play.
func (r *EvaluationResult) computeFinalScore(totalWeight float64) {
	if totalWeight <= 0 {
		r.Score = 0
		return
	}
	total := 0.0
	for _, outcome := range r.Results {
		total += outcome.Score
	}
	r.Score = total / totalWeight
}
