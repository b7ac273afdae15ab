package evals

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/gaugeworks/toolgauge/gauge/evals/ports"
	"github.com/gaugeworks/toolgauge/gauge/schema"
)

// ExpectedToolCall is one tool call a case expects the model to make, with
// the full argument map after defaults are filled in.
type ExpectedToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolCall is a tool call the model actually made.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// EvalCase is a single scenario: a conversation to present to the model and
// the tool calls it should respond with.
type EvalCase struct {
	Name               string
	SystemMessage      string
	UserMessage        string
	ExpectedToolCalls  []ExpectedToolCall
	Critics            []Critic
	AdditionalMessages []ports.Message
	Rubric             EvalRubric
}

// NewEvalCase builds a case and validates its critic weights: the weights
// must sum to at most 1.0 and each must be at least 0.1, so no critic is
// noise and the argument score stays normalizable.
func NewEvalCase(name, systemMessage, userMessage string, expected []ExpectedToolCall, critics []Critic, additional []ports.Message, rubric EvalRubric) (*EvalCase, error) {
	if err := validateCritics(critics); err != nil {
		return nil, err
	}
	return &EvalCase{
		Name:               name,
		SystemMessage:      systemMessage,
		UserMessage:        userMessage,
		ExpectedToolCalls:  expected,
		Critics:            critics,
		AdditionalMessages: additional,
		Rubric:             rubric,
	}, nil
}

func validateCritics(critics []Critic) error {
	if len(critics) == 0 {
		return nil
	}
	totalWeight := 0.0
	for _, critic := range critics {
		totalWeight += critic.Weight()
	}
	if totalWeight > 1.0 {
		return &WeightError{msg: fmt.Sprintf("sum of critic weights must not exceed 1.0, got %v", totalWeight)}
	}
	for _, critic := range critics {
		if critic.Weight() < 0.1 {
			return &WeightError{msg: fmt.Sprintf("critic weights should be at least 0.1, got %v", critic.Weight())}
		}
	}
	return nil
}

func compareToolNames(expected, actual string) bool {
	return schema.CompareToolNames(expected, actual)
}

// checkToolSelectionFailure reports whether the multiset of tools called
// differs from the multiset expected, when the rubric treats that as fatal.
func (c *EvalCase) checkToolSelectionFailure(actualTools []string) bool {
	if !c.Rubric.FailOnToolSelection {
		return false
	}
	expectedTools := make([]string, 0, len(c.ExpectedToolCalls))
	for _, tc := range c.ExpectedToolCalls {
		expectedTools = append(expectedTools, tc.Name)
	}
	actualSorted := append([]string(nil), actualTools...)
	// Sorting on the normalized form keeps the positional comparison stable
	// across separator conventions.
	byNormalized := func(names []string) func(i, j int) bool {
		return func(i, j int) bool {
			return schema.NormalizeToolName(names[i]) < schema.NormalizeToolName(names[j])
		}
	}
	sort.Slice(expectedTools, byNormalized(expectedTools))
	sort.Slice(actualSorted, byNormalized(actualSorted))

	for i := range expectedTools {
		if i >= len(actualSorted) || !compareToolNames(expectedTools[i], actualSorted[i]) {
			return true
		}
	}
	return false
}

func (c *EvalCase) checkToolCallQuantityFailure(actualCount int) bool {
	return c.Rubric.FailOnToolCallQuantity && len(c.ExpectedToolCalls) != actualCount
}

// Evaluate scores the model's tool calls against the case's expectations.
//
// The checks run in order: call quantity, the vacuous none-expected case,
// tool selection, then per-argument critics. When more than one call is in
// play, expected and actual calls are paired by solving the assignment that
// maximizes the total score, so call order never matters.
func (c *EvalCase) Evaluate(actualToolCalls []ToolCall) EvaluationResult {
	var result EvaluationResult

	actualTools := make([]string, 0, len(actualToolCalls))
	for _, tc := range actualToolCalls {
		actualTools = append(actualTools, tc.Name)
	}

	if c.checkToolCallQuantityFailure(len(actualToolCalls)) {
		expectedNames := make([]string, 0, len(c.ExpectedToolCalls))
		for _, tc := range c.ExpectedToolCalls {
			expectedNames = append(expectedNames, tc.Name)
		}
		result.FailureReason = fmt.Sprintf(
			"Expected %d tool call(s), but got %d. \nExpected tool calls: %s.\nActual tool calls: %s",
			len(c.ExpectedToolCalls), len(actualToolCalls),
			strings.Join(expectedNames, ", "), strings.Join(actualTools, ", "),
		)
		return result
	}

	if len(c.ExpectedToolCalls) == 0 && len(actualToolCalls) == 0 {
		result.Score = 1.0
		result.Passed = true
		return result
	}

	if c.checkToolSelectionFailure(actualTools) {
		expectedNames := make([]string, 0, len(c.ExpectedToolCalls))
		for _, tc := range c.ExpectedToolCalls {
			expectedNames = append(expectedNames, tc.Name)
		}
		result.FailureReason = fmt.Sprintf(
			"Tool selection mismatch. Expected tools: %s, but got: %s",
			strings.Join(expectedNames, ", "), strings.Join(actualTools, ", "),
		)
		return result
	}

	if len(c.Critics) == 0 {
		result.Score = 1.0
		result.Passed = true
		return result
	}

	scores := c.buildScoreMatrix(actualToolCalls)
	assignment := solveAssignment(scores)

	totalWeight := 0.0
	for i, j := range assignment {
		if i >= len(c.ExpectedToolCalls) || j >= len(actualToolCalls) {
			continue
		}
		expected := c.ExpectedToolCalls[i]
		actual := actualToolCalls[j]

		result.scoreToolSelection(expected.Name, actual.Name, c.Rubric.ToolSelectionWeight)
		totalWeight += c.Rubric.ToolSelectionWeight

		for _, critic := range c.Critics {
			expectedValue, expectedOK := expected.Args[critic.Field()]
			actualValue, actualOK := actual.Args[critic.Field()]
			if !expectedOK || !actualOK || expectedValue == nil || actualValue == nil {
				continue
			}

			cr, err := critic.Evaluate(expectedValue, actualValue)
			if err != nil {
				log.Warn().Err(err).Str("field", critic.Field()).
					Msg("critic evaluation failed; dropping its weight from the case")
				continue
			}
			totalWeight += critic.Weight()
			result.add(critic.Field(), cr, critic.Weight(), expectedValue, actualValue)
		}
	}

	result.computeFinalScore(totalWeight)
	// Three bands: pass at or above the warn threshold, a warning between
	// the two thresholds, an outright failure below the fail threshold.
	result.Passed = result.Score >= c.Rubric.WarnThreshold
	result.Warning = !result.Passed && result.Score >= c.Rubric.FailThreshold
	return result
}

// buildScoreMatrix fills an n×n matrix of pair scores, n being the larger
// of the expected and actual call counts. Cells beyond either list stay
// zero so the assignment solver can pad the shorter side.
func (c *EvalCase) buildScoreMatrix(actualToolCalls []ToolCall) *mat.Dense {
	n := len(c.ExpectedToolCalls)
	if len(actualToolCalls) > n {
		n = len(actualToolCalls)
	}
	scores := mat.NewDense(n, n, nil)

	for i := 0; i < len(c.ExpectedToolCalls); i++ {
		for j := 0; j < len(actualToolCalls); j++ {
			expected := c.ExpectedToolCalls[i]
			actual := actualToolCalls[j]

			score := 0.0
			if compareToolNames(expected.Name, actual.Name) {
				score += c.Rubric.ToolSelectionWeight
			}
			for _, critic := range c.Critics {
				expectedValue, expectedOK := expected.Args[critic.Field()]
				actualValue, actualOK := actual.Args[critic.Field()]
				if !expectedOK || !actualOK || expectedValue == nil || actualValue == nil {
					continue
				}
				cr, err := critic.Evaluate(expectedValue, actualValue)
				if err != nil {
					log.Warn().Err(err).Str("field", critic.Field()).
						Msg("critic evaluation failed while scoring a pairing")
					continue
				}
				score += cr.Score
			}
			scores.Set(i, j, score)
		}
	}
	return scores
}
