package evals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRubric(t *testing.T) {
	r := DefaultRubric()
	assert.Equal(t, 0.8, r.FailThreshold)
	assert.Equal(t, 0.9, r.WarnThreshold)
	assert.True(t, r.FailOnToolSelection)
	assert.True(t, r.FailOnToolCallQuantity)
	assert.Equal(t, 1.0, r.ToolSelectionWeight)
	assert.Equal(t, "Fail threshold: 0.8\nWarn threshold: 0.9\n", r.String())
}

func TestComputeFinalScoreZeroWeight(t *testing.T) {
	var r EvaluationResult
	r.computeFinalScore(0)
	assert.Zero(t, r.Score)
}

func TestScoreToolSelectionRecords(t *testing.T) {
	var r EvaluationResult
	score := r.scoreToolSelection("Contacts.CreateContact", "contacts_createcontact", 1.0)
	assert.Equal(t, 1.0, score)

	score = r.scoreToolSelection("Contacts.CreateContact", "Contacts.DeleteContact", 1.0)
	assert.Zero(t, score)

	assert.Len(t, r.Results, 2)
	assert.Equal(t, "tool_selection", r.Results[0].Field)
	assert.True(t, r.Results[0].Match)
	assert.False(t, r.Results[1].Match)
}
