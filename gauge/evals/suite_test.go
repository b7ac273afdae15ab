package evals

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaugeworks/toolgauge/gauge/catalog"
	"github.com/gaugeworks/toolgauge/gauge/evals/ports"
	"github.com/gaugeworks/toolgauge/gauge/toolkits/contacts"
)

// stubProvider answers each case from a canned table keyed by the user
// message, recording every request it sees.
type stubProvider struct {
	responses map[string][]ports.ToolCallProposal

	mu       sync.Mutex
	requests []ports.CompletionRequest
}

func (p *stubProvider) ProposeToolCalls(_ context.Context, req ports.CompletionRequest) ([]ports.ToolCallProposal, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	userMessage := req.Messages[len(req.Messages)-1].Content
	return p.responses[userMessage], nil
}

func newContactsSuite(t *testing.T) *EvalSuite {
	t.Helper()
	cat := catalog.New(catalog.Options{Logger: zerolog.Nop()})
	require.NoError(t, cat.AddToolkit(contacts.Toolkit()))
	return NewEvalSuite("contacts", "You manage an address book.", cat)
}

func TestAddCaseResolvesExpected(t *testing.T) {
	s := newContactsSuite(t)

	err := s.AddCase(CaseSpec{
		Name:        "create ada",
		UserMessage: "Add Ada Lovelace to my contacts",
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.CreateContact, Args: map[string]any{
				"first_name": "Ada",
				"last_name":  "Lovelace",
			}},
		},
		Critics: []Critic{mustBinary(t, "first_name", 0.5)},
	})
	require.NoError(t, err)
	require.Len(t, s.Cases, 1)

	c := s.Cases[0]
	assert.Equal(t, "You manage an address book.", c.SystemMessage)
	require.Len(t, c.ExpectedToolCalls, 1)
	assert.Equal(t, "Contacts.CreateContact", c.ExpectedToolCalls[0].Name)

	// Defaults and unset parameters are materialized up front.
	args := c.ExpectedToolCalls[0].Args
	assert.Equal(t, "Ada", args["first_name"])
	assert.Equal(t, "personal", args["type"])
	assert.Nil(t, args["phone"])
}

func TestAddCaseUnknownHandler(t *testing.T) {
	s := newContactsSuite(t)

	err := s.AddCase(CaseSpec{
		Name:              "bad",
		UserMessage:       "hi",
		ExpectedToolCalls: []HandlerCall{{Handler: func() {}, Args: nil}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestExtendCase(t *testing.T) {
	s := newContactsSuite(t)

	require.Error(t, s.ExtendCase(CaseSpec{Name: "too early"}), "extending an empty suite must fail")

	require.NoError(t, s.AddCase(CaseSpec{
		Name:        "create ada",
		UserMessage: "Add Ada Lovelace",
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.CreateContact, Args: map[string]any{"first_name": "Ada", "last_name": "Lovelace"}},
		},
		Critics: []Critic{mustBinary(t, "first_name", 0.5)},
	}))

	require.NoError(t, s.ExtendCase(CaseSpec{
		Name:        "then delete her",
		UserMessage: "Actually, remove her again",
		AdditionalMessages: []ports.Message{
			{Role: "assistant", Content: "Added Ada Lovelace."},
		},
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.DeleteContact, Args: map[string]any{"contact_id": "ada-lovelace"}},
		},
	}))

	require.Len(t, s.Cases, 2)
	extended := s.Cases[1]
	assert.Equal(t, "then delete her", extended.Name)
	assert.Equal(t, "Contacts.DeleteContact", extended.ExpectedToolCalls[0].Name)
	require.Len(t, extended.AdditionalMessages, 1)
	assert.Equal(t, "assistant", extended.AdditionalMessages[0].Role)

	// Critics and system message carry over from the previous case.
	require.Len(t, extended.Critics, 1)
	assert.Equal(t, "first_name", extended.Critics[0].Field())
	assert.Equal(t, s.Cases[0].SystemMessage, extended.SystemMessage)
}

func TestRun(t *testing.T) {
	s := newContactsSuite(t)
	s.MaxConcurrent = 2

	require.NoError(t, s.AddCase(CaseSpec{
		Name:        "create ada",
		UserMessage: "Add Ada Lovelace, ada@example.com",
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.CreateContact, Args: map[string]any{
				"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
			}},
		},
		Critics: []Critic{
			mustBinary(t, "first_name", 0.3),
			mustBinary(t, "email", 0.3),
		},
	}))
	require.NoError(t, s.AddCase(CaseSpec{
		Name:        "find grace",
		UserMessage: "Find Grace in my contacts",
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.SearchContacts, Args: map[string]any{"query": "Grace"}},
		},
		Critics: []Critic{mustBinary(t, "query", 0.5)},
	}))

	provider := &stubProvider{responses: map[string][]ports.ToolCallProposal{
		"Add Ada Lovelace, ada@example.com": {{
			Name:      "Contacts_CreateContact",
			Arguments: `{"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"}`,
		}},
		"Find Grace in my contacts": {{
			Name:      "Contacts.SearchContacts",
			Arguments: `{"query": "Grace"}`,
		}},
	}}

	report, err := s.Run(context.Background(), provider, "test-model")
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "contacts", report.Suite)
	assert.Equal(t, "test-model", report.Model)

	// Reports keep the add order regardless of completion order.
	require.Len(t, report.Cases, 2)
	assert.Equal(t, "create ada", report.Cases[0].Name)
	assert.Equal(t, "find grace", report.Cases[1].Name)

	for _, cr := range report.Cases {
		assert.True(t, cr.Evaluation.Passed, "case %s: %+v", cr.Name, cr.Evaluation)
		assert.InDelta(t, 1.0, cr.Evaluation.Score, 1e-9)
	}

	// Predicted calls carry filled defaults, like the expected side.
	predicted := report.Cases[0].PredictedToolCalls
	require.Len(t, predicted, 1)
	assert.Equal(t, "personal", predicted[0].Args["type"])

	// Every request advertised the full catalog and the conversation shape.
	require.Len(t, provider.requests, 2)
	for _, req := range provider.requests {
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "auto", req.ToolChoice)
		assert.Len(t, req.Tools, 3)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[len(req.Messages)-1].Role)
	}
}

func TestRunUnknownProposedTool(t *testing.T) {
	s := newContactsSuite(t)
	require.NoError(t, s.AddCase(CaseSpec{
		Name:        "create",
		UserMessage: "Add Ada",
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.CreateContact, Args: map[string]any{"first_name": "Ada", "last_name": "Lovelace"}},
		},
	}))

	provider := &stubProvider{responses: map[string][]ports.ToolCallProposal{
		"Add Ada": {{Name: "Imaginary.Tool", Arguments: `{}`}},
	}}

	_, err := s.Run(context.Background(), provider, "test-model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in the catalog")
}

func TestRunMalformedArguments(t *testing.T) {
	s := newContactsSuite(t)
	require.NoError(t, s.AddCase(CaseSpec{
		Name:        "find",
		UserMessage: "Find Grace",
		ExpectedToolCalls: []HandlerCall{
			{Handler: contacts.SearchContacts, Args: map[string]any{"query": "Grace"}},
		},
		Critics: []Critic{mustBinary(t, "query", 0.5)},
	}))

	provider := &stubProvider{responses: map[string][]ports.ToolCallProposal{
		"Find Grace": {{Name: "Contacts.SearchContacts", Arguments: `not json at all`}},
	}}

	// Malformed arguments never fail the run: the call is kept with only
	// its defaults, the query critic has nothing to compare, and the case
	// is judged on tool selection alone.
	report, err := s.Run(context.Background(), provider, "test-model")
	require.NoError(t, err)
	require.Len(t, report.Cases, 1)

	predicted := report.Cases[0].PredictedToolCalls
	require.Len(t, predicted, 1)
	assert.Nil(t, predicted[0].Args["query"])
	assert.Equal(t, float64(10), predicted[0].Args["limit"])

	evaluation := report.Cases[0].Evaluation
	require.Len(t, evaluation.Results, 1)
	assert.Equal(t, "tool_selection", evaluation.Results[0].Field)
	assert.True(t, evaluation.Passed)
}
