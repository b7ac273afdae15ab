package evals

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/gaugeworks/toolgauge/gauge/catalog"
	"github.com/gaugeworks/toolgauge/gauge/evals/ports"
)

// HandlerCall references an expected tool call by its registered handler
// function, with the arguments the model should supply.
type HandlerCall struct {
	Handler any
	Args    map[string]any
}

// CaseSpec is the authoring form of a case; AddCase resolves it against the
// suite's catalog.
type CaseSpec struct {
	Name              string
	UserMessage       string
	ExpectedToolCalls []HandlerCall
	Critics           []Critic
	// SystemMessage overrides the suite's system message when set.
	SystemMessage string
	// Rubric overrides the suite's rubric when set.
	Rubric *EvalRubric
	// AdditionalMessages is prior conversation context, inserted between
	// the system and user messages.
	AdditionalMessages []ports.Message
}

// EvalSuite is a named collection of cases sharing a catalog, a system
// message and a default rubric.
type EvalSuite struct {
	Name          string
	SystemMessage string
	Catalog       *catalog.Catalog
	Cases         []*EvalCase
	Rubric        EvalRubric
	// MaxConcurrent bounds how many cases run against the model at once.
	MaxConcurrent int
}

// NewEvalSuite creates a suite with the default rubric and serial execution.
func NewEvalSuite(name, systemMessage string, cat *catalog.Catalog) *EvalSuite {
	return &EvalSuite{
		Name:          name,
		SystemMessage: systemMessage,
		Catalog:       cat,
		Rubric:        DefaultRubric(),
		MaxConcurrent: 1,
	}
}

// resolveExpected turns handler references into fully-qualified expected
// calls with defaults filled in.
func (s *EvalSuite) resolveExpected(calls []HandlerCall) ([]ExpectedToolCall, error) {
	expected := make([]ExpectedToolCall, 0, len(calls))
	for _, call := range calls {
		fq, err := s.Catalog.FindByHandler(call.Handler)
		if err != nil {
			return nil, err
		}
		tool, err := s.Catalog.Get(fq)
		if err != nil {
			return nil, err
		}
		expected = append(expected, ExpectedToolCall{
			Name: fq.String(),
			Args: tool.FillArguments(call.Args),
		})
	}
	return expected, nil
}

// AddCase resolves a case spec and appends it to the suite.
func (s *EvalSuite) AddCase(spec CaseSpec) error {
	expected, err := s.resolveExpected(spec.ExpectedToolCalls)
	if err != nil {
		return fmt.Errorf("failed to resolve expected tool calls for case %q: %w", spec.Name, err)
	}

	systemMessage := spec.SystemMessage
	if systemMessage == "" {
		systemMessage = s.SystemMessage
	}
	rubric := s.Rubric
	if spec.Rubric != nil {
		rubric = *spec.Rubric
	}

	c, err := NewEvalCase(spec.Name, systemMessage, spec.UserMessage, expected, spec.Critics, spec.AdditionalMessages, rubric)
	if err != nil {
		return fmt.Errorf("invalid case %q: %w", spec.Name, err)
	}
	s.Cases = append(s.Cases, c)
	return nil
}

// ExtendCase builds on the most recently added case: the conversation so
// far carries over and the spec's additional messages are appended to it.
// Expected calls, critics and system message are inherited unless the spec
// replaces them.
func (s *EvalSuite) ExtendCase(spec CaseSpec) error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("no cases to extend; add a case first")
	}
	last := s.Cases[len(s.Cases)-1]

	additional := append([]ports.Message(nil), last.AdditionalMessages...)
	additional = append(additional, spec.AdditionalMessages...)

	expected := last.ExpectedToolCalls
	if len(spec.ExpectedToolCalls) > 0 {
		resolved, err := s.resolveExpected(spec.ExpectedToolCalls)
		if err != nil {
			return fmt.Errorf("failed to resolve expected tool calls for case %q: %w", spec.Name, err)
		}
		expected = resolved
	}

	critics := last.Critics
	if len(spec.Critics) > 0 {
		critics = spec.Critics
	}
	systemMessage := spec.SystemMessage
	if systemMessage == "" {
		systemMessage = last.SystemMessage
	}
	rubric := s.Rubric
	if spec.Rubric != nil {
		rubric = *spec.Rubric
	}

	c, err := NewEvalCase(spec.Name, systemMessage, spec.UserMessage, expected, critics, additional, rubric)
	if err != nil {
		return fmt.Errorf("invalid case %q: %w", spec.Name, err)
	}
	s.Cases = append(s.Cases, c)
	return nil
}

// CaseReport is the outcome of one case within a run.
type CaseReport struct {
	Name               string             `json:"name"`
	Input              string             `json:"input"`
	ExpectedToolCalls  []ExpectedToolCall `json:"expected_tool_calls"`
	PredictedToolCalls []ToolCall         `json:"predicted_tool_calls"`
	Evaluation         EvaluationResult   `json:"evaluation"`
}

// Report is the outcome of running a suite against one model.
type Report struct {
	RunID  string       `json:"run_id"`
	Suite  string       `json:"suite"`
	Model  string       `json:"model"`
	Rubric EvalRubric   `json:"rubric"`
	Cases  []CaseReport `json:"cases"`
}

// Run evaluates every case against the model, at most MaxConcurrent at a
// time. Case reports appear in the order cases were added regardless of
// completion order. The first provider or catalog error cancels the run.
func (s *EvalSuite) Run(ctx context.Context, provider ports.ChatProvider, model string) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Suite:  s.Name,
		Model:  model,
		Rubric: s.Rubric,
		Cases:  make([]CaseReport, len(s.Cases)),
	}

	maxConcurrent := s.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	definitions := s.Catalog.Definitions()

	p := pool.New().WithMaxGoroutines(maxConcurrent).WithContext(ctx)
	for i, c := range s.Cases {
		p.Go(func(ctx context.Context) error {
			messages := make([]ports.Message, 0, len(c.AdditionalMessages)+2)
			messages = append(messages, ports.Message{Role: "system", Content: c.SystemMessage})
			messages = append(messages, c.AdditionalMessages...)
			messages = append(messages, ports.Message{Role: "user", Content: c.UserMessage})

			proposals, err := provider.ProposeToolCalls(ctx, ports.CompletionRequest{
				Model:      model,
				Messages:   messages,
				Tools:      definitions,
				ToolChoice: "auto",
			})
			if err != nil {
				return fmt.Errorf("case %q: %w", c.Name, err)
			}

			actual, err := s.materializeProposals(proposals)
			if err != nil {
				return fmt.Errorf("case %q: %w", c.Name, err)
			}

			report.Cases[i] = CaseReport{
				Name:               c.Name,
				Input:              c.UserMessage,
				ExpectedToolCalls:  c.ExpectedToolCalls,
				PredictedToolCalls: actual,
				Evaluation:         c.Evaluate(actual),
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// materializeProposals decodes proposed arguments and fills defaults so the
// critics see the same argument shape on both sides. A proposal naming an
// unknown tool fails the run; malformed arguments only cost the model its
// score.
func (s *EvalSuite) materializeProposals(proposals []ports.ToolCallProposal) ([]ToolCall, error) {
	actual := make([]ToolCall, 0, len(proposals))
	for _, proposal := range proposals {
		tool, err := s.Catalog.GetByName(proposal.Name)
		if err != nil {
			return nil, err
		}

		raw := json.RawMessage(proposal.Arguments)
		if err := s.Catalog.ValidateArguments(proposal.Name, raw); err != nil {
			log.Warn().Err(err).Str("tool", proposal.Name).
				Msg("proposed arguments do not validate against the tool schema")
		}

		var args map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				log.Warn().Err(err).Str("tool", proposal.Name).
					Msg("proposed arguments are not a JSON object")
				args = nil
			}
		}
		actual = append(actual, ToolCall{
			Name: proposal.Name,
			Args: tool.FillArguments(args),
		})
	}
	return actual, nil
}
