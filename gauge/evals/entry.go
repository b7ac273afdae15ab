package evals

import (
	"context"
	"fmt"

	"github.com/gaugeworks/toolgauge/gauge/config"
	"github.com/gaugeworks/toolgauge/gauge/evals/adapters"
)

// SuiteFactory builds an evaluation suite: tools registered, cases added.
type SuiteFactory func() (*EvalSuite, error)

// Runner executes a suite against a model with bounded concurrency.
type Runner func(ctx context.Context, cfg *config.Config, model string, maxConcurrency int) ([]*Report, error)

// ToolEval wraps a suite factory into a runnable entry point, connecting to
// the configured OpenAI-compatible endpoint.
func ToolEval(factory SuiteFactory) Runner {
	return func(ctx context.Context, cfg *config.Config, model string, maxConcurrency int) ([]*Report, error) {
		suite, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to build eval suite: %w", err)
		}
		if suite == nil {
			return nil, fmt.Errorf("eval factory returned no suite")
		}
		if maxConcurrency > 0 {
			suite.MaxConcurrent = maxConcurrency
		}

		provider, err := adapters.NewOpenAIProvider(cfg.Client.APIKey, cfg.Client.BaseURL)
		if err != nil {
			return nil, err
		}

		report, err := suite.Run(ctx, provider, model)
		if err != nil {
			return nil, err
		}
		return []*Report{report}, nil
	}
}
