// Package llm provides generative-text clients for the money-loss
// estimation pipeline.
package llm

import "context"

// TextGenerator is the collaborator boundary for generative-text calls.
// Implementations may fail on misconfiguration or network errors; callers
// must treat any error as "no result" and degrade, never abort a run.
// Use this interface for dependency injection to enable mocking in tests.
type TextGenerator interface {
	// Generate produces a completion for the prompt. systemMessage may be
	// empty.
	Generate(ctx context.Context, prompt string, systemMessage string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure clients implement TextGenerator at compile time.
var (
	_ TextGenerator = (*OpenAIClient)(nil)
	_ TextGenerator = (*AnthropicClient)(nil)
)
