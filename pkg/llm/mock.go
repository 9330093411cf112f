package llm

import "context"

// MockTextGenerator is a configurable mock for testing generative-text
// functionality. Set the function field to control behavior in tests.
type MockTextGenerator struct {
	// GenerateFunc is called when Generate is invoked. If nil, returns
	// empty string and nil error.
	GenerateFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// GenerateCalls counts invocations for verification.
	GenerateCalls int

	// LastPrompt and LastSystemMessage capture the most recent call.
	LastPrompt        string
	LastSystemMessage string
}

// NewMockTextGenerator creates a new mock with sensible defaults.
func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{Model: "mock-model"}
}

// Generate implements TextGenerator.
func (m *MockTextGenerator) Generate(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.GenerateCalls++
	m.LastPrompt = prompt
	m.LastSystemMessage = systemMessage
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// GetModel implements TextGenerator.
func (m *MockTextGenerator) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Ensure MockTextGenerator implements TextGenerator at compile time.
var _ TextGenerator = (*MockTextGenerator)(nil)
