package llm

import (
	"context"
	"time"
)

// timeoutGenerator bounds every Generate call with its own deadline so a
// stalled provider cannot block an analysis run on the inbound request
// context.
type timeoutGenerator struct {
	inner   TextGenerator
	timeout time.Duration
}

// WithTimeout wraps a TextGenerator so each Generate call runs under its
// own deadline. A non-positive timeout returns the generator unwrapped.
func WithTimeout(generator TextGenerator, timeout time.Duration) TextGenerator {
	if generator == nil || timeout <= 0 {
		return generator
	}
	return &timeoutGenerator{inner: generator, timeout: timeout}
}

// Generate implements TextGenerator.
func (g *timeoutGenerator) Generate(ctx context.Context, prompt string, systemMessage string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Generate(callCtx, prompt, systemMessage)
}

// GetModel implements TextGenerator.
func (g *timeoutGenerator) GetModel() string {
	return g.inner.GetModel()
}

var _ TextGenerator = (*timeoutGenerator)(nil)
