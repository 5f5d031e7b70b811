package interfaces

import "context"

// NarrativeGenerator produces raw story content from a prompt pair. The
// reply may be wrapped in a fenced code block.
type NarrativeGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageGenerator renders a scene illustration. Implementations never fail;
// any error resolves to the placeholder URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, referenceImageURL string) string
	PlaceholderURL() string
}
