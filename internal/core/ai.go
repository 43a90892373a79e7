package core

import "context"

// LLMProvider generates text from a system and a user prompt. When jsonMode
// is set the provider is asked to answer with a JSON document.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error)
}
