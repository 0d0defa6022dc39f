package relay

import "botgateway/internal/core"

// fallbackModels is served when the upstream catalog is unavailable or
// unusable, so the UI is never left with an empty model selector.
// Fallback results are never written to the cache: the next call
// retries upstream and a later success promotes a fresh list.
var fallbackModels = []core.Model{
	{ID: "openrouter/auto", Name: "Auto (best available)"},
	{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini"},
	{ID: "anthropic/claude-3.5-haiku", Name: "Claude 3.5 Haiku"},
	{ID: "google/gemini-flash-1.5", Name: "Gemini Flash 1.5"},
	{ID: "meta-llama/llama-3.1-8b-instruct", Name: "Llama 3.1 8B Instruct"},
}

// FallbackModels returns a copy of the static fallback list.
func FallbackModels() []core.Model {
	models := make([]core.Model, len(fallbackModels))
	copy(models, fallbackModels)
	return models
}
