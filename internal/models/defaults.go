package models

// DefaultID is the catalog default used when no model table is configured.
const DefaultID = "claude-sonnet-4-5"

// Defaults returns the built-in table for the given upstream provider.
//
// For the gemini provider, Claude model ids are mapped onto Gemini models of
// comparable tier. For the anthropic provider they pass through unchanged.
func Defaults(provider string) []Model {
	backend := func(gemini, anthropic string) string {
		if provider == "anthropic" {
			return anthropic
		}
		return gemini
	}
	contextWindow := 200_000
	if provider != "anthropic" {
		contextWindow = 1_048_576
	}

	return []Model{
		{
			ID:            "claude-opus-4-1",
			BackendID:     backend("gemini-2.5-pro", "claude-opus-4-1-20250805"),
			DisplayName:   "Claude Opus 4.1",
			ContextWindow: contextWindow,
			OwnedBy:       "anthropic",
			Created:       1754352000,
		},
		{
			ID:            "claude-sonnet-4-5",
			BackendID:     backend("gemini-2.5-pro", "claude-sonnet-4-5-20250929"),
			DisplayName:   "Claude Sonnet 4.5",
			ContextWindow: contextWindow,
			OwnedBy:       "anthropic",
			Created:       1759104000,
		},
		{
			ID:            "claude-haiku-4-5",
			BackendID:     backend("gemini-2.5-flash", "claude-haiku-4-5-20251001"),
			DisplayName:   "Claude Haiku 4.5",
			ContextWindow: contextWindow,
			OwnedBy:       "anthropic",
			Created:       1760486400,
		},
	}
}
