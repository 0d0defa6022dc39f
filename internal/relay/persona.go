package relay

import (
	"strings"

	"botgateway/internal/core"
)

// personaPrompts maps persona names to system prompts. Lookup is
// case-insensitive; unknown personas fall back to the default.
var personaPrompts = map[string]string{
	core.PersonaSales: "You are a persuasive but honest sales assistant. " +
		"Keep answers concise, lead with the value for the customer, and " +
		"close with a clear call to action. Never overpromise.",
	core.PersonaTutor: "You are a patient tutor. Explain step by step, " +
		"check understanding with short questions, and adapt depth and " +
		"vocabulary to the learner's level.",
	core.PersonaSupport: "You are a calm, precise customer support agent. " +
		"Ask for any missing detail you need, then propose a concrete " +
		"solution first before explaining background.",
	core.PersonaDefault: "You are a helpful, practical assistant. Answer " +
		"concisely, prefer actionable guidance, and stay safe and factual.",
}

// SystemPrompt resolves the system prompt for a persona.
func SystemPrompt(persona string) string {
	key := strings.ToLower(strings.TrimSpace(persona))
	if prompt, ok := personaPrompts[key]; ok {
		return prompt
	}
	return personaPrompts[core.PersonaDefault]
}
