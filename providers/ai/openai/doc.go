// Package openai implements [ai.Provider] for OpenAI and every service that
// speaks the OpenAI chat completions protocol (OpenRouter, Ollama, vLLM,
// Azure OpenAI deployments behind a compatible gateway).
//
// Create a provider with [New], which reads OPENAI_API_KEY and
// OPENAI_API_BASE_URL from the environment; override either with
// WithAPIKey / WithBaseURL.
package openai
