package llm

import "time"

// Completion is a provider-agnostic chat completion result.
type Completion struct {
	// Text is the generated assistant message.
	Text string `json:"text"`

	// Model that generated the response, as reported by the provider.
	Model string `json:"model"`

	// Stop reason (e.g., "stop", "length", "end_turn")
	StopReason string `json:"stop_reason,omitempty"`

	// Token usage and timing metrics
	Usage *Usage `json:"usage,omitempty"`

	// CreatedAt is when the completion was received.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Usage contains token counts and timing information.
type Usage struct {
	// Token counts
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing (provider-specific, but normalized to nanoseconds where possible)
	TotalDurationNs  int64 `json:"total_duration_ns,omitempty"`
	PromptDurationNs int64 `json:"prompt_duration_ns,omitempty"`
}

// ErrorResponse is the JSON error body returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
