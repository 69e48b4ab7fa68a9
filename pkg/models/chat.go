package models

// ChatResponse is the record every chat operation returns. Transport and API
// failures populate Error instead of surfacing as Go errors, so callers must
// check Success or IsError before using Content.
type ChatResponse struct {
	Content  string                 `json:"content"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewChatSuccess creates a successful response
func NewChatSuccess(content string, metadata map[string]interface{}) *ChatResponse {
	return &ChatResponse{
		Content:  content,
		Success:  true,
		Metadata: metadata,
	}
}

// NewChatError creates an error response
func NewChatError(errorMessage string) *ChatResponse {
	return &ChatResponse{
		Success: false,
		Error:   errorMessage,
	}
}

// IsError reports whether the response carries a failure
func (r *ChatResponse) IsError() bool {
	return !r.Success || r.Error != ""
}

// ToMap converts the response to a generic map
func (r *ChatResponse) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"content": r.Content,
		"success": r.Success,
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Metadata != nil {
		out["metadata"] = r.Metadata
	}
	return out
}

// ChatResponseFromMap rebuilds a response from its map form
func ChatResponseFromMap(data map[string]interface{}) *ChatResponse {
	resp := &ChatResponse{}
	if content, ok := data["content"].(string); ok {
		resp.Content = content
	}
	if success, ok := data["success"].(bool); ok {
		resp.Success = success
	}
	if errText, ok := data["error"].(string); ok {
		resp.Error = errText
	}
	if metadata, ok := data["metadata"].(map[string]interface{}); ok {
		resp.Metadata = metadata
	}
	return resp
}

// ChatOptions carries the per-call knobs of a chat request. Zero values fall
// back to the configured defaults.
type ChatOptions struct {
	Model        string                 `json:"model,omitempty"`
	SystemPrompt string                 `json:"system_prompt,omitempty"`
	Temperature  float64                `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens    int                    `json:"max_tokens,omitempty" validate:"gte=0"`
	Extra        map[string]interface{} `json:"options,omitempty"`
}

// StreamChunk is one increment of a streaming chat response. A transport
// failure mid-stream is delivered in-band through Err before the channel
// closes.
type StreamChunk struct {
	Content string
	Err     error
}

// ChatMessage is a single turn in a chat-completion request body
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Token accounting as reported by the provider
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
