package models

// Persona describes the character the model is asked to stay in.
type Persona struct {
	Name      string `json:"name"`
	Traits    string `json:"traits"`
	Interests string `json:"interests"`
	Style     string `json:"style"`
}

// ChatConfig carries the caller-supplied model endpoint configuration. The
// backend proxies to any OpenAI-compatible API, so key, base URL and model
// name travel with the request rather than living in server config.
type ChatConfig struct {
	APIKey  string  `json:"api_key"`
	BaseURL string  `json:"base_url"`
	Model   string  `json:"model" binding:"required"`
	Persona Persona `json:"persona" binding:"required"`
}

// Attachment is a base64-encoded file sent along with a chat message.
// Only image/* attachments are forwarded to the model.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// HistoryMessage is one prior turn of the conversation.
type HistoryMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ChatRequest is the payload of POST /chat.
type ChatRequest struct {
	Message     string           `json:"message" binding:"required,min=1"`
	History     []HistoryMessage `json:"history"`
	Attachments []Attachment     `json:"attachments"`
	Config      ChatConfig       `json:"config" binding:"required"`
}

// ChatResponse wraps the model reply.
type ChatResponse struct {
	Response string `json:"response"`
}
