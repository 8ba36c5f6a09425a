package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint. The
// key, base URL and model come from the chat request, so a fresh client is
// built per call; the underlying http.Client is cheap to construct.
type ChatClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	MaxRetries int
}

func NewChatClient(apiKey, baseURL, model string, timeout time.Duration, maxRetries int) *ChatClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &ChatClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
	}
}

// ChatMessage is one entry of the messages array. Content is either a plain
// string or a []ContentPart for multimodal messages.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a data URL.
func ImagePart(dataURL string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the error payload of an OpenAI-compatible API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// CreateCompletion sends the conversation to the model and returns the reply
// text. Transient failures (429, 5xx) are retried with exponential backoff;
// client errors are returned as *APIError without retrying.
func (c *ChatClient) CreateCompletion(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	tracer := otel.Tracer("llm-client")
	ctx, span := tracer.Start(ctx, "llm.chat_completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.Model),
		attribute.Int("llm.messages", len(messages)),
	)

	request := completionRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		reply, retryable, err := c.makeRequest(ctx, request)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if attempt < c.MaxRetries {
			sleepCtx(ctx, time.Duration(1<<attempt)*time.Second)
		}
	}

	span.SetAttributes(attribute.Bool("llm.error", true))
	return "", lastErr
}

func (c *ChatClient) makeRequest(ctx context.Context, request completionRequest) (string, bool, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode >= 300 || out.Error != nil {
		apiErr := out.Error
		if apiErr == nil {
			apiErr = &APIError{Message: strings.TrimSpace(string(body))}
		}
		apiErr.Status = resp.StatusCode
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, apiErr
	}

	if len(out.Choices) == 0 {
		return "", false, fmt.Errorf("no candidates in response")
	}

	return out.Choices[0].Message.Content, false, nil
}
