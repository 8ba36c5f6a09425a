package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"aura-backend/internal/ai"
	"aura-backend/internal/config"
	"aura-backend/internal/telemetry"
	"aura-backend/models"
	"aura-backend/services"
)

func newChatRouter(t *testing.T, cfg *config.Config, kb *services.KnowledgeBase, embedder *fakeEmbedder) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		t.Fatalf("metrics init: %v", err)
	}

	retriever := services.NewRetriever(kb, embedder, cfg.RetrievalTopK, cfg.RelevanceThreshold)
	vision := ai.NewVisionRegistry([]string{"gpt-4o", "vision", "vl", "claude-3", "gemini"})

	router := gin.New()
	SetupChatRoutes(router, cfg, retriever, vision, metrics)
	return router
}

func postChat(t *testing.T, router *gin.Engine, req models.ChatRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("request marshal: %v", err)
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, r)
	return w
}

func chatReply(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	return resp.Response
}

// upstream fakes an OpenAI-compatible chat completions endpoint.
func upstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestChatRejectsInvalidBody(t *testing.T) {
	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	router := newChatRouter(t, cfg, kb, &fakeEmbedder{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	r.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChatRejectsMissingAPIKey(t *testing.T) {
	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	router := newChatRouter(t, cfg, kb, &fakeEmbedder{})

	w := postChat(t, router, models.ChatRequest{
		Message: "hello",
		Config:  models.ChatConfig{Model: "gpt-4o"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing_api_key") {
		t.Fatalf("expected missing_api_key error, got %s", w.Body.String())
	}
}

func TestChatImageToTextOnlyModelGetsSoftReply(t *testing.T) {
	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	router := newChatRouter(t, cfg, kb, &fakeEmbedder{})

	// No API key in the request: the capability check answers first, so no
	// upstream call and no key needed
	w := postChat(t, router, models.ChatRequest{
		Message: "what is in this picture?",
		Attachments: []models.Attachment{
			{Name: "photo.jpg", MimeType: "image/jpeg", Data: "aGVsbG8="},
		},
		Config: models.ChatConfig{Model: "gpt-3.5-turbo"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := chatReply(t, w); got != cfg.NoVisionReply {
		t.Fatalf("expected the no-vision reply, got %q", got)
	}
}

func TestChatPassesReplyThrough(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hello there! ❤️"}}]}`))
	})

	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	router := newChatRouter(t, cfg, kb, &fakeEmbedder{})

	w := postChat(t, router, models.ChatRequest{
		Message: "hi",
		Config: models.ChatConfig{
			APIKey:  "test-key",
			BaseURL: srv.URL,
			Model:   "gpt-4o-mini",
			Persona: models.Persona{Name: "Aura"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := chatReply(t, w); got != "hello there! ❤️" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestChatSendsRetrievedContextInSystemPrompt(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"messages"`
	}
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("upstream decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"the sky is blue"}}]}`))
	})

	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	embedder := &fakeEmbedder{}
	if _, err := kb.Index(t.Context(), "facts.txt", "The sky is blue.", embedder); err != nil {
		t.Fatalf("index error: %v", err)
	}
	router := newChatRouter(t, cfg, kb, embedder)

	w := postChat(t, router, models.ChatRequest{
		Message: "What color is the sky?",
		History: []models.HistoryMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello!"},
		},
		Config: models.ChatConfig{
			APIKey:  "test-key",
			BaseURL: srv.URL,
			Model:   "gpt-4o",
			Persona: models.Persona{Name: "Aura"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// system + 2 history turns + current user message
	if len(captured.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Fatalf("first message must be the system prompt")
	}
	systemPrompt, ok := captured.Messages[0].Content.(string)
	if !ok {
		t.Fatalf("system prompt is not a string")
	}
	if !strings.Contains(systemPrompt, "[From: facts.txt]\nThe sky is blue.") {
		t.Fatalf("retrieved context missing from system prompt:\n%s", systemPrompt)
	}
	if captured.Messages[1].Role != "user" || captured.Messages[2].Role != "assistant" {
		t.Fatalf("history roles not preserved: %+v", captured.Messages[1:3])
	}
	if captured.Messages[3].Role != "user" {
		t.Fatalf("current turn must be a user message")
	}
}

func TestChatImageRejectionGetsSoftReply(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"this model does not support image_url content","type":"invalid_request_error"}}`))
	})

	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	router := newChatRouter(t, cfg, kb, &fakeEmbedder{})

	w := postChat(t, router, models.ChatRequest{
		Message: "look at this!",
		Attachments: []models.Attachment{
			{Name: "photo.png", MimeType: "image/png", Data: "data:image/png;base64,aGVsbG8="},
		},
		Config: models.ChatConfig{
			APIKey:  "test-key",
			BaseURL: srv.URL,
			Model:   "gpt-4o",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected soft 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := chatReply(t, w); got != cfg.ImageFailureReply {
		t.Fatalf("expected the image-failure reply, got %q", got)
	}
}

func TestChatUpstreamFailureIsAnError(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"authentication_error"}}`))
	})

	cfg := testConfig()
	kb := services.NewKnowledgeBase(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	router := newChatRouter(t, cfg, kb, &fakeEmbedder{})

	w := postChat(t, router, models.ChatRequest{
		Message: "hi",
		Config: models.ChatConfig{
			APIKey:  "wrong-key",
			BaseURL: srv.URL,
			Model:   "gpt-4o",
		},
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "llm_error") {
		t.Fatalf("expected llm_error code, got %s", w.Body.String())
	}
}
