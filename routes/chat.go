package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aura-backend/internal/ai"
	"aura-backend/internal/config"
	"aura-backend/internal/logger"
	"aura-backend/internal/telemetry"
	"aura-backend/models"
	"aura-backend/services"
	"aura-backend/utils"
)

// SetupChatRoutes wires the main conversation endpoint.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, retriever *services.Retriever, vision *ai.VisionRegistry, metrics *telemetry.Metrics) {
	router.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid_input", "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		// Images against a text-only model: answer softly instead of erroring,
		// the companion must not break character over a capability gap
		if len(req.Attachments) > 0 && !vision.Supports(req.Config.Model) {
			c.JSON(http.StatusOK, models.ChatResponse{Response: cfg.NoVisionReply})
			return
		}

		if req.Config.APIKey == "" {
			utils.RespondWithBadRequest(c, "missing_api_key", "API key is required", nil)
			return
		}

		ctx := c.Request.Context()

		ragContext, err := retriever.Retrieve(ctx, req.Message)
		if err != nil {
			logger.Error("Context retrieval failed", "error", err)
			utils.RespondWithInternalError(c, "retrieval_error", "Failed to retrieve document context", gin.H{"error": err.Error()})
			return
		}

		systemPrompt := services.BuildSystemPrompt(req.Config.Persona, ragContext)

		messages := make([]ai.ChatMessage, 0, len(req.History)+2)
		messages = append(messages, ai.ChatMessage{Role: "system", Content: systemPrompt})

		for _, msg := range req.History {
			role := "assistant"
			if msg.Role == "user" {
				role = "user"
			}
			messages = append(messages, ai.ChatMessage{Role: role, Content: msg.Content})
		}

		messages = append(messages, buildUserMessage(req))

		client := ai.NewChatClient(
			req.Config.APIKey,
			req.Config.BaseURL,
			req.Config.Model,
			time.Duration(cfg.LLMTimeout)*time.Second,
			cfg.LLMMaxRetries,
		)

		reply, err := client.CreateCompletion(ctx, messages, cfg.LLMTemperature, cfg.LLMMaxTokens)
		if err != nil {
			// Image rejections get a soft in-persona reply; everything else is
			// a genuine upstream failure
			if ai.IsImageRejection(err) {
				metrics.RecordLLMFailure("image_rejected")
				c.JSON(http.StatusOK, models.ChatResponse{Response: cfg.ImageFailureReply})
				return
			}

			metrics.RecordLLMFailure("upstream_error")
			logger.Error("LLM API error", "model", req.Config.Model, "error", err)
			utils.RespondWithInternalError(c, "llm_error", "LLM API error", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{Response: reply})
	})
}

// buildUserMessage assembles the current turn. With image attachments the
// content becomes a multimodal part list; otherwise a plain string.
func buildUserMessage(req models.ChatRequest) ai.ChatMessage {
	parts := []ai.ContentPart{ai.TextPart(req.Message)}

	for _, attachment := range req.Attachments {
		if !strings.HasPrefix(attachment.MimeType, "image/") {
			continue
		}

		// Strip a data URL prefix if the frontend sent one
		data := attachment.Data
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:]
		}

		parts = append(parts, ai.ImagePart("data:"+attachment.MimeType+";base64,"+data))
	}

	if len(parts) > 1 {
		return ai.ChatMessage{Role: "user", Content: parts}
	}
	return ai.ChatMessage{Role: "user", Content: req.Message}
}
