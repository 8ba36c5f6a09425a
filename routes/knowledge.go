package routes

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aura-backend/internal/ai"
	"aura-backend/internal/config"
	"aura-backend/internal/logger"
	"aura-backend/models"
	"aura-backend/services"
	"aura-backend/utils"
)

// SetupKnowledgeRoutes wires document upload and index inspection.
func SetupKnowledgeRoutes(router *gin.Engine, cfg *config.Config, kb *services.KnowledgeBase, extractor *services.TextExtractor, embedder ai.Embedder) {
	// Upload and index a document for retrieval
	router.POST("/upload", func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "no_file", "No file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "file_too_large", "File size exceeds maximum limit",
				gin.H{"max_size": cfg.MaxFileSize, "received": header.Size})
			return
		}

		docType, ok := services.DetectDocumentType(header.Filename)
		if !ok {
			utils.RespondWithBadRequest(c, "unsupported_file_type",
				"Unsupported file type, expected pdf, docx, txt or md",
				gin.H{"filename": header.Filename})
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize))
		if err != nil {
			utils.RespondWithInternalError(c, "file_read_error", "Failed to read uploaded file", nil)
			return
		}

		text, err := extractor.Extract(data, docType)
		if err != nil {
			logger.Error("Document extraction failed", "filename", header.Filename, "error", err)
			utils.RespondWithInternalError(c, "extraction_failed", "Failed to parse document", gin.H{"error": err.Error()})
			return
		}

		if strings.TrimSpace(text) == "" {
			utils.RespondWithBadRequest(c, "empty_document", "Document appears to be empty", nil)
			return
		}

		doc, err := kb.Index(c.Request.Context(), header.Filename, text, embedder)
		if err != nil {
			logger.Error("Document indexing failed", "filename", header.Filename, "error", err)
			utils.RespondWithInternalError(c, "indexing_failed", "Failed to index document", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.UploadResponse{
			ID:          doc.ID,
			Filename:    doc.Filename,
			ChunksCount: len(doc.Chunks),
			Message:     "Document indexed successfully",
		})
	})

	// List indexed documents
	router.GET("/knowledge", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"documents": kb.List()})
	})

	// Inspect one document, full text included
	router.GET("/knowledge/:id", func(c *gin.Context) {
		doc, ok := kb.Get(c.Param("id"))
		if !ok {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}

		text, err := kb.DocumentText(doc)
		if err != nil {
			utils.RespondWithInternalError(c, "decompression_failed", "Failed to read stored document", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           doc.ID,
			"filename":     doc.Filename,
			"chunks_count": len(doc.Chunks),
			"content":      text,
			"indexed_at":   doc.IndexedAt,
		})
	})

	// Clear the whole index
	router.POST("/reset_knowledge", func(c *gin.Context) {
		kb.Reset()
		c.JSON(http.StatusOK, gin.H{"message": "Knowledge base cleared"})
	})
}
