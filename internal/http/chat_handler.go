package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartchef/internal/llm"
	"smartchef/internal/service"
)

const systemPrompt = `Tu és o SmartChef IA — assistente de cozinha profissional, amigável e rápido.
Adapta-te ao utilizador se o perfil for fornecido.`

const maxAudioBytes = 15 << 20

// ChatHandler mantiene dependencias para los endpoints respaldados por LLM.
// Toda accion pasa por la compuerta de cuota antes de tocar el LLM.
type ChatHandler struct {
	logger    *zap.Logger
	quota     *service.QuotaService
	llmClient llm.LLMClient
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, quota *service.QuotaService, llmClient llm.LLMClient) *ChatHandler {
	return &ChatHandler{
		logger:    logger,
		quota:     quota,
		llmClient: llmClient,
	}
}

// Chat maneja POST /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Messages []llm.Message `json:"messages" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_message"})
		return
	}

	if !h.consumeQuota(c, claims.UserID) {
		return
	}

	messages := append([]llm.Message{{Role: "system", Content: systemPrompt}}, req.Messages...)
	reply, err := h.llmClient.Chat(c.Request.Context(), messages)
	if err != nil {
		h.logger.Error("llm chat failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "llm unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// Audio maneja POST /audio: transcribe y responde sobre el texto transcrito.
func (h *ChatHandler) Audio(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file"})
		return
	}
	if fileHeader.Size > maxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Warn("open audio upload failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audio file"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		h.logger.Warn("read audio upload failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audio file"})
		return
	}

	if !h.consumeQuota(c, claims.UserID) {
		return
	}

	transcript, err := h.llmClient.Transcribe(c.Request.Context(), fileHeader.Filename, audio)
	if err != nil {
		h.logger.Error("llm transcription failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "llm unavailable"})
		return
	}

	reply, err := h.llmClient.Chat(c.Request.Context(), []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: transcript},
	})
	if err != nil {
		h.logger.Error("llm chat failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "llm unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transcript": transcript, "reply": reply})
}

// consumeQuota aplica la compuerta; en denegacion responde 429 nombrando la
// ventana excedida y el LLM nunca se invoca.
func (h *ChatHandler) consumeQuota(c *gin.Context, userID string) bool {
	decision, err := h.quota.CheckAndConsume(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return false
		}
		h.logger.Error("quota check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return false
	}
	if !decision.Allowed {
		window := "daily"
		if decision.Reason == service.ReasonWeeklyLimit {
			window = "weekly"
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   decision.Reason,
			"message": "you have reached your " + window + " limit",
		})
		return false
	}
	return true
}
