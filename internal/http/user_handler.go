package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartchef/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	identity *service.IdentityService
	quota    *service.QuotaService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, identity *service.IdentityService, quota *service.QuotaService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		identity: identity,
		quota:    quota,
	}
}

// GetUser maneja GET /users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.identity.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetQuota maneja GET /users/:id/quota.
func (h *UserHandler) GetQuota(c *gin.Context) {
	status, err := h.quota.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("quota status failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quota": status})
}

// Campos que definen identidad; un payload que los nombre se rechaza entero.
var immutableFields = []string{"id", "provider", "password_hash", "email"}

// UpdateUser maneja PUT /users/:id con whitelist explicita de campos
// mutables, en lugar del merge dinamico que sobreescribia cualquier cosa.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var payload map[string]json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid update user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	for _, field := range immutableFields {
		if _, present := payload[field]; present {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field is immutable: " + field})
			return
		}
	}

	user, err := h.identity.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	if err := applyField(payload, "name", &user.DisplayName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field: name"})
		return
	}
	if err := applyField(payload, "picture", &user.Picture); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field: picture"})
		return
	}
	if err := applyField(payload, "level", &user.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field: level"})
		return
	}
	if err := applyField(payload, "points", &user.Points); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field: points"})
		return
	}
	if err := applyField(payload, "favorites", &user.Favorites); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field: favorites"})
		return
	}
	if err := applyField(payload, "is_premium", &user.IsPremium); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field: is_premium"})
		return
	}

	if err := h.identity.UpdateProfile(c.Request.Context(), user); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("update user failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func applyField[T any](payload map[string]json.RawMessage, key string, dst *T) error {
	raw, present := payload[key]
	if !present {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
