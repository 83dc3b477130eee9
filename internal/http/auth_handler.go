package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartchef/internal/domain"
	"smartchef/internal/service"
)

const stateTTL = 10 * time.Minute

// OAuthExchanger abstrae el intercambio de codigo por perfil de proveedor.
type OAuthExchanger interface {
	Supported(provider string) bool
	AuthCodeURL(provider, state string) (string, error)
	FetchProfile(ctx context.Context, provider, code string) (service.ExternalProfile, error)
}

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger    *zap.Logger
	identity  *service.IdentityService
	jwtServ   *service.JWTService
	providers OAuthExchanger
	states    service.StateStore
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(
	logger *zap.Logger,
	identity *service.IdentityService,
	jwtServ *service.JWTService,
	providers OAuthExchanger,
	states service.StateStore,
) *AuthHandler {
	if states == nil {
		states = service.NewMemoryStateStore()
	}
	return &AuthHandler{
		logger:    logger,
		identity:  identity,
		jwtServ:   jwtServ,
		providers: providers,
		states:    states,
	}
}

// Login maneja GET /auth/:provider/login y redirige al proveedor.
func (h *AuthHandler) Login(c *gin.Context) {
	provider := c.Param("provider")
	if h.providers == nil || !h.providers.Supported(provider) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	state := uuid.NewString()
	if err := h.states.Store(state, stateTTL); err != nil {
		h.logger.Error("store oauth state failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not start login"})
		return
	}

	url, err := h.providers.AuthCodeURL(provider, state)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback maneja POST /auth/:provider/callback.
func (h *AuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	if h.providers == nil || !h.providers.Supported(provider) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	var req struct {
		Code  string `json:"code" binding:"required"`
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid callback request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ok, err := h.states.Consume(req.State)
	if err != nil {
		h.logger.Error("consume oauth state failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not complete login"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	profile, err := h.providers.FetchProfile(c.Request.Context(), provider, req.Code)
	if err != nil {
		h.logger.Warn("oauth exchange failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider exchange failed"})
		return
	}

	h.resolveAndIssue(c, profile)
}

// Register maneja POST /auth/register para cuentas locales.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.identity.RegisterLocal(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		case errors.Is(err, service.ErrEmailInUse), errors.Is(err, service.ErrIdentityConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		}
		return
	}

	h.issueAndRespond(c, http.StatusCreated, user)
}

// LoginLocal maneja POST /auth/login.
func (h *AuthHandler) LoginLocal(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.identity.AuthenticateLocal(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	h.issueAndRespond(c, http.StatusOK, user)
}

func (h *AuthHandler) resolveAndIssue(c *gin.Context, profile service.ExternalProfile) {
	user, err := h.identity.Resolve(c.Request.Context(), profile)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProviderInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider data"})
		case errors.Is(err, service.ErrIdentityConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "account exists under another provider"})
		default:
			h.logger.Error("identity resolve failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		}
		return
	}

	h.issueAndRespond(c, http.StatusOK, user)
}

func (h *AuthHandler) issueAndRespond(c *gin.Context, status int, user domain.User) {
	token, err := h.jwtServ.Issue(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, gin.H{"token": token, "user": user})
}
