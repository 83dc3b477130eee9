package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartchef/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	clientURL string,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	userH *UserHandler,
	chatH *ChatHandler,
	healthz gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y CORS hacia la SPA.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(clientURL))

	auth := r.Group("/auth")
	auth.GET("/:provider/login", authH.Login)
	auth.POST("/:provider/callback", authH.Callback)
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.LoginLocal)

	users := r.Group("/users")
	users.GET("/:id", userH.GetUser)
	users.GET("/:id/quota", userH.GetQuota)
	users.PUT("/:id", userH.UpdateUser)

	gated := r.Group("/")
	gated.Use(JWTAuthMiddleware(jwtSvc))
	gated.POST("/chat", chatH.Chat)
	gated.POST("/audio", chatH.Audio)

	if healthz != nil {
		r.GET("/healthz", healthz)
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware habilita el origen de la SPA.
func corsMiddleware(clientURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
