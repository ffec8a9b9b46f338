package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marinova/internal/metrics"
	"marinova/internal/service"
)

// RouterConfig agrupa lo que el router necesita además de los handlers.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	AuthRPS        int
	AuthBurst      int
}

type Handlers struct {
	Auth    *AuthHandler
	Usage   *UsageHandler
	AI      *AIHandler
	Weather *WeatherHandler
}

// NewRouter configura el router de Gin con middlewares y todas las rutas bajo el prefijo de la API.
func NewRouter(logger *zap.Logger, cfg RouterConfig, jwtSvc *service.JWTService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger))
	if corsHandler := corsMiddleware(cfg.AllowedOrigins); corsHandler != nil {
		r.Use(corsHandler)
	}
	r.Use(metrics.GinMiddleware())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, failure("Route not found"))
	})

	api := r.Group(normalizePrefix(cfg.APIPrefix))
	api.GET("/health", Health)
	api.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := JWTAuthMiddleware(jwtSvc)
	limiter := newClientRateLimiter(cfg.AuthRPS, cfg.AuthBurst)

	auth := api.Group("/auth")
	auth.POST("/register", limiter.middleware(), h.Auth.Register)
	auth.POST("/login", limiter.middleware(), h.Auth.Login)
	auth.POST("/verify-email", limiter.middleware(), h.Auth.VerifyEmail)
	auth.GET("/me", requireAuth, h.Auth.Me)
	auth.POST("/resend-verification", requireAuth, h.Auth.ResendVerification)
	auth.POST("/logout", requireAuth, h.Auth.Logout)

	usage := api.Group("/usage", requireAuth)
	usage.POST("/track", h.Usage.Track)
	usage.GET("/credits", h.Usage.Credits)
	usage.PUT("/subscribe", h.Usage.Subscribe)

	if h.AI != nil {
		ai := api.Group("/ai", requireAuth)
		ai.POST("/analyze-weather", h.AI.AnalyzeWeather)
		ai.POST("/chat", h.AI.Chat)
		ai.POST("/generate-report", h.AI.GenerateReport)
		ai.POST("/generate-insights", h.AI.GenerateInsights)
		ai.POST("/generate-image", h.AI.GenerateImage)
	}

	if h.Weather != nil {
		api.GET("/weather/forecast", h.Weather.Forecast)
	}

	return r
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
