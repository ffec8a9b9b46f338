package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marinova/internal/service"
)

// AIHandler expone las generaciones con LLM; todas pasan por el control de uso.
type AIHandler struct {
	logger *zap.Logger
	ai     *service.AIService
}

func NewAIHandler(logger *zap.Logger, ai *service.AIService) *AIHandler {
	return &AIHandler{logger: logger, ai: ai}
}

// AnalyzeWeather maneja POST /ai/analyze-weather.
func (h *AIHandler) AnalyzeWeather(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		LocationName string          `json:"locationName"`
		Lat          *float64        `json:"lat"`
		Lon          *float64        `json:"lon"`
		WeatherData  json.RawMessage `json:"weatherData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lon == nil {
		c.JSON(http.StatusBadRequest, failure("Missing required fields"))
		return
	}
	weatherData := req.WeatherData
	if string(weatherData) == "null" {
		weatherData = nil
	}

	res, err := h.ai.AnalyzeWeather(c.Request.Context(), userID, service.WeatherBrief{
		LocationName: req.LocationName,
		Lat:          *req.Lat,
		Lon:          *req.Lon,
		Weather:      weatherData,
	})
	if err != nil {
		writeError(c, h.logger, err, "analyze weather failed")
		return
	}
	h.respond(c, "analysis", res)
}

// Chat maneja POST /ai/chat.
func (h *AIHandler) Chat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Messages  []service.ChatMessage `json:"messages" binding:"required"`
		ImageURLs []string              `json:"imageUrls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("Invalid messages format"))
		return
	}
	res, err := h.ai.Chat(c.Request.Context(), userID, req.Messages, req.ImageURLs)
	if err != nil {
		writeError(c, h.logger, err, "chat failed")
		return
	}
	h.respond(c, "response", res)
}

// GenerateReport maneja POST /ai/generate-report.
func (h *AIHandler) GenerateReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Topic string `json:"topic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("Topic is required"))
		return
	}
	res, err := h.ai.Report(c.Request.Context(), userID, req.Topic)
	if err != nil {
		writeError(c, h.logger, err, "generate report failed")
		return
	}
	h.respond(c, "report", res)
}

// GenerateInsights maneja POST /ai/generate-insights.
func (h *AIHandler) GenerateInsights(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.ai.Insights(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err, "generate insights failed")
		return
	}
	h.respond(c, "insights", res)
}

// GenerateImage maneja POST /ai/generate-image.
func (h *AIHandler) GenerateImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("Prompt is required"))
		return
	}
	res, err := h.ai.Image(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		writeError(c, h.logger, err, "generate image failed")
		return
	}
	h.respond(c, "imageUrl", res)
}

func (h *AIHandler) respond(c *gin.Context, key string, res service.AIResult) {
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		key:                  res.Text,
		"usageCredits":       res.Usage.UsageCredits,
		"subscriptionStatus": res.Usage.SubscriptionStatus,
	})
}
