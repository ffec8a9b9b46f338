package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marinova/internal/weather"
)

type WeatherHandler struct {
	logger   *zap.Logger
	provider weather.Provider
}

func NewWeatherHandler(logger *zap.Logger, provider weather.Provider) *WeatherHandler {
	return &WeatherHandler{logger: logger, provider: provider}
}

// Forecast maneja GET /weather/forecast?lat=..&lon=..; devuelve el documento del proveedor sin transformar.
func (h *WeatherHandler) Forecast(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, failure("lat and lon query parameters are required"))
		return
	}

	doc, err := h.provider.Fetch(c.Request.Context(), lat, lon)
	if err != nil {
		writeError(c, h.logger, err, "fetch forecast failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "forecast": doc})
}

// Health maneja GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
