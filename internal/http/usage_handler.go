package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marinova/internal/service"
)

type UsageHandler struct {
	logger *zap.Logger
	usage  *service.UsageService
	subs   *service.SubscriptionService
}

func NewUsageHandler(logger *zap.Logger, usage *service.UsageService, subs *service.SubscriptionService) *UsageHandler {
	return &UsageHandler{logger: logger, usage: usage, subs: subs}
}

// Track maneja POST /usage/track.
func (h *UsageHandler) Track(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Feature string `json:"feature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("Feature name is required"))
		return
	}

	res, err := h.usage.Track(c.Request.Context(), userID, req.Feature)
	if err != nil {
		writeError(c, h.logger, err, "track usage failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            "Usage tracked",
		"usageCredits":       res.UsageCredits,
		"subscriptionStatus": res.SubscriptionStatus,
	})
}

// Credits maneja GET /usage/credits.
func (h *UsageHandler) Credits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	view, err := h.usage.Credits(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err, "load credits failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"usageCredits":       view.UsageCredits,
		"subscriptionStatus": view.SubscriptionStatus,
		"isEmailVerified":    view.IsEmailVerified,
		"usageHistory":       view.UsageHistory,
	})
}

// Subscribe maneja PUT /usage/subscribe.
func (h *UsageHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("Invalid subscription plan"))
		return
	}

	user, err := h.subs.UpdateSubscription(c.Request.Context(), userID, req.Plan)
	if err != nil {
		writeError(c, h.logger, err, "update subscription failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            "Subscription updated to " + string(user.SubscriptionStatus),
		"subscriptionStatus": user.SubscriptionStatus,
		"usageCredits":       user.UsageCredits,
	})
}
