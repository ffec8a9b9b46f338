package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marinova/internal/service"
	"marinova/internal/weather"
)

func failure(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

// writeError traduce errores de servicio a status y mensaje.
// Lo que no se reconoce se registra y se responde como 500 genérico.
func writeError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, failure(verr.Message))
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, failure("User with this email already exists"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, failure("Invalid email or password"))
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, failure("User not found"))
	case errors.Is(err, service.ErrInvalidVerificationToken):
		c.JSON(http.StatusBadRequest, failure("Invalid or expired verification token"))
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, failure("Email is already verified"))
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, failure("Too many verification emails requested. Please try again later."))
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusInternalServerError, failure("Failed to send verification email. Please try again."))
	case errors.Is(err, service.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, failure("Invalid subscription plan"))
	case errors.Is(err, service.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{
			"success":              false,
			"message":              "Please verify your email to use this feature",
			"requiresVerification": true,
		})
	case errors.Is(err, service.ErrSubscriptionRequired):
		c.JSON(http.StatusForbidden, gin.H{
			"success":              false,
			"message":              "This feature requires a subscription",
			"requiresSubscription": true,
		})
	case errors.Is(err, service.ErrCreditsExhausted):
		c.JSON(http.StatusForbidden, gin.H{
			"success":              false,
			"message":              "You have used all your free credits. Please subscribe to continue.",
			"requiresSubscription": true,
			"usageCredits":         0,
		})
	case errors.Is(err, weather.ErrInvalidCoordinates):
		c.JSON(http.StatusBadRequest, failure("Invalid coordinates"))
	case errors.Is(err, service.ErrProviderFailure), errors.Is(err, weather.ErrProvider):
		logger.Warn("upstream provider failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusBadGateway, failure("Upstream provider is unavailable. Please try again later."))
	default:
		logger.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, failure("Server error"))
	}
}
