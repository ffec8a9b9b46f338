package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marinova/internal/domain"
	"marinova/internal/metrics"
	"marinova/internal/repository"
)

// UsageService decide si un usuario puede usar una feature y descuenta créditos.
type UsageService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUsageService(logger *zap.Logger, users repository.UserRepository) *UsageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageService{logger: logger, users: users}
}

// TrackResult es el estado del usuario después de un uso aceptado.
type TrackResult struct {
	Feature            domain.Feature
	UsageCredits       int
	SubscriptionStatus domain.Plan
}

// CreditsView resume el saldo y el historial de un usuario.
type CreditsView struct {
	UsageCredits       int
	SubscriptionStatus domain.Plan
	IsEmailVerified    bool
	UsageHistory       []domain.UsageEntry
}

// Track aplica, en orden: verificación de correo, features restringidas,
// saldo gratuito. El descuento y el registro del uso son una sola escritura.
func (s *UsageService) Track(ctx context.Context, userID, rawFeature string) (TrackResult, error) {
	feature := domain.NormalizeFeature(rawFeature)
	if feature == "" {
		return TrackResult{}, newValidationError("Feature name is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			metrics.RecordUsageDecision(feature, metrics.OutcomeError)
		}
		return TrackResult{}, mapUserLookup(err)
	}

	if !user.IsEmailVerified {
		metrics.RecordUsageDecision(feature, metrics.OutcomeNotVerified)
		return TrackResult{}, ErrEmailNotVerified
	}

	now := time.Now().UTC()
	if !user.SubscriptionStatus.IsPaid() {
		if feature.IsRestricted() {
			metrics.RecordUsageDecision(feature, metrics.OutcomeSubscriptionRequired)
			return TrackResult{}, ErrSubscriptionRequired
		}
		updated, err := s.users.ConsumeCredit(ctx, user.ID, feature, now)
		switch {
		case errors.Is(err, repository.ErrNoCredits):
			metrics.RecordUsageDecision(feature, metrics.OutcomeExhausted)
			return TrackResult{}, ErrCreditsExhausted
		case errors.Is(err, repository.ErrNotFound):
			return TrackResult{}, ErrUserNotFound
		case err != nil:
			metrics.RecordUsageDecision(feature, metrics.OutcomeError)
			return TrackResult{}, fmt.Errorf("consume credit: %w", err)
		}
		metrics.RecordUsageDecision(feature, metrics.OutcomeCharged)
		s.logger.Debug("usage charged",
			zap.String("user_id", user.ID),
			zap.String("feature", string(feature)),
			zap.Int("remaining", updated.UsageCredits),
		)
		return TrackResult{
			Feature:            feature,
			UsageCredits:       updated.UsageCredits,
			SubscriptionStatus: updated.SubscriptionStatus,
		}, nil
	}

	updated, err := s.users.RecordUsage(ctx, user.ID, feature, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TrackResult{}, ErrUserNotFound
		}
		metrics.RecordUsageDecision(feature, metrics.OutcomeError)
		return TrackResult{}, fmt.Errorf("record usage: %w", err)
	}
	metrics.RecordUsageDecision(feature, metrics.OutcomeUnlimited)
	return TrackResult{
		Feature:            feature,
		UsageCredits:       updated.UsageCredits,
		SubscriptionStatus: updated.SubscriptionStatus,
	}, nil
}

func (s *UsageService) Credits(ctx context.Context, userID string) (CreditsView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return CreditsView{}, mapUserLookup(err)
	}
	history, err := s.users.ListUsage(ctx, userID)
	if err != nil {
		return CreditsView{}, mapUserLookup(err)
	}
	if history == nil {
		history = []domain.UsageEntry{}
	}
	return CreditsView{
		UsageCredits:       user.UsageCredits,
		SubscriptionStatus: user.SubscriptionStatus,
		IsEmailVerified:    user.IsEmailVerified,
		UsageHistory:       history,
	}, nil
}
