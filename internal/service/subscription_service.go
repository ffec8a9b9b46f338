package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marinova/internal/domain"
	"marinova/internal/repository"
)

// SubscriptionService cambia el plan del usuario.
// No hay cobro real: el cambio se aplica directamente.
type SubscriptionService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewSubscriptionService(logger *zap.Logger, users repository.UserRepository) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{logger: logger, users: users}
}

func (s *SubscriptionService) UpdateSubscription(ctx context.Context, userID, rawPlan string) (domain.User, error) {
	plan, ok := domain.ParsePlan(strings.TrimSpace(rawPlan))
	if !ok {
		return domain.User{}, ErrInvalidPlan
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, mapUserLookup(err)
	}

	credits := creditsForPlan(user, plan)
	if user.SubscriptionStatus == plan && user.UsageCredits == credits {
		return user, nil
	}

	updated, err := s.users.UpdateSubscription(ctx, user.ID, plan, credits, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update subscription: %w", err)
	}
	s.logger.Info("subscription updated",
		zap.String("user_id", user.ID),
		zap.String("from", string(user.SubscriptionStatus)),
		zap.String("to", string(plan)),
	)
	return updated, nil
}

// creditsForPlan: los planes pagos quedan ilimitados; volver a free deja el saldo en cero
// porque el regalo inicial es único.
func creditsForPlan(user domain.User, plan domain.Plan) int {
	if plan.IsPaid() {
		return domain.UnlimitedCredits
	}
	if user.SubscriptionStatus.IsPaid() {
		return 0
	}
	return user.UsageCredits
}
