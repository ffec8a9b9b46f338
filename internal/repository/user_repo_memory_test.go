package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marinova/internal/domain"
)

func seedUser(t *testing.T, repo *MemoryUserRepository, credits int) domain.User {
	t.Helper()
	token := "tok-1"
	user := domain.User{
		ID:                 "u1",
		FullName:           "Alice",
		Email:              "alice@gmail.com",
		PasswordHash:       "hash",
		VerificationToken:  &token,
		SubscriptionStatus: domain.PlanFree,
		UsageCredits:       credits,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestMemoryUserRepository_CreateDuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedUser(t, repo, 3)

	err := repo.Create(context.Background(), domain.User{ID: "u2", Email: "alice@gmail.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_VerifyEmailIsSingleUse(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedUser(t, repo, 3)
	ctx := context.Background()

	user, err := repo.VerifyEmail(ctx, "tok-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, user.IsEmailVerified)
	assert.Nil(t, user.VerificationToken)

	_, err = repo.VerifyEmail(ctx, "tok-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.VerifyEmail(ctx, "", time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_ConsumeCreditStopsAtZero(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedUser(t, repo, 2)
	ctx := context.Background()

	user, err := repo.ConsumeCredit(ctx, "u1", domain.FeatureForecast, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, user.UsageCredits)

	user, err = repo.ConsumeCredit(ctx, "u1", domain.FeatureInsights, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, user.UsageCredits)

	_, err = repo.ConsumeCredit(ctx, "u1", domain.FeatureForecast, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNoCredits)

	_, err = repo.ConsumeCredit(ctx, "missing", domain.FeatureForecast, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := repo.ListUsage(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "forecast", history[0].Feature)
	assert.Equal(t, "insights", history[1].Feature)
}

func TestMemoryUserRepository_ConsumeCreditConcurrentNeverOverspends(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedUser(t, repo, 5)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		charged int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumeCredit(ctx, "u1", domain.FeatureForecast, time.Now().UTC()); err == nil {
				mu.Lock()
				charged++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, charged)
	user, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, user.UsageCredits)
}

func TestMemoryUserRepository_UpdateSubscriptionAndDelete(t *testing.T) {
	repo := NewMemoryUserRepository()
	seedUser(t, repo, 3)
	ctx := context.Background()

	user, err := repo.UpdateSubscription(ctx, "u1", domain.PlanEnterprise, domain.UnlimitedCredits, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, domain.PlanEnterprise, user.SubscriptionStatus)
	assert.Equal(t, domain.UnlimitedCredits, user.UsageCredits)

	repo.Delete("u1")
	_, err = repo.GetByEmail(ctx, "alice@gmail.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.RecordUsage(ctx, "u1", domain.FeatureChat, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)
}
