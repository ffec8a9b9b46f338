package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marinova/internal/domain"
	"marinova/internal/email"
	"marinova/internal/repository"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "<test@marinova>", nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) last() email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return email.Message{}
	}
	return f.sent[len(f.sent)-1]
}

type testEnv struct {
	repo   *repository.MemoryUserRepository
	sender *fakeSender
	tokens *JWTService
	auth   *AuthService
	usage  *UsageService
	subs   *SubscriptionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	sender := &fakeSender{}
	tokens := NewJWTService("test-secret", time.Hour)
	auth := NewAuthService(zap.NewNop(), repo, NewBcryptHasher(4), tokens, sender, NewResendLimiter(time.Minute, 3), AuthConfig{
		AllowedEmailDomain: "gmail.com",
		FreeCredits:        3,
		FrontendURL:        "http://localhost:3000",
	})
	return &testEnv{
		repo:   repo,
		sender: sender,
		tokens: tokens,
		auth:   auth,
		usage:  NewUsageService(zap.NewNop(), repo),
		subs:   NewSubscriptionService(zap.NewNop(), repo),
	}
}

func (e *testEnv) register(t *testing.T, emailAddr string) domain.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		FullName: "Test User",
		Email:    emailAddr,
		Password: "secret123",
	})
	require.NoError(t, err)
	return res.User
}

func (e *testEnv) pendingToken(t *testing.T, userID string) string {
	t.Helper()
	user, err := e.repo.GetByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, user.VerificationToken)
	return *user.VerificationToken
}

func (e *testEnv) registerVerified(t *testing.T, emailAddr string) domain.User {
	t.Helper()
	user := e.register(t, emailAddr)
	verified, err := e.auth.VerifyEmail(context.Background(), e.pendingToken(t, user.ID))
	require.NoError(t, err)
	return verified
}
