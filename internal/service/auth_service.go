package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marinova/internal/domain"
	"marinova/internal/email"
	"marinova/internal/metrics"
	"marinova/internal/repository"
)

const (
	minPasswordLength = 6
	// bcrypt no admite más de 72 bytes.
	maxPasswordBytes = 72
)

// AuthConfig agrupa las reglas de registro que vienen de la configuración.
type AuthConfig struct {
	AllowedEmailDomain string
	FreeCredits        int
	FrontendURL        string
}

// AuthService coordina registro, login y verificación de correo.
type AuthService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	hasher       PasswordHasher
	tokens       *JWTService
	emailSender  email.Sender
	limiter      ResendLimiter
	cfg          AuthConfig
	emailPattern *regexp.Regexp
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens *JWTService,
	emailSender email.Sender,
	limiter ResendLimiter,
	cfg AuthConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(defaultBcryptCost)
	}
	if limiter == nil {
		limiter = NewResendLimiter(resendWindow, resendMax)
	}
	if emailSender == nil {
		emailSender = email.NewDisabledSender("")
	}
	cfg.AllowedEmailDomain = strings.ToLower(strings.TrimSpace(cfg.AllowedEmailDomain))
	if cfg.AllowedEmailDomain == "" {
		cfg.AllowedEmailDomain = "gmail.com"
	}
	if cfg.FreeCredits < 0 {
		cfg.FreeCredits = 0
	}
	return &AuthService{
		logger:       logger,
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		emailSender:  emailSender,
		limiter:      limiter,
		cfg:          cfg,
		emailPattern: regexp.MustCompile(`^[a-z0-9._%+-]+@` + regexp.QuoteMeta(cfg.AllowedEmailDomain) + `$`),
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// AuthResult es lo que recibe el cliente tras registrarse o iniciar sesión.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	fullName := strings.TrimSpace(input.FullName)
	emailAddr := normalizeEmail(input.Email)
	password := input.Password

	if fullName == "" || emailAddr == "" || password == "" {
		return AuthResult{}, newValidationError("Please provide all required fields")
	}
	if !s.emailPattern.MatchString(emailAddr) {
		return AuthResult{}, newValidationError(fmt.Sprintf("Only @%s email addresses are allowed", s.cfg.AllowedEmailDomain))
	}
	if len(password) < minPasswordLength {
		return AuthResult{}, newValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return AuthResult{}, newValidationError(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return AuthResult{}, ErrDuplicateEmail
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup user by email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	token, err := newVerificationToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("mint verification token: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:                 uuid.NewString(),
		FullName:           fullName,
		Email:              emailAddr,
		PasswordHash:       passwordHash,
		IsEmailVerified:    false,
		VerificationToken:  &token,
		SubscriptionStatus: domain.PlanFree,
		UsageCredits:       s.cfg.FreeCredits,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, ErrDuplicateEmail
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}
	metrics.RecordRegistration()

	session, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue session: %w", err)
	}

	// El registro no falla si el correo no sale; el usuario puede pedir un reenvío.
	if err := s.sendVerification(ctx, user, token); err != nil {
		s.logger.Warn("send verification email failed",
			zap.Error(err),
			zap.String("user_id", user.ID),
		)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return AuthResult{Token: session.Token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (AuthResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return AuthResult{}, newValidationError("Please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user by email: %w", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	session, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue session: %w", err)
	}
	return AuthResult{Token: session.Token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// CurrentUser devuelve el usuario con su historial de uso completo.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, mapUserLookup(err)
	}
	history, err := s.users.ListUsage(ctx, userID)
	if err != nil {
		return domain.User{}, mapUserLookup(err)
	}
	user.UsageHistory = history
	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, newValidationError("Verification token is required")
	}
	user, err := s.users.VerifyEmail(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidVerificationToken
		}
		return domain.User{}, fmt.Errorf("verify email: %w", err)
	}
	s.logger.Info("email verified", zap.String("user_id", user.ID))
	return user, nil
}

// ResendVerification emite un token nuevo (el anterior deja de servir) y reintenta el envío.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return mapUserLookup(err)
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}
	if !s.limiter.Allow(user.ID) {
		return ErrRateLimited
	}

	token, err := newVerificationToken()
	if err != nil {
		return fmt.Errorf("mint verification token: %w", err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, token, time.Now().UTC()); err != nil {
		return mapUserLookup(err)
	}

	if err := s.sendVerification(ctx, user, token); err != nil {
		s.logger.Warn("resend verification email failed",
			zap.Error(err),
			zap.String("user_id", user.ID),
		)
		return ErrEmailSendFailure
	}
	return nil
}

// Logout invalida el token presentado hasta su vencimiento.
func (s *AuthService) Logout(_ context.Context, claims Claims) error {
	return s.tokens.Revoke(claims)
}

func (s *AuthService) sendVerification(ctx context.Context, user domain.User, token string) error {
	link := email.VerificationLink(s.cfg.FrontendURL, token)
	msg, err := email.VerificationMessage(user.Email, user.FullName, link, user.UsageCredits)
	if err != nil {
		return err
	}
	messageID, err := s.emailSender.Send(ctx, msg)
	if err != nil {
		return err
	}
	s.logger.Debug("verification email sent",
		zap.String("user_id", user.ID),
		zap.String("message_id", messageID),
	)
	return nil
}

func mapUserLookup(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
