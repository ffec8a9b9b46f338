package repository

import (
	"context"
	"errors"
	"time"

	"marinova/internal/domain"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNoCredits      = errors.New("no usage credits left")
)

// UserRepository define el contrato de persistencia para usuarios.
//
// Cada método que muta un usuario es una única escritura en el store: no hay
// transacciones que abarquen varias llamadas.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsage(ctx context.Context, id string) ([]domain.UsageEntry, error)
	SetVerificationToken(ctx context.Context, id, token string, at time.Time) error
	// VerifyEmail marca como verificado al usuario que tiene exactamente ese token y lo borra.
	VerifyEmail(ctx context.Context, token string, at time.Time) (domain.User, error)
	// ConsumeCredit descuenta un crédito solo si el saldo es positivo y registra el uso.
	ConsumeCredit(ctx context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error)
	RecordUsage(ctx context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error)
	UpdateSubscription(ctx context.Context, id string, plan domain.Plan, credits int, at time.Time) (domain.User, error)
}
