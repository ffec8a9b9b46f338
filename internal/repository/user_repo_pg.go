package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marinova/internal/domain"
)

const pgUniqueViolation = "23505"

const userColumns = `id, full_name, email, password_hash, is_email_verified, verification_token,
	subscription_status, usage_credits, created_at, updated_at`

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, full_name, email, password_hash, is_email_verified, verification_token,
			subscription_status, usage_credits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.IsEmailVerified,
		user.VerificationToken,
		string(user.SubscriptionStatus),
		user.UsageCredits,
		user.CreatedAt,
		user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) ListUsage(ctx context.Context, id string) ([]domain.UsageEntry, error) {
	const query = `
		SELECT feature, used_at
		FROM usage_history
		WHERE user_id = $1
		ORDER BY used_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.UsageEntry, 0)
	for rows.Next() {
		var e domain.UsageEntry
		if err := rows.Scan(&e.Feature, &e.UsedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PgUserRepository) SetVerificationToken(ctx context.Context, id, token string, at time.Time) error {
	const query = `
		UPDATE users
		SET verification_token = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, token, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) VerifyEmail(ctx context.Context, token string, at time.Time) (domain.User, error) {
	query := `
		UPDATE users
		SET is_email_verified = TRUE, verification_token = NULL, updated_at = $2
		WHERE verification_token = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, token, at))
}

// ConsumeCredit descuenta y registra el uso en una sola sentencia: el UPDATE
// condicional evita que dos requests concurrentes gasten el mismo crédito.
func (r *PgUserRepository) ConsumeCredit(ctx context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error) {
	query := `
		WITH charged AS (
			UPDATE users
			SET usage_credits = usage_credits - 1, updated_at = $3
			WHERE id = $1 AND usage_credits > 0
			RETURNING ` + userColumns + `
		), logged AS (
			INSERT INTO usage_history (user_id, feature, used_at)
			SELECT id, $2::text, $3::timestamptz FROM charged
		)
		SELECT ` + userColumns + ` FROM charged
	`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id, string(feature), at))
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return domain.User{}, err
	}
	return domain.User{}, ErrNoCredits
}

func (r *PgUserRepository) RecordUsage(ctx context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error) {
	query := `
		WITH touched AS (
			UPDATE users
			SET updated_at = $3
			WHERE id = $1
			RETURNING ` + userColumns + `
		), logged AS (
			INSERT INTO usage_history (user_id, feature, used_at)
			SELECT id, $2::text, $3::timestamptz FROM touched
		)
		SELECT ` + userColumns + ` FROM touched
	`
	return scanUser(r.pool.QueryRow(ctx, query, id, string(feature), at))
}

func (r *PgUserRepository) UpdateSubscription(ctx context.Context, id string, plan domain.Plan, credits int, at time.Time) (domain.User, error) {
	query := `
		UPDATE users
		SET subscription_status = $2, usage_credits = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, string(plan), credits, at))
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		plan string
	)
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.IsEmailVerified,
		&u.VerificationToken,
		&plan,
		&u.UsageCredits,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.SubscriptionStatus = domain.Plan(plan)
	return u, nil
}
