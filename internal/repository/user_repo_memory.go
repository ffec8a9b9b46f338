package repository

import (
	"context"
	"sync"
	"time"

	"marinova/internal/domain"
)

// MemoryUserRepository guarda usuarios en memoria; pensado para tests y entornos locales.
type MemoryUserRepository struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string
	usage   map[string][]domain.UsageEntry
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		usage:   make(map[string][]domain.UsageEntry),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}
	user.UsageHistory = nil
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) ListUsage(_ context.Context, id string) ([]domain.UsageEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return nil, ErrNotFound
	}
	entries := make([]domain.UsageEntry, len(r.usage[id]))
	copy(entries, r.usage[id])
	return entries, nil
}

func (r *MemoryUserRepository) SetVerificationToken(_ context.Context, id, token string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	user.VerificationToken = &token
	user.UpdatedAt = at
	r.byID[id] = user
	return nil
}

func (r *MemoryUserRepository) VerifyEmail(_ context.Context, token string, at time.Time) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		return domain.User{}, ErrNotFound
	}
	for id, user := range r.byID {
		if user.VerificationToken == nil || *user.VerificationToken != token {
			continue
		}
		user.IsEmailVerified = true
		user.VerificationToken = nil
		user.UpdatedAt = at
		r.byID[id] = user
		return user, nil
	}
	return domain.User{}, ErrNotFound
}

func (r *MemoryUserRepository) ConsumeCredit(_ context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	if user.UsageCredits <= 0 {
		return domain.User{}, ErrNoCredits
	}
	user.UsageCredits--
	user.UpdatedAt = at
	r.byID[id] = user
	r.usage[id] = append(r.usage[id], domain.UsageEntry{Feature: string(feature), UsedAt: at})
	return user, nil
}

func (r *MemoryUserRepository) RecordUsage(_ context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	user.UpdatedAt = at
	r.byID[id] = user
	r.usage[id] = append(r.usage[id], domain.UsageEntry{Feature: string(feature), UsedAt: at})
	return user, nil
}

func (r *MemoryUserRepository) UpdateSubscription(_ context.Context, id string, plan domain.Plan, credits int, at time.Time) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	user.SubscriptionStatus = plan
	user.UsageCredits = credits
	user.UpdatedAt = at
	r.byID[id] = user
	return user, nil
}

// Delete elimina un usuario; solo lo usan los tests para simular cuentas borradas.
func (r *MemoryUserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byID[id]; ok {
		delete(r.byEmail, user.Email)
	}
	delete(r.byID, id)
	delete(r.usage, id)
}
