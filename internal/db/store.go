package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marinova/internal/repository"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// StoreOptions describe qué backend abrir. Migrate aplica el esquema (postgres) o los índices (mongo).
type StoreOptions struct {
	Driver        string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	Migrate       bool
}

// OpenUserStore conecta el backend elegido y devuelve el repositorio junto con su cierre.
func OpenUserStore(ctx context.Context, opts StoreOptions) (repository.UserRepository, func(), error) {
	switch opts.Driver {
	case "postgres":
		pool, err := NewPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := Ping(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if opts.Migrate {
			if err := Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("db migrate: %w", err)
			}
		}
		return repository.NewPgUserRepository(pool), pool.Close, nil

	case "mongo":
		client, err := NewMongoClient(ctx, opts.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		closeFn := func() {
			ctxClose, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctxClose)
		}
		repo := repository.NewMongoUserRepository(client.Database(opts.MongoDatabase))
		if opts.Migrate {
			if err := repo.EnsureIndexes(ctx); err != nil {
				closeFn()
				return nil, nil, fmt.Errorf("mongo indexes: %w", err)
			}
		}
		return repo, closeFn, nil

	case "memory":
		return repository.NewMemoryUserRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
}
