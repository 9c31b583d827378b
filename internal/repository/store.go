package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories and runs them inside a single database transaction when needed.
// This allows for different implementations (gorm, in-memory for tests).
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Reviews() ReviewRepository
	Orders() OrderRepository
	WebhookEvents() WebhookEventRepository

	// Transaction runs fn with a Store bound to one transaction.
	// Every write made through tx is rolled back when fn returns an error.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// Ping checks the underlying connection
	Ping(ctx context.Context) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by gorm
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Ensure gormStore implements the interface
var _ Store = (*gormStore)(nil)

func (s *gormStore) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *gormStore) Products() ProductRepository           { return NewProductRepository(s.db) }
func (s *gormStore) Reviews() ReviewRepository             { return NewReviewRepository(s.db) }
func (s *gormStore) Orders() OrderRepository               { return NewOrderRepository(s.db) }
func (s *gormStore) WebhookEvents() WebhookEventRepository { return NewWebhookEventRepository(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translateError maps gorm errors onto the repository sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// normalizePage clamps pagination input and returns the row offset
func normalizePage(page, size, defaultSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	return page, size, (page - 1) * size
}
