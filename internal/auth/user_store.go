package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"relcalc/internal/models"
	"relcalc/internal/storage"
)

// UserStore resolves and persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetPremium(ctx context.Context, id uuid.UUID, isPremium bool) error
	RecordLogin(ctx context.Context, id uuid.UUID) error
}

// InMemoryUserStore keeps accounts in a map. Used in standalone mode and
// tests; production deployments use the Postgres repository.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return storage.ErrEmailTaken
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = email

	stored := *user
	s.byID[user.ID] = &stored
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := *s.byID[id]
	return &user, nil
}

func (s *InMemoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *InMemoryUserStore) SetPremium(ctx context.Context, id uuid.UUID, isPremium bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.IsPremium = isPremium
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryUserStore) RecordLogin(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
