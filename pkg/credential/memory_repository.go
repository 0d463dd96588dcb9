package credential

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// MemoryRepository is an in-process Repository for tests and local development
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[params.Email]; exists {
		return User{}, ErrUserExists
	}

	u := User{
		ID:               uuid.New(),
		Name:             params.Name,
		Email:            params.Email,
		Phone:            params.Phone,
		PasswordHash:     params.PasswordHash,
		Role:             params.Role,
		TwoFactorEnabled: params.TwoFactorEnabled,
		TwoFactorMethod:  params.TwoFactorMethod,
		CreatedAt:        r.now().UTC(),
	}
	r.users[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

func (r *MemoryRepository) UpdateTwoFactorPreference(ctx context.Context, id uuid.UUID, pref twofa.Preference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.TwoFactorEnabled = pref.Enabled
	u.TwoFactorMethod = pref.Method
	r.users[id] = u
	return nil
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.users, id)
	return nil
}
