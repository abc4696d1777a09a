package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository keeps users in process memory. It backs the memory
// deployment and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byLogin map[string]models.User
	emails  map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byLogin: make(map[string]models.User),
		emails:  make(map[string]struct{}),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byLogin[user.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.emails[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	user.CreatedAt = time.Now().UTC()
	r.byLogin[user.UserName] = *user
	r.emails[user.Email] = struct{}{}
	return user, nil
}

func (r *MemoryRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}
