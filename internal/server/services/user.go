// Package services contains server-side business logic. This file implements
// UserService, which registers accounts and verifies credentials before a
// session is issued.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService provides credential operations:
// - Register: create users with a bcrypt password hash
// - Verify: check a username/password pair and return the user id
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cost        int
	dummyHash   []byte
}

// UserServiceOption customizes a UserService.
type UserServiceOption func(*UserService)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) UserServiceOption {
	return func(s *UserService) { s.cost = cost }
}

// NewUserService constructs a UserService over repositories vended by m.
// db may be nil when m does not need one.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, opts ...UserServiceOption) *UserService {
	s := &UserService{db: db, repomanager: m, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	// Compared against on unknown users so both paths pay for one bcrypt run.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gophauth-dummy-password"), s.cost)
	return s
}

// Register creates a new user. All fields are required; a taken username or
// email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     username,
		Email:        email,
		PasswordHash: hash,
	}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Verify returns the id of the user named username when password matches.
// Unknown users and wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Verify(ctx context.Context, username, password string) (string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", common.ErrorUnauthorized
	}
	return user.ID, nil
}

// Ping checks the user database, if there is one.
func (s *UserService) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}
