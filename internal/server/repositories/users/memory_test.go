package users

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	if _, err := r.Create(ctx, newAlice()); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := r.GetUserByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByLogin error: %v", err)
	}
	if got.ID != "u-1" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestMemoryRepository_Duplicates(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	if _, err := r.Create(ctx, newAlice()); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	sameName := &models.User{ID: "u-2", UserName: "alice", Email: "other@example.com"}
	if _, err := r.Create(ctx, sameName); !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("duplicate username: want ErrorAlreadyExists, got %v", err)
	}

	sameEmail := &models.User{ID: "u-3", UserName: "bob", Email: "alice@example.com"}
	if _, err := r.Create(ctx, sameEmail); !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("duplicate email: want ErrorAlreadyExists, got %v", err)
	}
}

func TestMemoryRepository_NotFound(t *testing.T) {
	r := NewMemoryRepository()
	if _, err := r.GetUserByLogin(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
