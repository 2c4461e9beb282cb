package service

import (
	"context"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/store"
)

// UserService is a thin read layer over the user store for the
// authenticated surfaces (current user, role gates).
type UserService struct {
	Store store.Store
}

func (s *UserService) GetByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}
