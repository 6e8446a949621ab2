package service

import (
	"context"
	"fmt"

	"github.com/Tomlord1122/space-todo/internal/repository"
)

type UserService interface {
	Get(ctx context.Context, id string) (*UserResponse, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Get(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	resp := toUserResponse(*user)
	return &resp, nil
}
