package service

import (
	"context"
	"errors"

	"notes-server/internal/domain"
	"notes-server/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("user not found")
		}
		return nil, domain.NewInternalError("failed to find user", err)
	}

	return user.Public(), nil
}

// Exists reports whether id still names a stored user.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.userRepo.FindByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}
