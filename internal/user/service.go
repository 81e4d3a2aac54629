package user

import (
	"context"

	errors "github.com/frahmantamala/supplier-portal/internal"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to get user by id", err)
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return ProfileFromDataModel(u), nil
}
