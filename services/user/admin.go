package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	userRepo "subzero/database/repository/user"
	"subzero/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (s *DefaultUserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, userRepo.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

// GetAllUsers retrieves all users for admin access, excluding sensitive fields.
func (s *DefaultUserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.GetAllWithProjection(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

// BanUser marks the user banned and drops their cached token so the next request is re-checked.
func (s *DefaultUserService) BanUser(ctx context.Context, userID, reason string) error {
	return s.setBanned(ctx, userID, true, reason)
}

func (s *DefaultUserService) UnbanUser(ctx context.Context, userID string) error {
	return s.setBanned(ctx, userID, false, "")
}

func (s *DefaultUserService) setBanned(ctx context.Context, userID string, banned bool, reason string) error {
	err := s.Repo.UpdateSetDocument(ctx, userID, bson.M{"isBanned": banned, "banReason": reason, "updatedAt": time.Now()})
	if errors.Is(err, userRepo.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update ban state: %w", err)
	}
	s.evictToken(ctx, userID)
	return nil
}
