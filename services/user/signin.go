package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"subzero/models"
	"subzero/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (s *DefaultUserService) Login(ctx context.Context, req models.UserLoginRequest) (*AuthResponse, error) {
	userRec, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		s.Logger.Error("Login: failed to fetch user", zap.Error(err))
		return nil, fmt.Errorf("authentication failed, please try again")
	}
	if userRec == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userRec.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if userRec.IsBanned {
		return nil, ErrUserBanned
	}

	token, err := utils.GenerateToken(userRec.ID, userRec.Username, utils.TokenTTL)
	if err != nil {
		s.Logger.Error("Login: failed to generate auth token", zap.Error(err))
		return nil, fmt.Errorf("authentication failed, please try again")
	}
	tokenHash := utils.HashToken(token)
	if err := s.Repo.UpdateSetDocument(ctx, userRec.ID, bson.M{"tokenHash": tokenHash, "updatedAt": time.Now()}); err != nil {
		s.Logger.Error("Login: failed to store token", zap.Error(err))
		return nil, fmt.Errorf("authentication failed, please try again")
	}
	s.cacheTokenHash(ctx, userRec.ID, tokenHash)

	return &AuthResponse{
		ID:       userRec.ID,
		Token:    token,
		Username: userRec.Username,
		Email:    userRec.Email,
		Role:     userRec.Role,
	}, nil
}

// Logout invalidates the user's current token.
func (s *DefaultUserService) Logout(ctx context.Context, userID string) error {
	if err := s.Repo.UpdateSetDocument(ctx, userID, bson.M{"tokenHash": ""}); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.evictToken(ctx, userID)
	return nil
}
