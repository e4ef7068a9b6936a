package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"subzero/models"
	"subzero/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Register validates the request, admits the device, and persists the new user. The device
// slot is released again if anything after admission fails.
func (s *DefaultUserService) Register(ctx context.Context, req models.UserRegistrationRequest, deviceCookie string) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRegistration(req.Username, req.Email, req.Password); err != nil {
		return nil, err
	}

	available, err := s.Repo.IsUserAvailable(ctx, req.Username, req.Email)
	if err != nil {
		s.Logger.Error("Register: availability check failed", zap.Error(err))
		return nil, fmt.Errorf("registration failed, please try again")
	}
	if !available {
		return nil, ErrUserExists
	}

	userID := uuid.New().String()
	decision, err := s.Devices.Admit(ctx, req.DeviceFingerprint, deviceCookie, userID)
	if !decision.Allowed {
		s.Logger.Info("Register: device rejected", zap.String("reason", decision.Reason), zap.Error(err))
		return nil, DeviceRejectedError{Reason: decision.Reason, Err: err}
	}

	resp, err := s.createUser(ctx, userID, req, deviceCookie)
	if err != nil {
		if relErr := s.Devices.Release(context.WithoutCancel(ctx), req.DeviceFingerprint, deviceCookie, userID); relErr != nil {
			s.Logger.Error("Register: failed to release device slot", zap.String("userID", userID), zap.Error(relErr))
		}
		return nil, err
	}
	return resp, nil
}

func (s *DefaultUserService) createUser(ctx context.Context, userID string, req models.UserRegistrationRequest, deviceCookie string) (*AuthResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.Logger.Error("Register: failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("registration failed, please try again")
	}

	token, err := utils.GenerateToken(userID, req.Username, utils.TokenTTL)
	if err != nil {
		s.Logger.Error("Register: failed to generate auth token", zap.Error(err))
		return nil, fmt.Errorf("registration failed, please try again")
	}
	tokenHash := utils.HashToken(token)

	now := time.Now()
	userObj := models.User{
		ID:                userID,
		Username:          req.Username,
		Email:             req.Email,
		PasswordHash:      string(hashedPassword),
		Role:              models.RoleUser,
		DeviceFingerprint: req.DeviceFingerprint,
		DeviceCookie:      deviceCookie,
		TokenHash:         tokenHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, &userObj); err != nil {
		s.Logger.Error("Register: failed to create user", zap.Error(err))
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("registration failed, please try again")
	}
	s.cacheTokenHash(ctx, userID, tokenHash)

	return &AuthResponse{
		ID:       userObj.ID,
		Token:    token,
		Username: userObj.Username,
		Email:    userObj.Email,
		Role:     userObj.Role,
	}, nil
}
