package user

import (
	"context"

	userRepo "subzero/database/repository/user"
	"subzero/models"
	"subzero/services/device"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type UserService interface {
	// Registration & authentication
	Register(ctx context.Context, req models.UserRegistrationRequest, deviceCookie string) (*AuthResponse, error)
	Login(ctx context.Context, req models.UserLoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID string) error

	// User Management
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// Admin
	GetAllUsers(ctx context.Context) ([]models.User, error)
	BanUser(ctx context.Context, userID, reason string) error
	UnbanUser(ctx context.Context, userID string) error
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo      userRepo.UserRepository
	Devices   device.RestrictionService
	AuthCache *redis.Client
	Logger    *zap.Logger
}

func NewUserService(repo userRepo.UserRepository, devices device.RestrictionService, authCache *redis.Client, logger *zap.Logger) *DefaultUserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultUserService{Repo: repo, Devices: devices, AuthCache: authCache, Logger: logger}
}

// AuthResponse contains the user's ID, token, and additional details.
type AuthResponse struct {
	ID       string `json:"id"`
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}
