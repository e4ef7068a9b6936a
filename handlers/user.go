package handlers

import (
	"errors"
	"net/http"

	userRepo "subzero/database/repository/user"
	"subzero/middleware"
	"subzero/models"
	"subzero/services/device"
	"subzero/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	UserService user.UserService
	UserRepo    userRepo.UserRepository
	Cookies     *device.CookieStore
}

func NewUserHandler(svc user.UserService, repo userRepo.UserRepository, cookies *device.CookieStore) *UserHandler {
	return &UserHandler{UserService: svc, UserRepo: repo, Cookies: cookies}
}

// RegisterHandler handles POST /api/users/register.
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	logger := getLogger(c)

	var req models.UserRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	cookie := h.Cookies.GetOrCreateToken(c)
	resp, err := h.UserService.Register(c.Request.Context(), req, cookie)
	if err != nil {
		var verr user.ValidationError
		var derr user.DeviceRejectedError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
		case errors.As(err, &derr):
			logger.Info("Signup rejected by device policy", zap.String("reason", derr.Reason))
			c.JSON(http.StatusForbidden, gin.H{"error": derr.Error(), "reason": derr.Reason})
		case errors.Is(err, user.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("User registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// LoginHandler handles POST /api/users/login.
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.UserService.Login(c.Request.Context(), req)
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrUserBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case err != nil:
		getLogger(c).Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// MeHandler handles GET /api/users/me.
func (h *UserHandler) MeHandler(c *gin.Context) {
	usr, err := h.UserService.GetUserByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		getLogger(c).Error("Failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	c.JSON(http.StatusOK, usr)
}

// LogoutHandler handles POST /api/users/logout.
func (h *UserHandler) LogoutHandler(c *gin.Context) {
	if err := h.UserService.Logout(c.Request.Context(), c.GetString("userID")); err != nil {
		getLogger(c).Error("Logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// authUser resolves the authenticated user for handlers that need role data.
func authUser(c *gin.Context, repo userRepo.UserRepository) (*models.User, bool) {
	usr, err := middleware.CurrentUser(c, repo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return usr, true
}
