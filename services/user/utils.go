package user

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"subzero/utils"

	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// VerifyPasswordComplexity checks that the password meets complexity requirements.
func VerifyPasswordComplexity(pw string) error {
	var (
		hasMinLen = len(pw) >= 8
		hasUpper  = regexp.MustCompile(`[A-Z]`).MatchString(pw)
		hasLower  = regexp.MustCompile(`[a-z]`).MatchString(pw)
		hasNumber = regexp.MustCompile(`[0-9]`).MatchString(pw)
	)
	if !hasMinLen {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if !hasUpper {
		return fmt.Errorf("password must include at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must include at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must include at least one number")
	}
	return nil
}

func validateRegistration(username, email, password string) error {
	if !usernamePattern.MatchString(username) {
		return ValidationError{Field: "username", Message: "must be 3-30 letters, digits or underscores"}
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if err := VerifyPasswordComplexity(password); err != nil {
		return ValidationError{Field: "password", Message: err.Error()}
	}
	return nil
}

func (s *DefaultUserService) cacheTokenHash(ctx context.Context, userID, tokenHash string) {
	if s.AuthCache == nil {
		return
	}
	if err := s.AuthCache.Set(ctx, utils.AuthCachePrefix+userID, tokenHash, utils.AuthCacheTTL).Err(); err != nil {
		s.Logger.Warn("failed to cache auth token", zap.String("userID", userID), zap.Error(err))
	}
}

func (s *DefaultUserService) evictToken(ctx context.Context, userID string) {
	if s.AuthCache == nil {
		return
	}
	if err := s.AuthCache.Del(ctx, utils.AuthCachePrefix+userID).Err(); err != nil {
		s.Logger.Warn("failed to evict auth token", zap.String("userID", userID), zap.Error(err))
	}
}
