package user

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("a user with this email or username already exists")
	ErrUserBanned         = errors.New("this account has been banned")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DeviceRejectedError signals that the device restriction check did not allow the signup.
type DeviceRejectedError struct {
	Reason string
	Err    error
}

func (e DeviceRejectedError) Error() string {
	return "account creation not allowed from this device: " + e.Reason
}

func (e DeviceRejectedError) Unwrap() error {
	return e.Err
}
