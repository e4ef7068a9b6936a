package userRepo

import (
	"context"

	"subzero/models"

	"go.mongodb.org/mongo-driver/bson"
)

// UserRepository defines methods for user data access.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail retrieves a user by its email address. It returns nil, nil when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIDWithProjection retrieves a user by its unique ID with a projection.
	GetByIDWithProjection(ctx context.Context, id string, projection bson.M) (*models.User, error)
	// GetAllWithProjection retrieves all users with an optional projection.
	GetAllWithProjection(ctx context.Context, projection bson.M) ([]models.User, error)
	// IsUserAvailable reports whether neither the username nor the email is taken.
	IsUserAvailable(ctx context.Context, username, email string) (bool, error)
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.User) error
	// UpdateSetDocument applies a $set update to one user.
	UpdateSetDocument(ctx context.Context, id string, updateDoc bson.M) error
	// Delete removes a user record by its ID.
	Delete(ctx context.Context, id string) error
}
