package chatRepo

import (
	"context"
	"errors"
	"time"

	"subzero/models"
)

var (
	// ErrMessageNotFound is returned when no message has the requested ID.
	ErrMessageNotFound = errors.New("chat message not found")
	// ErrEditConflict is returned when the message changed after the edit was prepared.
	ErrEditConflict = errors.New("chat message was modified concurrently")
)

// MessageEdit describes an in-place edit of a message.
type MessageEdit struct {
	Message  string
	Tags     []string
	Previous models.EditEntry
}

// MessageRepository persists chat messages, their edit history and read receipts.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	GetByID(ctx context.Context, id string) (*models.ChatMessage, error)
	// Edit replaces the content, appends the previous version to editHistory and returns the updated
	// message. It applies only while the stored text still equals edit.Previous.Message.
	Edit(ctx context.Context, id string, edit MessageEdit) (*models.ChatMessage, error)
	Delete(ctx context.Context, id string) error
	// Recent returns up to limit of the newest messages, oldest first.
	Recent(ctx context.Context, limit int) ([]models.ChatMessage, error)
	// MarkRead records a read receipt once per user.
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// RestrictionRepository persists chat moderation records, one per user.
type RestrictionRepository interface {
	Upsert(ctx context.Context, r *models.ChatRestriction) error
	// Get returns the user's restriction, or nil when there is none.
	Get(ctx context.Context, userID string) (*models.ChatRestriction, error)
	// Delete removes the user's restriction. Removing an absent one is not an error.
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]models.ChatRestriction, error)
}
