package deviceRepo

import (
	"context"
	"errors"

	"subzero/models"
)

var (
	// ErrRecordNotFound is returned when no device restriction record matches.
	ErrRecordNotFound = errors.New("device restriction record not found")
	// ErrNoCapacity is returned when a conditional append finds the device blocked or full.
	ErrNoCapacity = errors.New("device has no remaining account capacity")
	// ErrDuplicateDevice is returned when a fingerprint or cookie already belongs to another record.
	ErrDuplicateDevice = errors.New("device identifier already recorded")
)

// DeviceRepository persists device restriction records.
type DeviceRepository interface {
	// FindByFingerprintOrCookie returns the record matching either identifier, or nil when none does.
	FindByFingerprintOrCookie(ctx context.Context, fingerprint, cookie string) (*models.DeviceRestriction, error)
	// GetByID returns the record with the given ID.
	GetByID(ctx context.Context, id string) (*models.DeviceRestriction, error)
	// Create inserts a new record. A non-empty fingerprint or cookie may belong to one record only.
	Create(ctx context.Context, record *models.DeviceRestriction) error
	// AppendAccount adds userID to the record only while it is unblocked and below its cap, and in
	// the same update stores any non-empty fingerprint and cookie as the record's identifiers.
	AppendAccount(ctx context.Context, id, userID, fingerprint, cookie string) error
	// RemoveAccount removes userID from the record.
	RemoveAccount(ctx context.Context, id, userID string) error
	// SetBlocked blocks or unblocks the record.
	SetBlocked(ctx context.Context, id string, blocked bool, reason string) error
	// SetLimit overrides the per-device account cap.
	SetLimit(ctx context.Context, id string, max int) error
	// Delete removes the record.
	Delete(ctx context.Context, id string) error
	// List returns all records, most recently active first.
	List(ctx context.Context) ([]models.DeviceRestriction, error)
}
