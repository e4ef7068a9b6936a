package device

import (
	"context"
	"errors"
	"time"

	deviceRepo "subzero/database/repository/device"
	"subzero/models"
	"subzero/utils"

	"go.uber.org/zap"
)

var (
	ErrDeviceBlocked      = errors.New("device is blocked")
	ErrDeviceLimitReached = errors.New("account limit reached for this device")
	ErrMissingIdentifiers = errors.New("device fingerprint or cookie is required")
	ErrCheckUnavailable   = errors.New("device check unavailable")
)

// Reasons reported to clients alongside a rejection.
const (
	ReasonBlocked     = "device_blocked"
	ReasonLimit       = "account_limit_reached"
	ReasonMissing     = "missing_identifiers"
	ReasonUnavailable = "check_unavailable"
)

// RestrictionService enforces the accounts-per-device policy.
type RestrictionService interface {
	// Evaluate makes a read-only decision for a prospective account.
	Evaluate(ctx context.Context, fingerprint, cookie string) (models.DeviceCheckResult, error)
	// Admit records userID against the device when the policy allows it.
	Admit(ctx context.Context, fingerprint, cookie, userID string) (models.DeviceCheckResult, error)
	// Release undoes an Admit whose signup did not complete.
	Release(ctx context.Context, fingerprint, cookie, userID string) error

	Block(ctx context.Context, fingerprint, cookie, reason string) (*models.DeviceRestriction, error)
	Unblock(ctx context.Context, fingerprint, cookie string) error
	SetLimit(ctx context.Context, id string, max int) error
	Reset(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.DeviceRestriction, error)
	IsBanned(ctx context.Context, fingerprint string) (bool, error)
}

// DefaultRestrictionService is the production implementation.
type DefaultRestrictionService struct {
	Repo        deviceRepo.DeviceRepository
	MaxAccounts int
	Timeout     time.Duration
	Logger      *zap.Logger
	Metrics     *utils.Metrics
	Now         func() time.Time
}

// NewRestrictionService builds the service with the given default cap and lookup timeout.
func NewRestrictionService(repo deviceRepo.DeviceRepository, maxAccounts int, timeout time.Duration, logger *zap.Logger, metrics *utils.Metrics) *DefaultRestrictionService {
	if maxAccounts <= 0 {
		maxAccounts = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultRestrictionService{
		Repo:        repo,
		MaxAccounts: maxAccounts,
		Timeout:     timeout,
		Logger:      logger,
		Metrics:     metrics,
		Now:         time.Now,
	}
}
