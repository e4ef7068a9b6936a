package device

import (
	"context"
	"errors"
	"fmt"

	deviceRepo "subzero/database/repository/device"
	"subzero/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func allowed() models.DeviceCheckResult {
	return models.DeviceCheckResult{Allowed: true}
}

func denied(reason string) models.DeviceCheckResult {
	return models.DeviceCheckResult{Allowed: false, Reason: reason}
}

// deny maps err to a rejection. Anything that is not a policy decision fails closed.
func (s *DefaultRestrictionService) deny(err error) (models.DeviceCheckResult, error) {
	var res models.DeviceCheckResult
	switch {
	case errors.Is(err, ErrDeviceBlocked):
		res = denied(ReasonBlocked)
	case errors.Is(err, ErrDeviceLimitReached):
		res = denied(ReasonLimit)
	case errors.Is(err, ErrMissingIdentifiers):
		res = denied(ReasonMissing)
	default:
		s.Logger.Error("device restriction check failed", zap.Error(err))
		res = denied(ReasonUnavailable)
		err = fmt.Errorf("%w: %v", ErrCheckUnavailable, err)
	}
	s.Metrics.RecordDeviceDecision(res.Reason)
	return res, err
}

func (s *DefaultRestrictionService) lookup(ctx context.Context, fingerprint, cookie string) (*models.DeviceRestriction, error) {
	if fingerprint == "" && cookie == "" {
		return nil, ErrMissingIdentifiers
	}
	return s.Repo.FindByFingerprintOrCookie(ctx, fingerprint, cookie)
}

func (s *DefaultRestrictionService) Evaluate(ctx context.Context, fingerprint, cookie string) (models.DeviceCheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	record, err := s.lookup(ctx, fingerprint, cookie)
	if err != nil {
		return s.deny(err)
	}
	if err := checkPolicy(record); err != nil {
		return s.deny(err)
	}
	s.Metrics.RecordDeviceDecision("allowed")
	return allowed(), nil
}

func checkPolicy(record *models.DeviceRestriction) error {
	if record == nil {
		return nil
	}
	if record.IsBlocked {
		return ErrDeviceBlocked
	}
	if !record.HasCapacity() {
		return ErrDeviceLimitReached
	}
	return nil
}

func (s *DefaultRestrictionService) Admit(ctx context.Context, fingerprint, cookie, userID string) (models.DeviceCheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.admit(ctx, fingerprint, cookie, userID); err != nil {
		return s.deny(err)
	}
	s.Metrics.RecordDeviceDecision("allowed")
	return allowed(), nil
}

func (s *DefaultRestrictionService) admit(ctx context.Context, fingerprint, cookie, userID string) error {
	record, err := s.ensureRecord(ctx, fingerprint, cookie)
	if err != nil {
		return err
	}
	if record.IsBlocked {
		return ErrDeviceBlocked
	}
	if record.HasAccount(userID) {
		return nil
	}
	if !record.HasCapacity() {
		return ErrDeviceLimitReached
	}

	// Identifiers are only learned together with a successful append.
	learnFP, learnCookie := fingerprint, cookie
	if learnFP == record.DeviceFingerprint {
		learnFP = ""
	}
	if learnCookie == record.CookieValue {
		learnCookie = ""
	}
	err = s.Repo.AppendAccount(ctx, record.ID, userID, learnFP, learnCookie)
	if errors.Is(err, deviceRepo.ErrDuplicateDevice) {
		// The other identifier already belongs to another record; count the account here without it.
		err = s.Repo.AppendAccount(ctx, record.ID, userID, "", "")
	}
	if errors.Is(err, deviceRepo.ErrNoCapacity) {
		return ErrDeviceLimitReached
	}
	if err != nil {
		return err
	}
	s.Logger.Debug("account admitted", zap.String("deviceID", record.ID), zap.String("userID", userID))
	return nil
}

// ensureRecord returns the device's record, creating an empty one for a device never seen before.
// Concurrent first visits converge on the single record the store accepts.
func (s *DefaultRestrictionService) ensureRecord(ctx context.Context, fingerprint, cookie string) (*models.DeviceRestriction, error) {
	record, err := s.lookup(ctx, fingerprint, cookie)
	if err != nil || record != nil {
		return record, err
	}

	now := s.Now()
	record = &models.DeviceRestriction{
		ID:                  uuid.New().String(),
		DeviceFingerprint:   fingerprint,
		CookieValue:         cookie,
		AccountsCreated:     []string{},
		MaxAccountsAllowed:  s.MaxAccounts,
		FirstAccountCreated: now,
		LastActivity:        now,
	}
	err = s.Repo.Create(ctx, record)
	if errors.Is(err, deviceRepo.ErrDuplicateDevice) {
		existing, err := s.lookup(ctx, fingerprint, cookie)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, deviceRepo.ErrDuplicateDevice
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	s.Logger.Info("device record created", zap.String("deviceID", record.ID))
	return record, nil
}

func (s *DefaultRestrictionService) Release(ctx context.Context, fingerprint, cookie, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	record, err := s.lookup(ctx, fingerprint, cookie)
	if err != nil {
		return err
	}
	if record == nil || !record.HasAccount(userID) {
		return nil
	}
	return s.Repo.RemoveAccount(ctx, record.ID, userID)
}

// Block blocks the device, creating an empty record for a device never seen before.
func (s *DefaultRestrictionService) Block(ctx context.Context, fingerprint, cookie, reason string) (*models.DeviceRestriction, error) {
	record, err := s.ensureRecord(ctx, fingerprint, cookie)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetBlocked(ctx, record.ID, true, reason); err != nil {
		return nil, err
	}
	record.IsBlocked = true
	record.BlockedReason = reason
	return record, nil
}

func (s *DefaultRestrictionService) Unblock(ctx context.Context, fingerprint, cookie string) error {
	record, err := s.lookup(ctx, fingerprint, cookie)
	if err != nil {
		return err
	}
	if record == nil {
		return deviceRepo.ErrRecordNotFound
	}
	return s.Repo.SetBlocked(ctx, record.ID, false, "")
}

// SetLimit overrides the cap for one device. A limit below the current account count is allowed.
func (s *DefaultRestrictionService) SetLimit(ctx context.Context, id string, max int) error {
	if max < 0 {
		return fmt.Errorf("invalid account limit %d", max)
	}
	return s.Repo.SetLimit(ctx, id, max)
}

// Reset forgets the device entirely.
func (s *DefaultRestrictionService) Reset(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *DefaultRestrictionService) List(ctx context.Context) ([]models.DeviceRestriction, error) {
	return s.Repo.List(ctx)
}

// IsBanned reports whether a blocked record matches fingerprint.
func (s *DefaultRestrictionService) IsBanned(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	record, err := s.Repo.FindByFingerprintOrCookie(ctx, fingerprint, "")
	if err != nil {
		return false, err
	}
	return record != nil && record.IsBlocked, nil
}
