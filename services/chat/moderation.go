package chat

import (
	"context"
	"errors"
	"time"

	userRepo "subzero/database/repository/user"
	"subzero/models"

	"go.uber.org/zap"
)

func (h *Hub) restrictedOnJoin(ctx context.Context, userID string) (bool, error) {
	for _, other := range h.Registry.ByUser(userID) {
		if other.User().IsRestricted {
			return true, nil
		}
	}
	rec, err := h.Restrictions.Get(ctx, userID)
	if err != nil || rec == nil {
		return false, err
	}
	if rec.Active(h.now()) {
		return true, nil
	}
	if err := h.Restrictions.Delete(ctx, userID); err != nil {
		h.Logger.Warn("failed to remove expired chat restriction", zap.String("userID", userID), zap.Error(err))
	}
	return false, nil
}

// restrict is a silent no-op unless the actor is an admin.
func (h *Hub) restrict(ctx context.Context, m *Member, msg *RestrictUser) error {
	actor := m.User()
	if !actor.IsAdmin {
		h.Logger.Debug("ignoring restrict_user from non-admin", zap.String("userID", actor.UserID))
		return nil
	}
	if msg.UserID == "" || msg.DurationMinutes < 0 {
		return ErrInvalidMessage
	}
	targetIsAdmin, err := h.isAdmin(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if targetIsAdmin {
		return ErrCannotRestrictAdmin
	}

	now := h.now()
	rec := &models.ChatRestriction{
		UserID:       msg.UserID,
		RestrictedBy: actor.UserID,
		Reason:       msg.Reason,
		RestrictedAt: now,
	}
	if msg.DurationMinutes > 0 {
		expires := now.Add(time.Duration(msg.DurationMinutes) * time.Minute)
		rec.ExpiresAt = &expires
	}
	if err := h.Restrictions.Upsert(ctx, rec); err != nil {
		return err
	}

	h.Registry.SetRestricted(msg.UserID, true)
	h.broadcast(ctx, UserRestricted{
		UserID:       rec.UserID,
		Reason:       rec.Reason,
		RestrictedBy: rec.RestrictedBy,
		ExpiresAt:    rec.ExpiresAt,
	}, rec.UserID, "")
	h.Logger.Info("chat user restricted", zap.String("userID", rec.UserID), zap.String("by", actor.UserID), zap.String("reason", rec.Reason))

	if rec.ExpiresAt != nil && h.Scheduler != nil {
		if err := h.Scheduler.ScheduleUnrestrict(ctx, rec.UserID, *rec.ExpiresAt); err != nil {
			h.Logger.Warn("failed to schedule restriction expiry", zap.String("userID", rec.UserID), zap.Error(err))
		}
	}
	return nil
}

func (h *Hub) unrestrict(ctx context.Context, m *Member, msg *UnrestrictUser) error {
	actor := m.User()
	if !actor.IsAdmin {
		h.Logger.Debug("ignoring unrestrict_user from non-admin", zap.String("userID", actor.UserID))
		return nil
	}
	if msg.UserID == "" {
		return ErrInvalidMessage
	}
	return h.lift(ctx, msg.UserID)
}

func (h *Hub) lift(ctx context.Context, userID string) error {
	if err := h.Restrictions.Delete(ctx, userID); err != nil {
		return err
	}
	h.Registry.SetRestricted(userID, false)
	h.broadcast(ctx, UserUnrestricted{UserID: userID}, userID, "")
	return nil
}

// ExpireRestriction lifts a timed restriction once it has run out. A restriction that was
// removed or renewed in the meantime is left alone.
func (h *Hub) ExpireRestriction(ctx context.Context, userID string) error {
	rec, err := h.Restrictions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil || rec.Active(h.now()) {
		return nil
	}
	return h.lift(ctx, userID)
}

func (h *Hub) ListRestrictions(ctx context.Context) ([]models.ChatRestriction, error) {
	return h.Restrictions.List(ctx)
}

func (h *Hub) isAdmin(ctx context.Context, userID string) (bool, error) {
	for _, m := range h.Registry.ByUser(userID) {
		if m.User().IsAdmin {
			return true, nil
		}
	}
	if h.Users == nil {
		return false, nil
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userRepo.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u != nil && u.HasAdminRights(), nil
}
