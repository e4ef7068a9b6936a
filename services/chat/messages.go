package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	chatRepo "subzero/database/repository/chat"
	"subzero/models"

	"github.com/google/uuid"
)

const replyExcerptRunes = 100

func (h *Hub) validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrInvalidMessage
	}
	if utf8.RuneCountInString(text) > h.Config.MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return text, nil
}

func (h *Hub) send(ctx context.Context, m *Member, msg *SendMessage) error {
	user := m.User()
	if user.IsRestricted {
		return ErrRestricted
	}
	if !m.limiter.Allow() {
		return ErrRateLimited
	}
	text, err := h.validateText(msg.Message)
	if err != nil {
		return err
	}

	now := h.now()
	tags := ExtractTags(text)
	cm := &models.ChatMessage{
		ID:          uuid.New().String(),
		UserID:      user.UserID,
		Username:    user.Username,
		Message:     text,
		IsAdmin:     user.IsAdmin,
		Role:        user.Role,
		Tags:        tags,
		IsTagged:    len(tags) > 0,
		EditHistory: []models.EditEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if msg.ReplyTo != "" {
		target, err := h.Messages.GetByID(ctx, msg.ReplyTo)
		if errors.Is(err, chatRepo.ErrMessageNotFound) {
			return ErrReplyNotFound
		}
		if err != nil {
			return err
		}
		cm.ReplyTo = &models.ReplyRef{MessageID: target.ID, Username: target.Username, Message: excerpt(target.Message)}
	}

	if err := h.Messages.Create(ctx, cm); err != nil {
		return err
	}
	h.Metrics.RecordChatMessage()
	h.broadcast(ctx, ChatMessageEvent{ChatMessage: *cm}, "", "")
	return nil
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= replyExcerptRunes {
		return s
	}
	return string([]rune(s)[:replyExcerptRunes]) + "…"
}

// authorize loads the message and checks that user may change it.
func (h *Hub) authorize(ctx context.Context, user models.ChatUser, id string) (*models.ChatMessage, error) {
	if id == "" {
		return nil, ErrInvalidMessage
	}
	existing, err := h.Messages.GetByID(ctx, id)
	if errors.Is(err, chatRepo.ErrMessageNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if existing.UserID != user.UserID && !user.IsAdmin {
		return nil, ErrNotAuthorized
	}
	return existing, nil
}

// editAttempts bounds retries when another edit lands between the read and the write.
const editAttempts = 3

func (h *Hub) edit(ctx context.Context, m *Member, msg *EditMessage) error {
	user := m.User()
	if user.IsRestricted {
		return ErrRestricted
	}
	text, err := h.validateText(msg.Message)
	if err != nil {
		return err
	}
	tags := ExtractTags(text)

	for attempt := 1; ; attempt++ {
		existing, err := h.authorize(ctx, user, msg.MessageID)
		if err != nil {
			return err
		}
		updated, err := h.Messages.Edit(ctx, existing.ID, chatRepo.MessageEdit{
			Message:  text,
			Tags:     tags,
			Previous: models.EditEntry{Message: existing.Message, EditedAt: h.now()},
		})
		switch {
		case errors.Is(err, chatRepo.ErrEditConflict):
			if attempt < editAttempts {
				continue
			}
			return ErrEditConflict
		case errors.Is(err, chatRepo.ErrMessageNotFound):
			return ErrMessageNotFound
		case err != nil:
			return err
		}
		h.broadcast(ctx, MessageUpdated{ChatMessage: *updated}, "", "")
		return nil
	}
}

func (h *Hub) delete(ctx context.Context, m *Member, msg *DeleteMessage) error {
	existing, err := h.authorize(ctx, m.User(), msg.MessageID)
	if err != nil {
		return err
	}
	if err := h.Messages.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, chatRepo.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	h.broadcast(ctx, MessageDeleted{MessageID: existing.ID}, "", "")
	return nil
}

func (h *Hub) markRead(ctx context.Context, m *Member, msg *MarkRead) error {
	if msg.MessageID == "" {
		return ErrInvalidMessage
	}
	err := h.Messages.MarkRead(ctx, msg.MessageID, m.User().UserID, h.now())
	if errors.Is(err, chatRepo.ErrMessageNotFound) {
		return ErrMessageNotFound
	}
	return err
}

// ClearHistory deletes every message in the room and resets the history shown by connected clients.
func (h *Hub) ClearHistory(ctx context.Context) (int64, error) {
	n, err := h.Messages.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	h.broadcast(ctx, ChatHistory{Messages: []models.ChatMessage{}}, "", "")
	return n, nil
}

// PruneHistory deletes messages older than the given age.
func (h *Hub) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	return h.Messages.DeleteOlderThan(ctx, h.now().Add(-olderThan))
}
