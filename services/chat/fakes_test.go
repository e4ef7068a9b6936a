package chat

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	chatRepo "subzero/database/repository/chat"
	"subzero/models"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// events decodes every frame received so far and clears the buffer.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	c.frames = nil
	return out
}

func types(evs []map[string]any) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev["type"].(string))
	}
	return out
}

type fakeMessages struct {
	mu       sync.Mutex
	messages map[string]*models.ChatMessage
	// beforeEdit runs inside Edit before the stored text is compared.
	beforeEdit func(msg *models.ChatMessage)
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{messages: map[string]*models.ChatMessage{}}
}

func (r *fakeMessages) Create(_ context.Context, msg *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

func (r *fakeMessages) GetByID(_ context.Context, id string) (*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, chatRepo.ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *fakeMessages) Edit(_ context.Context, id string, edit chatRepo.MessageEdit) (*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, chatRepo.ErrMessageNotFound
	}
	if r.beforeEdit != nil {
		r.beforeEdit(msg)
	}
	if msg.Message != edit.Previous.Message {
		return nil, chatRepo.ErrEditConflict
	}
	msg.Message = edit.Message
	msg.Tags = edit.Tags
	msg.IsTagged = len(edit.Tags) > 0
	msg.IsEdited = true
	msg.EditHistory = append(msg.EditHistory, edit.Previous)
	msg.UpdatedAt = edit.Previous.EditedAt
	cp := *msg
	return &cp, nil
}

func (r *fakeMessages) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return chatRepo.ErrMessageNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeMessages) Recent(_ context.Context, limit int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ChatMessage{}
	for _, m := range r.messages {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMessages) MarkRead(_ context.Context, id, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return chatRepo.ErrMessageNotFound
	}
	for _, rr := range msg.ReadBy {
		if rr.UserID == userID {
			return nil
		}
	}
	msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: at})
	return nil
}

func (r *fakeMessages) DeleteAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.messages))
	r.messages = map[string]*models.ChatMessage{}
	return n, nil
}

func (r *fakeMessages) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.messages {
		if m.CreatedAt.Before(before) {
			delete(r.messages, id)
			n++
		}
	}
	return n, nil
}

type fakeRestrictions struct {
	mu      sync.Mutex
	records map[string]models.ChatRestriction
}

func newFakeRestrictions() *fakeRestrictions {
	return &fakeRestrictions{records: map[string]models.ChatRestriction{}}
}

func (r *fakeRestrictions) Upsert(_ context.Context, rec *models.ChatRestriction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.UserID] = *rec
	return nil
}

func (r *fakeRestrictions) Get(_ context.Context, userID string) (*models.ChatRestriction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *fakeRestrictions) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}

func (r *fakeRestrictions) List(context.Context) ([]models.ChatRestriction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ChatRestriction{}
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

type fakeBans map[string]bool

func (b fakeBans) IsBanned(_ context.Context, fp string) (bool, error) {
	return b[fp], nil
}

type scheduled struct {
	userID string
	at     time.Time
}

type fakeScheduler struct {
	calls []scheduled
}

func (s *fakeScheduler) ScheduleUnrestrict(_ context.Context, userID string, at time.Time) error {
	s.calls = append(s.calls, scheduled{userID, at})
	return nil
}
