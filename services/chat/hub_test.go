package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"subzero/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	hub   *Hub
	msgs  *fakeMessages
	restr *fakeRestrictions
	sched *fakeScheduler
	clock time.Time
}

func newHarness(cfg Config) *harness {
	h := &harness{
		msgs:  newFakeMessages(),
		restr: newFakeRestrictions(),
		sched: &fakeScheduler{},
		clock: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.hub = NewHub(h.msgs, h.restr, cfg, nil, nil)
	h.hub.Scheduler = h.sched
	h.hub.Devices = fakeBans{"banned-fp": true}
	h.hub.Now = func() time.Time {
		h.clock = h.clock.Add(time.Millisecond)
		return h.clock
	}
	return h
}

var (
	alice = models.ChatUser{UserID: "u-alice", Username: "alice", Role: models.RoleUser}
	bob   = models.ChatUser{UserID: "u-bob", Username: "bob", Role: models.RoleUser}
	admin = models.ChatUser{UserID: "u-admin", Username: "root", Role: models.RoleAdmin, IsAdmin: true}
)

func (h *harness) do(t *testing.T, m *Member, envelope map[string]any) error {
	t.Helper()
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	return h.hub.HandleMessage(context.Background(), m, data)
}

func (h *harness) join(t *testing.T, user models.ChatUser) (*Member, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	m := h.hub.NewMember(conn, user)
	require.NoError(t, h.do(t, m, map[string]any{"type": TypeJoinChat, "deviceFingerprint": "fp-" + user.UserID}))
	require.True(t, m.joined())
	return m, conn
}

func (h *harness) send(t *testing.T, m *Member, text string) {
	t.Helper()
	require.NoError(t, h.do(t, m, map[string]any{"type": TypeSendMessage, "message": text}))
}

func drain(t *testing.T, conns ...*fakeConn) {
	for _, c := range conns {
		c.events(t)
	}
}

func onlyMessage(t *testing.T, h *harness) models.ChatMessage {
	t.Helper()
	recent, err := h.msgs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	return recent[0]
}

func TestJoinEmptyRoom(t *testing.T) {
	h := newHarness(Config{})
	m, conn := h.join(t, alice)

	evs := conn.events(t)
	require.Equal(t, []string{TypeUsersList, TypeChatHistory}, types(evs))
	assert.Equal(t, []any{}, evs[0]["users"])
	assert.Equal(t, []any{}, evs[1]["messages"])
	assert.Equal(t, StateJoined, m.State())
	assert.Equal(t, 1, h.hub.Registry.Count())
}

func TestJoinAnnouncesToOthersAndListsThem(t *testing.T) {
	h := newHarness(Config{})
	_, aConn := h.join(t, alice)
	drain(t, aConn)

	_, bConn := h.join(t, bob)

	aEvs := aConn.events(t)
	require.Equal(t, []string{TypeUserJoined}, types(aEvs))
	assert.Equal(t, "u-bob", aEvs[0]["userId"])
	assert.Equal(t, "bob", aEvs[0]["username"])
	assert.Equal(t, false, aEvs[0]["isRestricted"])

	bEvs := bConn.events(t)
	require.Equal(t, []string{TypeUsersList, TypeChatHistory}, types(bEvs))
	users := bEvs[0]["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "u-alice", users[0].(map[string]any)["userId"])
}

func TestSendTaggedMessage(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	_, bConn := h.join(t, bob)
	drain(t, aConn, bConn)

	h.send(t, a, "hello @issue")

	stored := onlyMessage(t, h)
	assert.Equal(t, []string{"@issue"}, stored.Tags)
	assert.True(t, stored.IsTagged)
	assert.Equal(t, "alice", stored.Username)

	for _, c := range []*fakeConn{aConn, bConn} {
		evs := c.events(t)
		require.Equal(t, []string{TypeChatMessage}, types(evs))
		assert.Equal(t, "hello @issue", evs[0]["message"])
		assert.Equal(t, []any{"@issue"}, evs[0]["tags"])
		assert.Equal(t, true, evs[0]["isTagged"])
	}
	assert.Equal(t, StateActive, a.State())
}

func TestNonAdminRestrictIsSilentNoop(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	b, bConn := h.join(t, bob)
	drain(t, aConn, bConn)

	require.NoError(t, h.do(t, a, map[string]any{"type": TypeRestrictUser, "userId": "u-bob", "reason": "spam"}))
	require.NoError(t, h.do(t, a, map[string]any{"type": TypeUnrestrictUser, "userId": "u-bob"}))

	assert.Empty(t, aConn.events(t))
	assert.Empty(t, bConn.events(t))
	assert.False(t, b.User().IsRestricted)
	assert.Empty(t, h.restr.records)
}

func TestAdminRestrictBlocksSending(t *testing.T) {
	h := newHarness(Config{})
	ad, adConn := h.join(t, admin)
	a, aConn := h.join(t, alice)
	b, bConn := h.join(t, bob)
	drain(t, adConn, aConn, bConn)

	require.NoError(t, h.do(t, ad, map[string]any{"type": TypeRestrictUser, "userId": "u-bob", "reason": "spam"}))

	for _, c := range []*fakeConn{adConn, aConn, bConn} {
		evs := c.events(t)
		require.Equal(t, []string{TypeUserRestricted}, types(evs))
		assert.Equal(t, "u-bob", evs[0]["userId"])
		assert.Equal(t, "u-admin", evs[0]["restrictedBy"])
	}
	assert.True(t, b.User().IsRestricted)
	assert.False(t, a.User().IsRestricted)
	rec := h.restr.records["u-bob"]
	assert.Equal(t, "spam", rec.Reason)
	assert.Nil(t, rec.ExpiresAt)

	h.send(t, b, "let me talk")
	bEvs := bConn.events(t)
	require.Equal(t, []string{TypeError}, types(bEvs))
	assert.Equal(t, ErrRestricted.Code, bEvs[0]["code"])
	assert.Empty(t, aConn.events(t))
	assert.Empty(t, adConn.events(t))
	recent, _ := h.msgs.Recent(context.Background(), 10)
	assert.Empty(t, recent)

	require.NoError(t, h.do(t, ad, map[string]any{"type": TypeUnrestrictUser, "userId": "u-bob"}))
	assert.Equal(t, []string{TypeUserUnrestricted}, types(aConn.events(t)))
	assert.False(t, b.User().IsRestricted)
	assert.Empty(t, h.restr.records)
}

func TestAdminsCannotBeRestricted(t *testing.T) {
	h := newHarness(Config{})
	ad, adConn := h.join(t, admin)
	other := admin
	other.UserID, other.Username = "u-admin2", "root2"
	_, oConn := h.join(t, other)
	drain(t, adConn, oConn)

	require.NoError(t, h.do(t, ad, map[string]any{"type": TypeRestrictUser, "userId": "u-admin2"}))
	evs := adConn.events(t)
	require.Equal(t, []string{TypeError}, types(evs))
	assert.Equal(t, ErrCannotRestrictAdmin.Code, evs[0]["code"])
	assert.Empty(t, oConn.events(t))
}

func TestTimedRestrictionExpires(t *testing.T) {
	h := newHarness(Config{})
	ad, adConn := h.join(t, admin)
	b, bConn := h.join(t, bob)
	drain(t, adConn, bConn)

	require.NoError(t, h.do(t, ad, map[string]any{"type": TypeRestrictUser, "userId": "u-bob", "durationMinutes": 10}))
	require.Len(t, h.sched.calls, 1)
	assert.Equal(t, "u-bob", h.sched.calls[0].userID)
	drain(t, adConn, bConn)

	require.NoError(t, h.hub.ExpireRestriction(context.Background(), "u-bob"))
	assert.True(t, b.User().IsRestricted)
	assert.Empty(t, bConn.events(t))

	h.clock = h.sched.calls[0].at.Add(time.Second)
	require.NoError(t, h.hub.ExpireRestriction(context.Background(), "u-bob"))
	assert.False(t, b.User().IsRestricted)
	assert.Equal(t, []string{TypeUserUnrestricted}, types(bConn.events(t)))
}

func TestJoinHonoursPersistedRestriction(t *testing.T) {
	h := newHarness(Config{})
	past := h.clock.Add(-time.Hour)
	h.restr.records["u-alice"] = models.ChatRestriction{UserID: "u-alice", Reason: "earlier"}
	h.restr.records["u-bob"] = models.ChatRestriction{UserID: "u-bob", ExpiresAt: &past}

	a, _ := h.join(t, alice)
	b, _ := h.join(t, bob)

	assert.True(t, a.User().IsRestricted)
	assert.False(t, b.User().IsRestricted)
	_, stillThere := h.restr.records["u-bob"]
	assert.False(t, stillThere)
}

func TestEditByAuthor(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	_, bConn := h.join(t, bob)
	h.send(t, a, "first draft")
	id := onlyMessage(t, h).ID
	drain(t, aConn, bConn)

	require.NoError(t, h.do(t, a, map[string]any{"type": TypeEditMessage, "messageId": id, "message": "final @bob"}))

	stored := onlyMessage(t, h)
	assert.Equal(t, "final @bob", stored.Message)
	assert.True(t, stored.IsEdited)
	require.Len(t, stored.EditHistory, 1)
	assert.Equal(t, "first draft", stored.EditHistory[0].Message)
	assert.Equal(t, []string{"@bob"}, stored.Tags)

	evs := bConn.events(t)
	require.Equal(t, []string{TypeMessageUpdated}, types(evs))
	assert.Equal(t, true, evs[0]["isEdited"])
}

func TestEditRetriesWhenMessageChangedUnderneath(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	h.send(t, a, "v1")
	id := onlyMessage(t, h).ID
	drain(t, aConn)

	// Another edit lands between this edit's read and its write.
	h.msgs.beforeEdit = func(msg *models.ChatMessage) {
		h.msgs.beforeEdit = nil
		msg.EditHistory = append(msg.EditHistory, models.EditEntry{Message: msg.Message})
		msg.Message = "v2"
	}
	require.NoError(t, h.do(t, a, map[string]any{"type": TypeEditMessage, "messageId": id, "message": "v3"}))

	stored := onlyMessage(t, h)
	assert.Equal(t, "v3", stored.Message)
	require.Len(t, stored.EditHistory, 2)
	assert.Equal(t, "v1", stored.EditHistory[0].Message)
	assert.Equal(t, "v2", stored.EditHistory[1].Message)
}

func TestEditGivesUpAfterRepeatedConflicts(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	h.send(t, a, "v1")
	id := onlyMessage(t, h).ID
	drain(t, aConn)

	n := 0
	h.msgs.beforeEdit = func(msg *models.ChatMessage) {
		n++
		msg.Message = fmt.Sprintf("other-%d", n)
	}
	require.NoError(t, h.do(t, a, map[string]any{"type": TypeEditMessage, "messageId": id, "message": "mine"}))

	evs := aConn.events(t)
	require.Equal(t, []string{TypeError}, types(evs))
	assert.Equal(t, ErrEditConflict.Code, evs[0]["code"])
	assert.Equal(t, editAttempts, n)
}

func TestEditAndDeleteByOthersRejected(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	b, bConn := h.join(t, bob)
	h.send(t, a, "mine")
	id := onlyMessage(t, h).ID
	drain(t, aConn, bConn)

	require.NoError(t, h.do(t, b, map[string]any{"type": TypeEditMessage, "messageId": id, "message": "yours now"}))
	require.NoError(t, h.do(t, b, map[string]any{"type": TypeDeleteMessage, "messageId": id}))

	evs := bConn.events(t)
	require.Equal(t, []string{TypeError, TypeError}, types(evs))
	assert.Equal(t, ErrNotAuthorized.Code, evs[0]["code"])
	assert.Equal(t, ErrNotAuthorized.Code, evs[1]["code"])
	assert.Empty(t, aConn.events(t))

	stored, err := h.msgs.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "mine", stored.Message)
	assert.False(t, stored.IsEdited)
}

func TestAdminCanDeleteAnyMessage(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	ad, adConn := h.join(t, admin)
	h.send(t, a, "oops")
	id := onlyMessage(t, h).ID
	drain(t, aConn, adConn)

	require.NoError(t, h.do(t, ad, map[string]any{"type": TypeDeleteMessage, "messageId": id}))
	evs := aConn.events(t)
	require.Equal(t, []string{TypeMessageDeleted}, types(evs))
	assert.Equal(t, id, evs[0]["messageId"])

	_, err := h.msgs.GetByID(context.Background(), id)
	assert.Error(t, err)

	require.NoError(t, h.do(t, ad, map[string]any{"type": TypeDeleteMessage, "messageId": id}))
	assert.Equal(t, ErrMessageNotFound.Code, adConn.events(t)[1]["code"])
}

func TestBannedDeviceCannotJoin(t *testing.T) {
	h := newHarness(Config{})
	_, aConn := h.join(t, alice)
	drain(t, aConn)

	conn := &fakeConn{}
	m := h.hub.NewMember(conn, bob)
	err := h.do(t, m, map[string]any{"type": TypeJoinChat, "deviceFingerprint": "banned-fp"})
	assert.ErrorIs(t, err, ErrDeviceBanned)

	evs := conn.events(t)
	require.Equal(t, []string{TypeError}, types(evs))
	assert.Equal(t, ErrDeviceBanned.Code, evs[0]["code"])
	assert.Equal(t, StateConnecting, m.State())
	assert.Equal(t, 1, h.hub.Registry.Count())
	assert.Empty(t, aConn.events(t))
}

func TestMessagesBeforeJoinAreRejected(t *testing.T) {
	h := newHarness(Config{})
	conn := &fakeConn{}
	m := h.hub.NewMember(conn, alice)

	require.NoError(t, h.do(t, m, map[string]any{"type": TypeSendMessage, "message": "hi"}))
	evs := conn.events(t)
	require.Equal(t, []string{TypeError}, types(evs))
	assert.Equal(t, ErrNotJoined.Code, evs[0]["code"])
}

func TestJoinTwiceRejected(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	drain(t, aConn)
	require.NoError(t, h.do(t, a, map[string]any{"type": TypeJoinChat}))
	assert.Equal(t, ErrAlreadyJoined.Code, aConn.events(t)[0]["code"])
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	drain(t, aConn)

	for _, raw := range []string{"not json", `{"type":"launch_rockets"}`, `{"type":"send_message","message":42}`} {
		assert.NoError(t, h.hub.HandleMessage(context.Background(), a, []byte(raw)))
	}
	assert.Empty(t, aConn.events(t))
	assert.Equal(t, 1, h.hub.Registry.Count())
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	b, bConn := h.join(t, bob)
	drain(t, aConn, bConn)

	h.hub.Leave(b)
	h.hub.Leave(b)

	evs := aConn.events(t)
	require.Equal(t, []string{TypeUserLeft}, types(evs))
	assert.Equal(t, "u-bob", evs[0]["userId"])
	assert.Equal(t, StateDisconnected, b.State())
	assert.Equal(t, 1, h.hub.Registry.Count())

	h.send(t, a, "anyone?")
	assert.Empty(t, bConn.events(t))

	never := h.hub.NewMember(&fakeConn{}, bob)
	h.hub.Leave(never)
	assert.Empty(t, aConn.events(t)[1:])
}

func TestSendValidation(t *testing.T) {
	h := newHarness(Config{MaxMessageLength: 10})
	a, aConn := h.join(t, alice)
	drain(t, aConn)

	h.send(t, a, "   ")
	h.send(t, a, strings.Repeat("x", 11))
	require.NoError(t, h.do(t, a, map[string]any{"type": TypeSendMessage, "message": "re", "replyTo": "missing"}))

	evs := aConn.events(t)
	require.Equal(t, []string{TypeError, TypeError, TypeError}, types(evs))
	assert.Equal(t, ErrInvalidMessage.Code, evs[0]["code"])
	assert.Equal(t, ErrMessageTooLong.Code, evs[1]["code"])
	assert.Equal(t, ErrReplyNotFound.Code, evs[2]["code"])
}

func TestReplyCarriesExcerpt(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	b, bConn := h.join(t, bob)
	h.send(t, a, "question?")
	parent := onlyMessage(t, h)
	drain(t, aConn, bConn)

	require.NoError(t, h.do(t, b, map[string]any{"type": TypeSendMessage, "message": "answer", "replyTo": parent.ID}))
	evs := aConn.events(t)
	require.Equal(t, []string{TypeChatMessage}, types(evs))
	reply := evs[0]["replyTo"].(map[string]any)
	assert.Equal(t, parent.ID, reply["messageId"])
	assert.Equal(t, "alice", reply["username"])
	assert.Equal(t, "question?", reply["message"])
}

func TestSendRateLimited(t *testing.T) {
	h := newHarness(Config{MessagesPerMinute: 2})
	a, aConn := h.join(t, alice)
	drain(t, aConn)

	h.send(t, a, "one")
	h.send(t, a, "two")
	h.send(t, a, "three")

	evs := aConn.events(t)
	require.Equal(t, []string{TypeChatMessage, TypeChatMessage, TypeError}, types(evs))
	assert.Equal(t, ErrRateLimited.Code, evs[2]["code"])
}

func TestMarkReadRecordsReceiptWithoutBroadcast(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	b, bConn := h.join(t, bob)
	h.send(t, a, "read me")
	id := onlyMessage(t, h).ID
	drain(t, aConn, bConn)

	require.NoError(t, h.do(t, b, map[string]any{"type": TypeMarkRead, "messageId": id}))
	assert.Empty(t, aConn.events(t))
	assert.Empty(t, bConn.events(t))
	stored := onlyMessage(t, h)
	require.Len(t, stored.ReadBy, 1)
	assert.Equal(t, "u-bob", stored.ReadBy[0].UserID)
}

func TestHistoryIsBoundedOldestFirst(t *testing.T) {
	h := newHarness(Config{HistoryLimit: 2})
	a, _ := h.join(t, alice)
	h.send(t, a, "one")
	h.send(t, a, "two")
	h.send(t, a, "three")

	_, bConn := h.join(t, bob)
	evs := bConn.events(t)
	require.Equal(t, []string{TypeUsersList, TypeChatHistory}, types(evs))
	history := evs[1]["messages"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].(map[string]any)["message"])
	assert.Equal(t, "three", history[1].(map[string]any)["message"])
}

func TestClearAndPruneHistory(t *testing.T) {
	h := newHarness(Config{})
	a, _ := h.join(t, alice)
	h.send(t, a, "old")
	h.clock = h.clock.Add(48 * time.Hour)
	h.send(t, a, "new")

	n, err := h.hub.PruneHistory(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "new", onlyMessage(t, h).Message)

	n, err = h.hub.ClearHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClearHistoryResetsConnectedClients(t *testing.T) {
	h := newHarness(Config{})
	a, aConn := h.join(t, alice)
	_, bConn := h.join(t, bob)
	h.send(t, a, "soon gone")
	drain(t, aConn, bConn)

	_, err := h.hub.ClearHistory(context.Background())
	require.NoError(t, err)

	for _, conn := range []*fakeConn{aConn, bConn} {
		evs := conn.events(t)
		require.Equal(t, []string{TypeChatHistory}, types(evs))
		assert.Equal(t, []any{}, evs[0]["messages"])
	}
}
