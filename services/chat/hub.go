package chat

import (
	"context"
	"errors"
	"time"

	chatRepo "subzero/database/repository/chat"
	"subzero/models"
	"subzero/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BanChecker reports whether a device fingerprint belongs to a blocked device.
type BanChecker interface {
	IsBanned(ctx context.Context, fingerprint string) (bool, error)
}

// UserLookup resolves users that are not currently connected.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ExpiryScheduler arranges for a timed restriction to be lifted.
type ExpiryScheduler interface {
	ScheduleUnrestrict(ctx context.Context, userID string, at time.Time) error
}

type Config struct {
	HistoryLimit      int
	MaxMessageLength  int
	MessagesPerMinute int
}

// Hub coordinates membership, the message lifecycle and moderation for the chat room.
type Hub struct {
	Registry     *Registry
	Messages     chatRepo.MessageRepository
	Restrictions chatRepo.RestrictionRepository
	Broadcaster  Broadcaster
	Devices      BanChecker
	Users        UserLookup
	Scheduler    ExpiryScheduler
	Config       Config
	Logger       *zap.Logger
	Metrics      *utils.Metrics
	Now          func() time.Time
}

// NewHub returns a hub that broadcasts within this process. Devices, Users and Scheduler are optional.
func NewHub(messages chatRepo.MessageRepository, restrictions chatRepo.RestrictionRepository, cfg Config, logger *zap.Logger, metrics *utils.Metrics) *Hub {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		Registry:     NewRegistry(),
		Messages:     messages,
		Restrictions: restrictions,
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Now:          time.Now,
	}
	h.Broadcaster = NewLocalBroadcaster(h.Deliver)
	return h
}

// NewMember creates a CONNECTING member for conn. It is not visible to others until it joins.
func (h *Hub) NewMember(conn Conn, user models.ChatUser) *Member {
	user.IsRestricted = false
	return &Member{
		ID:      uuid.New().String(),
		conn:    conn,
		limiter: h.newLimiter(),
		state:   StateConnecting,
		user:    user,
	}
}

func (h *Hub) newLimiter() *rate.Limiter {
	perMin := h.Config.MessagesPerMinute
	if perMin <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := 5
	if perMin < burst {
		burst = perMin
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), burst)
}

// HandleMessage processes one inbound frame from m. Malformed frames are dropped. Action failures
// are reported to m as error events. A non-nil return means the connection should be closed.
func (h *Hub) HandleMessage(ctx context.Context, m *Member, data []byte) error {
	if m.State() == StateDisconnected {
		return nil
	}
	msg, err := DecodeInbound(data)
	if err != nil {
		h.Logger.Warn("dropping malformed chat message", zap.String("connection", m.ID), zap.Error(err))
		return nil
	}

	err = h.dispatch(ctx, m, msg)
	if err == nil {
		return nil
	}
	h.reject(m, err)
	if errors.Is(err, ErrDeviceBanned) {
		return err
	}
	return nil
}

func (h *Hub) dispatch(ctx context.Context, m *Member, msg Inbound) error {
	join, isJoin := msg.(*JoinChat)
	if isJoin {
		return h.join(ctx, m, join)
	}
	if !m.joined() {
		return ErrNotJoined
	}

	var err error
	switch msg := msg.(type) {
	case *SendMessage:
		err = h.send(ctx, m, msg)
	case *EditMessage:
		err = h.edit(ctx, m, msg)
	case *DeleteMessage:
		err = h.delete(ctx, m, msg)
	case *MarkRead:
		err = h.markRead(ctx, m, msg)
	case *RestrictUser:
		err = h.restrict(ctx, m, msg)
	case *UnrestrictUser:
		err = h.unrestrict(ctx, m, msg)
	default:
		h.Logger.Warn("unhandled chat message type", zap.String("type", msg.inboundType()))
		return nil
	}
	if err == nil {
		m.markActive()
	}
	return err
}

// reject sends err to the acting member only.
func (h *Hub) reject(m *Member, err error) {
	var chatErr *Error
	if !errors.As(err, &chatErr) {
		h.Logger.Error("chat action failed", zap.String("connection", m.ID), zap.Error(err))
		chatErr = ErrInternal
	}
	h.Metrics.RecordChatRejection(chatErr.Code)
	h.sendTo(m, ErrorEvent{Message: chatErr.Message, Code: chatErr.Code})
}

func (h *Hub) join(ctx context.Context, m *Member, msg *JoinChat) error {
	if m.State() != StateConnecting {
		return ErrAlreadyJoined
	}
	user := m.User()

	if msg.DeviceFingerprint != "" && h.Devices != nil {
		banned, err := h.Devices.IsBanned(ctx, msg.DeviceFingerprint)
		if err != nil {
			h.Logger.Error("device ban lookup failed", zap.String("userID", user.UserID), zap.Error(err))
			return ErrDeviceCheckFailed
		}
		if banned {
			h.Logger.Info("rejected join from banned device", zap.String("userID", user.UserID))
			return ErrDeviceBanned
		}
	}

	restricted, err := h.restrictedOnJoin(ctx, user.UserID)
	if err != nil {
		return err
	}
	history, err := h.Messages.Recent(ctx, h.Config.HistoryLimit)
	if err != nil {
		return err
	}

	m.join(restricted)
	count := h.Registry.Add(m)
	h.Metrics.SetChatMembers(count)
	h.Logger.Debug("chat member joined", zap.String("userID", user.UserID), zap.Int("members", count))

	h.broadcast(ctx, UserJoined{ChatUser: m.User()}, "", m.ID)
	h.sendTo(m, UsersList{Users: h.Registry.Users(m.ID)})
	h.sendTo(m, ChatHistory{Messages: history})
	return nil
}

// Leave disconnects m. It is safe to call more than once.
func (h *Hub) Leave(m *Member) {
	m.disconnect()
	removed, count := h.Registry.Remove(m.ID)
	if !removed {
		return
	}
	h.Metrics.SetChatMembers(count)
	user := m.User()
	h.broadcast(context.Background(), UserLeft{UserID: user.UserID, Username: user.Username}, "", m.ID)
}

// Deliver applies a frame's state change to local members and sends it to them.
func (h *Hub) Deliver(f Frame) {
	switch f.Type {
	case TypeUserRestricted:
		h.Registry.SetRestricted(f.Subject, true)
	case TypeUserUnrestricted:
		h.Registry.SetRestricted(f.Subject, false)
	}
	for _, m := range h.Registry.Members() {
		if m.ID == f.Exclude {
			continue
		}
		if err := m.Send(f.Data); err != nil {
			h.Logger.Debug("chat delivery failed", zap.String("connection", m.ID), zap.Error(err))
		}
	}
}

func (h *Hub) broadcast(ctx context.Context, ev Event, subject, exclude string) {
	data, err := Encode(ev)
	if err != nil {
		h.Logger.Error("failed to encode chat event", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	f := Frame{Type: ev.EventType(), Subject: subject, Exclude: exclude, Data: data}
	if err := h.Broadcaster.Publish(ctx, f); err != nil {
		h.Logger.Error("chat broadcast failed", zap.String("type", f.Type), zap.Error(err))
	}
}

func (h *Hub) sendTo(m *Member, ev Event) {
	data, err := Encode(ev)
	if err != nil {
		h.Logger.Error("failed to encode chat event", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	if err := m.Send(data); err != nil {
		h.Logger.Debug("chat send failed", zap.String("connection", m.ID), zap.Error(err))
	}
}

func (h *Hub) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
