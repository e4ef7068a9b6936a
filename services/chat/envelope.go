package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"subzero/models"
)

// Inbound envelope types.
const (
	TypeJoinChat       = "join_chat"
	TypeSendMessage    = "send_message"
	TypeEditMessage    = "edit_message"
	TypeDeleteMessage  = "delete_message"
	TypeRestrictUser   = "restrict_user"
	TypeUnrestrictUser = "unrestrict_user"
	TypeMarkRead       = "mark_read"
)

// Outbound envelope types.
const (
	TypeChatMessage      = "chat_message"
	TypeMessageUpdated   = "message_updated"
	TypeMessageDeleted   = "message_deleted"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeUsersList        = "users_list"
	TypeChatHistory      = "chat_history"
	TypeUserRestricted   = "user_restricted"
	TypeUserUnrestricted = "user_unrestricted"
	TypeError            = "error"
)

// Inbound is a message received from a client. The concrete types are the pointers below.
type Inbound interface {
	inboundType() string
}

type JoinChat struct {
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type SendMessage struct {
	Message string `json:"message"`
	ReplyTo string `json:"replyTo,omitempty"`
}

type EditMessage struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

type DeleteMessage struct {
	MessageID string `json:"messageId"`
}

type RestrictUser struct {
	UserID          string `json:"userId"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

type UnrestrictUser struct {
	UserID string `json:"userId"`
}

type MarkRead struct {
	MessageID string `json:"messageId"`
}

func (*JoinChat) inboundType() string       { return TypeJoinChat }
func (*SendMessage) inboundType() string    { return TypeSendMessage }
func (*EditMessage) inboundType() string    { return TypeEditMessage }
func (*DeleteMessage) inboundType() string  { return TypeDeleteMessage }
func (*RestrictUser) inboundType() string   { return TypeRestrictUser }
func (*UnrestrictUser) inboundType() string { return TypeUnrestrictUser }
func (*MarkRead) inboundType() string       { return TypeMarkRead }

// DecodeInbound parses a {"type": ..., ...payload} envelope.
func DecodeInbound(data []byte) (Inbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	var msg Inbound
	switch head.Type {
	case TypeJoinChat:
		msg = &JoinChat{}
	case TypeSendMessage:
		msg = &SendMessage{}
	case TypeEditMessage:
		msg = &EditMessage{}
	case TypeDeleteMessage:
		msg = &DeleteMessage{}
	case TypeRestrictUser:
		msg = &RestrictUser{}
	case TypeUnrestrictUser:
		msg = &UnrestrictUser{}
	case TypeMarkRead:
		msg = &MarkRead{}
	default:
		return nil, fmt.Errorf("unknown envelope type %q", head.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", head.Type, err)
	}
	return msg, nil
}

// Event is a message sent to clients.
type Event interface {
	EventType() string
}

type ChatMessageEvent struct {
	models.ChatMessage
}

type MessageUpdated struct {
	models.ChatMessage
}

type MessageDeleted struct {
	MessageID string `json:"messageId"`
}

type UserJoined struct {
	models.ChatUser
}

type UserLeft struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type UsersList struct {
	Users []models.ChatUser `json:"users"`
}

type ChatHistory struct {
	Messages []models.ChatMessage `json:"messages"`
}

type UserRestricted struct {
	UserID       string     `json:"userId"`
	Reason       string     `json:"reason"`
	RestrictedBy string     `json:"restrictedBy"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type UserUnrestricted struct {
	UserID string `json:"userId"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (ChatMessageEvent) EventType() string { return TypeChatMessage }
func (MessageUpdated) EventType() string   { return TypeMessageUpdated }
func (MessageDeleted) EventType() string   { return TypeMessageDeleted }
func (UserJoined) EventType() string       { return TypeUserJoined }
func (UserLeft) EventType() string         { return TypeUserLeft }
func (UsersList) EventType() string        { return TypeUsersList }
func (ChatHistory) EventType() string      { return TypeChatHistory }
func (UserRestricted) EventType() string   { return TypeUserRestricted }
func (UserUnrestricted) EventType() string { return TypeUserUnrestricted }
func (ErrorEvent) EventType() string       { return TypeError }

// Encode renders ev as a flat envelope with its type first.
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("event %s does not encode to an object", ev.EventType())
	}
	typ, _ := json.Marshal(ev.EventType())

	out := make([]byte, 0, len(body)+len(typ)+10)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}
