package models

import "time"

// ChatMessage is a persisted chat room message.
type ChatMessage struct {
	ID          string        `bson:"id" json:"id"`
	UserID      string        `bson:"userId" json:"userId"`
	Username    string        `bson:"username" json:"username"`
	Message     string        `bson:"message" json:"message"`
	IsAdmin     bool          `bson:"isAdmin" json:"isAdmin"`
	Role        string        `bson:"role" json:"role"`
	Tags        []string      `bson:"tags" json:"tags"`
	IsTagged    bool          `bson:"isTagged" json:"isTagged"`
	ReplyTo     *ReplyRef     `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	IsEdited    bool          `bson:"isEdited" json:"isEdited"`
	EditHistory []EditEntry   `bson:"editHistory" json:"editHistory"`
	ReadBy      []ReadReceipt `bson:"readBy" json:"readBy,omitempty"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// ReplyRef is the quoted excerpt of the message being replied to.
type ReplyRef struct {
	MessageID string `bson:"messageId" json:"messageId"`
	Username  string `bson:"username" json:"username"`
	Message   string `bson:"message" json:"message"`
}

// EditEntry preserves a previous version of an edited message.
type EditEntry struct {
	Message  string    `bson:"message" json:"message"`
	EditedAt time.Time `bson:"editedAt" json:"editedAt"`
}

// ReadReceipt records that a user has seen a message.
type ReadReceipt struct {
	UserID string    `bson:"userId" json:"userId"`
	ReadAt time.Time `bson:"readAt" json:"readAt"`
}

// ChatUser is the session-scoped view of a connected member.
type ChatUser struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	IsAdmin      bool   `json:"isAdmin"`
	Role         string `json:"role"`
	IsRestricted bool   `json:"isRestricted"`
}

// ChatRestriction is the persisted moderation record behind a mute.
type ChatRestriction struct {
	UserID       string     `bson:"userId" json:"userId"`
	RestrictedBy string     `bson:"restrictedBy" json:"restrictedBy"`
	Reason       string     `bson:"reason" json:"reason"`
	RestrictedAt time.Time  `bson:"restrictedAt" json:"restrictedAt"`
	ExpiresAt    *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// Active reports whether the restriction is in force at now.
func (r *ChatRestriction) Active(now time.Time) bool {
	return r.ExpiresAt == nil || now.Before(*r.ExpiresAt)
}
