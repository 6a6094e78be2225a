// Package model holds the entities defined in the data model: users,
// direct and group messages, group membership, and refresh tokens.
// Field shapes are grounded on the teacher's document-style entities
// (module/message, module/user in the original) but flattened for a
// relational store, since the FK and ordering invariants below need
// one.
package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// MessageType is the payload discriminator on a stored message row,
// distinct from the wire frame's "type" field (spec §6). The socket
// handlers store the frame's message_type as given and fall back to
// MessageTypeText when it is empty; no other values are checked.
type MessageType string

const MessageTypeText MessageType = "text"

type DirectMessage struct {
	ID          string      `json:"message_id"`
	SenderID    string      `json:"sender_id"`
	RecipientID string      `json:"recipient_id"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
}

type GroupMemberRole string

const (
	GroupMemberRoleMember GroupMemberRole = "member"
	GroupMemberRoleAdmin  GroupMemberRole = "admin"
)

type Group struct {
	ID        string    `json:"group_id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

type GroupMember struct {
	GroupID  string          `json:"group_id"`
	UserID   string          `json:"user_id"`
	Role     GroupMemberRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

type GroupMessage struct {
	ID        string      `json:"message_id"`
	GroupID   string      `json:"group_id"`
	SenderID  string      `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

type GroupMessageRead struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// RefreshToken is stored by its SHA-256 hash only — the raw opaque
// value is returned to the client once and never persisted.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
}
