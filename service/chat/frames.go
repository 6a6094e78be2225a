package chat

import "time"

// Frame types, matching spec §6's wire protocol exactly.
const (
	TypeMessageSend      = "message.send"
	TypeMessageGroupSend = "message.group.send"
	TypeMessageRead      = "message.read"
	TypeTyping           = "typing"
	TypePing             = "ping"

	TypeMessageNew      = "message.new"
	TypeMessageGroupNew = "message.group.new"
	TypeMessagesOffline = "messages.offline"
	TypeMessageAck      = "message.ack"
	TypePong            = "pong"
	TypeError           = "error"
)

// AckStatus is the outcome reported on a message.ack frame.
type AckStatus string

const (
	AckDelivered AckStatus = "delivered"
	AckQueued    AckStatus = "queued"
	AckError     AckStatus = "error"
)

// InboundFrame is the envelope every client→server frame is first
// unmarshaled into; Type selects which typed payload to decode next.
type InboundFrame struct {
	Type string `json:"type"`
}

type SendMessageIn struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

type GroupSendMessageIn struct {
	GroupID     string `json:"group_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

type ReadReceiptIn struct {
	MessageID string `json:"message_id"`
}

type TypingIn struct {
	RecipientID string `json:"recipient_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

// Outbound frame payloads. Each embeds its own "type" field so the
// writer can json.Marshal it directly.

type MessageNewOut struct {
	Type            string    `json:"type"`
	MessageID       string    `json:"message_id"`
	SenderID        string    `json:"sender_id"`
	SenderUsername  string    `json:"sender_username"`
	RecipientID     string    `json:"recipient_id"`
	Content         string    `json:"content"`
	MessageTypeName string    `json:"message_type"`
	CreatedAt       time.Time `json:"created_at"`
}

type MessageGroupNewOut struct {
	Type            string    `json:"type"`
	MessageID       string    `json:"message_id"`
	GroupID         string    `json:"group_id"`
	SenderID        string    `json:"sender_id"`
	Content         string    `json:"content"`
	MessageTypeName string    `json:"message_type"`
	CreatedAt       time.Time `json:"created_at"`
}

type MessageAckOut struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	Status    AckStatus `json:"status"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageReadOut struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	GroupID   string    `json:"group_id,omitempty"`
	ReaderID  string    `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

type TypingOut struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	RecipientID string `json:"recipient_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

type PongOut struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorOut struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OfflineMessage struct {
	Kind    string `json:"kind"`
	Message any    `json:"message"`
}

type MessagesOfflineOut struct {
	Type     string           `json:"type"`
	Messages []OfflineMessage `json:"messages"`
	Count    int              `json:"count"`
}
