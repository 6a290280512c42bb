package ws

import "github.com/andy2076/school-chat-system/internal/models"

// Server-to-client event envelopes.

// NewMessageEvent carries a freshly appended message to subscribers.
type NewMessageEvent struct {
	Type    string                 `json:"type"`
	Message models.MessageResponse `json:"message"`
}

func NewMessage(message models.MessageResponse) NewMessageEvent {
	return NewMessageEvent{Type: "new-message", Message: message}
}

// MessageSentEvent acknowledges the sender's own send with the
// authoritative id and timestamp.
type MessageSentEvent struct {
	Type    string                 `json:"type"`
	Message models.MessageResponse `json:"message"`
}

func MessageSent(message models.MessageResponse) MessageSentEvent {
	return MessageSentEvent{Type: "message-sent", Message: message}
}

// TypingEvent relays a typing indicator. Ephemeral: no persistence and
// no delivery guarantee.
type TypingEvent struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
	UserID uint   `json:"user_id"`
}

func UserTyping(roomID, userID uint) TypingEvent {
	return TypingEvent{Type: "user-typing", RoomID: roomID, UserID: userID}
}

func UserStopTyping(roomID, userID uint) TypingEvent {
	return TypingEvent{Type: "user-stop-typing", RoomID: roomID, UserID: userID}
}
