package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/andy2076/school-chat-system/internal/cache"
	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/service"
)

// MessageContext provides all dependencies needed for message
// processing. Writes back to the client go through the Hub so they
// serialize with broadcasts from other goroutines.
type MessageContext struct {
	ConnID         string
	UserID         uint
	Role           models.Role
	Hub            *Hub
	MessageService *service.MessageService
	RoomService    *service.RoomService
	RoomCache      *cache.RoomCache
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when message processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}
