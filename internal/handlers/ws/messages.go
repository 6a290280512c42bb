package ws

import "log"

// MessageJoinRoom subscribes the connection to a room's fan-out group.
type MessageJoinRoom struct {
	RoomID uint `json:"room_id"`
}

func (msg *MessageJoinRoom) GetType() string {
	return "join-room"
}

func (msg *MessageJoinRoom) Process(ctx *MessageContext) error {
	member, err := ctx.RoomService.IsMember(msg.RoomID, ctx.UserID)
	if err != nil || !member {
		// Fails silently: the connection simply stays unsubscribed.
		log.Printf("join-room refused: conn %s user %d room %d (member=%v err=%v)",
			ctx.ConnID, ctx.UserID, msg.RoomID, member, err)
		return nil
	}
	ctx.Hub.Subscribe(ctx.ConnID, msg.RoomID)
	return nil
}

// MessageLeaveRoom unsubscribes the connection from a room.
type MessageLeaveRoom struct {
	RoomID uint `json:"room_id"`
}

func (msg *MessageLeaveRoom) GetType() string {
	return "leave-room"
}

func (msg *MessageLeaveRoom) Process(ctx *MessageContext) error {
	ctx.Hub.Unsubscribe(ctx.ConnID, msg.RoomID)
	return nil
}

// MessageChat appends a message through the socket; equivalent to the
// POST /api/messages path.
type MessageChat struct {
	RoomID  uint   `json:"room_id"`
	Content string `json:"content"`
}

func (msg *MessageChat) GetType() string {
	return "send-message"
}

func (msg *MessageChat) Process(ctx *MessageContext) error {
	message, err := ctx.MessageService.Append(msg.RoomID, ctx.UserID, msg.Content, "")
	if err != nil {
		return err
	}
	resp := message.ToResponse()

	// The message is durable at this point; everything below is
	// best-effort live delivery.
	ctx.Hub.BroadcastToRoom(msg.RoomID, ctx.UserID, NewMessage(resp))

	if memberIDs, err := ctx.RoomService.MemberIDs(msg.RoomID); err == nil {
		ctx.RoomCache.InvalidateForRoomMembers(msg.RoomID, memberIDs)
	}

	// Ack via the hub so the write serializes with concurrent
	// broadcasts targeting this connection.
	return ctx.Hub.SendTo(ctx.ConnID, MessageSent(resp))
}

// MessageTyping relays a typing indicator to the room.
type MessageTyping struct {
	RoomID uint `json:"room_id"`
}

func (msg *MessageTyping) GetType() string {
	return "typing"
}

func (msg *MessageTyping) Process(ctx *MessageContext) error {
	if !ctx.Hub.IsSubscribed(ctx.ConnID, msg.RoomID) {
		return nil
	}
	ctx.Hub.BroadcastToRoom(msg.RoomID, ctx.UserID, UserTyping(msg.RoomID, ctx.UserID))
	return nil
}

// MessageStopTyping clears a typing indicator.
type MessageStopTyping struct {
	RoomID uint `json:"room_id"`
}

func (msg *MessageStopTyping) GetType() string {
	return "stop-typing"
}

func (msg *MessageStopTyping) Process(ctx *MessageContext) error {
	if !ctx.Hub.IsSubscribed(ctx.ConnID, msg.RoomID) {
		return nil
	}
	ctx.Hub.BroadcastToRoom(msg.RoomID, ctx.UserID, UserStopTyping(msg.RoomID, ctx.UserID))
	return nil
}

// MessageRead marks a message read over the socket.
type MessageRead struct {
	MessageID uint `json:"message_id"`
}

func (msg *MessageRead) GetType() string {
	return "read"
}

func (msg *MessageRead) Process(ctx *MessageContext) error {
	return ctx.MessageService.MarkRead(msg.MessageID, ctx.UserID)
}
