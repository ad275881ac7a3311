package realtime

import "encoding/json"

// Event names carried on the realtime channel. join-chats and leave-chats are
// client-to-server control frames whose data is an array of room ids.
// chat-message and delete-chat are pushed by the server after a committed
// write. is-typing and stopped-typing are relayed between room members.
const (
	EventJoinChats     = "join-chats"
	EventLeaveChats    = "leave-chats"
	EventChatMessage   = "chat-message"
	EventIsTyping      = "is-typing"
	EventStoppedTyping = "stopped-typing"
	EventDeleteChat    = "delete-chat"
)

// Frame is a single named event on the wire. Room keys the broadcast group
// (room id = chat id); Data is an opaque payload relayed without inspection.
type Frame struct {
	Event string          `json:"event"`
	Room  int64           `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}
