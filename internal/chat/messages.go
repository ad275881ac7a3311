package chat

import (
	"strings"
	"time"
)

// MessageType enumerates the kinds of user messages a chat accepts.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeVideo MessageType = "video"
	TypeAudio MessageType = "audio"
	TypeFile  MessageType = "file"
)

// Valid reports whether t is one of the five supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile:
		return true
	}
	return false
}

// DefaultChatPhoto is used for group chats and for direct chats whose peer
// has no avatar.
const DefaultChatPhoto = "https://placehold.co/600x600?text=Chat"

// pinQuoteLimit bounds how much of a pinned message is quoted in the
// synthesized system message.
const pinQuoteLimit = 20

// InviteNotice builds the system message announcing newly invited members.
func InviteNotice(names []string) string {
	return strings.Join(names, ", ") + " welcome to the chat!"
}

// RemovalNotice builds the system message recording removed members.
// Exactly one name takes singular "was", otherwise "were".
func RemovalNotice(names []string) string {
	verb := "were"
	if len(names) == 1 {
		verb = "was"
	}
	return strings.Join(names, ", ") + " " + verb + " removed from the chat."
}

// PinNotice quotes the pinned content, truncated to pinQuoteLimit runes with
// an ellipsis when longer.
func PinNotice(content string) string {
	quoted := content
	if runes := []rune(content); len(runes) > pinQuoteLimit {
		quoted = string(runes[:pinQuoteLimit]) + "…"
	}
	return `Pinned: "` + quoted + `"`
}

// Slugify derives a user slug from a display name.
func Slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// ReplyRef is the condensed parent snapshot attached to replies at read time.
type ReplyRef struct {
	ID      int64   `json:"id"`
	Content *string `json:"content"`
	Sender  string  `json:"sender"`
}

// FeedMessage is a chat message decorated for feed delivery.
type FeedMessage struct {
	ID           int64       `json:"id"`
	ChatID       int64       `json:"chatId"`
	SenderID     int64       `json:"senderId"`
	SenderName   string      `json:"senderName"`
	SenderAvatar *string     `json:"senderAvatar,omitempty"`
	Content      *string     `json:"content"`
	Type         MessageType `json:"messageType"`
	Files        []string    `json:"files,omitempty"`
	ParentID     *int64      `json:"parentId,omitempty"`
	Parent       *ReplyRef   `json:"parentMessage,omitempty"`
	IsSystem     bool        `json:"isSystem"`
	IsPinned     bool        `json:"isPinned"`
	PinnedAt     *time.Time  `json:"pinnedAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ResolveReplies attaches the parent snapshot to every reply whose parent is
// present in msgs. Parents outside the fetched page are left undecorated.
func ResolveReplies(msgs []FeedMessage) {
	byID := make(map[int64]int, len(msgs))
	for i, m := range msgs {
		byID[m.ID] = i
	}

	for i := range msgs {
		if msgs[i].ParentID == nil {
			continue
		}
		j, ok := byID[*msgs[i].ParentID]
		if !ok {
			continue
		}
		msgs[i].Parent = &ReplyRef{
			ID:      msgs[j].ID,
			Content: msgs[j].Content,
			Sender:  msgs[j].SenderName,
		}
	}
}
