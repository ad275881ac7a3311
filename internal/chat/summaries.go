package chat

import (
	"sort"
	"time"
)

// Summary is a single row of the chat list: the chat plus its latest message
// preview. For direct chats Name and Photo mirror the other participant's
// current profile, not the values stored at creation time.
type Summary struct {
	ChatID        int64      `json:"chatId"`
	Name          string     `json:"name"`
	Photo         string     `json:"photo"`
	IsGroup       bool       `json:"isGroup"`
	LastMessage   *string    `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageDate"`
	CreatedAt     time.Time  `json:"-"`
}

// SortSummaries orders the chat list: chats with messages first, most recent
// message first; chats without any messages after them, oldest chat first.
func SortSummaries(chats []Summary) {
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i], chats[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			return a.LastMessageAt.After(*b.LastMessageAt)
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}
