package storage

import (
	"time"

	"talkify-backend/internal/chat"
)

type User struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Avatar            *string   `json:"avatar"`
	Bio               *string   `json:"bio"`
	Phone             *string   `json:"phone"`
	SocialLinks       []string  `json:"socialLinks,omitempty"`
	IsPremium         bool      `json:"isPremium"`
	BillingCustomerID *string   `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserRef is the short user shape returned by search endpoints.
type UserRef struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

type Chat struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Photo       string    `json:"photo"`
	Description *string   `json:"description"`
	IsGroup     bool      `json:"isGroup"`
	IsDeleted   bool      `json:"isDeleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Participant is a membership edge decorated with the member's profile.
type Participant struct {
	UserID   int64     `json:"userId"`
	Name     string    `json:"name"`
	Avatar   *string   `json:"avatar"`
	Role     chat.Role `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is the raw message row.
type Message struct {
	ID        int64            `json:"id"`
	ChatID    int64            `json:"chatId"`
	SenderID  int64            `json:"senderId"`
	Content   *string          `json:"content"`
	Type      chat.MessageType `json:"messageType"`
	Files     []string         `json:"files,omitempty"`
	ParentID  *int64           `json:"parentId,omitempty"`
	IsSystem  bool             `json:"isSystem"`
	IsPinned  bool             `json:"isPinned"`
	PinnedAt  *time.Time       `json:"pinnedAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewMessage carries the fields of a message to append.
type NewMessage struct {
	ChatID   int64
	SenderID int64
	Content  *string
	Type     chat.MessageType
	Files    []string
	ParentID *int64
}

// ChatUpdate carries optional chat metadata changes; nil fields keep the
// stored value.
type ChatUpdate struct {
	Name        *string
	Photo       *string
	Description *string
}

// ProfileUpdate carries optional profile changes; nil fields keep the stored
// value. A name change re-derives the slug.
type ProfileUpdate struct {
	Name        *string
	Avatar      *string
	Bio         *string
	Phone       *string
	SocialLinks []string
}
