package storage

import "errors"

var (
	ErrUserExists         = errors.New("user with this email already exists")
	ErrUserNotExist       = errors.New("user does not exist")
	ErrChatNotExist       = errors.New("chat does not exist")
	ErrBadUsers           = errors.New("bad users list")
	ErrNotParticipant     = errors.New("user is not a participant of this chat")
	ErrAlreadyParticipant = errors.New("user is already a participant of this chat")
	ErrMessageNotExist    = errors.New("message does not exist")
	ErrBadParent          = errors.New("parent message does not belong to this chat")
)
