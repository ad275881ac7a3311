package storage

import (
	"context"
	"errors"

	"talkify-backend/internal/chat"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

const messageColumns = `id, chat_id, sender_id, content, message_type, files,
		parent_id, is_system, is_pinned, pinned_at, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	var files pgtype.TextArray
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Type, &files,
		&m.ParentID, &m.IsSystem, &m.IsPinned, &m.PinnedAt, &m.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	if files.Status == pgtype.Present {
		if err := files.AssignTo(&m.Files); err != nil {
			return Message{}, err
		}
	}
	return m, nil
}

// CreateMessage appends a message and returns the stored row. A parent
// reference must point at a message of the same chat.
func (s *Store) CreateMessage(ctx context.Context, msg NewMessage) (Message, error) {
	s.logger.Debugf("Creating message from user (id: %d) in chat (id: %d)", msg.SenderID, msg.ChatID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback(context.Background())

	if msg.ParentID != nil {
		var one int8
		err = tx.QueryRow(ctx,
			`select 1 from messages where id = $1 and chat_id = $2`,
			*msg.ParentID, msg.ChatID).Scan(&one)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Message{}, ErrBadParent
			}
			return Message{}, err
		}
	}

	sql := `insert into messages (chat_id, sender_id, content, message_type, files, parent_id)
			values ($1, $2, $3, $4, $5, $6)
			returning ` + messageColumns

	stored, err := scanMessage(tx.QueryRow(ctx, sql, msg.ChatID, msg.SenderID, msg.Content,
		string(msg.Type), msg.Files, msg.ParentID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			switch pgErr.ConstraintName {
			case "messages_chat_id_fkey":
				return Message{}, ErrChatNotExist
			case "messages_sender_id_fkey":
				return Message{}, ErrUserNotExist
			}
		}
		return Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, err
	}

	return stored, nil
}

// MessageByID returns a single message row scoped to a chat.
func (s *Store) MessageByID(ctx context.Context, chatID, messageID int64) (Message, error) {
	sql := `select ` + messageColumns + ` from messages where id = $1 and chat_id = $2`
	m, err := scanMessage(s.db.QueryRow(ctx, sql, messageID, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrMessageNotExist
	}
	return m, err
}

// Feed returns all chat messages sorted by creation time ascending, replies
// decorated with their parent snapshot, plus the single surfaced pinned
// message (the one pinned most recently; older pins stay pinned in storage
// but are not surfaced).
func (s *Store) Feed(ctx context.Context, chatID int64) ([]chat.FeedMessage, *chat.FeedMessage, error) {
	s.logger.Debugf("Retrieving messages for chat (id: %d)", chatID)

	sql := `select m.id, m.chat_id, m.sender_id, u.name, u.avatar, m.content, m.message_type,
				   m.files, m.parent_id, m.is_system, m.is_pinned, m.pinned_at, m.created_at
			  from messages m
			  join users u on u.id = m.sender_id
			 where m.chat_id = $1
			 order by m.created_at asc`

	rows, err := s.db.Query(ctx, sql, chatID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var feed []chat.FeedMessage
	for rows.Next() {
		m, err := scanFeedMessage(rows)
		if err != nil {
			return nil, nil, err
		}
		feed = append(feed, m)
	}
	if rows.Err() != nil {
		return nil, nil, rows.Err()
	}

	chat.ResolveReplies(feed)

	pinned, err := s.pinnedMessage(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debugf("Retrieved %d messages", len(feed))

	return feed, pinned, nil
}

func (s *Store) pinnedMessage(ctx context.Context, chatID int64) (*chat.FeedMessage, error) {
	sql := `select m.id, m.chat_id, m.sender_id, u.name, u.avatar, m.content, m.message_type,
				   m.files, m.parent_id, m.is_system, m.is_pinned, m.pinned_at, m.created_at
			  from messages m
			  join users u on u.id = m.sender_id
			 where m.chat_id = $1 and m.is_pinned
			 order by m.pinned_at desc
			 limit 1`

	rows, err := s.db.Query(ctx, sql, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	m, err := scanFeedMessage(rows)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanFeedMessage(rows pgx.Rows) (chat.FeedMessage, error) {
	var m chat.FeedMessage
	var files pgtype.TextArray
	err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.SenderAvatar,
		&m.Content, &m.Type, &files, &m.ParentID, &m.IsSystem, &m.IsPinned, &m.PinnedAt,
		&m.CreatedAt)
	if err != nil {
		return chat.FeedMessage{}, err
	}
	if files.Status == pgtype.Present {
		if err := files.AssignTo(&m.Files); err != nil {
			return chat.FeedMessage{}, err
		}
	}
	return m, nil
}

// TogglePin flips the pin state of a message and reports the new state.
// The pin transition records a system message quoting the pinned content;
// unpinning is silent.
func (s *Store) TogglePin(ctx context.Context, chatID, actorID, messageID int64) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(context.Background())

	var pinned bool
	var content *string
	err = tx.QueryRow(ctx,
		`select is_pinned, content from messages where id = $1 and chat_id = $2`,
		messageID, chatID).Scan(&pinned, &content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrMessageNotExist
		}
		return false, err
	}

	if pinned {
		_, err = tx.Exec(ctx,
			`update messages set is_pinned = false, pinned_at = null where id = $1`, messageID)
		if err != nil {
			return false, err
		}
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`update messages set is_pinned = true, pinned_at = now() where id = $1`, messageID)
	if err != nil {
		return false, err
	}

	quoted := ""
	if content != nil {
		quoted = *content
	}
	if err := insertSystemMessage(ctx, tx, chatID, actorID, chat.PinNotice(quoted)); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// DeleteMessage removes a single message and returns its media reference ids
// for external cleanup.
func (s *Store) DeleteMessage(ctx context.Context, chatID, messageID int64) ([]string, error) {
	var files pgtype.TextArray
	err := s.db.QueryRow(ctx,
		`delete from messages where id = $1 and chat_id = $2 returning files`,
		messageID, chatID).Scan(&files)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotExist
		}
		return nil, err
	}

	var mediaIDs []string
	if files.Status == pgtype.Present {
		if err := files.AssignTo(&mediaIDs); err != nil {
			return nil, err
		}
	}
	return mediaIDs, nil
}

// DeleteHistory removes every message of a chat and returns the media
// reference ids of the removed rows.
func (s *Store) DeleteHistory(ctx context.Context, chatID int64) ([]string, error) {
	s.logger.Debugf("Clearing message history of chat (id: %d)", chatID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(context.Background())

	mediaIDs, err := collectChatMedia(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `delete from messages where chat_id = $1`, chatID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return mediaIDs, nil
}

// insertSystemMessage records a synthesized, non-user-authored message
// attributed to the acting user.
func insertSystemMessage(ctx context.Context, tx pgx.Tx, chatID, actorID int64, content string) error {
	_, err := tx.Exec(ctx,
		`insert into messages (chat_id, sender_id, content, message_type, is_system)
		 values ($1, $2, $3, $4, true)`,
		chatID, actorID, content, string(chat.TypeText))
	return err
}
