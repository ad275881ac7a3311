package storage

import (
	"context"
	"errors"
	"strings"

	"talkify-backend/internal/chat"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

const chatColumns = `id, name, photo, description, is_group, is_deleted, created_at, updated_at`

func scanChat(row pgx.Row) (Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.Name, &c.Photo, &c.Description, &c.IsGroup, &c.IsDeleted,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateDirectChat creates a two-participant chat whose stored name and photo
// are snapshotted from the other user's profile. Both peers become admins so
// a direct chat is managed symmetrically.
func (s *Store) CreateDirectChat(ctx context.Context, creatorID, otherID int64) (int64, error) {
	s.logger.Debugf("Creating direct chat between users %d and %d", creatorID, otherID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	// error handling can be omitted for rollback according docs
	// see https://pkg.go.dev/github.com/jackc/pgx/v4?tab=doc#hdr-Transactions or any source comment on Rollback
	defer tx.Rollback(context.Background())

	var name string
	var avatar *string
	err = tx.QueryRow(ctx, `select name, avatar from users where id = $1`, otherID).
		Scan(&name, &avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotExist
		}
		return 0, err
	}

	photo := chat.DefaultChatPhoto
	if avatar != nil {
		photo = *avatar
	}

	var id int64
	err = tx.QueryRow(ctx,
		`insert into chats (name, photo) values ($1, $2) returning id`,
		name, photo).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`insert into chat_participants (chat_id, user_id, role) values ($1, $2, $3), ($1, $4, $3)`,
		id, creatorID, string(chat.RoleAdmin), otherID)
	if err != nil {
		return 0, mapParticipantError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return id, nil
}

// CreateGroupChat creates a named group chat. The creator becomes admin,
// every invited user gets the plain user role.
func (s *Store) CreateGroupChat(ctx context.Context, creatorID int64, name string, userIDs []int64) (int64, error) {
	s.logger.Debugf("Creating group chat (%s) with users (%v)", name, userIDs)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(context.Background())

	var id int64
	err = tx.QueryRow(ctx,
		`insert into chats (name, photo, is_group) values ($1, $2, true) returning id`,
		name, chat.DefaultChatPhoto).Scan(&id)
	if err != nil {
		return 0, err
	}

	rows := make([]participantRow, 0, len(userIDs)+1)
	rows = append(rows, participantRow{chatID: id, userID: creatorID, role: chat.RoleAdmin})
	for _, userID := range userIDs {
		rows = append(rows, participantRow{chatID: id, userID: userID, role: chat.RoleUser})
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"chat_participants"},
		[]string{"chat_id", "user_id", "role"}, copyFromParticipants(rows))
	if err != nil {
		return 0, mapParticipantError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.logger.Debugf("Created group chat (%s) with id %d", name, id)

	return id, nil
}

// ChatsByUserID returns the chat list for a user: every chat they participate
// in, with the latest message as preview, filtered by a case-insensitive
// substring match on the stored chat name. Direct chats are re-titled with
// the other participant's current name and avatar. Ordering follows
// chat.SortSummaries.
func (s *Store) ChatsByUserID(ctx context.Context, userID int64, search string) ([]chat.Summary, error) {
	s.logger.Debugf("Retrieving chats for user (id: %d)", userID)

	sql := `select c.id, c.name, c.photo, c.is_group, c.created_at, m.content, m.created_at
			  from chats c
			  join chat_participants cp on cp.chat_id = c.id and cp.user_id = $1
			  left join lateral (
					select content, created_at
					  from messages
					 where chat_id = c.id
					 order by created_at desc
					 limit 1
			  ) m on true
			 where lower(c.name) like $2`

	rows, err := s.db.Query(ctx, sql, userID, "%"+strings.ToLower(search)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []chat.Summary
	var directIDs []int64
	for rows.Next() {
		var c chat.Summary
		err = rows.Scan(&c.ChatID, &c.Name, &c.Photo, &c.IsGroup, &c.CreatedAt,
			&c.LastMessage, &c.LastMessageAt)
		if err != nil {
			return nil, err
		}
		if !c.IsGroup {
			directIDs = append(directIDs, c.ChatID)
		}
		summaries = append(summaries, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if len(directIDs) > 0 {
		if err := s.overrideDirectIdentity(ctx, userID, directIDs, summaries); err != nil {
			return nil, err
		}
	}

	chat.SortSummaries(summaries)

	s.logger.Debugf("Retrieved %d chats", len(summaries))

	return summaries, nil
}

// overrideDirectIdentity replaces name and photo of direct chats in summaries
// with the other participant's live profile.
func (s *Store) overrideDirectIdentity(ctx context.Context, userID int64, chatIDs []int64, summaries []chat.Summary) error {
	sql := `select cp.chat_id, u.name, u.avatar
			  from chat_participants cp
			  join users u on u.id = cp.user_id
			 where cp.user_id <> $1 and cp.chat_id = any($2::bigint[])`

	rows, err := s.db.Query(ctx, sql, userID, chatIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	type identity struct {
		name   string
		avatar *string
	}
	others := make(map[int64]identity, len(chatIDs))
	for rows.Next() {
		var chatID int64
		var id identity
		if err := rows.Scan(&chatID, &id.name, &id.avatar); err != nil {
			return err
		}
		others[chatID] = id
	}
	if rows.Err() != nil {
		return rows.Err()
	}

	for i := range summaries {
		other, ok := others[summaries[i].ChatID]
		if !ok {
			continue
		}
		summaries[i].Name = other.name
		if other.avatar != nil {
			summaries[i].Photo = *other.avatar
		}
	}

	return nil
}

// ChatInfo returns the chat row and its participant list ordered by name.
// For direct chats name, photo and description mirror the other
// participant's current profile.
func (s *Store) ChatInfo(ctx context.Context, chatID, userID int64) (Chat, []Participant, error) {
	c, err := scanChat(s.db.QueryRow(ctx,
		`select `+chatColumns+` from chats where id = $1`, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, nil, ErrChatNotExist
		}
		return Chat{}, nil, err
	}

	sql := `select cp.user_id, u.name, u.avatar, cp.role, cp.joined_at
			  from chat_participants cp
			  join users u on u.id = cp.user_id
			 where cp.chat_id = $1
			 order by u.name asc`

	rows, err := s.db.Query(ctx, sql, chatID)
	if err != nil {
		return Chat{}, nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.Name, &p.Avatar, &p.Role, &p.JoinedAt); err != nil {
			return Chat{}, nil, err
		}
		participants = append(participants, p)
	}
	if rows.Err() != nil {
		return Chat{}, nil, rows.Err()
	}

	if !c.IsGroup {
		for _, p := range participants {
			if p.UserID == userID {
				continue
			}
			c.Name = p.Name
			if p.Avatar != nil {
				c.Photo = *p.Avatar
			}
			break
		}
	}

	return c, participants, nil
}

// UpdateChat applies the non-nil fields of upd and returns the updated row.
func (s *Store) UpdateChat(ctx context.Context, chatID int64, upd ChatUpdate) (Chat, error) {
	sql := `update chats
			   set name = coalesce($2, name),
				   photo = coalesce($3, photo),
				   description = coalesce($4, description),
				   updated_at = now()
			 where id = $1
			 returning ` + chatColumns

	c, err := scanChat(s.db.QueryRow(ctx, sql, chatID, upd.Name, upd.Photo, upd.Description))
	if errors.Is(err, pgx.ErrNoRows) {
		return Chat{}, ErrChatNotExist
	}
	return c, err
}

// DeleteChat hard-deletes a chat; participants and messages go with it via
// cascade. It returns the media reference ids of all chat messages so the
// caller can clean up the external store.
func (s *Store) DeleteChat(ctx context.Context, chatID int64) ([]string, error) {
	s.logger.Debugf("Deleting chat (id: %d)", chatID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(context.Background())

	mediaIDs, err := collectChatMedia(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `delete from chats where id = $1`, chatID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrChatNotExist
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return mediaIDs, nil
}

func collectChatMedia(ctx context.Context, tx pgx.Tx, chatID int64) ([]string, error) {
	rows, err := tx.Query(ctx,
		`select files from messages where chat_id = $1 and files is not null`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mediaIDs []string
	for rows.Next() {
		var files pgtype.TextArray
		if err := rows.Scan(&files); err != nil {
			return nil, err
		}
		var ids []string
		if err := files.AssignTo(&ids); err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, ids...)
	}
	return mediaIDs, rows.Err()
}

func mapParticipantError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return ErrBadUsers
		case pgerrcode.UniqueViolation:
			return ErrAlreadyParticipant
		}
	}
	return err
}
