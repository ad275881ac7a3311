package storage

import (
	"context"
	"errors"

	"talkify-backend/internal/chat"

	"github.com/jackc/pgx/v4"
)

// ParticipantRole resolves the role of userID inside chatID. Absence of a
// participant row yields ErrNotParticipant regardless of whether the chat
// exists, so callers cannot probe for chat existence.
func (s *Store) ParticipantRole(ctx context.Context, chatID, userID int64) (chat.Role, error) {
	var role chat.Role
	err := s.db.QueryRow(ctx,
		`select role from chat_participants where chat_id = $1 and user_id = $2`,
		chatID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotParticipant
	}
	return role, err
}

// IsMember reports whether userID participates in chatID. Used by the
// realtime hub to validate room joins.
func (s *Store) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	_, err := s.ParticipantRole(ctx, chatID, userID)
	if errors.Is(err, ErrNotParticipant) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ParticipantIDs returns the user ids of every chat member.
func (s *Store) ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`select user_id from chat_participants where chat_id = $1`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddParticipants invites userIDs into the chat with the plain user role and
// records a system message naming them. Duplicate memberships are rejected.
func (s *Store) AddParticipants(ctx context.Context, chatID, actorID int64, userIDs []int64) ([]string, error) {
	s.logger.Debugf("Adding users %v to chat %d", userIDs, chatID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(context.Background())

	rows := make([]participantRow, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, participantRow{chatID: chatID, userID: userID, role: chat.RoleUser})
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"chat_participants"},
		[]string{"chat_id", "user_id", "role"}, copyFromParticipants(rows))
	if err != nil {
		return nil, mapParticipantError(err)
	}

	names, err := userNames(ctx, tx, userIDs)
	if err != nil {
		return nil, err
	}

	if err := insertSystemMessage(ctx, tx, chatID, actorID, chat.InviteNotice(names)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return names, nil
}

// RemoveParticipants removes the given members from the chat and records a
// system message naming them. Ids that are not members of the chat are
// ignored; if none of them are, ErrNotParticipant is returned.
func (s *Store) RemoveParticipants(ctx context.Context, chatID, actorID int64, userIDs []int64) ([]string, error) {
	s.logger.Debugf("Removing users %v from chat %d", userIDs, chatID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(context.Background())

	sql := `select u.id, u.name
			  from users u
			  join chat_participants cp on cp.user_id = u.id and cp.chat_id = $1
			 where u.id = any($2::bigint[])
			 order by u.name`

	rows, err := tx.Query(ctx, sql, chatID, userIDs)
	if err != nil {
		return nil, err
	}

	var removedIDs []int64
	var names []string
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, err
		}
		removedIDs = append(removedIDs, id)
		names = append(names, name)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if len(removedIDs) == 0 {
		return nil, ErrNotParticipant
	}

	_, err = tx.Exec(ctx,
		`delete from chat_participants where chat_id = $1 and user_id = any($2::bigint[])`,
		chatID, removedIDs)
	if err != nil {
		return nil, err
	}

	if err := insertSystemMessage(ctx, tx, chatID, actorID, chat.RemovalNotice(names)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return names, nil
}

// UpdateMemberRole changes a member's role inside a chat.
func (s *Store) UpdateMemberRole(ctx context.Context, chatID, userID int64, role chat.Role) error {
	tag, err := s.db.Exec(ctx,
		`update chat_participants set role = $3 where chat_id = $1 and user_id = $2`,
		chatID, userID, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotParticipant
	}
	return nil
}

// Leave removes the user's own participant row. No system message is
// recorded for voluntary leaves.
func (s *Store) Leave(ctx context.Context, chatID, userID int64) error {
	tag, err := s.db.Exec(ctx,
		`delete from chat_participants where chat_id = $1 and user_id = $2`,
		chatID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotParticipant
	}
	return nil
}

func userNames(ctx context.Context, tx pgx.Tx, userIDs []int64) ([]string, error) {
	rows, err := tx.Query(ctx,
		`select name from users where id = any($1::bigint[]) order by name`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
