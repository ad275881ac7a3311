package storage

import (
	"github.com/jackc/pgx/v4"

	"talkify-backend/internal/chat"
)

type participantRow struct {
	chatID int64
	userID int64
	role   chat.Role
}

type participantBulk struct {
	rows []participantRow
	idx  int
}

func (r participantRow) toInterface() []interface{} {
	return []interface{}{r.chatID, r.userID, string(r.role)}
}

func copyFromParticipants(rows []participantRow) pgx.CopyFromSource {
	return &participantBulk{
		rows: rows,
		idx:  -1,
	}
}

func (b *participantBulk) Next() bool {
	b.idx++
	return b.idx < len(b.rows)
}

func (b *participantBulk) Values() ([]interface{}, error) {
	return b.rows[b.idx].toInterface(), nil
}

func (b *participantBulk) Err() error {
	return nil
}
