package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSortSummaries(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	at := func(offset int) *time.Time {
		ts := base.Add(time.Duration(offset) * time.Minute)
		return &ts
	}

	chats := []Summary{
		{ChatID: 1, LastMessageAt: at(5)},
		{ChatID: 2, LastMessageAt: at(10)},
		{ChatID: 3, CreatedAt: base},
	}

	SortSummaries(chats)

	ids := []int64{chats[0].ChatID, chats[1].ChatID, chats[2].ChatID}
	require.Equal(t, []int64{2, 1, 3}, ids)
}

func TestSortSummariesNoMessagesByCreation(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := base.Add(time.Hour)
	withMessage := base.Add(2 * time.Hour)

	chats := []Summary{
		{ChatID: 1, CreatedAt: newer},
		{ChatID: 2, CreatedAt: base},
		{ChatID: 3, CreatedAt: base, LastMessageAt: &withMessage},
	}

	SortSummaries(chats)

	require.Equal(t, int64(3), chats[0].ChatID)
	// chats without messages keep creation order, oldest first
	require.Equal(t, int64(2), chats[1].ChatID)
	require.Equal(t, int64(1), chats[2].ChatID)
}
