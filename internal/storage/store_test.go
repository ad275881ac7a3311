package storage

import (
	"context"
	"strings"
	"testing"

	"talkify-backend/internal/chat"
	tt "talkify-backend/internal/testing"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func bootstrap(t *testing.T) *Store {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, env.Parse(&cfg))

	s, err := New(context.Background(), logger.Sugar(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(s.Close)

	return s
}

func createUser(t *testing.T, s *Store) (int64, string) {
	t.Helper()

	name := tt.RandString()
	id, err := s.CreateUser(context.Background(), NewUser{
		Name:         name,
		Slug:         chat.Slugify(name),
		Email:        tt.RandEmail(),
		PasswordHash: "x",
	})
	require.NoError(t, err)

	return id, name
}

func text(s string) *string { return &s }

func TestCreateUserExists(t *testing.T) {
	s := bootstrap(t)

	email := tt.RandEmail()
	user := NewUser{Name: tt.RandString(), Slug: tt.RandString(), Email: email, PasswordHash: "x"}
	_, err := s.CreateUser(context.Background(), user)
	require.NoError(t, err)

	user.Slug = tt.RandString()
	_, err = s.CreateUser(context.Background(), user)
	require.Equal(t, ErrUserExists, err)
}

func TestCreateDirectChatParticipants(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	other, otherName := createUser(t, s)

	chatID, err := s.CreateDirectChat(context.Background(), creator, other)
	require.NoError(t, err)

	c, participants, err := s.ChatInfo(context.Background(), chatID, creator)
	require.NoError(t, err)
	require.False(t, c.IsGroup)
	require.Equal(t, otherName, c.Name)
	require.Len(t, participants, 2)
	for _, p := range participants {
		require.Equal(t, chat.RoleAdmin, p.Role)
	}
}

func TestCreateDirectChatUserNotExist(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	_, err := s.CreateDirectChat(context.Background(), creator, -1)
	require.Equal(t, ErrUserNotExist, err)
}

func TestCreateGroupChatParticipants(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	first, _ := createUser(t, s)
	second, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{first, second})
	require.NoError(t, err)

	c, participants, err := s.ChatInfo(context.Background(), chatID, creator)
	require.NoError(t, err)
	require.True(t, c.IsGroup)
	require.Len(t, participants, 3)

	roles := make(map[int64]chat.Role, 3)
	for _, p := range participants {
		roles[p.UserID] = p.Role
	}
	require.Equal(t, chat.RoleAdmin, roles[creator])
	require.Equal(t, chat.RoleUser, roles[first])
	require.Equal(t, chat.RoleUser, roles[second])
}

func TestCreateGroupChatCreatorOnly(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), nil)
	require.NoError(t, err)

	c, participants, err := s.ChatInfo(context.Background(), chatID, creator)
	require.NoError(t, err)
	require.True(t, c.IsGroup)
	require.Len(t, participants, 1)
	require.Equal(t, creator, participants[0].UserID)
	require.Equal(t, chat.RoleAdmin, participants[0].Role)
}

func TestSearchUsersFiltersGivenIDs(t *testing.T) {
	s := bootstrap(t)

	marker := strings.ToLower(tt.RandString())
	newNamedUser := func(suffix string) int64 {
		id, err := s.CreateUser(context.Background(), NewUser{
			Name:         marker + suffix,
			Slug:         tt.RandString(),
			Email:        tt.RandEmail(),
			PasswordHash: "x",
		})
		require.NoError(t, err)
		return id
	}

	searcher := newNamedUser("-searcher")
	member := newNamedUser("-member")
	outsider := newNamedUser("-outsider")

	chatID, err := s.CreateGroupChat(context.Background(), searcher, tt.RandString(), []int64{member})
	require.NoError(t, err)

	memberIDs, err := s.ParticipantIDs(context.Background(), chatID)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{searcher, member}, memberIDs)

	refs, err := s.SearchUsers(context.Background(), marker, searcher, memberIDs)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, outsider, refs[0].ID)
}

func TestAddParticipantDuplicate(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	_, err = s.AddParticipants(context.Background(), chatID, creator, []int64{member})
	require.Equal(t, ErrAlreadyParticipant, err)
}

func TestRemoveParticipantsSystemMessageWording(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	first, _ := createUser(t, s)
	second, _ := createUser(t, s)
	third, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(),
		[]int64{first, second, third})
	require.NoError(t, err)

	lastSystem := func() string {
		feed, _, err := s.Feed(context.Background(), chatID)
		require.NoError(t, err)
		for i := len(feed) - 1; i >= 0; i-- {
			if feed[i].IsSystem {
				require.NotNil(t, feed[i].Content)
				return *feed[i].Content
			}
		}
		t.Fatal("no system message in feed")
		return ""
	}

	_, err = s.RemoveParticipants(context.Background(), chatID, creator, []int64{first})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(lastSystem(), "was removed from the chat."))

	_, err = s.RemoveParticipants(context.Background(), chatID, creator, []int64{second, third})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(lastSystem(), "were removed from the chat."))
}

func TestRemoveParticipantsNoneMember(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	outsider, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	_, err = s.RemoveParticipants(context.Background(), chatID, creator, []int64{outsider})
	require.Equal(t, ErrNotParticipant, err)
}

func TestMessageRoundTrip(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	first, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("hello"), Type: chat.TypeText,
	})
	require.NoError(t, err)

	second, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: member, Content: text("world"), Type: chat.TypeText,
	})
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)
	require.False(t, second.CreatedAt.Before(first.CreatedAt))

	feed, pinned, err := s.Feed(context.Background(), chatID)
	require.NoError(t, err)
	require.Nil(t, pinned)
	require.Len(t, feed, 2)
	require.Equal(t, "hello", *feed[0].Content)
	require.Equal(t, chat.TypeText, feed[0].Type)
	require.Equal(t, creator, feed[0].SenderID)
	require.Equal(t, "world", *feed[1].Content)
}

func TestReplyParentMustShareChat(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)
	otherChatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	parent, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: otherChatID, SenderID: creator, Content: text("elsewhere"), Type: chat.TypeText,
	})
	require.NoError(t, err)

	_, err = s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("reply"), Type: chat.TypeText,
		ParentID: &parent.ID,
	})
	require.Equal(t, ErrBadParent, err)
}

func TestReplyDecoration(t *testing.T) {
	s := bootstrap(t)

	creator, creatorName := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	parent, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("original"), Type: chat.TypeText,
	})
	require.NoError(t, err)

	_, err = s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: member, Content: text("quoting you"), Type: chat.TypeText,
		ParentID: &parent.ID,
	})
	require.NoError(t, err)

	feed, _, err := s.Feed(context.Background(), chatID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.NotNil(t, feed[1].Parent)
	require.Equal(t, parent.ID, feed[1].Parent.ID)
	require.Equal(t, "original", *feed[1].Parent.Content)
	require.Equal(t, creatorName, feed[1].Parent.Sender)
}

func TestTogglePinSurfacesLatest(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	m, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("first pin target"), Type: chat.TypeText,
	})
	require.NoError(t, err)
	n, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("second pin target"), Type: chat.TypeText,
	})
	require.NoError(t, err)

	pinned, err := s.TogglePin(context.Background(), chatID, creator, m.ID)
	require.NoError(t, err)
	require.True(t, pinned)

	pinned, err = s.TogglePin(context.Background(), chatID, creator, n.ID)
	require.NoError(t, err)
	require.True(t, pinned)

	// latest pin wins in the feed, the earlier one stays pinned in storage
	_, surfaced, err := s.Feed(context.Background(), chatID)
	require.NoError(t, err)
	require.NotNil(t, surfaced)
	require.Equal(t, n.ID, surfaced.ID)

	stored, err := s.MessageByID(context.Background(), chatID, m.ID)
	require.NoError(t, err)
	require.True(t, stored.IsPinned)
}

func TestTogglePinUnpinIsSilent(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	m, err := s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("pin me"), Type: chat.TypeText,
	})
	require.NoError(t, err)

	countSystem := func() int {
		feed, _, err := s.Feed(context.Background(), chatID)
		require.NoError(t, err)
		n := 0
		for _, msg := range feed {
			if msg.IsSystem {
				n++
			}
		}
		return n
	}

	pinned, err := s.TogglePin(context.Background(), chatID, creator, m.ID)
	require.NoError(t, err)
	require.True(t, pinned)
	require.Equal(t, 1, countSystem())

	pinned, err = s.TogglePin(context.Background(), chatID, creator, m.ID)
	require.NoError(t, err)
	require.False(t, pinned)
	require.Equal(t, 1, countSystem())
}

func TestListChatsOrdering(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	a, err := s.CreateGroupChat(context.Background(), creator, "ordering-"+tt.RandString(), []int64{member})
	require.NoError(t, err)
	b, err := s.CreateGroupChat(context.Background(), creator, "ordering-"+tt.RandString(), []int64{member})
	require.NoError(t, err)
	c, err := s.CreateGroupChat(context.Background(), creator, "ordering-"+tt.RandString(), []int64{member})
	require.NoError(t, err)

	_, err = s.CreateMessage(context.Background(), NewMessage{
		ChatID: a, SenderID: creator, Content: text("older"), Type: chat.TypeText,
	})
	require.NoError(t, err)
	_, err = s.CreateMessage(context.Background(), NewMessage{
		ChatID: b, SenderID: creator, Content: text("newer"), Type: chat.TypeText,
	})
	require.NoError(t, err)

	summaries, err := s.ChatsByUserID(context.Background(), creator, "ordering-")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, b, summaries[0].ChatID)
	require.Equal(t, a, summaries[1].ChatID)
	require.Equal(t, c, summaries[2].ChatID)
}

func TestDeleteChatCascade(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	_, err = s.CreateMessage(context.Background(), NewMessage{
		ChatID: chatID, SenderID: creator, Content: text("doomed"), Type: chat.TypeText,
		Files: []string{"file-1", "file-2"},
	})
	require.NoError(t, err)

	mediaIDs, err := s.DeleteChat(context.Background(), chatID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"file-1", "file-2"}, mediaIDs)

	_, err = s.ParticipantRole(context.Background(), chatID, creator)
	require.Equal(t, ErrNotParticipant, err)

	feed, _, err := s.Feed(context.Background(), chatID)
	require.NoError(t, err)
	require.Empty(t, feed)
}

func TestLeaveNotParticipant(t *testing.T) {
	s := bootstrap(t)

	creator, _ := createUser(t, s)
	outsider, _ := createUser(t, s)
	member, _ := createUser(t, s)

	chatID, err := s.CreateGroupChat(context.Background(), creator, tt.RandString(), []int64{member})
	require.NoError(t, err)

	require.Equal(t, ErrNotParticipant, s.Leave(context.Background(), chatID, outsider))
	require.NoError(t, s.Leave(context.Background(), chatID, member))
}

func TestSetPremiumByCustomer(t *testing.T) {
	s := bootstrap(t)

	customer := "cus_" + tt.RandString()
	name := tt.RandString()
	id, err := s.CreateUser(context.Background(), NewUser{
		Name:              name,
		Slug:              chat.Slugify(name),
		Email:             tt.RandEmail(),
		PasswordHash:      "x",
		BillingCustomerID: &customer,
	})
	require.NoError(t, err)

	require.NoError(t, s.SetPremiumByCustomer(context.Background(), customer, true))

	u, err := s.UserByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, u.IsPremium)

	require.Equal(t, ErrUserNotExist,
		s.SetPremiumByCustomer(context.Background(), "cus_missing_"+tt.RandString(), true))
}
