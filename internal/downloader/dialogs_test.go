package downloader

import (
	"errors"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogFromChannelMegagroupIsGroup(t *testing.T) {
	// A megagroup carries both group and channel semantics; group wins.
	dlg := dialogFromChannel(&tg.Channel{ID: 42, AccessHash: 7, Title: "Gophers", Megagroup: true})

	assert.Equal(t, KindGroup, dlg.Kind)
	assert.Equal(t, -(channelZeroID + 42), dlg.ID)
	assert.Equal(t, "Gophers", dlg.Name)
}

func TestDialogFromChannelBroadcast(t *testing.T) {
	dlg := dialogFromChannel(&tg.Channel{ID: 42, AccessHash: 7, Title: "News", Broadcast: true})

	assert.Equal(t, KindChannel, dlg.Kind)
}

func TestDialogFromChat(t *testing.T) {
	dlg := dialogFromChat(&tg.Chat{ID: 9, Title: "Friends"})

	assert.Equal(t, KindGroup, dlg.Kind)
	assert.Equal(t, int64(-9), dlg.ID)
	assert.Equal(t, &tg.InputPeerChat{ChatID: 9}, dlg.Peer)
}

func TestDialogFromUser(t *testing.T) {
	dlg := dialogFromUser(&tg.User{ID: 5, AccessHash: 3, FirstName: "Jane", LastName: "Doe"})

	assert.Equal(t, KindPrivate, dlg.Kind)
	assert.Equal(t, int64(5), dlg.ID)
	assert.Equal(t, "Jane Doe", dlg.Name)
}

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *tg.User
		want string
	}{
		{"first and last", &tg.User{FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{"first only", &tg.User{FirstName: "Jane"}, "Jane"},
		{"username fallback", &tg.User{Username: "jdoe"}, "jdoe"},
		{"deleted account", &tg.User{}, "Deleted Account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userDisplayName(tt.user))
		})
	}
}

func TestBuildDialogs(t *testing.T) {
	dialogs := []tg.DialogClass{
		&tg.Dialog{Peer: &tg.PeerUser{UserID: 5}},
		&tg.Dialog{Peer: &tg.PeerChat{ChatID: 9}},
		&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 42}},
		&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 404}}, // missing from chats, dropped
	}
	chats := []tg.ChatClass{
		&tg.Chat{ID: 9, Title: "Friends"},
		&tg.Channel{ID: 42, AccessHash: 7, Title: "News", Broadcast: true},
	}
	users := []tg.UserClass{
		&tg.User{ID: 5, AccessHash: 3, FirstName: "Jane"},
	}

	got := buildDialogs(dialogs, chats, users)

	require.Len(t, got, 3)
	assert.Equal(t, KindPrivate, got[0].Kind)
	assert.Equal(t, KindGroup, got[1].Kind)
	assert.Equal(t, KindChannel, got[2].Kind)
}

func TestFindDialog(t *testing.T) {
	dialogs := []Dialog{
		{ID: 5, Name: "Jane", Kind: KindPrivate},
		{ID: -9, Name: "Friends", Kind: KindGroup},
		{ID: -(channelZeroID + 42), Name: "News", Kind: KindChannel},
	}

	t.Run("marked id", func(t *testing.T) {
		dlg, err := findDialog(dialogs, -(channelZeroID + 42))
		require.NoError(t, err)
		assert.Equal(t, "News", dlg.Name)
	})

	t.Run("raw chat id", func(t *testing.T) {
		dlg, err := findDialog(dialogs, 9)
		require.NoError(t, err)
		assert.Equal(t, "Friends", dlg.Name)
	})

	t.Run("raw channel id", func(t *testing.T) {
		dlg, err := findDialog(dialogs, 42)
		require.NoError(t, err)
		assert.Equal(t, "News", dlg.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := findDialog(dialogs, 123)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDialogNotFound))
	})
}

func TestNextDialogOffset(t *testing.T) {
	dialogs := []tg.DialogClass{
		&tg.Dialog{Peer: &tg.PeerUser{UserID: 5}, TopMessage: 100},
		&tg.Dialog{Peer: &tg.PeerChat{ChatID: 9}, TopMessage: 200},
	}
	chats := []tg.ChatClass{&tg.Chat{ID: 9, Title: "Friends"}}
	users := []tg.UserClass{&tg.User{ID: 5, FirstName: "Jane"}}
	messages := []tg.MessageClass{
		&tg.Message{ID: 100, Date: 1700000000},
		&tg.Message{ID: 200, Date: 1700001111},
	}

	peer, offsetID, offsetDate := nextDialogOffset(dialogs, chats, users, messages)

	assert.Equal(t, &tg.InputPeerChat{ChatID: 9}, peer)
	assert.Equal(t, 200, offsetID)
	assert.Equal(t, 1700001111, offsetDate)
}
