package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"
)

// Kind classifies a dialog. Precedence when a peer carries several flags is
// Group over Channel over Private: a megagroup is group-like and channel-like
// at once and must list as a Group.
type Kind string

const (
	KindGroup   Kind = "Group"
	KindChannel Kind = "Channel"
	KindPrivate Kind = "Private"
)

// channelZeroID offsets channel IDs into the negative "marked" ID space so
// that listed IDs match the ones Telegram clients show for channels.
const channelZeroID int64 = 1_000_000_000_000

const dialogPageSize = 100

// ErrDialogNotFound indicates no visible conversation matches the given id.
var ErrDialogNotFound = errors.New("dialog not found")

// Dialog is one conversation visible to the account, with the resolved input
// peer needed to address it in later calls.
type Dialog struct {
	ID   int64
	Name string
	Kind Kind
	Peer tg.InputPeerClass
}

// Dialogs fetches every conversation visible to the account, paging through
// messages.getDialogs until the set is exhausted.
func (d *Downloader) Dialogs(ctx context.Context) ([]Dialog, error) {
	var out []Dialog

	seen := make(map[int64]bool)

	req := &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageSize,
	}

	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := d.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("get dialogs: %w", err)
		}

		var (
			dialogs  []tg.DialogClass
			chats    []tg.ChatClass
			users    []tg.UserClass
			messages []tg.MessageClass
			complete bool
		)

		switch r := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, chats, users, messages = r.Dialogs, r.Chats, r.Users, r.Messages
			complete = true
		case *tg.MessagesDialogsSlice:
			dialogs, chats, users, messages = r.Dialogs, r.Chats, r.Users, r.Messages
		case *tg.MessagesDialogsNotModified:
			return out, nil
		}

		if len(dialogs) == 0 {
			return out, nil
		}

		page := buildDialogs(dialogs, chats, users)
		for _, dlg := range page {
			if seen[dlg.ID] {
				continue
			}

			seen[dlg.ID] = true
			out = append(out, dlg)
		}

		if complete || len(dialogs) < dialogPageSize {
			return out, nil
		}

		offsetPeer, offsetID, offsetDate := nextDialogOffset(dialogs, chats, users, messages)
		if offsetPeer == nil {
			return out, nil
		}

		req.OffsetPeer = offsetPeer
		req.OffsetID = offsetID
		req.OffsetDate = offsetDate
	}
}

// ListDialogs prints a fixed-width table of every visible conversation and
// returns the listed dialogs.
func (d *Downloader) ListDialogs(ctx context.Context) ([]Dialog, error) {
	dialogs, err := d.Dialogs(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Println("\nAvailable Telegram Groups/Channels:")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("%-6s %-14s %-10s %-30s\n", "Index", "ID", "Type", "Name")
	fmt.Println(strings.Repeat("-", 60))

	for i, dlg := range dialogs {
		fmt.Printf("%-6d %-14d %-10s %-30s\n", i+1, dlg.ID, dlg.Kind, dlg.Name)
	}

	return dialogs, nil
}

// buildDialogs resolves raw dialog entries against the chats and users
// returned in the same response.
func buildDialogs(dialogs []tg.DialogClass, chats []tg.ChatClass, users []tg.UserClass) []Dialog {
	chatsByID := make(map[int64]tg.ChatClass, len(chats))
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			chatsByID[chat.ID] = chat
		case *tg.Channel:
			chatsByID[chat.ID] = chat
		}
	}

	usersByID := make(map[int64]*tg.User, len(users))

	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			usersByID[user.ID] = user
		}
	}

	var out []Dialog

	for _, dc := range dialogs {
		dlg, ok := dc.(*tg.Dialog)
		if !ok {
			continue
		}

		switch peer := dlg.Peer.(type) {
		case *tg.PeerUser:
			user, ok := usersByID[peer.UserID]
			if !ok {
				continue
			}

			out = append(out, dialogFromUser(user))
		case *tg.PeerChat:
			chat, ok := chatsByID[peer.ChatID].(*tg.Chat)
			if !ok {
				continue
			}

			out = append(out, dialogFromChat(chat))
		case *tg.PeerChannel:
			channel, ok := chatsByID[peer.ChannelID].(*tg.Channel)
			if !ok {
				continue
			}

			out = append(out, dialogFromChannel(channel))
		}
	}

	return out
}

func dialogFromUser(user *tg.User) Dialog {
	return Dialog{
		ID:   user.ID,
		Name: userDisplayName(user),
		Kind: KindPrivate,
		Peer: &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash},
	}
}

func dialogFromChat(chat *tg.Chat) Dialog {
	return Dialog{
		ID:   -chat.ID,
		Name: chat.Title,
		Kind: KindGroup,
		Peer: &tg.InputPeerChat{ChatID: chat.ID},
	}
}

func dialogFromChannel(channel *tg.Channel) Dialog {
	// A megagroup is both group-like and channel-like; group wins.
	kind := KindChannel
	if channel.Megagroup {
		kind = KindGroup
	}

	return Dialog{
		ID:   -(channelZeroID + channel.ID),
		Name: channel.Title,
		Kind: kind,
		Peer: &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash},
	}
}

func userDisplayName(user *tg.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}

	if user.Username != "" {
		return user.Username
	}

	return "Deleted Account"
}

// findDialog matches by the listed (marked) id, accepting the raw positive
// form for chats and channels as well.
func findDialog(dialogs []Dialog, id int64) (Dialog, error) {
	for _, dlg := range dialogs {
		if dlg.ID == id {
			return dlg, nil
		}

		if id > 0 && (dlg.ID == -id || dlg.ID == -(channelZeroID+id)) {
			return dlg, nil
		}
	}

	return Dialog{}, fmt.Errorf("%w: %d", ErrDialogNotFound, id)
}

// nextDialogOffset derives the getDialogs offsets from the last dialog of the
// current page and its top message.
func nextDialogOffset(dialogs []tg.DialogClass, chats []tg.ChatClass, users []tg.UserClass, messages []tg.MessageClass) (tg.InputPeerClass, int, int) {
	var last *tg.Dialog

	for i := len(dialogs) - 1; i >= 0; i-- {
		if dlg, ok := dialogs[i].(*tg.Dialog); ok {
			last = dlg
			break
		}
	}

	if last == nil {
		return nil, 0, 0
	}

	page := buildDialogs([]tg.DialogClass{last}, chats, users)
	if len(page) == 0 {
		return nil, 0, 0
	}

	offsetDate := 0

	for _, mc := range messages {
		if msg, ok := mc.(*tg.Message); ok && msg.ID == last.TopMessage {
			offsetDate = msg.Date
			break
		}
	}

	return page[0].Peer, last.TopMessage, offsetDate
}
