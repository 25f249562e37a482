package reader

import (
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

// PeerKind is the dialog type of a peer.
type PeerKind string

// Peer kinds.
const (
	PeerChannel    PeerKind = "channel"
	PeerSupergroup PeerKind = "supergroup"
	PeerGroup      PeerKind = "group"
	PeerUser       PeerKind = "user"
)

// Peer is a resolved dialog with everything needed to address it.
type Peer struct {
	// ID is the bare Telegram ID.
	ID int64
	// DialogID is the ID in the form accepted by CHANNEL_IDS.
	DialogID int64
	Title    string
	Kind     PeerKind
	Input    tg.InputPeerClass
}

// peerIndex keeps chats and users apart because their IDs live in different spaces.
type peerIndex struct {
	chats map[int64]Peer
	users map[int64]Peer
	order []int64
	seen  map[int64]struct{}
}

func newPeerIndex() *peerIndex {
	return &peerIndex{
		chats: make(map[int64]Peer),
		users: make(map[int64]Peer),
		seen:  make(map[int64]struct{}),
	}
}

func (x *peerIndex) addChats(chats []tg.ChatClass) {
	for _, c := range chats {
		switch ch := c.(type) {
		case *tg.Channel:
			kind := PeerChannel
			if ch.Megagroup {
				kind = PeerSupergroup
			}

			x.chats[ch.ID] = Peer{
				ID:       ch.ID,
				DialogID: domain.DialogChannelID(ch.ID),
				Title:    ch.Title,
				Kind:     kind,
				Input:    &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
			}
		case *tg.Chat:
			x.chats[ch.ID] = Peer{
				ID:       ch.ID,
				DialogID: -ch.ID,
				Title:    ch.Title,
				Kind:     PeerGroup,
				Input:    &tg.InputPeerChat{ChatID: ch.ID},
			}
		}
	}
}

func (x *peerIndex) addUsers(users []tg.UserClass) {
	for _, u := range users {
		user, ok := u.(*tg.User)
		if !ok {
			continue
		}

		x.users[user.ID] = Peer{
			ID:       user.ID,
			DialogID: user.ID,
			Title:    userTitle(user),
			Kind:     PeerUser,
			Input:    &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash},
		}
	}
}

// addDialogs records the dialog order of chats for listing.
func (x *peerIndex) addDialogs(dialogs []tg.DialogClass) {
	for _, d := range dialogs {
		dialog, ok := d.(*tg.Dialog)
		if !ok {
			continue
		}

		id, ok := chatID(dialog.Peer)
		if !ok {
			continue
		}

		if _, dup := x.seen[id]; dup {
			continue
		}

		x.seen[id] = struct{}{}
		x.order = append(x.order, id)
	}
}

func (x *peerIndex) chat(bareID int64) (Peer, bool) {
	p, ok := x.chats[bareID]
	return p, ok
}

func (x *peerIndex) user(id int64) (Peer, bool) {
	p, ok := x.users[id]
	return p, ok
}

// input returns the addressable form of a dialog peer, or InputPeerEmpty when unknown.
func (x *peerIndex) input(peer tg.PeerClass) tg.InputPeerClass {
	switch p := peer.(type) {
	case *tg.PeerChannel:
		if found, ok := x.chats[p.ChannelID]; ok {
			return found.Input
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerUser:
		if found, ok := x.users[p.UserID]; ok {
			return found.Input
		}
	}

	return &tg.InputPeerEmpty{}
}

func chatID(peer tg.PeerClass) (int64, bool) {
	switch p := peer.(type) {
	case *tg.PeerChannel:
		return p.ChannelID, true
	case *tg.PeerChat:
		return p.ChatID, true
	default:
		return 0, false
	}
}

func samePeer(a, b tg.PeerClass) bool {
	switch pa := a.(type) {
	case *tg.PeerChannel:
		pb, ok := b.(*tg.PeerChannel)
		return ok && pa.ChannelID == pb.ChannelID
	case *tg.PeerChat:
		pb, ok := b.(*tg.PeerChat)
		return ok && pa.ChatID == pb.ChatID
	case *tg.PeerUser:
		pb, ok := b.(*tg.PeerUser)
		return ok && pa.UserID == pb.UserID
	default:
		return false
	}
}

func userTitle(u *tg.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}

	if name == "" {
		name = u.Username
	}

	return name
}
