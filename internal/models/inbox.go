package models

import "sort"

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	Peer        string `json:"username"`
	LastMessage string `json:"last_message"`
	LastTime    string `json:"last_time"`
	Unread      int    `json:"count_message"`
}

// ConversationList is ordered most recently touched first and holds at most one
// entry per peer. Order is maintained on write; readers never re-sort it.
type ConversationList []ConversationSummary

func (l ConversationList) index(peer string) int {
	for i := range l {
		if l[i].Peer == peer {
			return i
		}
	}
	return -1
}

// Find returns the entry for peer, if any.
func (l ConversationList) Find(peer string) (ConversationSummary, bool) {
	if i := l.index(peer); i >= 0 {
		return l[i], true
	}
	return ConversationSummary{}, false
}

func (l *ConversationList) pushFront(entry ConversationSummary) {
	*l = append(*l, ConversationSummary{})
	copy((*l)[1:], (*l)[:len(*l)-1])
	(*l)[0] = entry
}

// Touch upserts peer's entry with the given last message and moves it to index 0.
// Position is decided by call order alone, not by timestamps.
func (l *ConversationList) Touch(peer, text, at string) {
	i := l.index(peer)
	if i < 0 {
		l.pushFront(ConversationSummary{Peer: peer, LastMessage: text, LastTime: at})
		return
	}
	entry := (*l)[i]
	entry.LastMessage = text
	entry.LastTime = at
	copy((*l)[1:i+1], (*l)[:i])
	(*l)[0] = entry
}

// IncrementUnread bumps the unread counter for peer. A missing entry is created at
// the front with a count of one; existing entries keep their position.
func (l *ConversationList) IncrementUnread(peer string) {
	if i := l.index(peer); i >= 0 {
		(*l)[i].Unread++
		return
	}
	l.pushFront(ConversationSummary{Peer: peer, Unread: 1})
}

// ResetUnread zeroes the counter for peer; unknown peers are ignored.
func (l ConversationList) ResetUnread(peer string) {
	if i := l.index(peer); i >= 0 {
		l[i].Unread = 0
	}
}

// SetLastMessage rewrites the preview text without reordering.
func (l ConversationList) SetLastMessage(peer, text string) bool {
	if i := l.index(peer); i >= 0 {
		l[i].LastMessage = text
		return true
	}
	return false
}

// PrivateInbox is the per-user document holding conversations and mirrored threads.
type PrivateInbox struct {
	JoinedGroups   []string                     `json:"join_group"`
	Conversations  ConversationList             `json:"users_list"`
	MessagesByPeer map[string]map[int64]Message `json:"messages"`
}

func NewPrivateInbox() *PrivateInbox {
	return &PrivateInbox{
		JoinedGroups:   []string{},
		Conversations:  ConversationList{},
		MessagesByPeer: map[string]map[int64]Message{},
	}
}

// Normalize fills nil collections left by older or hand-written documents.
func (in *PrivateInbox) Normalize() {
	if in.JoinedGroups == nil {
		in.JoinedGroups = []string{}
	}
	if in.Conversations == nil {
		in.Conversations = ConversationList{}
	}
	if in.MessagesByPeer == nil {
		in.MessagesByPeer = map[string]map[int64]Message{}
	}
}

// Thread returns a copy of the messages exchanged with peer; never nil.
func (in *PrivateInbox) Thread(peer string) map[int64]Message {
	out := make(map[int64]Message, len(in.MessagesByPeer[peer]))
	for id, msg := range in.MessagesByPeer[peer] {
		out[id] = msg
	}
	return out
}

func (in *PrivateInbox) PutMessage(peer string, msg Message) {
	thread, ok := in.MessagesByPeer[peer]
	if !ok {
		thread = map[int64]Message{}
		in.MessagesByPeer[peer] = thread
	}
	thread[msg.ID] = msg
}

// EditMessage rewrites the text of message id in the thread with peer.
func (in *PrivateInbox) EditMessage(peer string, id int64, text string) bool {
	msg, ok := in.MessagesByPeer[peer][id]
	if !ok {
		return false
	}
	msg.Text = text
	msg.Edited = true
	in.MessagesByPeer[peer][id] = msg
	return true
}

func (in *PrivateInbox) HasJoined(group string) bool {
	i := sort.SearchStrings(in.JoinedGroups, group)
	return i < len(in.JoinedGroups) && in.JoinedGroups[i] == group
}

// JoinGroup records group membership, keeping the list sorted and unique.
func (in *PrivateInbox) JoinGroup(group string) bool {
	i := sort.SearchStrings(in.JoinedGroups, group)
	if i < len(in.JoinedGroups) && in.JoinedGroups[i] == group {
		return false
	}
	in.JoinedGroups = append(in.JoinedGroups, "")
	copy(in.JoinedGroups[i+1:], in.JoinedGroups[i:])
	in.JoinedGroups[i] = group
	return true
}

func (in *PrivateInbox) LeaveGroup(group string) bool {
	i := sort.SearchStrings(in.JoinedGroups, group)
	if i >= len(in.JoinedGroups) || in.JoinedGroups[i] != group {
		return false
	}
	in.JoinedGroups = append(in.JoinedGroups[:i], in.JoinedGroups[i+1:]...)
	return true
}

// ConversationView is a summary enriched with the peer's profile at read time.
type ConversationView struct {
	ConversationSummary
	Profile string `json:"profile"`
	Status  string `json:"status"`
	Role    string `json:"admin"`
}
