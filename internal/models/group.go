package models

// Seed values for groups synthesized on first post (legacy onboarding path).
const (
	WelcomeUsername   = "CipherX"
	WelcomeText       = "به لند گرام خوش آمدید"
	WelcomeTime       = "00:00"
	DefaultProfileURL = "default_profile_url"
)

// LastMessage points at the most recent post of a group.
type LastMessage struct {
	Username string `json:"username"`
	Text     string `json:"message"`
	Time     string `json:"time"`
	ID       int64  `json:"message_id"`
}

// Group is the per-group document.
type Group struct {
	Name          string            `json:"username_group"`
	Members       []string          `json:"members"`
	OnlineMembers []string          `json:"onlines"`
	ProfileURL    string            `json:"profile"`
	Bio           string            `json:"bio"`
	Messages      map[int64]Message `json:"message"`
	Last          LastMessage       `json:"last"`
}

// NewGroup builds an empty group whose last message is the welcome seed.
func NewGroup(name, profileURL, bio string) *Group {
	if profileURL == "" {
		profileURL = DefaultProfileURL
	}
	return &Group{
		Name:          name,
		Members:       []string{},
		OnlineMembers: []string{},
		ProfileURL:    profileURL,
		Bio:           bio,
		Messages:      map[int64]Message{},
		Last: LastMessage{
			Username: WelcomeUsername,
			Text:     WelcomeText,
			Time:     WelcomeTime,
		},
	}
}

func (g *Group) Normalize() {
	if g.Members == nil {
		g.Members = []string{}
	}
	if g.OnlineMembers == nil {
		g.OnlineMembers = []string{}
	}
	if g.Messages == nil {
		g.Messages = map[int64]Message{}
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func (g *Group) IsMember(username string) bool {
	return indexOf(g.Members, username) >= 0
}

// AddMember appends username; false if already present.
func (g *Group) AddMember(username string) bool {
	if g.IsMember(username) {
		return false
	}
	g.Members = append(g.Members, username)
	return true
}

// RemoveMember drops username from members and the online set.
func (g *Group) RemoveMember(username string) bool {
	i := indexOf(g.Members, username)
	if i < 0 {
		return false
	}
	g.Members = append(g.Members[:i], g.Members[i+1:]...)
	g.SetOnline(username, false)
	return true
}

// SetOnline updates the online set and reports whether it changed.
func (g *Group) SetOnline(username string, online bool) bool {
	i := indexOf(g.OnlineMembers, username)
	switch {
	case online && i < 0:
		g.OnlineMembers = append(g.OnlineMembers, username)
		return true
	case !online && i >= 0:
		g.OnlineMembers = append(g.OnlineMembers[:i], g.OnlineMembers[i+1:]...)
		return true
	}
	return false
}

// Append stores msg unless its id is already present and points Last at the stored
// record for that id, so Messages[Last.ID] always matches Last. A repost of a known id
// therefore leaves the stored text and sender in Last; it does not take the new
// post's text and sender.
func (g *Group) Append(msg Message) Message {
	stored, ok := g.Messages[msg.ID]
	if !ok {
		g.Messages[msg.ID] = msg
		stored = msg
	}
	g.Last = LastMessage{
		Username: stored.From,
		Text:     stored.Text,
		Time:     stored.Time,
		ID:       stored.ID,
	}
	return stored
}

// History returns a copy of the message map; never nil.
func (g *Group) History() map[int64]Message {
	out := make(map[int64]Message, len(g.Messages))
	for id, msg := range g.Messages {
		out[id] = msg
	}
	return out
}

// GroupInfo is the public summary returned by getGroupInfo.
type GroupInfo struct {
	Name    string `json:"username"`
	Profile string `json:"profile"`
}

// GroupSummary is one row of the group directory.
type GroupSummary struct {
	Name        string      `json:"username"`
	Profile     string      `json:"profile"`
	Bio         string      `json:"bio"`
	MemberCount int         `json:"member_count"`
	OnlineCount int         `json:"online_count"`
	Last        LastMessage `json:"last"`
}

// MemberView is a group member enriched with profile data at read time.
type MemberView struct {
	Username string `json:"username"`
	FullName string `json:"fullname"`
	Profile  string `json:"profile"`
	Status   string `json:"status"`
}

// GroupEvent is emitted over group websocket rooms.
type GroupEvent struct {
	Type    string   `json:"type"`
	Group   string   `json:"group"`
	Message *Message `json:"message,omitempty"`
}
