package models

// Message is a single private or group message record. For private messages the same
// record is mirrored into both participants' inboxes; ID never changes once assigned.
type Message struct {
	ID      int64  `json:"message_id"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	ToGroup string `json:"to_group,omitempty"`
	Text    string `json:"message"`
	Time    string `json:"time"`
	Edited  bool   `json:"edited"`
	ReplyTo *int64 `json:"reply_to,omitempty"`
	Image   string `json:"image,omitempty"`
}

// ChatEvent is pushed to websocket clients and published for private conversations.
type ChatEvent struct {
	Type    string   `json:"type"`
	Peer    string   `json:"peer,omitempty"`
	Message *Message `json:"message,omitempty"`
}

const (
	EventMessage = "message"
	EventEdit    = "edit"
)
