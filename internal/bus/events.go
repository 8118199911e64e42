package bus

import "time"

// ChatKind distinguishes one-to-one chats from multi-party ones.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

type InboundMessage struct {
	Channel    string
	SenderID   string
	SenderName string
	ChatID     string
	ChatKind   ChatKind
	Content    string
	Mentioned  bool // explicit @-mention of the bot
	ReplyToBot bool // reply to one of the bot's own messages
	Timestamp  time.Time
	Metadata   map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID + ":" + m.SenderID
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	ReplyTo string
}
