package dto

// Websocket actions accepted by the chat gateway.
const (
	ActionSend           = "send"
	ActionTypingStart    = "typing_start"
	ActionTypingStop     = "typing_stop"
	ActionMarkRead       = "mark_read"
	ActionToggleReaction = "toggle_reaction"
)

// Websocket event types emitted by the chat gateway.
const (
	EventMessage  = "message"
	EventTyping   = "typing"
	EventRead     = "read"
	EventReaction = "reaction"
	EventError    = "error"
)

// ChatAction is the inbound envelope read from a websocket connection. Only
// the fields relevant to the named action are consulted.
type ChatAction struct {
	Action           string `json:"action" validate:"required,oneof=send typing_start typing_stop mark_read toggle_reaction"`
	Body             string `json:"body" validate:"omitempty,max=4000"`
	ReplyToMessageID *uint  `json:"reply_to_message_id"`
	MessageID        uint   `json:"message_id"`
	Emoji            string `json:"emoji" validate:"omitempty,max=32"`
}

// ChatEvent is the outbound envelope written to subscribers.
type ChatEvent struct {
	Event    string               `json:"event"`
	Message  *ChatMessageResponse `json:"message,omitempty"`
	Typing   *TypingEvent         `json:"typing,omitempty"`
	Read     *ReadEvent           `json:"read,omitempty"`
	Reaction *ReactionEvent       `json:"reaction,omitempty"`
	Error    *ErrorEvent          `json:"error,omitempty"`
}

// TypingEvent is the ephemeral typing indicator; best effort, never persisted.
type TypingEvent struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// ReadEvent announces an updated read count for a message.
type ReadEvent struct {
	MessageID uint `json:"message_id"`
	UserID    uint `json:"user_id"`
	ReadCount int  `json:"read_count"`
}

// ReactionEvent announces the new per-emoji aggregate after a toggle.
type ReactionEvent struct {
	MessageID uint            `json:"message_id"`
	UserID    uint            `json:"user_id"`
	Emoji     string          `json:"emoji"`
	Added     bool            `json:"added"`
	Counts    []ReactionCount `json:"counts"`
}

// ErrorEvent is delivered only to the actor whose action failed; it is never
// broadcast to the room.
type ErrorEvent struct {
	Action  string `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
