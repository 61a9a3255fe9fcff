package bus

// EventKind discriminates inbound platform events.
type EventKind string

const (
	EventMessageCreated EventKind = "message_created"
	EventMessageEdited  EventKind = "message_edited"
	EventMessageDeleted EventKind = "message_deleted"
	// EventChannelActivity fires for any new message in a channel,
	// including ones the relay ignores. Used to retract stale
	// suggestion prompts the moment a conversation moves on.
	EventChannelActivity EventKind = "channel_activity"
)

// Attachment is one uploaded file on a message.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Message is the platform-neutral view of a chat message.
type Message struct {
	ChannelID   string       `json:"channel_id"`
	MessageID   string       `json:"message_id"`
	AuthorID    string       `json:"author_id"`
	AuthorName  string       `json:"author_name"`
	Mention     string       `json:"mention"` // platform mention token for the author
	Bot         bool         `json:"bot"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyToID   string       `json:"reply_to_id,omitempty"` // parent message ID if this is a reply
}

// Event is one inbound platform occurrence. Delete events carry only
// channel and message IDs in Message.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message Message   `json:"message"`
}
