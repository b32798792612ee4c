package chat

import (
	"time"

	"github.com/oneskyhq/onesky/backend/internal/model/catalog"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachments carries the structured collections an assistant reply may
// reference alongside its text. Set at most once per message.
type Attachments struct {
	Events []catalog.EventRef `json:"events,omitempty"`
	Teams  []catalog.TeamRef  `json:"teams,omitempty"`
	Badges []catalog.BadgeRef `json:"badges,omitempty"`
}

// Empty reports whether no collection is populated.
func (a Attachments) Empty() bool {
	return len(a.Events) == 0 && len(a.Teams) == 0 && len(a.Badges) == 0
}

// Message is one entry in a conversation transcript. User messages are
// immutable from creation. Assistant messages accumulate text while StreamID
// is set and become immutable once it is cleared.
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text"`
	Attachments *Attachments `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`

	// StreamID correlates inbound frames with the in-progress assistant
	// message they belong to. Empty means finalized.
	StreamID string `json:"streamId,omitempty"`
}

// Finalized reports whether the message no longer accepts frames.
func (m Message) Finalized() bool {
	return m.StreamID == ""
}
