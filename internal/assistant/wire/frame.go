// Package wire defines the inbound frame vocabulary of the assistant
// connection and the decoder that classifies raw payloads into it.
package wire

import (
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

// Frame is one decoded inbound unit. Exactly one of the concrete types below
// is produced per payload; consumers switch on the dynamic type.
type Frame interface {
	frame()
}

// AttachmentFrame opens a stream by delivering the structured collections
// (events/teams/badges) ahead of any text.
type AttachmentFrame struct {
	Category    string
	Attachments chat.Attachments
}

// DeltaFrame carries one increment of streamed response text.
type DeltaFrame struct {
	Text string
}

// CompletionFrame closes a stream. FinalText, when non-empty, is authoritative
// and overrides any text accumulated from prior deltas.
type CompletionFrame struct {
	Category  string
	FinalText string
}

// SingleShotFrame is a complete, already-finalized reply in one payload.
type SingleShotFrame struct {
	Category    string
	Text        string
	Attachments chat.Attachments
}

func (AttachmentFrame) frame() {}
func (DeltaFrame) frame()      {}
func (CompletionFrame) frame() {}
func (SingleShotFrame) frame() {}

// Outbound is the client-to-server submit payload.
type Outbound struct {
	Message string `json:"message"`
}
