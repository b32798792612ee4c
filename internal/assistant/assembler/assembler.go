// Package assembler folds decoded frames into the conversation store.
//
// The server interleaves attachment metadata and response text independently
// and may omit either, so a reply can arrive in any of four shapes: preamble
// then deltas then completion, deltas then completion, completion alone, or a
// single shot. The assembler accepts all of them and produces exactly one
// coherent assistant message per exchange.
package assembler

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/assistant/conversation"
	"github.com/oneskyhq/onesky/backend/internal/assistant/metrics"
	"github.com/oneskyhq/onesky/backend/internal/assistant/wire"
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

// Assembler applies the per-frame transition rules against one conversation
// store. Its only cross-frame memory is the id of the stream most recently
// associated with an in-progress assistant message. It is not
// self-synchronized; the owning client serializes Apply with its other store
// mutations.
type Assembler struct {
	store  *conversation.Store
	active string
	log    zerolog.Logger
}

// New returns an assembler bound to store.
func New(store *conversation.Store, log zerolog.Logger) *Assembler {
	return &Assembler{
		store: store,
		log:   log.With().Str("component", "assembler").Logger(),
	}
}

// Apply folds one decoded frame into the store. Malformed or out-of-protocol
// input degrades to a no-op with a diagnostic; Apply never panics outward.
func (a *Assembler) Apply(frame wire.Frame) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("recovered while applying frame")
		}
	}()

	switch f := frame.(type) {
	case wire.AttachmentFrame:
		metrics.FramesDecoded.WithLabelValues("attachment").Inc()
		a.applyAttachments(f)
	case wire.DeltaFrame:
		metrics.FramesDecoded.WithLabelValues("delta").Inc()
		a.applyDelta(f)
	case wire.CompletionFrame:
		metrics.FramesDecoded.WithLabelValues("completion").Inc()
		a.applyCompletion(f)
	case wire.SingleShotFrame:
		metrics.FramesDecoded.WithLabelValues("single_shot").Inc()
		a.applySingleShot(f)
	default:
		a.log.Warn().Msg("unknown frame type dropped")
	}
}

// ActiveStream returns the id of the stream currently receiving frames, or
// the empty string when no assistant message is in progress.
func (a *Assembler) ActiveStream() string {
	return a.active
}

// Reset clears the active-stream pointer. Used when the transport drops so a
// stale stream from the old connection cannot swallow the next reply.
func (a *Assembler) Reset() {
	a.active = ""
}

func (a *Assembler) applyAttachments(f wire.AttachmentFrame) {
	if a.active != "" {
		metrics.ProtocolViolations.WithLabelValues("duplicate_preamble").Inc()
		a.log.Warn().Str("streamId", a.active).Msg("duplicate attachment preamble ignored")
		return
	}

	id := uuid.NewString()
	a.store.AppendOrUpdateAssistant(id, func(m *chat.Message) {
		att := f.Attachments
		m.Attachments = &att
	})
	a.active = id
}

func (a *Assembler) applyDelta(f wire.DeltaFrame) {
	if a.active == "" {
		// Text streaming may begin without any attachment preamble.
		a.active = uuid.NewString()
	}
	a.store.AppendOrUpdateAssistant(a.active, func(m *chat.Message) {
		m.Text += f.Text
	})
}

func (a *Assembler) applyCompletion(f wire.CompletionFrame) {
	if a.active != "" {
		a.store.Finalize(a.active, f.FinalText)
		a.active = ""
		return
	}

	if f.FinalText == "" {
		// Nothing to finalize.
		return
	}

	// A completion with no streaming phase stands as a message of its own,
	// unless it replays text the preceding reply already delivered.
	if last, ok := a.store.Last(); ok &&
		last.Role == chat.RoleAssistant && last.Finalized() && last.Text == f.FinalText {
		metrics.ProtocolViolations.WithLabelValues("replayed_completion").Inc()
		a.log.Debug().Msg("suppressed completion replaying the previous reply")
		return
	}

	a.store.AppendFinalized(f.FinalText, nil)
}

func (a *Assembler) applySingleShot(f wire.SingleShotFrame) {
	var att *chat.Attachments
	if !f.Attachments.Empty() {
		copied := f.Attachments
		att = &copied
	}
	a.store.AppendFinalized(f.Text, att)
}
