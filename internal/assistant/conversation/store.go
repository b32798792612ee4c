// Package conversation holds the ordered transcript a chat view renders.
package conversation

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

// Store is the append-only-with-in-place-update message list for one
// conversation. Operations are synchronous and total. The store is not
// self-synchronized: the owning client serializes all access, so exactly one
// goroutine touches it at a time.
type Store struct {
	messages  []chat.Message
	finalized map[string]struct{}
	log       zerolog.Logger
}

// NewStore returns an empty conversation store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		messages:  make([]chat.Message, 0, 16),
		finalized: make(map[string]struct{}),
		log:       log.With().Str("component", "conversation").Logger(),
	}
}

// AppendUser appends an immutable user message and returns a copy of it.
func (s *Store) AppendUser(text string) chat.Message {
	msg := chat.Message{
		Role:      chat.RoleUser,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// AppendOrUpdateAssistant applies mutate to the in-progress assistant message
// identified by streamID, creating it first if the stream is new. Frames for
// an already-finalized stream are discarded so replayed deliveries cannot
// reopen a message. An attempt to overwrite attachments that were already set
// is reverted and logged; attachments are write-once per message.
func (s *Store) AppendOrUpdateAssistant(streamID string, mutate func(*chat.Message)) {
	if streamID == "" {
		return
	}
	if _, done := s.finalized[streamID]; done {
		s.log.Debug().Str("streamId", streamID).Msg("dropping frame for finalized stream")
		return
	}

	idx := s.indexOf(streamID)
	if idx < 0 {
		s.messages = append(s.messages, chat.Message{
			Role:      chat.RoleAssistant,
			CreatedAt: time.Now().UTC(),
			StreamID:  streamID,
		})
		idx = len(s.messages) - 1
	}

	msg := &s.messages[idx]
	prevAttachments := msg.Attachments
	mutate(msg)
	if prevAttachments != nil && msg.Attachments != prevAttachments {
		msg.Attachments = prevAttachments
		s.log.Warn().Str("streamId", streamID).Msg("rejected attempt to overwrite attachments")
	}
}

// Finalize makes the message for streamID immutable. A non-empty finalText
// replaces whatever text accumulated from deltas. Finalizing an unknown or
// already-finalized stream is a no-op. Reports whether a message transitioned.
func (s *Store) Finalize(streamID, finalText string) bool {
	if streamID == "" {
		return false
	}
	if _, done := s.finalized[streamID]; done {
		return false
	}

	idx := s.indexOf(streamID)
	if idx < 0 {
		return false
	}

	msg := &s.messages[idx]
	if finalText != "" {
		msg.Text = finalText
	}
	msg.StreamID = ""
	s.finalized[streamID] = struct{}{}
	return true
}

// AppendFinalized appends a complete assistant message that never had a
// streaming phase.
func (s *Store) AppendFinalized(text string, attachments *chat.Attachments) chat.Message {
	msg := chat.Message{
		Role:        chat.RoleAssistant,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Last returns the most recently appended message.
func (s *Store) Last() (chat.Message, bool) {
	if len(s.messages) == 0 {
		return chat.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Len returns the number of messages in the transcript.
func (s *Store) Len() int {
	return len(s.messages)
}

// Messages returns a copy of the transcript in append order.
func (s *Store) Messages() []chat.Message {
	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Clear drops the transcript and all finalized-stream bookkeeping.
func (s *Store) Clear() {
	s.messages = s.messages[:0]
	s.finalized = make(map[string]struct{})
}

func (s *Store) indexOf(streamID string) int {
	for i := range s.messages {
		if s.messages[i].StreamID == streamID {
			return i
		}
	}
	return -1
}
