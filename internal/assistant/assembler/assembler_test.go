package assembler

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/assistant/conversation"
	"github.com/oneskyhq/onesky/backend/internal/assistant/wire"
	"github.com/oneskyhq/onesky/backend/internal/model/catalog"
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

func newAssembler() (*Assembler, *conversation.Store) {
	store := conversation.NewStore(zerolog.Nop())
	return New(store, zerolog.Nop()), store
}

func TestPreambleDeltasCompletion(t *testing.T) {
	a, store := newAssembler()
	store.AppendUser("hi")

	a.Apply(wire.AttachmentFrame{
		Category:    "events",
		Attachments: chat.Attachments{Events: []catalog.EventRef{{ID: "evt-1", Title: "Cleanup"}}},
	})
	a.Apply(wire.DeltaFrame{Text: "Hello"})
	a.Apply(wire.DeltaFrame{Text: " there"})
	a.Apply(wire.CompletionFrame{})

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	reply := msgs[1]
	if reply.Role != chat.RoleAssistant {
		t.Fatalf("unexpected role: %s", reply.Role)
	}
	if reply.Text != "Hello there" {
		t.Fatalf("unexpected text: %q", reply.Text)
	}
	if reply.Attachments == nil || len(reply.Attachments.Events) != 1 {
		t.Fatalf("preamble attachments lost: %+v", reply.Attachments)
	}
	if !reply.Finalized() {
		t.Fatal("reply not finalized")
	}
	if a.ActiveStream() != "" {
		t.Fatal("active stream pointer not cleared")
	}
}

func TestFinalTextOverridesDeltas(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.DeltaFrame{Text: "partial dr"})
	a.Apply(wire.CompletionFrame{FinalText: "The polished answer."})

	got, _ := store.Last()
	if got.Text != "The polished answer." {
		t.Fatalf("final_text not authoritative: %q", got.Text)
	}
}

func TestDeltasWithoutPreamble(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.DeltaFrame{Text: "He"})
	a.Apply(wire.DeltaFrame{Text: "llo"})
	a.Apply(wire.CompletionFrame{})

	if store.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", store.Len())
	}
	got, _ := store.Last()
	if got.Text != "Hello" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if got.Attachments != nil {
		t.Fatalf("unexpected attachments: %+v", got.Attachments)
	}
}

func TestSingleShotProducesFinalizedMessage(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.SingleShotFrame{
		Text:        "Here you go.",
		Attachments: chat.Attachments{Badges: []catalog.BadgeRef{{ID: "badge-first-steps"}}},
	})

	if store.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", store.Len())
	}
	got, _ := store.Last()
	if !got.Finalized() {
		t.Fatal("single shot must arrive finalized")
	}
	if got.Attachments == nil || len(got.Attachments.Badges) != 1 {
		t.Fatalf("attachments missing: %+v", got.Attachments)
	}
	if a.ActiveStream() != "" {
		t.Fatal("single shot must not touch the active stream pointer")
	}
}

func TestSingleShotDoesNotDisturbActiveStream(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.DeltaFrame{Text: "streaming"})
	active := a.ActiveStream()
	a.Apply(wire.SingleShotFrame{Text: "unrelated push"})
	a.Apply(wire.DeltaFrame{Text: " continues"})
	a.Apply(wire.CompletionFrame{})

	if a.ActiveStream() != "" {
		t.Fatal("stream should be finalized")
	}
	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "streaming continues" {
		t.Fatalf("stream broken by single shot: %q", msgs[0].Text)
	}
	if active == "" {
		t.Fatal("delta should have minted a stream id")
	}
}

func TestDuplicateCompletionIsNoOp(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.DeltaFrame{Text: "X"})
	a.Apply(wire.CompletionFrame{FinalText: "X"})
	a.Apply(wire.CompletionFrame{FinalText: "X"})

	if store.Len() != 1 {
		t.Fatalf("replayed completion duplicated the message: %d messages", store.Len())
	}
	got, _ := store.Last()
	if got.Text != "X" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
}

func TestDuplicatePreambleRejected(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.AttachmentFrame{
		Attachments: chat.Attachments{Events: []catalog.EventRef{{ID: "evt-1"}}},
	})
	a.Apply(wire.AttachmentFrame{
		Attachments: chat.Attachments{Events: []catalog.EventRef{{ID: "evt-2"}}},
	})

	if store.Len() != 1 {
		t.Fatalf("duplicate preamble created a message: %d messages", store.Len())
	}
	got, _ := store.Last()
	if got.Attachments.Events[0].ID != "evt-1" {
		t.Fatalf("first preamble's attachments overwritten: %+v", got.Attachments)
	}
}

func TestCompletionWithoutStreamOrTextIsNoOp(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.CompletionFrame{})

	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d messages", store.Len())
	}
}

func TestStandaloneCompletionAppendsFinalizedMessage(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.CompletionFrame{FinalText: "Answer with no streaming phase."})

	if store.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", store.Len())
	}
	got, _ := store.Last()
	if !got.Finalized() || got.Text != "Answer with no streaming phase." {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestStandaloneCompletionNotSuppressedAfterUserMessage(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.CompletionFrame{FinalText: "Same text."})
	store.AppendUser("again?")
	a.Apply(wire.CompletionFrame{FinalText: "Same text."})

	// The user message in between means this is a fresh exchange, not a
	// replay; the preceding-message check must not fire.
	if store.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", store.Len())
	}
}

func TestFullExchange(t *testing.T) {
	a, store := newAssembler()
	store.AppendUser("hi")

	a.Apply(wire.AttachmentFrame{
		Category:    "events",
		Attachments: chat.Attachments{Events: []catalog.EventRef{{ID: "evt-1"}}},
	})
	a.Apply(wire.DeltaFrame{Text: "Hello"})
	a.Apply(wire.DeltaFrame{Text: " there"})
	a.Apply(wire.CompletionFrame{})

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected exactly user + assistant, got %d messages", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[0].Text != "hi" {
		t.Fatalf("unexpected user message: %+v", msgs[0])
	}
	if msgs[1].Text != "Hello there" || !msgs[1].Finalized() {
		t.Fatalf("unexpected assistant message: %+v", msgs[1])
	}
	if msgs[1].Attachments == nil || msgs[1].Attachments.Events[0].ID != "evt-1" {
		t.Fatalf("assistant message lost the preamble events: %+v", msgs[1].Attachments)
	}
}

func TestResetDetachesUnfinishedStream(t *testing.T) {
	a, store := newAssembler()

	a.Apply(wire.DeltaFrame{Text: "cut off"})
	a.Reset()
	a.Apply(wire.DeltaFrame{Text: "fresh reply"})
	a.Apply(wire.CompletionFrame{})

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "cut off" || msgs[0].Finalized() {
		t.Fatalf("stale message should stay partial: %+v", msgs[0])
	}
	if msgs[1].Text != "fresh reply" || !msgs[1].Finalized() {
		t.Fatalf("fresh reply mis-assembled: %+v", msgs[1])
	}
}
