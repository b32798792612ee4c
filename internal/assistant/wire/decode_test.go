package wire

import (
	"testing"
)

func TestDecodeAttachmentPreamble(t *testing.T) {
	payload := []byte(`{"partial":true,"stream":true,"category":"events","events":[{"id":"evt-1","title":"Cleanup","date":"2026-09-12"}]}`)

	frame, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}

	att, ok := frame.(AttachmentFrame)
	if !ok {
		t.Fatalf("expected AttachmentFrame, got %T", frame)
	}
	if att.Category != "events" {
		t.Fatalf("unexpected category: %s", att.Category)
	}
	if len(att.Attachments.Events) != 1 || att.Attachments.Events[0].ID != "evt-1" {
		t.Fatalf("unexpected events: %+v", att.Attachments.Events)
	}
}

func TestDecodeTextDelta(t *testing.T) {
	frame, err := Decode([]byte(`{"stream":true,"response":"Hello"}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}

	delta, ok := frame.(DeltaFrame)
	if !ok {
		t.Fatalf("expected DeltaFrame, got %T", frame)
	}
	if delta.Text != "Hello" {
		t.Fatalf("unexpected text: %q", delta.Text)
	}
}

func TestDecodeEmptyDelta(t *testing.T) {
	frame, err := Decode([]byte(`{"stream":true,"response":""}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}
	if _, ok := frame.(DeltaFrame); !ok {
		t.Fatalf("expected DeltaFrame, got %T", frame)
	}
}

func TestDecodeCompletion(t *testing.T) {
	frame, err := Decode([]byte(`{"done":true,"stream":true,"final_text":"All set.","category":"general"}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}

	done, ok := frame.(CompletionFrame)
	if !ok {
		t.Fatalf("expected CompletionFrame, got %T", frame)
	}
	if done.FinalText != "All set." {
		t.Fatalf("unexpected final text: %q", done.FinalText)
	}
}

func TestDecodeCompletionWithoutFinalText(t *testing.T) {
	frame, err := Decode([]byte(`{"done":true,"response":null}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}

	done, ok := frame.(CompletionFrame)
	if !ok {
		t.Fatalf("expected CompletionFrame, got %T", frame)
	}
	if done.FinalText != "" {
		t.Fatalf("expected empty final text, got %q", done.FinalText)
	}
}

func TestDecodeCompletionFallsBackToResponse(t *testing.T) {
	// Rejection replies close the exchange with text in response only.
	frame, err := Decode([]byte(`{"done":true,"stream":true,"response":"Sorry, I can't process that request."}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}

	done, ok := frame.(CompletionFrame)
	if !ok {
		t.Fatalf("expected CompletionFrame, got %T", frame)
	}
	if done.FinalText != "Sorry, I can't process that request." {
		t.Fatalf("unexpected final text: %q", done.FinalText)
	}
}

func TestDecodeSingleShot(t *testing.T) {
	payload := []byte(`{"response":"Here are your badges.","category":"badges","badges":[{"id":"badge-first-steps","name":"First Steps"}]}`)

	frame, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}

	shot, ok := frame.(SingleShotFrame)
	if !ok {
		t.Fatalf("expected SingleShotFrame, got %T", frame)
	}
	if shot.Text != "Here are your badges." {
		t.Fatalf("unexpected text: %q", shot.Text)
	}
	if len(shot.Attachments.Badges) != 1 {
		t.Fatalf("unexpected badges: %+v", shot.Attachments.Badges)
	}
}

func TestDecodePreambleWinsOverOtherMarkers(t *testing.T) {
	// First matching rule wins even when markers overlap.
	frame, err := Decode([]byte(`{"partial":true,"stream":true,"response":"ignored"}`))
	if err != nil {
		t.Fatalf("Decode err: %v", err)
	}
	if _, ok := frame.(AttachmentFrame); !ok {
		t.Fatalf("expected AttachmentFrame, got %T", frame)
	}
}

func TestDecodeFailures(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{{`},
		{"empty object", `{}`},
		{"stream without response", `{"stream":true}`},
		{"unrelated fields", `{"category":"events"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.payload)); err == nil {
				t.Fatalf("expected decode failure for %s", tc.payload)
			}
		})
	}
}
