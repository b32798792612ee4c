package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/assistant"
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
	"github.com/oneskyhq/onesky/backend/internal/service/directory"
	"github.com/oneskyhq/onesky/backend/internal/service/responder"
	"github.com/oneskyhq/onesky/backend/internal/storage/sqlite"
)

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.SeedIfEmpty(context.Background()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	logger := zerolog.Nop()
	dir := directory.NewService(store, logger)
	svc := responder.NewService(dir, logger)

	r := chi.NewRouter()
	New(svc, opts, logger).RegisterRoutes(r)
	return r
}

func postChat(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chatbot/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatReturnsSingleShot(t *testing.T) {
	router := newTestRouter(t, Options{})

	rec := postChat(t, router, `{"message":"what volunteering events are on this weekend?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["response"] == nil {
		t.Fatal("response text missing")
	}
	if payload["category"] != "events" {
		t.Fatalf("category = %v, want events", payload["category"])
	}
	if _, ok := payload["stream"]; ok {
		t.Fatal("single-shot reply must not carry streaming markers")
	}
	if _, ok := payload["done"]; ok {
		t.Fatal("single-shot reply must not carry done marker")
	}
	if _, ok := payload["events"]; !ok {
		t.Fatal("events category reply should include event attachments")
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	router := newTestRouter(t, Options{})

	rec := postChat(t, router, `{"message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No message provided") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestChatRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(t, Options{})

	rec := postChat(t, router, `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatRejectsHostileInput(t *testing.T) {
	router := newTestRouter(t, Options{})

	rec := postChat(t, router, `{"message":"please drop table events"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func dialSocket(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chatbot/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// readUntilDone drains one reply's frame sequence and returns it.
func readUntilDone(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for {
		frame := readFrame(t, conn)
		frames = append(frames, frame)
		if done, _ := frame["done"].(bool); done {
			return frames
		}
		if len(frames) > 100 {
			t.Fatal("no done frame after 100 frames")
		}
	}
}

func TestWebSocketStreamsReply(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, Options{}))
	defer srv.Close()

	conn := dialSocket(t, srv, "")
	if err := conn.WriteJSON(map[string]string{"message": "show me events in London"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	frames := readUntilDone(t, conn)
	if len(frames) < 3 {
		t.Fatalf("got %d frames, want preamble + deltas + done", len(frames))
	}

	first := frames[0]
	if partial, _ := first["partial"].(bool); !partial {
		t.Fatalf("first frame is not the attachment preamble: %v", first)
	}
	if _, ok := first["events"]; !ok {
		t.Fatal("preamble carries no events")
	}

	var assembled strings.Builder
	for _, frame := range frames[1 : len(frames)-1] {
		text, ok := frame["response"].(string)
		if !ok {
			t.Fatalf("delta frame without response text: %v", frame)
		}
		assembled.WriteString(text)
	}

	last := frames[len(frames)-1]
	finalText, _ := last["final_text"].(string)
	if finalText == "" {
		t.Fatal("done frame carries no final_text")
	}
	if assembled.String() != finalText {
		t.Fatalf("deltas assemble to %q, final_text is %q", assembled.String(), finalText)
	}
}

func TestWebSocketEmptyMessage(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, Options{}))
	defer srv.Close()

	conn := dialSocket(t, srv, "")
	if err := conn.WriteJSON(map[string]string{"message": ""}); err != nil {
		t.Fatalf("write: %v", err)
	}

	frame := readFrame(t, conn)
	if done, _ := frame["done"].(bool); !done {
		t.Fatalf("empty message should get a single done frame, got %v", frame)
	}
	if frame["response"] != "Please type a message." {
		t.Fatalf("unexpected reply: %v", frame["response"])
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, Options{MessagesPerMinute: 1, RateBurst: 1}))
	defer srv.Close()

	conn := dialSocket(t, srv, "")

	if err := conn.WriteJSON(map[string]string{"message": "what teams can I join?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntilDone(t, conn)

	if err := conn.WriteJSON(map[string]string{"message": "what teams can I join?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame := readFrame(t, conn)
	if done, _ := frame["done"].(bool); !done {
		t.Fatalf("throttled reply should be a single done frame, got %v", frame)
	}
	text, _ := frame["response"].(string)
	if !strings.Contains(text, "very quickly") {
		t.Fatalf("unexpected throttle reply: %q", text)
	}
}

// TestClientEndToEnd runs the real assistant client against the real
// handler: websocket streaming on the happy path, transcript assembled on
// the client side.
func TestClientEndToEnd(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		inner := newTestRouter(t, Options{})
		api.Mount("/", inner)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	client, err := assistant.New(assistant.Options{
		ServerURL:  srv.URL,
		SocketPath: "/api/chatbot/ws?user=mei.tan",
		ChatPath:   "/api/chatbot/chat?user=mei.tan",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Send(ctx, "what events are happening in London?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		messages := client.Messages()
		if len(messages) >= 2 {
			last := messages[len(messages)-1]
			if last.Role == chat.RoleAssistant && last.Finalized() {
				if last.Text == "" {
					t.Fatal("assistant reply has no text")
				}
				if last.Attachments == nil || len(last.Attachments.Events) == 0 {
					t.Fatal("assistant reply lost its event attachments")
				}
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("no finalized assistant reply, transcript: %+v", messages)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
