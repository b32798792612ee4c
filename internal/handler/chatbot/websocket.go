package chatbot

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oneskyhq/onesky/backend/internal/service/responder"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the fronting proxy.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const writeTimeout = 10 * time.Second

type inboundMessage struct {
	Message string `json:"message"`
}

// handleWebSocket upgrades the connection and answers each inbound message
// with a streamed frame sequence. Reads and writes both happen on this
// goroutine, so frames go out in the order the responder emits them.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := userFrom(r)
	limiter := h.newLimiter()
	h.log.Info().Str("user", userID).Msg("assistant socket connected")

	emit := func(p responder.Payload) error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(p)
	}

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Msg("assistant socket closed")
			}
			return
		}

		if in.Message == "" {
			reply := "Please type a message."
			if err := emit(responder.Payload{
				Response: &reply,
				Category: "general",
				Done:     true,
				Stream:   true,
			}); err != nil {
				return
			}
			continue
		}

		if limiter != nil && !limiter.Allow() {
			reply := "You're sending messages very quickly. Give me a moment to catch up."
			if err := emit(responder.Payload{
				Response: &reply,
				Category: "general",
				Done:     true,
				Stream:   true,
			}); err != nil {
				return
			}
			continue
		}

		if err := h.responder.ProcessStream(r.Context(), userID, in.Message, emit); err != nil {
			h.log.Warn().Err(err).Msg("stream aborted")
			return
		}
	}
}
