// Package assistant implements the client side of the OneSky in-app
// assistant: a websocket session, a frame decoder, an assembler that folds
// frames into the conversation transcript, and a plain HTTP fallback for when
// no live connection is available.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/assistant/assembler"
	"github.com/oneskyhq/onesky/backend/internal/assistant/conversation"
	"github.com/oneskyhq/onesky/backend/internal/assistant/metrics"
	"github.com/oneskyhq/onesky/backend/internal/assistant/session"
	"github.com/oneskyhq/onesky/backend/internal/assistant/wire"
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

// ErrClosed is returned by Send after the client has been torn down.
var ErrClosed = errors.New("assistant client closed")

// fallbackApology is the finalized reply shown when the HTTP path fails.
const fallbackApology = "Sorry, I couldn't reach the assistant just now. Please try sending that again."

// Options configures a Client.
type Options struct {
	// ServerURL is the http(s) base of the OneSky API, e.g. "http://localhost:8080".
	ServerURL string
	// SocketPath and ChatPath default to the standard endpoints.
	SocketPath string
	ChatPath   string
	// HTTPTimeout bounds the fallback request.
	HTTPTimeout time.Duration
	// HTTPClient overrides the fallback transport, mainly for tests.
	HTTPClient *http.Client
	// Session overrides the live transport, mainly for tests.
	Session Transport
	// OnUpdate, when set, is called after every transcript mutation.
	OnUpdate func()
}

// Transport is the session contract the client depends on. *session.Session
// satisfies it.
type Transport interface {
	Connect(ctx context.Context) error
	SendText(content string) error
	OnFrame(handler func(payload []byte))
	OnStateChange(observer func(session.State))
	State() session.State
	Close()
}

// Client drives one conversation. All transcript mutation happens under one
// mutex, entered only from Send and from the frame callback, which mirrors
// the single event loop the chat view runs on.
type Client struct {
	opts    Options
	session Transport
	http    *http.Client
	log     zerolog.Logger

	mu        sync.Mutex
	store     *conversation.Store
	assembler *assembler.Assembler
	closed    bool
}

// New builds a client for the given server. The session stays disconnected
// until the first Send.
func New(opts Options, log zerolog.Logger) (*Client, error) {
	if opts.ServerURL == "" {
		return nil, errors.New("assistant: ServerURL is required")
	}
	if opts.SocketPath == "" {
		opts.SocketPath = "/api/chatbot/ws"
	}
	if opts.ChatPath == "" {
		opts.ChatPath = "/api/chatbot/chat"
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 15 * time.Second
	}

	log = log.With().Str("component", "assistant").Logger()

	transport := opts.Session
	if transport == nil {
		wsURL, err := socketURL(opts.ServerURL, opts.SocketPath)
		if err != nil {
			return nil, err
		}
		transport = session.New(wsURL, session.DefaultOptions(), log)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.HTTPTimeout}
	}

	store := conversation.NewStore(log)
	c := &Client{
		opts:      opts,
		session:   transport,
		http:      httpClient,
		log:       log,
		store:     store,
		assembler: assembler.New(store, log),
	}
	transport.OnFrame(c.handleFrame)
	transport.OnStateChange(func(st session.State) {
		if st != session.StateDisconnected {
			return
		}
		// Deltas carry no stream id on the wire; the active pointer is what
		// attaches them. Dropping it keeps a reply streamed after reconnect
		// from being glued onto a stream the old connection never finished.
		c.mu.Lock()
		if !c.closed {
			c.assembler.Reset()
		}
		c.mu.Unlock()
	})
	return c, nil
}

// Connect eagerly establishes the live session. Optional: Send dials on
// demand and falls back when the dial fails.
func (c *Client) Connect(ctx context.Context) error {
	return c.session.Connect(ctx)
}

// Send records the user's message and routes it over the live session when
// one is up, or over the HTTP fallback otherwise. Blank input is ignored. The
// call blocks only when the fallback path is taken.
func (c *Client) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.store.AppendUser(text)
	c.mu.Unlock()
	c.notify()

	if c.session.State() == session.StateDisconnected {
		// Retriable semantics: each user action is a fresh chance to get the
		// live session back before resorting to the fallback.
		_ = c.session.Connect(ctx)
	}

	if c.session.State() == session.StateConnected {
		if err := c.session.SendText(text); err == nil {
			return nil
		}
		// A send that fails mid-flight degrades to the fallback like any
		// other disconnect.
	}

	return c.sendFallback(ctx, text)
}

// Messages returns the transcript in append order.
func (c *Client) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Messages()
}

// ConnectionState exposes the transport state for the UI indicator.
func (c *Client) ConnectionState() session.State {
	return c.session.State()
}

// Close tears the conversation down. Frames or fallback results arriving
// afterwards are discarded without touching the transcript.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.session.OnFrame(nil)
	c.session.Close()
}

// handleFrame is the only inbound path from the live session. One bad frame
// must not corrupt the rest of the conversation, so failures stop here.
func (c *Client) handleFrame(payload []byte) {
	frame, err := wire.Decode(payload)
	if err != nil {
		metrics.DecodeFailures.Inc()
		c.log.Warn().Err(err).Msg("dropping undecodable frame")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.assembler.Apply(frame)
	c.mu.Unlock()
	c.notify()
}

func (c *Client) sendFallback(ctx context.Context, text string) error {
	body, err := json.Marshal(wire.Outbound{Message: text})
	if err != nil {
		return fmt.Errorf("assistant: marshal fallback body: %w", err)
	}

	endpoint := strings.TrimRight(c.opts.ServerURL, "/") + c.opts.ChatPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("assistant: build fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.FallbackRequests.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Msg("fallback request failed")
		c.appendApology()
		return nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		metrics.FallbackRequests.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Int("status", resp.StatusCode).Msg("fallback response unusable")
		c.appendApology()
		return nil
	}

	frame, err := wire.Decode(payload)
	if err != nil {
		metrics.FallbackRequests.WithLabelValues("undecodable").Inc()
		c.log.Warn().Err(err).Msg("fallback response did not decode")
		c.appendApology()
		return nil
	}

	metrics.FallbackRequests.WithLabelValues("ok").Inc()
	c.mu.Lock()
	if c.closed {
		// Torn down while the request was in flight; the result has nowhere
		// to go.
		c.mu.Unlock()
		return nil
	}
	c.assembler.Apply(frame)
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Client) appendApology() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.store.AppendFinalized(fallbackApology, nil)
	c.mu.Unlock()
	c.notify()
}

func (c *Client) notify() {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate()
	}
}

// socketURL rewrites the http(s) base into its ws(s) twin.
func socketURL(base, path string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("assistant: parse server url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("assistant: unsupported scheme %q", parsed.Scheme)
	}
	if i := strings.Index(path, "?"); i >= 0 {
		parsed.RawQuery = path[i+1:]
		path = path[:i]
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + path
	return parsed.String(), nil
}
