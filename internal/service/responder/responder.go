// Package responder produces assistant replies in the wire shapes the client
// assembles: an attachment preamble, chunked text deltas, and a completion,
// or a single-shot payload for the non-streaming HTTP path.
//
// Understanding the message is deliberately shallow: replies are driven by
// keyword categorization over the catalog, not by a language model.
package responder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/model/catalog"
	"github.com/oneskyhq/onesky/backend/internal/service/directory"
)

// ErrRejected marks input refused by sanitisation.
var ErrRejected = errors.New("message rejected")

// deltaChunkSize is how much final text each streamed delta carries.
const deltaChunkSize = 30

const rejectionText = "Sorry, I can't process that request."

// Payload is one server-to-client frame. Field presence, not values, is what
// the client classifies on, so everything is omitempty except Response, which
// distinguishes empty text from no text.
type Payload struct {
	Partial   bool               `json:"partial,omitempty"`
	Stream    bool               `json:"stream,omitempty"`
	Done      bool               `json:"done,omitempty"`
	Response  *string            `json:"response,omitempty"`
	FinalText string             `json:"final_text,omitempty"`
	Category  string             `json:"category,omitempty"`
	Events    []catalog.EventRef `json:"events,omitempty"`
	Teams     []catalog.TeamRef  `json:"teams,omitempty"`
	Badges    []catalog.BadgeRef `json:"badges,omitempty"`
}

// Emit delivers one payload to the client. Returning an error aborts the
// remainder of the stream.
type Emit func(Payload) error

var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)reset\s+the\s+conversation`),
	regexp.MustCompile(`(?i)system\s*prompt`),
	regexp.MustCompile(`(?i)(?:disregard|forget)\s+all\s+prior\s+(?:responses|instructions)`),
	regexp.MustCompile(`(?i)\b(database|schema|table|sql|drop table|truncate|delete from)\b`),
}

var specialChars = "!@$%^*()_\"':;<>/\\~"

// historyLimit caps per-user short-term memory.
const historyLimit = 10

type turn struct {
	Role string
	Text string
}

// Service turns user messages into reply frames.
type Service struct {
	directory *directory.Service
	log       zerolog.Logger

	mu      sync.Mutex
	history map[string][]turn
}

// NewService builds a responder over the given directory.
func NewService(dir *directory.Service, log zerolog.Logger) *Service {
	return &Service{
		directory: dir,
		log:       log.With().Str("component", "responder").Logger(),
		history:   make(map[string][]turn),
	}
}

// Process answers one message in a single payload, for the HTTP path.
func (s *Service) Process(ctx context.Context, userID, message string) (Payload, error) {
	sanitised, err := sanitise(message)
	if err != nil {
		return Payload{}, err
	}
	s.remember(userID, "user", sanitised)

	reply, err := s.compose(ctx, userID, sanitised)
	if err != nil {
		return Payload{}, err
	}
	s.remember(userID, "assistant", reply.text)

	return Payload{
		Response: &reply.text,
		Category: reply.category,
		Events:   reply.events,
		Teams:    reply.teams,
		Badges:   reply.badges,
	}, nil
}

// ProcessStream answers one message as a frame sequence: attachments first
// when there are any, then the text in small deltas for a typing effect, then
// the completion carrying the authoritative final text.
func (s *Service) ProcessStream(ctx context.Context, userID, message string, emit Emit) error {
	sanitised, err := sanitise(message)
	if err != nil {
		rejection := rejectionText
		return emit(Payload{
			Response: &rejection,
			Category: "general",
			Done:     true,
			Stream:   true,
		})
	}
	s.remember(userID, "user", sanitised)

	reply, err := s.compose(ctx, userID, sanitised)
	if err != nil {
		s.log.Error().Err(err).Msg("compose failed")
		apology := "Sorry, I couldn't process that right now."
		return emit(Payload{
			Response: &apology,
			Category: "general",
			Done:     true,
			Stream:   true,
		})
	}

	if len(reply.events) > 0 || len(reply.teams) > 0 || len(reply.badges) > 0 {
		if err := emit(Payload{
			Partial:  true,
			Stream:   true,
			Category: reply.category,
			Events:   reply.events,
			Teams:    reply.teams,
			Badges:   reply.badges,
		}); err != nil {
			return err
		}
	}

	for _, piece := range chunk(reply.text, deltaChunkSize) {
		piece := piece
		if err := emit(Payload{
			Response: &piece,
			Category: reply.category,
			Stream:   true,
		}); err != nil {
			return err
		}
	}

	s.remember(userID, "assistant", reply.text)
	return emit(Payload{
		Category:  reply.category,
		Done:      true,
		Stream:    true,
		FinalText: reply.text,
	})
}

// History returns the recorded short-term memory for a user, oldest first.
func (s *Service) History(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.history[userID]
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role+": "+t.Text)
	}
	return lines
}

type composed struct {
	text     string
	category string
	events   []catalog.EventRef
	teams    []catalog.TeamRef
	badges   []catalog.BadgeRef
}

func (s *Service) compose(ctx context.Context, userID, message string) (composed, error) {
	category := categorize(message)
	if category == "general" {
		// A context-free follow-up like "and in Leeds?" continues the topic
		// of the user's previous turn.
		if prev := s.recallCategory(userID); prev != "" {
			category = prev
		}
	}

	switch category {
	case "events":
		events, err := s.directory.EventsForMessage(ctx, message)
		if err != nil {
			return composed{}, err
		}
		text := "I couldn't find any upcoming events right now."
		if len(events) > 0 {
			text = fmt.Sprintf("I found %d upcoming volunteering %s for you.", len(events), plural(len(events), "event", "events"))
		}
		return composed{text: text, category: "events", events: events}, nil

	case "teams":
		teams, err := s.directory.Teams(ctx)
		if err != nil {
			return composed{}, err
		}
		text := "There are no teams yet. Why not create the first one?"
		if len(teams) > 0 {
			text = fmt.Sprintf("Here %s %d %s you could join. Contact a team owner for the join code.",
				plural(len(teams), "is", "are"), len(teams), plural(len(teams), "team", "teams"))
		}
		return composed{text: text, category: "teams", teams: teams}, nil

	case "badges":
		badges, err := s.directory.Badges(ctx)
		if err != nil {
			return composed{}, err
		}
		text := fmt.Sprintf("These are the %d badges you can earn on OneSky.", len(badges))
		return composed{text: text, category: "badges", badges: badges}, nil

	case "impact":
		if userID == "" {
			return composed{
				text:     "Sign in and I can share your volunteering impact and hours.",
				category: "impact",
			}, nil
		}
		stats, err := s.directory.Impact(ctx, userID)
		if errors.Is(err, directory.ErrUnknownUser) {
			return composed{
				text:     "You haven't logged any volunteering yet. Your first event is waiting!",
				category: "impact",
			}, nil
		}
		if err != nil {
			return composed{}, err
		}
		return composed{
			text: fmt.Sprintf("%s, you've volunteered %.1f hours across %d events and earned %d badges. Great work!",
				stats.DisplayName, stats.HoursVolunteered, stats.EventsCompleted, stats.BadgesEarned),
			category: "impact",
		}, nil
	}

	return composed{
		text:     "I can help you find volunteering events, explore teams, check your badges, or review your impact. What would you like to do?",
		category: "general",
	}, nil
}

func categorize(message string) string {
	lowered := strings.ToLower(message)
	switch {
	case containsAny(lowered, "event", "volunteer", "opportunit", "register", "sign up", "weekend"):
		return "events"
	case containsAny(lowered, "team"):
		return "teams"
	case containsAny(lowered, "badge", "achievement"):
		return "badges"
	case containsAny(lowered, "impact", "hours", "stats", "leaderboard"):
		return "impact"
	}
	return "general"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// sanitise mirrors the input safeguards of the HTTP endpoint: reject plainly
// hostile messages, strip markup-ish characters, collapse whitespace.
func sanitise(message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", ErrRejected
	}

	for _, pattern := range forbiddenPatterns {
		if pattern.MatchString(trimmed) {
			return "", ErrRejected
		}
	}

	var b strings.Builder
	for _, r := range trimmed {
		if strings.ContainsRune(specialChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return "", ErrRejected
	}
	return cleaned, nil
}

func chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

// recallCategory looks back through a user's remembered turns for the topic
// an uncategorizable message should inherit. The newest user turn is the
// message currently being answered, so it is skipped.
func (s *Service) recallCategory(userID string) string {
	if userID == "" {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.history[userID]
	skippedCurrent := false
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != "user" {
			continue
		}
		if !skippedCurrent {
			skippedCurrent = true
			continue
		}
		if c := categorize(turns[i].Text); c != "general" {
			return c
		}
	}
	return ""
}

func (s *Service) remember(userID, role, text string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.history[userID], turn{Role: role, Text: text})
	if len(turns) > historyLimit {
		turns = turns[len(turns)-historyLimit:]
	}
	s.history[userID] = turns
}
