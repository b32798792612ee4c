package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oneskyhq/onesky/backend/internal/model/catalog"
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

// ErrUnclassifiable marks a payload that parsed as JSON but matches none of
// the known frame shapes.
var ErrUnclassifiable = errors.New("payload matches no known frame shape")

// envelope is the superset of fields any inbound payload may carry.
type envelope struct {
	Partial   bool               `json:"partial"`
	Stream    bool               `json:"stream"`
	Done      bool               `json:"done"`
	Response  *string            `json:"response"`
	FinalText string             `json:"final_text"`
	Category  string             `json:"category"`
	Events    []catalog.EventRef `json:"events"`
	Teams     []catalog.TeamRef  `json:"teams"`
	Badges    []catalog.BadgeRef `json:"badges"`
}

func (e envelope) attachments() chat.Attachments {
	return chat.Attachments{Events: e.Events, Teams: e.Teams, Badges: e.Badges}
}

// Decode classifies one raw inbound payload. The first matching rule wins:
// attachment preamble, text delta, completion, single shot. Anything else is
// a decode failure reported through the returned error; Decode never panics.
func Decode(payload []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch {
	case env.Partial:
		return AttachmentFrame{Category: env.Category, Attachments: env.attachments()}, nil

	case env.Stream && !env.Done:
		if env.Response == nil {
			return nil, fmt.Errorf("%w: streaming payload without response text", ErrUnclassifiable)
		}
		return DeltaFrame{Text: *env.Response}, nil

	case env.Done:
		final := env.FinalText
		if final == "" && env.Response != nil {
			// Error and rejection replies close the exchange with the text in
			// the response field instead of final_text.
			final = *env.Response
		}
		return CompletionFrame{Category: env.Category, FinalText: final}, nil

	case env.Response != nil:
		return SingleShotFrame{
			Category:    env.Category,
			Text:        *env.Response,
			Attachments: env.attachments(),
		}, nil
	}

	return nil, ErrUnclassifiable
}
