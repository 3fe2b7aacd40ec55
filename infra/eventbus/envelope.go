package eventbus

import (
	"encoding/json"
	"time"

	"github.com/amirasaad/btcvest/pkg/eventbus"
)

// Envelope is the wire form of an event on external transports.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func buildEnvelope(e eventbus.Event, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: e.Type(), OccurredAt: now, Payload: payload})
}
