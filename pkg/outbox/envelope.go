package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. Catalog admin events carry the
// storekeeper address; loan/purchase events carry the holder address.
type ActorRef struct {
	Address string `json:"address"`
	Role    string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
// OccurredAt is the service clock reading taken inside the mutating
// transaction; downstream consumers treat it as the event timestamp.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
