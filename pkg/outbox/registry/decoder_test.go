package registry

import (
	"encoding/json"
	"testing"

	"github.com/bookhaven/bookledger-backend/pkg/enums"
	"github.com/bookhaven/bookledger-backend/pkg/outbox/payloads"
)

func TestDecoderRegistryRoundTrip(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventBookAdded, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.BookAddedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})

	raw, err := json.Marshal(payloads.BookAddedEvent{BookID: 3, Title: "Solaris", Author: "Lem"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	decoded, err := reg.Decode(enums.EventBookAdded, 1, raw)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	event, ok := decoded.(*payloads.BookAddedEvent)
	if !ok {
		t.Fatalf("expected *BookAddedEvent, got %T", decoded)
	}
	if event.BookID != 3 || event.Title != "Solaris" {
		t.Fatalf("unexpected payload %+v", event)
	}
}

func TestDecoderRegistryUnregistered(t *testing.T) {
	reg := NewDecoderRegistry()

	if _, err := reg.Decode(enums.EventBookAdded, 1, json.RawMessage(`{}`)); err == nil {
		t.Fatal("unregistered decoder must error")
	}

	reg.Register(enums.EventBookAdded, 1, func(payload json.RawMessage) (interface{}, error) {
		return struct{}{}, nil
	})
	// Versions are independent registrations.
	if _, err := reg.Decode(enums.EventBookAdded, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("different version must not resolve")
	}
}
