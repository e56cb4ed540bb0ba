package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bookhaven/bookledger-backend/pkg/config"
	"github.com/bookhaven/bookledger-backend/pkg/db/models"
	"github.com/bookhaven/bookledger-backend/pkg/enums"
	"github.com/bookhaven/bookledger-backend/pkg/outbox"
	"github.com/bookhaven/bookledger-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event kind to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventKind      enums.LedgerEventKind
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event kind to its descriptor.
type EventRegistry struct {
	entries map[enums.LedgerEventKind]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic name.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.LedgerTopic == "" {
		return nil, fmt.Errorf("ledger topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.LedgerEventKind]EventDescriptor)}
	ledgerTopic := cfg.LedgerTopic

	for _, desc := range []EventDescriptor{
		{
			EventKind:      enums.EventBookAdded,
			AggregateType:  enums.AggregateCatalog,
			Topic:          ledgerTopic,
			PayloadFactory: func() interface{} { return &payloads.BookAddedEvent{} },
		},
		{
			EventKind:      enums.EventBookRemoved,
			AggregateType:  enums.AggregateCatalog,
			Topic:          ledgerTopic,
			PayloadFactory: func() interface{} { return &payloads.BookRemovedEvent{} },
		},
		{
			EventKind:      enums.EventBookBorrowed,
			AggregateType:  enums.AggregateLoan,
			Topic:          ledgerTopic,
			PayloadFactory: func() interface{} { return &payloads.BookBorrowedEvent{} },
		},
		{
			EventKind:      enums.EventBookReturned,
			AggregateType:  enums.AggregateLoan,
			Topic:          ledgerTopic,
			PayloadFactory: func() interface{} { return &payloads.BookReturnedEvent{} },
		},
		{
			EventKind:      enums.EventBookBought,
			AggregateType:  enums.AggregatePurchase,
			Topic:          ledgerTopic,
			PayloadFactory: func() interface{} { return &payloads.BookBoughtEvent{} },
		},
		{
			EventKind:      enums.EventBookRefunded,
			AggregateType:  enums.AggregatePurchase,
			Topic:          ledgerTopic,
			PayloadFactory: func() interface{} { return &payloads.BookRefundedEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventKind] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventKind]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event kind %s", event.EventKind))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.BookID == 0 {
		return nil, NewNonRetryableError(fmt.Errorf("missing book_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventKind))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventKind))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventKind, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
