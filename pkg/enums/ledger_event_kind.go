package enums

import "fmt"

// LedgerEventKind maps to the event_kind enum in Postgres. One kind per
// successful mutating ledger operation.
type LedgerEventKind string

const (
	EventBookAdded    LedgerEventKind = "book_added"
	EventBookRemoved  LedgerEventKind = "book_removed"
	EventBookBorrowed LedgerEventKind = "book_borrowed"
	EventBookReturned LedgerEventKind = "book_returned"
	EventBookBought   LedgerEventKind = "book_bought"
	EventBookRefunded LedgerEventKind = "book_refunded"
)

var validLedgerEventKinds = []LedgerEventKind{
	EventBookAdded,
	EventBookRemoved,
	EventBookBorrowed,
	EventBookReturned,
	EventBookBought,
	EventBookRefunded,
}

// IsValid reports whether the value matches the canonical event_kind enum.
func (e LedgerEventKind) IsValid() bool {
	for _, candidate := range validLedgerEventKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseLedgerEventKind converts raw input into LedgerEventKind.
func ParseLedgerEventKind(value string) (LedgerEventKind, error) {
	for _, candidate := range validLedgerEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
