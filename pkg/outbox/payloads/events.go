package payloads

import "time"

// One payload type per successful mutating ledger operation. Field names are
// part of the published contract; consumers decode on kind.

type BookAddedEvent struct {
	BookID    uint64    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

type BookRemovedEvent struct {
	BookID    uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type BookBorrowedEvent struct {
	BookID    uint64    `json:"id"`
	Borrower  string    `json:"borrower"`
	Timestamp time.Time `json:"timestamp"`
}

type BookReturnedEvent struct {
	BookID    uint64    `json:"id"`
	Borrower  string    `json:"borrower"`
	Timestamp time.Time `json:"timestamp"`
}

type BookBoughtEvent struct {
	BookID    uint64    `json:"id"`
	Buyer     string    `json:"buyer"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

type BookRefundedEvent struct {
	BookID    uint64    `json:"id"`
	Buyer     string    `json:"buyer"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}
