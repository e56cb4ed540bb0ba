package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeBook() *Book {
	return &Book{
		ID:     3,
		Title:  "The Master and Margarita",
		Author: "Mikhail Bulgakov",
		Price:  1250,
		Stock:  4,
	}
}

func TestSnapshotOfCopiesComparableFields(t *testing.T) {
	book := activeBook()
	snap := SnapshotOf(book)

	assert.Equal(t, book.ID, snap.BookID)
	assert.Equal(t, book.Title, snap.BookTitle)
	assert.Equal(t, book.Author, snap.BookAuthor)
	assert.Equal(t, book.Price, snap.BookPrice)
	assert.Equal(t, book.Stock, snap.BookStock)

	assert.Equal(t, Snapshot{}, SnapshotOf(nil), "nil book should snapshot to the zero value")
}

func TestSnapshotMatchesExactRow(t *testing.T) {
	book := activeBook()
	snap := SnapshotOf(book)

	require.True(t, snap.Matches(book), "snapshot should match the unchanged row")

	changedPrice := *book
	changedPrice.Price++
	assert.False(t, snap.Matches(&changedPrice), "price change must break the match")

	changedStock := *book
	changedStock.Stock++
	assert.False(t, snap.Matches(&changedStock), "stock change must break the match")

	changedTitle := *book
	changedTitle.Title = "Heart of a Dog"
	assert.False(t, snap.Matches(&changedTitle), "title change must break the match")
}

func TestSnapshotNeverMatchesRemovedRow(t *testing.T) {
	book := activeBook()
	snap := SnapshotOf(book)

	removed := *book
	removed.Removed = true
	assert.False(t, snap.Matches(&removed), "removed row must never match, even with identical fields")
	assert.False(t, snap.Matches(nil), "nil row must never match")
}

func TestSnapshotToBookRoundTrip(t *testing.T) {
	book := activeBook()
	rebuilt := SnapshotOf(book).ToBook()

	require.Equal(t, book.ID, rebuilt.ID)
	assert.Equal(t, book.Title, rebuilt.Title)
	assert.Equal(t, book.Author, rebuilt.Author)
	assert.Equal(t, book.Price, rebuilt.Price)
	assert.Equal(t, book.Stock, rebuilt.Stock)
	assert.False(t, rebuilt.Removed, "rebuilt book should not carry the removed flag")
}
