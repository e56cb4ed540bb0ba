package models

import "time"

// Book is a catalog row. Ids are allocated by the ledger settings counter
// rather than the database, so removal never frees an id for reuse.
// Stock is informational only: neither borrowing nor buying checks or
// decrements it.
type Book struct {
	ID        uint64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Author    string     `gorm:"column:author;not null" json:"author"`
	Price     uint64     `gorm:"column:price;not null" json:"price"`
	Stock     uint64     `gorm:"column:stock;not null" json:"stock"`
	Removed   bool       `gorm:"column:removed;not null;default:false" json:"-"`
	RemovedAt *time.Time `gorm:"column:removed_at" json:"-"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (Book) TableName() string { return "catalog_books" }

// Snapshot captures the caller-visible fields of a catalog row at a point in
// time. Loan and purchase records store one and compare it against the live
// row on return/refund.
type Snapshot struct {
	BookID     uint64 `gorm:"column:book_id;not null"`
	BookTitle  string `gorm:"column:book_title;not null"`
	BookAuthor string `gorm:"column:book_author;not null"`
	BookPrice  uint64 `gorm:"column:book_price;not null"`
	BookStock  uint64 `gorm:"column:book_stock;not null"`
}

// SnapshotOf copies the comparable fields from a catalog row.
func SnapshotOf(book *Book) Snapshot {
	if book == nil {
		return Snapshot{}
	}
	return Snapshot{
		BookID:     book.ID,
		BookTitle:  book.Title,
		BookAuthor: book.Author,
		BookPrice:  book.Price,
		BookStock:  book.Stock,
	}
}

// Matches reports whether the snapshot equals the live row exactly. A removed
// row never matches.
func (s Snapshot) Matches(book *Book) bool {
	if book == nil || book.Removed {
		return false
	}
	return s == SnapshotOf(book)
}

// ToBook rebuilds a Book value from the stored snapshot fields.
func (s Snapshot) ToBook() Book {
	return Book{
		ID:     s.BookID,
		Title:  s.BookTitle,
		Author: s.BookAuthor,
		Price:  s.BookPrice,
		Stock:  s.BookStock,
	}
}
