package models

// SalesCounter tracks the net count of active purchases per book: buy
// increments, refund decrements. The refund guard (a matching purchase must
// exist) keeps the value non-negative; the repository clamps at zero anyway.
type SalesCounter struct {
	BookID    uint64 `gorm:"column:book_id;primaryKey;autoIncrement:false"`
	SoldCount int64  `gorm:"column:sold_count;not null;default:0"`
}

func (SalesCounter) TableName() string { return "sales_counters" }
