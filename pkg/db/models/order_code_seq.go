package models

// OrderCodeSeq holds the per-day order code counter. The next value is always
// allocated with a single upsert-returning statement, never read-then-write.
type OrderCodeSeq struct {
	Day   string `gorm:"column:day;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}
