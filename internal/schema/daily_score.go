package schema

import "time"

// DailyScore 每日打分。只物化"达成"（score=1）的行，
// 某天某事业线没有行即视为 0，从不显式存 0。
type DailyScore struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Date      string    `gorm:"size:10;index" json:"date"` // YYYY-MM-DD
	Score     int       `gorm:"default:1" json:"score"`    // 恒为 1
	Endeavor  string    `gorm:"size:255;index" json:"endeavor"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (DailyScore) TableName() string {
	return "daily_scores"
}
