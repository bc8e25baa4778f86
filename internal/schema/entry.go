package schema

import "time"

// DefaultEndeavor 默认事业线。历史数据没有 endeavor 字段时一律归入该哨兵值。
const DefaultEndeavor = "pet project"

// 三个条目集合共用同一张表结构，通过 db.Table 绑定到各自的表名。
const (
	TableSnippets    = "snippets"
	TableGoals       = "goals"
	TableReflections = "reflections"
)

// Entry 周条目（周记 / 周目标 / 周反思共用的文档形态）。
// 以 (week_start, endeavor) 为逻辑键，每种条目每周至多一条——
// 这是由客户端交互保证的软约束，存储层不做唯一性限制（历史数据可能违反）。
// 数据量级：百级/年
type Entry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	WeekStart string    `gorm:"size:10" json:"week_start"` // YYYY-MM-DD，必须是周一
	WeekEnd   string    `gorm:"size:10" json:"week_end"`   // YYYY-MM-DD，week_start+6
	Content   string    `gorm:"type:text" json:"content"`  // Markdown 原文，落库时非空
	Endeavor  string    `gorm:"size:255" json:"endeavor"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
