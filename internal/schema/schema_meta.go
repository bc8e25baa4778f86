package schema

import "time"

// SchemaMeta 记录日记库的 schema 版本，单行（ID=1）。
// 四个集合的结构调整都以该版本号为门闸，而不是每次启动盲跑 AutoMigrate，
// 版本高于程序支持时拒绝迁移，避免新库被旧程序改坏。
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}
