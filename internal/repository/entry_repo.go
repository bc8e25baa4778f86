package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nizhen/weeklog/internal/schema"
	"gorm.io/gorm"
)

// endeavorExprSQL 把历史数据中缺失/为空的 endeavor 归入默认哨兵值后再参与比较。
// 占位符由调用处以 schema.DefaultEndeavor 填充。
const endeavorExprSQL = "COALESCE(NULLIF(endeavor, ''), ?)"

// EntryRepository 周条目仓储。snippets / goals / reflections 三张表结构相同，
// 同一仓储按表名绑定各建一个实例。
type EntryRepository struct {
	db    *gorm.DB
	table string
}

// NewEntryRepository 创建指定集合的条目仓储
func NewEntryRepository(db *gorm.DB, table string) *EntryRepository {
	return &EntryRepository{db: db, table: table}
}

// Table 仓储绑定的表名
func (r *EntryRepository) Table() string {
	return r.table
}

func (r *EntryRepository) scope(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// GetOverlapping 查询与 [startDate, endDate] 有交集的周条目，按事业线过滤。
// 交集判定：week_start <= endDate 且 week_end >= startDate。
// 事业线过滤直接下推到 SQL，而不是取全量后在应用层过滤。
func (r *EntryRepository) GetOverlapping(ctx context.Context, startDate, endDate, endeavor string) ([]schema.Entry, error) {
	var entries []schema.Entry
	err := r.scope(ctx).
		Where("week_start <= ? AND week_end >= ?", endDate, startDate).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, endeavor).
		Order("week_start DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败: %w", r.table, err)
	}
	return entries, nil
}

// GetRecent 无日期范围时的回退查询：按周起始倒序取最近 limit 条
func (r *EntryRepository) GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.Entry, error) {
	var entries []schema.Entry
	err := r.scope(ctx).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, endeavor).
		Order("week_start DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败: %w", r.table, err)
	}
	return entries, nil
}

// GetByID 按 ID 查询，记录不存在返回 (nil, nil)
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*schema.Entry, error) {
	var entry schema.Entry
	err := r.scope(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询 %s 失败: %w", r.table, err)
	}
	return &entry, nil
}

// Create 创建条目，ID 为空时生成 UUID
func (r *EntryRepository) Create(ctx context.Context, entry *schema.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry 不能为空")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.scope(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("创建 %s 失败: %w", r.table, err)
	}
	return nil
}

// UpdateContent 更新条目内容。返回是否命中记录。
func (r *EntryRepository) UpdateContent(ctx context.Context, id, content string) (bool, error) {
	result := r.scope(ctx).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":    content,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("更新 %s 失败: %w", r.table, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除条目。返回是否命中记录。
func (r *EntryRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.scope(ctx).Where("id = ?", id).Delete(&schema.Entry{})
	if result.Error != nil {
		return false, fmt.Errorf("删除 %s 失败: %w", r.table, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DistinctEndeavors 扫描本集合出现过的全部事业线（含哨兵归一）
func (r *EntryRepository) DistinctEndeavors(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT "+endeavorExprSQL+" FROM "+r.table, schema.DefaultEndeavor).
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("扫描 %s 事业线失败: %w", r.table, err)
	}
	return names, nil
}

// RenameEndeavor 把本集合中 endeavor == oldName 的记录全部改写为 newName，
// 返回改写行数。单表内是一条 UPDATE，天然原子；跨集合的编排在服务层。
func (r *EntryRepository) RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error) {
	result := r.scope(ctx).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, oldName).
		Updates(map[string]any{
			"endeavor":   newName,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("改名 %s 失败: %w", r.table, result.Error)
	}
	return result.RowsAffected, nil
}
