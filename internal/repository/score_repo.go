package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nizhen/weeklog/internal/schema"
	"gorm.io/gorm"
)

// ScoreRepository 每日打分仓储。只存"达成"的行，删行即归零。
type ScoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository 创建打分仓储
func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// GetByDateRange 查询日期范围内的打分，按事业线过滤，日期升序
func (r *ScoreRepository) GetByDateRange(ctx context.Context, startDate, endDate, endeavor string) ([]schema.DailyScore, error) {
	var scores []schema.DailyScore
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", startDate, endDate).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, endeavor).
		Order("date ASC").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("查询打分失败: %w", err)
	}
	return scores, nil
}

// GetRecent 无日期范围时的回退查询：按日期倒序取最近 limit 条
func (r *ScoreRepository) GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.DailyScore, error) {
	var scores []schema.DailyScore
	err := r.db.WithContext(ctx).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, endeavor).
		Order("date DESC").
		Limit(limit).
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("查询打分失败: %w", err)
	}
	return scores, nil
}

// FindByDay 查某天某事业线的打分行，不存在返回 (nil, nil)
func (r *ScoreRepository) FindByDay(ctx context.Context, date, endeavor string) (*schema.DailyScore, error) {
	var score schema.DailyScore
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, endeavor).
		First(&score).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询打分失败: %w", err)
	}
	return &score, nil
}

// Create 创建打分行（score 恒为 1），ID 为空时生成 UUID
func (r *ScoreRepository) Create(ctx context.Context, score *schema.DailyScore) error {
	if score == nil {
		return fmt.Errorf("score 不能为空")
	}
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.Score == 0 {
		score.Score = 1
	}
	if err := r.db.WithContext(ctx).Create(score).Error; err != nil {
		return fmt.Errorf("创建打分失败: %w", err)
	}
	return nil
}

// Delete 删除打分行。返回是否命中记录。
func (r *ScoreRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.DailyScore{})
	if result.Error != nil {
		return false, fmt.Errorf("删除打分失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DistinctEndeavors 扫描打分集合出现过的全部事业线（含哨兵归一）
func (r *ScoreRepository) DistinctEndeavors(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT "+endeavorExprSQL+" FROM daily_scores", schema.DefaultEndeavor).
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("扫描打分事业线失败: %w", err)
	}
	return names, nil
}

// RenameEndeavor 把打分集合中 endeavor == oldName 的行改写为 newName，返回改写行数
func (r *ScoreRepository) RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&schema.DailyScore{}).
		Where(endeavorExprSQL+" = ?", schema.DefaultEndeavor, oldName).
		Updates(map[string]any{
			"endeavor":   newName,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("改名打分失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}
