package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nizhen/weeklog/internal/eventbus"
	"github.com/nizhen/weeklog/internal/schema"
)

// EndeavorService 事业线登记处。事业线不是一等实体，
// 名字冗余存在每条记录里，集合靠全表扫描推导。
type EndeavorService struct {
	snippets    EntryRepository
	goals       EntryRepository
	reflections EntryRepository
	scores      ScoreRepository
	hub         *eventbus.Hub
}

// NewEndeavorService 创建事业线服务
func NewEndeavorService(
	snippets EntryRepository,
	goals EntryRepository,
	reflections EntryRepository,
	scores ScoreRepository,
	hub *eventbus.Hub,
) *EndeavorService {
	return &EndeavorService{
		snippets:    snippets,
		goals:       goals,
		reflections: reflections,
		scores:      scores,
		hub:         hub,
	}
}

// RenameResult 各集合的改写行数，供调用方检测部分完成
type RenameResult struct {
	Snippets    int64 `json:"snippets"`
	Goals       int64 `json:"goals"`
	Reflections int64 `json:"reflections"`
	DailyScores int64 `json:"daily_scores"`
}

// Total 改写总行数
func (r RenameResult) Total() int64 {
	return r.Snippets + r.Goals + r.Reflections + r.DailyScores
}

// List 汇总四个集合出现过的全部事业线，去重排序。
// 空库也至少返回默认哨兵，客户端永远有可选项。
func (s *EndeavorService) List(ctx context.Context) ([]string, error) {
	set := map[string]struct{}{
		schema.DefaultEndeavor: {},
	}

	for _, repo := range []EntryRepository{s.snippets, s.goals, s.reflections} {
		names, err := repo.DistinctEndeavors(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			set[n] = struct{}{}
		}
	}

	names, err := s.scores.DistinctEndeavors(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		set[n] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Rename 跨四个集合改写事业线名。
// 单集合内是一条 UPDATE（原子），但跨集合不是事务：中途失败会留下
// 新旧混杂的状态。返回值始终带上已完成集合的行数，且整个操作幂等——
// 对改剩的旧名重试一次即可补完（旧名零命中时返回零行成功）。
func (s *EndeavorService) Rename(ctx context.Context, oldName, newName string) (RenameResult, error) {
	var result RenameResult

	if strings.TrimSpace(oldName) == "" || strings.TrimSpace(newName) == "" {
		return result, fmt.Errorf("%w: old_name 与 new_name 都不能为空", ErrValidation)
	}
	if oldName == newName {
		// 同名改写视为无事发生的成功
		return result, nil
	}

	n, err := s.snippets.RenameEndeavor(ctx, oldName, newName)
	if err != nil {
		return result, fmt.Errorf("改写 snippets 失败: %w", err)
	}
	result.Snippets = n

	if n, err = s.goals.RenameEndeavor(ctx, oldName, newName); err != nil {
		return result, fmt.Errorf("改写 goals 失败（snippets 已完成）: %w", err)
	}
	result.Goals = n

	if n, err = s.reflections.RenameEndeavor(ctx, oldName, newName); err != nil {
		return result, fmt.Errorf("改写 reflections 失败（snippets/goals 已完成）: %w", err)
	}
	result.Reflections = n

	if n, err = s.scores.RenameEndeavor(ctx, oldName, newName); err != nil {
		return result, fmt.Errorf("改写 daily_scores 失败（条目集合已完成）: %w", err)
	}
	result.DailyScores = n

	s.hub.Publish(eventbus.Event{
		Type: eventbus.TypeEndeavorRenamed,
		Data: map[string]any{
			"old_name": oldName,
			"new_name": newName,
			"updated":  result.Total(),
		},
	})
	return result, nil
}
