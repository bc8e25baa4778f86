package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nizhen/weeklog/internal/schema"
	"github.com/nizhen/weeklog/internal/week"
)

// FeatureFlags 功能开关快照。通过函数注入以支持配置热更新。
type FeatureFlags struct {
	Goals       bool
	Reflections bool
	DailyScores bool
}

// WeekView 单个周桶的渲染模型。每次请求现算，不落库。
type WeekView struct {
	WeekStart  string         `json:"week_start"`
	WeekEnd    string         `json:"week_end"`
	WeekNumber int            `json:"week_number"`
	IsFuture   bool           `json:"is_future"`
	Snippet    *schema.Entry  `json:"snippet,omitempty"`
	Goal       *schema.Entry  `json:"goal,omitempty"`
	Reflection *schema.Entry  `json:"reflection,omitempty"`
	DayScores  map[string]int `json:"day_scores"` // 周一至周日共 7 天，无行的日期为 0
}

// ViewService 视图合并服务：把周桶序列与四个集合的稀疏记录
// 合并为统一的渲染模型。
type ViewService struct {
	snippets    EntryRepository
	goals       EntryRepository
	reflections EntryRepository
	scores      ScoreRepository
	flags       func() FeatureFlags
	now         func() time.Time
}

// NewViewService 创建视图服务
func NewViewService(
	snippets EntryRepository,
	goals EntryRepository,
	reflections EntryRepository,
	scores ScoreRepository,
	flags func() FeatureFlags,
	now func() time.Time,
) *ViewService {
	return &ViewService{
		snippets:    snippets,
		goals:       goals,
		reflections: reflections,
		scores:      scores,
		flags:       flags,
		now:         now,
	}
}

// WeekViews 构建 [startDate, endDate] 的周视图序列。
// 内部按升序展开周桶，输出按 week_start 倒序（最新的周排最前）——
// 这是刻意的展示策略，倒序只在这里做一次。
func (s *ViewService) WeekViews(ctx context.Context, startDate, endDate, endeavor string) ([]WeekView, error) {
	start, err := week.ParseISO(startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q", ErrValidation, startDate)
	}
	end, err := week.ParseISO(endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date %q", ErrValidation, endDate)
	}

	universe, err := week.BuildUniverse(start, end, s.now())
	if err != nil {
		return nil, err
	}

	endeavor = normalizeEndeavor(endeavor)
	flags := s.flags()

	// 查询范围用吸附后的周边界，保证取到完整周的数据
	rangeStart := week.FormatISO(universe[0].WeekStart)
	rangeEnd := week.FormatISO(universe[len(universe)-1].WeekEnd)

	snippets, err := s.snippets.GetOverlapping(ctx, rangeStart, rangeEnd, endeavor)
	if err != nil {
		return nil, err
	}

	var goals, reflections []schema.Entry
	if flags.Goals {
		if goals, err = s.goals.GetOverlapping(ctx, rangeStart, rangeEnd, endeavor); err != nil {
			return nil, err
		}
	}
	if flags.Reflections {
		if reflections, err = s.reflections.GetOverlapping(ctx, rangeStart, rangeEnd, endeavor); err != nil {
			return nil, err
		}
	}

	var scores []schema.DailyScore
	if flags.DailyScores {
		if scores, err = s.scores.GetByDateRange(ctx, rangeStart, rangeEnd, endeavor); err != nil {
			return nil, err
		}
	}

	return mergeWeekViews(universe, snippets, goals, reflections, scores), nil
}

// mergeWeekViews 纯合并：每个周桶各出一条 WeekView，长度恒等于周桶数。
func mergeWeekViews(universe []week.Bucket, snippets, goals, reflections []schema.Entry, scores []schema.DailyScore) []WeekView {
	snippetIdx := indexByWeekStart(snippets, "snippets")
	goalIdx := indexByWeekStart(goals, "goals")
	reflectionIdx := indexByWeekStart(reflections, "reflections")

	scoreIdx := make(map[string]int, len(scores))
	for _, sc := range scores {
		scoreIdx[sc.Date] = 1
	}

	views := make([]WeekView, 0, len(universe))
	for _, b := range universe {
		key := week.FormatISO(b.WeekStart)

		days := make(map[string]int, 7)
		for i := 0; i < 7; i++ {
			d := week.FormatISO(b.WeekStart.AddDate(0, 0, i))
			days[d] = scoreIdx[d]
		}

		views = append(views, WeekView{
			WeekStart:  key,
			WeekEnd:    week.FormatISO(b.WeekEnd),
			WeekNumber: week.ISOWeekNumber(b.WeekStart),
			IsFuture:   b.IsFuture,
			Snippet:    snippetIdx[key],
			Goal:       goalIdx[key],
			Reflection: reflectionIdx[key],
			DayScores:  days,
		})
	}

	// 展示按时间倒序：最新的周排最前
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views
}

// indexByWeekStart 把条目按 week_start 建索引。
// 同周同事业线出现多条时后者覆盖前者（与历史行为一致）；
// week_start 无法解析的脏记录直接丢出索引，只告警不中断合并。
func indexByWeekStart(entries []schema.Entry, collection string) map[string]*schema.Entry {
	idx := make(map[string]*schema.Entry, len(entries))
	for i := range entries {
		e := &entries[i]
		if _, err := week.ParseISO(e.WeekStart); err != nil {
			slog.Warn("条目 week_start 非法，跳过合并",
				"collection", collection, "id", e.ID, "week_start", e.WeekStart)
			continue
		}
		idx[e.WeekStart] = e
	}
	return idx
}
