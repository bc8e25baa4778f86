package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nizhen/weeklog/internal/schema"
	"github.com/nizhen/weeklog/internal/testutil"
)

type fakeEntryRepoForView struct {
	entries []schema.Entry
}

func (f fakeEntryRepoForView) GetOverlapping(ctx context.Context, startDate, endDate, endeavor string) ([]schema.Entry, error) {
	return f.entries, nil
}
func (f fakeEntryRepoForView) GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.Entry, error) {
	return nil, nil
}
func (f fakeEntryRepoForView) GetByID(ctx context.Context, id string) (*schema.Entry, error) {
	return nil, nil
}
func (f fakeEntryRepoForView) Create(ctx context.Context, entry *schema.Entry) error { return nil }
func (f fakeEntryRepoForView) UpdateContent(ctx context.Context, id, content string) (bool, error) {
	return false, nil
}
func (f fakeEntryRepoForView) Delete(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (f fakeEntryRepoForView) DistinctEndeavors(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (f fakeEntryRepoForView) RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error) {
	return 0, nil
}

type fakeScoreRepoForView struct {
	scores []schema.DailyScore
}

func (f fakeScoreRepoForView) GetByDateRange(ctx context.Context, startDate, endDate, endeavor string) ([]schema.DailyScore, error) {
	return f.scores, nil
}
func (f fakeScoreRepoForView) GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.DailyScore, error) {
	return nil, nil
}
func (f fakeScoreRepoForView) FindByDay(ctx context.Context, date, endeavor string) (*schema.DailyScore, error) {
	return nil, nil
}
func (f fakeScoreRepoForView) Create(ctx context.Context, score *schema.DailyScore) error { return nil }
func (f fakeScoreRepoForView) Delete(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (f fakeScoreRepoForView) DistinctEndeavors(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (f fakeScoreRepoForView) RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error) {
	return 0, nil
}

func allFlags() FeatureFlags {
	return FeatureFlags{Goals: true, Reflections: true, DailyScores: true}
}

func newViewService(snippets, goals, reflections []schema.Entry, scores []schema.DailyScore, flags func() FeatureFlags) *ViewService {
	return NewViewService(
		fakeEntryRepoForView{entries: snippets},
		fakeEntryRepoForView{entries: goals},
		fakeEntryRepoForView{entries: reflections},
		fakeScoreRepoForView{scores: scores},
		flags,
		testutil.FixedClock("2025-11-05"),
	)
}

func TestWeekViewsSparseMerge(t *testing.T) {
	ctx := context.Background()
	snippet := schema.Entry{ID: "s1", WeekStart: "2025-10-27", WeekEnd: "2025-11-02", Content: "只有中间这周", Endeavor: "pet project"}

	svc := newViewService([]schema.Entry{snippet}, nil, nil, nil, allFlags)

	// 三个完整周：10-20 ~ 11-09
	views, err := svc.WeekViews(ctx, "2025-10-22", "2025-11-05", "pet project")
	if err != nil {
		t.Fatalf("WeekViews: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len=%d, want 3", len(views))
	}
	// 输出按 week_start 倒序
	if views[0].WeekStart != "2025-11-03" || views[1].WeekStart != "2025-10-27" || views[2].WeekStart != "2025-10-20" {
		t.Fatalf("倒序错误: %s, %s, %s", views[0].WeekStart, views[1].WeekStart, views[2].WeekStart)
	}
	if views[0].Snippet != nil || views[2].Snippet != nil {
		t.Fatalf("只有中间的周应有周记")
	}
	if views[1].Snippet == nil || views[1].Snippet.ID != "s1" {
		t.Fatalf("中间的周缺少周记: %+v", views[1].Snippet)
	}
	if views[1].Goal != nil || views[1].Reflection != nil {
		t.Fatalf("无数据的字段应为空")
	}
}

func TestWeekViewsDayScores(t *testing.T) {
	ctx := context.Background()
	scores := []schema.DailyScore{
		{ID: "d1", Date: "2025-10-28", Score: 1, Endeavor: "pet project"},
	}

	svc := newViewService(nil, nil, nil, scores, allFlags)

	views, err := svc.WeekViews(ctx, "2025-10-27", "2025-11-02", "pet project")
	if err != nil {
		t.Fatalf("WeekViews: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len=%d, want 1", len(views))
	}

	days := views[0].DayScores
	if len(days) != 7 {
		t.Fatalf("每周必须恰好 7 天: %d", len(days))
	}
	if days["2025-10-28"] != 1 {
		t.Fatalf("2025-10-28 应为 1")
	}
	var wins int
	for _, v := range days {
		wins += v
	}
	if wins != 1 {
		t.Fatalf("其余日期应默认为 0, wins=%d", wins)
	}
}

func TestWeekViewsWeekNumberAndFuture(t *testing.T) {
	ctx := context.Background()
	svc := newViewService(nil, nil, nil, nil, allFlags)

	// 今天 2025-11-05：当前周不是未来周，下一周是
	views, err := svc.WeekViews(ctx, "2025-11-03", "2025-11-16", "pet project")
	if err != nil {
		t.Fatalf("WeekViews: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len=%d, want 2", len(views))
	}
	if !views[0].IsFuture {
		t.Fatalf("倒序后第一条是下一周，应为未来周")
	}
	if views[1].IsFuture {
		t.Fatalf("当前周不应是未来周")
	}
	if views[1].WeekNumber != 45 {
		t.Fatalf("2025-11-03 的 ISO 周序号=%d, want 45", views[1].WeekNumber)
	}
}

func TestWeekViewsDuplicateLastWins(t *testing.T) {
	ctx := context.Background()
	snippets := []schema.Entry{
		{ID: "old", WeekStart: "2025-10-27", WeekEnd: "2025-11-02", Content: "旧"},
		{ID: "new", WeekStart: "2025-10-27", WeekEnd: "2025-11-02", Content: "新"},
	}
	svc := newViewService(snippets, nil, nil, nil, allFlags)

	views, err := svc.WeekViews(ctx, "2025-10-27", "2025-11-02", "pet project")
	if err != nil {
		t.Fatalf("WeekViews: %v", err)
	}
	if views[0].Snippet == nil || views[0].Snippet.ID != "new" {
		t.Fatalf("同周重复记录应由后者覆盖前者: %+v", views[0].Snippet)
	}
}

func TestWeekViewsMalformedWeekStartDropped(t *testing.T) {
	ctx := context.Background()
	snippets := []schema.Entry{
		{ID: "bad", WeekStart: "not-a-date", WeekEnd: "2025-11-02", Content: "脏数据"},
	}
	svc := newViewService(snippets, nil, nil, nil, allFlags)

	views, err := svc.WeekViews(ctx, "2025-10-27", "2025-11-02", "pet project")
	if err != nil {
		t.Fatalf("脏记录不应让合并失败: %v", err)
	}
	if len(views) != 1 || views[0].Snippet != nil {
		t.Fatalf("脏记录应被丢出索引: %+v", views)
	}
}

func TestWeekViewsDisabledFeatures(t *testing.T) {
	ctx := context.Background()
	goal := schema.Entry{ID: "g1", WeekStart: "2025-10-27", WeekEnd: "2025-11-02", Content: "目标"}
	flags := func() FeatureFlags {
		return FeatureFlags{Goals: false, Reflections: false, DailyScores: false}
	}
	svc := newViewService(nil, []schema.Entry{goal}, nil, nil, flags)

	views, err := svc.WeekViews(ctx, "2025-10-27", "2025-11-02", "pet project")
	if err != nil {
		t.Fatalf("WeekViews: %v", err)
	}
	if views[0].Goal != nil {
		t.Fatalf("功能关闭时不应取目标数据")
	}
	if len(views[0].DayScores) != 7 {
		t.Fatalf("打分关闭时日期格仍应是 7 天全 0")
	}
}

func TestWeekViewsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newViewService(nil, nil, nil, nil, allFlags)

	if _, err := svc.WeekViews(ctx, "2025-11-05", "2025-11-04", "pet project"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("倒置范围: err=%v, want ErrInvalidRange", err)
	}
	if _, err := svc.WeekViews(ctx, "garbage", "2025-11-04", "pet project"); !errors.Is(err, ErrValidation) {
		t.Fatalf("非法日期: err=%v, want ErrValidation", err)
	}
}
