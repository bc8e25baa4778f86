package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nizhen/weeklog/internal/eventbus"
	"github.com/nizhen/weeklog/internal/schema"
	"github.com/nizhen/weeklog/internal/week"
)

// recentFallbackLimit 未给日期范围时回退返回的条目数
const recentFallbackLimit = 10

// EntryService 周条目服务。snippets / goals / reflections 各持一个实例，
// 只在集合名与底层仓储上有区别。
type EntryService struct {
	repo       EntryRepository
	hub        *eventbus.Hub
	collection string
}

// NewEntryService 创建条目服务
func NewEntryService(repo EntryRepository, hub *eventbus.Hub, collection string) *EntryService {
	return &EntryService{repo: repo, hub: hub, collection: collection}
}

// CreateEntryInput 创建条目的入参
type CreateEntryInput struct {
	WeekStart string
	WeekEnd   string
	Content   string
	Endeavor  string
}

// List 查询与 [startDate, endDate] 有交集的条目。
// 范围为空时回退为最近 10 条（与历史行为保持一致）。
func (s *EntryService) List(ctx context.Context, startDate, endDate, endeavor string) ([]schema.Entry, error) {
	endeavor = normalizeEndeavor(endeavor)

	if startDate == "" && endDate == "" {
		return s.repo.GetRecent(ctx, endeavor, recentFallbackLimit)
	}

	start, err := week.ParseISO(startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q", ErrValidation, startDate)
	}
	end, err := week.ParseISO(endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date %q", ErrValidation, endDate)
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	return s.repo.GetOverlapping(ctx, startDate, endDate, endeavor)
}

// Get 按 ID 查询条目
func (s *EntryService) Get(ctx context.Context, id string) (*schema.Entry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, s.collection, id)
	}
	return entry, nil
}

// Create 创建条目。内容非空、week_start 必须是周一、week_end 必须是其后第 6 天。
func (s *EntryService) Create(ctx context.Context, in CreateEntryInput) (*schema.Entry, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: 内容不能为空", ErrValidation)
	}

	start, err := week.ParseISO(in.WeekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: week_start %q", ErrValidation, in.WeekStart)
	}
	end, err := week.ParseISO(in.WeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: week_end %q", ErrValidation, in.WeekEnd)
	}
	if !week.MondayOf(start).Equal(start) {
		return nil, fmt.Errorf("%w: week_start %s 不是周一", ErrValidation, in.WeekStart)
	}
	if !end.Equal(start.AddDate(0, 0, 6)) {
		return nil, fmt.Errorf("%w: week_end 必须是 week_start+6", ErrValidation)
	}

	entry := &schema.Entry{
		WeekStart: in.WeekStart,
		WeekEnd:   in.WeekEnd,
		Content:   in.Content,
		Endeavor:  normalizeEndeavor(in.Endeavor),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.publish(entry.WeekStart, entry.Endeavor)
	return entry, nil
}

// Update 更新条目内容。空内容走显式删除，不在这里更新。
func (s *EntryService) Update(ctx context.Context, id, content string) (*schema.Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: 内容不能为空", ErrValidation)
	}

	ok, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, s.collection, id)
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.publish(entry.WeekStart, entry.Endeavor)
	}
	return entry, nil
}

// Delete 删除条目
func (s *EntryService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, s.collection, id)
	}
	s.publish("", "")
	return nil
}

func (s *EntryService) publish(weekStart, endeavor string) {
	s.hub.Publish(eventbus.Event{
		Type: eventbus.TypeEntryChanged,
		Data: map[string]any{
			"collection": s.collection,
			"week_start": weekStart,
			"endeavor":   endeavor,
		},
	})
}

// normalizeEndeavor 空事业线归入默认哨兵
func normalizeEndeavor(endeavor string) string {
	if strings.TrimSpace(endeavor) == "" {
		return schema.DefaultEndeavor
	}
	return endeavor
}
