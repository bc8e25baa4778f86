package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nizhen/weeklog/internal/eventbus"
	"github.com/nizhen/weeklog/internal/schema"
	"github.com/nizhen/weeklog/internal/week"
)

// scoreRecentFallbackLimit 未给日期范围时回退返回的打分条数
const scoreRecentFallbackLimit = 30

// ScoreService 每日打分服务。打分只对严格早于"今天"的日期开放，
// 门槛在服务端强制执行，不依赖客户端自觉。
type ScoreService struct {
	repo ScoreRepository
	hub  *eventbus.Hub
	now  func() time.Time
}

// NewScoreService 创建打分服务。now 为注入的时钟，生产环境传 time.Now。
func NewScoreService(repo ScoreRepository, hub *eventbus.Hub, now func() time.Time) *ScoreService {
	return &ScoreService{repo: repo, hub: hub, now: now}
}

// ToggleResult 翻转结果。Score 为翻转后的状态；创建时带新行 ID。
type ToggleResult struct {
	Score int    `json:"score"`
	ID    string `json:"id,omitempty"`
}

// List 查询日期范围内的打分（只有"达成"的行）。范围为空时回退最近 30 条。
func (s *ScoreService) List(ctx context.Context, startDate, endDate, endeavor string) ([]schema.DailyScore, error) {
	endeavor = normalizeEndeavor(endeavor)

	if startDate == "" && endDate == "" {
		return s.repo.GetRecent(ctx, endeavor, scoreRecentFallbackLimit)
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

	return s.repo.GetByDateRange(ctx, startDate, endDate, endeavor)
}

// Toggle 翻转某天某事业线的打分：有行则删（归 0），无行则建（置 1）。
// 今天与未来的日期一律拒绝。
func (s *ScoreService) Toggle(ctx context.Context, date, endeavor string) (*ToggleResult, error) {
	d, err := week.ParseISO(date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrValidation, date)
	}
	if !week.StrictlyBefore(d, s.now()) {
		return nil, fmt.Errorf("%w: 只能为过去的日期打分", ErrValidation)
	}

	endeavor = normalizeEndeavor(endeavor)

	existing, err := s.repo.FindByDay(ctx, date, endeavor)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if _, err := s.repo.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
		s.publish(date, endeavor, 0)
		return &ToggleResult{Score: 0}, nil
	}

	score := &schema.DailyScore{Date: date, Score: 1, Endeavor: endeavor}
	if err := s.repo.Create(ctx, score); err != nil {
		return nil, err
	}
	s.publish(date, endeavor, 1)
	return &ToggleResult{Score: 1, ID: score.ID}, nil
}

func (s *ScoreService) publish(date, endeavor string, score int) {
	s.hub.Publish(eventbus.Event{
		Type: eventbus.TypeScoreToggled,
		Data: map[string]any{
			"date":     date,
			"endeavor": endeavor,
			"score":    score,
		},
	})
}
