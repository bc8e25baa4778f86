package service

import (
	"context"

	"github.com/nizhen/weeklog/internal/schema"
)

// 仓储的最小接口集合（ISP），便于服务层测试用假实现替换

type EntryRepository interface {
	GetOverlapping(ctx context.Context, startDate, endDate, endeavor string) ([]schema.Entry, error)
	GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.Entry, error)
	GetByID(ctx context.Context, id string) (*schema.Entry, error)
	Create(ctx context.Context, entry *schema.Entry) error
	UpdateContent(ctx context.Context, id, content string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DistinctEndeavors(ctx context.Context) ([]string, error)
	RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error)
}

type ScoreRepository interface {
	GetByDateRange(ctx context.Context, startDate, endDate, endeavor string) ([]schema.DailyScore, error)
	GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.DailyScore, error)
	FindByDay(ctx context.Context, date, endeavor string) (*schema.DailyScore, error)
	Create(ctx context.Context, score *schema.DailyScore) error
	Delete(ctx context.Context, id string) (bool, error)
	DistinctEndeavors(ctx context.Context) ([]string, error)
	RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error)
}
