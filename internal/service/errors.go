package service

import (
	"errors"

	"github.com/nizhen/weeklog/internal/week"
)

// 业务错误分类。各层用 fmt.Errorf("%w: ...") 附加上下文，
// httpapi 通过 errors.Is 映射为 HTTP 状态码。
var (
	// ErrInvalidRange 结束日期早于开始日期。与 week 包共用同一哨兵。
	ErrInvalidRange = week.ErrInvalidRange

	// ErrValidation 参数校验失败（空内容、非法日期、空事业线名等）
	ErrValidation = errors.New("参数校验失败")

	// ErrNotFound 按 ID 寻址的记录不存在
	ErrNotFound = errors.New("记录不存在")

	// ErrFeatureDisabled 功能开关未启用
	ErrFeatureDisabled = errors.New("功能未启用")
)
