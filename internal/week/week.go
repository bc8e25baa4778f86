// Package week 提供周记应用的核心日期逻辑：
// 周一至周日的周桶（Bucket）计算，以及任意日期范围到完整周序列的展开。
// 所有函数均为纯函数，"今天"一律由调用方注入，便于测试。
package week

import (
	"errors"
	"time"
)

// DateLayout 全局统一的日期格式 YYYY-MM-DD。
// 该格式的字符串字典序与时间序一致，可直接用于 SQL 范围比较。
const DateLayout = "2006-01-02"

// ErrInvalidRange 结束日期早于开始日期
var ErrInvalidRange = errors.New("无效的日期范围：结束日期早于开始日期")

// Bucket 一个周一到周日的周桶。派生数据，每次请求重新计算，不落库。
// 不变量：WeekEnd = WeekStart + 6 天，且 WeekStart 必为周一。
type Bucket struct {
	WeekStart time.Time
	WeekEnd   time.Time
	IsFuture  bool
}

// Contains 日期 d 是否落在本周桶内
func (b Bucket) Contains(d time.Time) bool {
	d = dateOnly(d)
	return !d.Before(b.WeekStart) && !d.After(b.WeekEnd)
}

// FutureOf 本周桶相对 today 是否是未来周。
// 只比较日历日，且包含 today 的当前周不算未来。
func (b Bucket) FutureOf(today time.Time) bool {
	return b.WeekStart.After(dateOnly(today))
}

// dateOnly 抹去时分秒与时区偏移，只保留日历字段。
// 统一落到 UTC 零点，避免本地时区导致的跨日偏移。
func dateOnly(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// MondayOf 返回包含 d 的那一周的周一。
// 注意周日的处理：周日属于"上一个"周一开始的周（回退 6 天），
// 而不是后一天的周一。这是整个周桶逻辑最容易出错的边界。
func MondayOf(d time.Time) time.Time {
	d = dateOnly(d)
	wd := int(d.Weekday()) // 周日为 0
	if wd == 0 {
		wd = 7
	}
	return d.AddDate(0, 0, 1-wd)
}

// WeekOf 计算包含 d 的周桶。IsFuture 由 BuildUniverse 统一填充。
func WeekOf(d time.Time) Bucket {
	monday := MondayOf(d)
	return Bucket{
		WeekStart: monday,
		WeekEnd:   monday.AddDate(0, 0, 6),
	}
}

// FormatISO 按日期自身的日历字段输出 YYYY-MM-DD，不做任何时区换算
func FormatISO(d time.Time) string {
	return d.Format(DateLayout)
}

// ParseISO 解析 YYYY-MM-DD。按字面数字解析，不经过带时区的通用解析路径。
func ParseISO(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ISOWeekNumber ISO-8601 周序号（周四锚定），仅用于展示标签，不参与分桶
func ISOWeekNumber(d time.Time) int {
	_, wk := dateOnly(d).ISOWeek()
	return wk
}

// StrictlyBefore 日期 d 是否严格早于 today（只比较日历日）。
// 用于反思可用性与每日打分的时间门槛。
func StrictlyBefore(d, today time.Time) bool {
	return dateOnly(d).Before(dateOnly(today))
}

// BuildUniverse 展开 start 至 end 之间的全部完整周桶，按时间升序返回。
// 两端先各自吸附到周边界，因此输入落在周中也只会产生完整的周。
// IsFuture 以调用时刻注入的 today 计算：仅当周一严格晚于 today 才算未来周，
// 包含 today 的当前周不算未来周。
func BuildUniverse(start, end, today time.Time) ([]Bucket, error) {
	s := dateOnly(start)
	e := dateOnly(end)
	if e.Before(s) {
		return nil, ErrInvalidRange
	}

	t := dateOnly(today)
	first := MondayOf(s)
	last := MondayOf(e)

	var buckets []Bucket
	for cur := first; !cur.After(last); cur = cur.AddDate(0, 0, 7) {
		buckets = append(buckets, Bucket{
			WeekStart: cur,
			WeekEnd:   cur.AddDate(0, 0, 6),
			IsFuture:  cur.After(t),
		})
	}
	return buckets, nil
}
