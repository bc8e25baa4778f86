package testutil

import "time"

// FixedClock 返回恒定"今天"的时钟，用于测试与日期相关的业务门槛。
// date 形如 2025-11-05。
func FixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("testutil: 非法日期 " + date)
	}
	return func() time.Time { return t }
}
