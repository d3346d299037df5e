package models

import "time"

// FireTime 计划中的一次提醒时刻
type FireTime struct {
	DayOffset int `json:"day_offset"` // 0..horizon-1
	Hour      int `json:"hour"`
	Minute    int `json:"minute"`
}

// At 以 base 所在日期为第 0 天，换算成绝对时间（使用 base 的时区）
func (f FireTime) At(base time.Time) time.Time {
	y, m, d := base.Date()
	return time.Date(y, m, d+f.DayOffset, f.Hour, f.Minute, 0, 0, base.Location())
}

// ReminderPlan 提醒计划（派生数据，设置变化时整体重建）
type ReminderPlan struct {
	Window          WakeWindow `json:"window"`
	IntervalMinutes int        `json:"interval_minutes"`
	GlassesNeeded   int        `json:"glasses_needed"`
	Degenerate      bool       `json:"degenerate"`
	FireTimes       []FireTime `json:"fire_times"`
}
