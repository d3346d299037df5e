package planner

import (
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

// DefaultHorizonDays 默认排期天数
const DefaultHorizonDays = 7

// BuildSchedule 把间隔展开为多天的提醒时刻（纯函数）
//
// 每天从 wake 开始按 interval 递增，候选时刻的小时数 >= sleep 的小时数时当天停止。
// 这里只比较小时（sleep 为 22:30 时 22:10 也会被丢弃），保持与客户端一致的粗粒度截断。
func BuildSchedule(window models.WakeWindow, intervalMinutes, glassesNeeded, horizonDays int) []models.FireTime {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if intervalMinutes < MinIntervalMinutes {
		intervalMinutes = MinIntervalMinutes
	}
	if glassesNeeded < 1 {
		glassesNeeded = 1
	}

	sleepHour := window.Sleep.Hour()
	fireTimes := make([]models.FireTime, 0, horizonDays*glassesNeeded)

	for day := 0; day < horizonDays; day++ {
		for i := 0; i < glassesNeeded; i++ {
			candidate := int(window.Wake) + i*intervalMinutes
			hour := candidate / 60
			if hour >= sleepHour {
				break
			}
			fireTimes = append(fireTimes, models.FireTime{
				DayOffset: day,
				Hour:      hour,
				Minute:    candidate % 60,
			})
		}
	}

	return fireTimes
}

// Plan 计算完整的提醒计划（每次都整体重建）
func Plan(window models.WakeWindow, goalLiters, servingLiters float64, horizonDays int) *models.ReminderPlan {
	iv := ComputeInterval(window, goalLiters, servingLiters)
	return &models.ReminderPlan{
		Window:          window,
		IntervalMinutes: iv.IntervalMinutes,
		GlassesNeeded:   iv.GlassesNeeded,
		Degenerate:      iv.Degenerate,
		FireTimes:       BuildSchedule(window, iv.IntervalMinutes, iv.GlassesNeeded, horizonDays),
	}
}
