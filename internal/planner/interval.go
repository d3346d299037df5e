package planner

import (
	"math"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

const (
	// MinIntervalMinutes 最小提醒间隔，防止提醒风暴
	MinIntervalMinutes = 30
	// DegenerateIntervalMinutes 窗口退化（sleep <= wake）时的固定间隔
	DegenerateIntervalMinutes = 60

	ratioEpsilon = 1e-9
)

// Interval 间隔计算结果
type Interval struct {
	IntervalMinutes int  `json:"interval_minutes"`
	GlassesNeeded   int  `json:"glasses_needed"`
	Degenerate      bool `json:"degenerate"`
}

// GlassesNeeded 达成目标所需杯数，至少 1 杯
func GlassesNeeded(goalLiters, servingLiters float64) int {
	if math.IsNaN(servingLiters) || servingLiters <= 0 {
		servingLiters = models.DefaultServing
	}
	if math.IsNaN(goalLiters) || goalLiters <= 0 {
		return 1
	}
	// 浮点除法可能得到 11.000000000000002 这类结果，先减去 epsilon 再向上取整
	glasses := int(math.Ceil(goalLiters/servingLiters - ratioEpsilon))
	if glasses < 1 {
		glasses = 1
	}
	return glasses
}

// ComputeInterval 计算提醒间隔与所需杯数（纯函数）
func ComputeInterval(window models.WakeWindow, goalLiters, servingLiters float64) Interval {
	glasses := GlassesNeeded(goalLiters, servingLiters)

	awake := window.AwakeMinutes()
	if awake <= 0 {
		return Interval{
			IntervalMinutes: DegenerateIntervalMinutes,
			GlassesNeeded:   glasses,
			Degenerate:      true,
		}
	}

	interval := awake / glasses
	if interval < MinIntervalMinutes {
		interval = MinIntervalMinutes
	}

	return Interval{
		IntervalMinutes: interval,
		GlassesNeeded:   glasses,
	}
}
