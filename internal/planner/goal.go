package planner

import (
	"math"
	"strconv"
	"strings"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

const (
	defaultWeightKg = 70.0

	mlPerKg        = 35.0
	pureWaterRatio = 0.8 // 只计算纯水部分

	maleBonus     = 0.5
	pregnantBonus = 0.3
	moderateBonus = 0.5
	highBonus     = 1.0
	hotBonus      = 0.75
)

// ParseWeight 解析体重字符串，无法解析或为 0 时返回 70
func ParseWeight(raw string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || w == 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return defaultWeightKg
	}
	return w
}

// ComputeGoal 根据生理资料计算每日饮水目标（升，保留一位小数）
func ComputeGoal(profile models.DailyProfile) models.HydrationGoal {
	weight := profile.WeightKg
	if weight == 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		weight = defaultWeightKg
	}

	liters := weight * mlPerKg * pureWaterRatio / 1000

	if profile.Gender == models.GenderMale {
		liters += maleBonus
	}
	if profile.Gender == models.GenderPregnant {
		liters += pregnantBonus
	}

	if profile.ActivityLevel == models.ActivityModerate {
		liters += moderateBonus
	} else if profile.ActivityLevel == models.ActivityHigh {
		liters += highBonus
	}

	if profile.Climate == models.ClimateHot {
		liters += hotBonus
	}

	liters = roundTenths(liters)
	if liters <= 0 {
		liters = models.DefaultGoal
	}
	return models.HydrationGoal{Liters: liters}
}

// roundTenths 十分位四舍五入（half-up）
func roundTenths(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
