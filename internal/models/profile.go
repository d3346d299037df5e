package models

// Gender 性别（影响每日饮水目标）
type Gender string

const (
	GenderMale     Gender = "male"
	GenderFemale   Gender = "female"
	GenderPregnant Gender = "pregnant" // 怀孕/哺乳期
)

// ActivityLevel 活动水平
type ActivityLevel string

const (
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
)

// Climate 气候
type Climate string

const (
	ClimateCold      Climate = "cold"
	ClimateTemperate Climate = "temperate"
	ClimateHot       Climate = "hot"
)

// DailyProfile 用户生理资料（目标计算的输入，不可变）
type DailyProfile struct {
	WeightKg      float64       `json:"weight_kg"`
	Gender        Gender        `json:"gender"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Climate       Climate       `json:"climate"`
}

// DefaultProfile 首次启动时的默认资料
func DefaultProfile() DailyProfile {
	return DailyProfile{
		WeightKg:      70,
		Gender:        GenderMale,
		ActivityLevel: ActivityLow,
		Climate:       ClimateTemperate,
	}
}

// HydrationGoal 每日饮水目标（升），始终 > 0
type HydrationGoal struct {
	Liters float64 `json:"liters"`
}
