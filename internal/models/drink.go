package models

import "time"

// DrinkEvent 一次饮水记录（只追加）
type DrinkEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Hour         int       `json:"hour"`
	AmountLiters float64   `json:"amount_liters"`
}

// DailyTotal 某一天的饮水汇总
type DailyTotal struct {
	Day    time.Time `json:"day"`
	Liters float64   `json:"liters"`
	Drinks int       `json:"drinks"`
}

// DailyProgress 当日进度（仅展示用，不会抑制提醒）
type DailyProgress struct {
	TotalLiters   float64 `json:"total_liters"`
	GoalLiters    float64 `json:"goal_liters"`
	Drinks        int     `json:"drinks"`
	GlassesNeeded int     `json:"glasses_needed"`
	Percent       int     `json:"percent"`
	GoalReached   bool    `json:"goal_reached"`
}
