package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeOfDay 一天中的分钟数（0..1439）
type TimeOfDay int

const (
	MinutesPerDay = 24 * 60

	DefaultWakeTime  TimeOfDay = 7 * 60  // 07:00
	DefaultSleepTime TimeOfDay = 22 * 60 // 22:00
)

// ParseTimeOfDay 解析 "HH:MM"（24 小时制），解析失败返回 def
func ParseTimeOfDay(s string, def TimeOfDay) TimeOfDay {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return def
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return def
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return def
	}
	return TimeOfDay(h*60 + m)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText 序列化为 "HH:MM"
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 解析 "HH:MM"，格式错误返回错误
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v := ParseTimeOfDay(string(b), -1)
	if v < 0 {
		return fmt.Errorf("invalid time of day %q", string(b))
	}
	*t = v
	return nil
}

// WakeWindow 每日可提醒的时间窗口（同日窗口，不跨午夜）
type WakeWindow struct {
	Wake  TimeOfDay `json:"wake"`
	Sleep TimeOfDay `json:"sleep"`
}

// UnmarshalJSON 解析 {"wake":"HH:MM","sleep":"HH:MM"}；缺失或格式错误时分别回退到 07:00 / 22:00
func (w *WakeWindow) UnmarshalJSON(b []byte) error {
	var raw struct {
		Wake  json.RawMessage `json:"wake"`
		Sleep json.RawMessage `json:"sleep"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	w.Wake = ParseTimeOfDay(rawTimeString(raw.Wake), DefaultWakeTime)
	w.Sleep = ParseTimeOfDay(rawTimeString(raw.Sleep), DefaultSleepTime)
	return nil
}

// rawTimeString 非字符串值按空串处理
func rawTimeString(v json.RawMessage) string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

// AwakeMinutes 清醒分钟数；sleep <= wake 时为 0 或负数（退化窗口）
func (w WakeWindow) AwakeMinutes() int {
	return int(w.Sleep) - int(w.Wake)
}

// Degenerate 窗口是否退化
func (w WakeWindow) Degenerate() bool {
	return w.AwakeMinutes() <= 0
}

// Contains 判断某一分钟是否落在 [wake, sleep] 内（两端包含）
func (w WakeWindow) Contains(minuteOfDay int) bool {
	return minuteOfDay >= int(w.Wake) && minuteOfDay <= int(w.Sleep)
}

// 杯量（升）
const (
	MinServing     = 0.05
	MaxServing     = 0.5
	ServingStep    = 0.05
	DefaultServing = 0.2
	DefaultGoal    = 2.5
)

// ClampServing 把杯量限制在 [0.05, 0.5]，保留两位小数
func ClampServing(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultServing
	}
	v = math.Round(v*100) / 100
	return math.Max(MinServing, math.Min(MaxServing, v))
}

// Language 界面/提醒文案语言
type Language string

const (
	LanguageES Language = "es"
	LanguageEN Language = "en"
)

// NormalizeLanguage 只支持 es/en，其余回退到 es
func NormalizeLanguage(tag string) Language {
	if Language(strings.ToLower(strings.TrimSpace(tag))) == LanguageEN {
		return LanguageEN
	}
	return LanguageES
}

// SoundType 喝水反馈音效
type SoundType string

const (
	SoundGlup   SoundType = "glup"
	SoundDrop   SoundType = "drop"
	SoundBubble SoundType = "bubble"
)

// Settings 用户设置（由 SettingsStore 读写，Controller 持有）
type Settings struct {
	UserName        string       `json:"user_name"`
	Window          WakeWindow   `json:"window"`
	DailyGoal       float64      `json:"daily_goal"`
	ServingSize     float64      `json:"serving_size"`
	ReminderEnabled bool         `json:"reminder_enabled"`
	Language        Language     `json:"language"`
	SoundEnabled    bool         `json:"sound_enabled"`
	SoundType       SoundType    `json:"sound_type"`
	FirstTime       bool         `json:"first_time"`
	Profile         DailyProfile `json:"profile"`
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		UserName:        "Usuario",
		Window:          WakeWindow{Wake: DefaultWakeTime, Sleep: DefaultSleepTime},
		DailyGoal:       DefaultGoal,
		ServingSize:     DefaultServing,
		ReminderEnabled: true,
		Language:        LanguageES,
		SoundEnabled:    true,
		SoundType:       SoundGlup,
		FirstTime:       true,
		Profile:         DefaultProfile(),
	}
}

// Normalize 把非法值修正为安全默认值
func (s Settings) Normalize() Settings {
	if math.IsNaN(s.DailyGoal) || s.DailyGoal <= 0 {
		s.DailyGoal = DefaultGoal
	}
	if math.IsNaN(s.ServingSize) || s.ServingSize <= 0 {
		s.ServingSize = DefaultServing
	}
	s.ServingSize = ClampServing(s.ServingSize)
	s.Language = NormalizeLanguage(string(s.Language))
	if s.Window.Wake < 0 || int(s.Window.Wake) >= MinutesPerDay {
		s.Window.Wake = DefaultWakeTime
	}
	if s.Window.Sleep < 0 || int(s.Window.Sleep) >= MinutesPerDay {
		s.Window.Sleep = DefaultSleepTime
	}
	switch s.SoundType {
	case SoundGlup, SoundDrop, SoundBubble:
	default:
		s.SoundType = SoundGlup
	}
	return s
}
