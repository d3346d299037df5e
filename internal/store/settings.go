package store

import (
	"context"
	"strconv"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
	"github.com/Hans-Rafael/glup-water-reminder/internal/planner"

	"go.uber.org/zap"
)

// 设置键
const (
	KeyUserName        = "user_name"
	KeyWakeTime        = "wake_time"
	KeySleepTime       = "sleep_time"
	KeyDailyGoal       = "daily_goal"
	KeyServingSize     = "serving_size"
	KeyReminderEnabled = "reminder_enabled"
	KeyLanguage        = "language"
	KeySoundEnabled    = "sound_enabled"
	KeySoundType       = "sound_type"
	KeyFirstTime       = "first_time"
	KeyWeight          = "weight"
	KeyGender          = "gender"
	KeyActivityLevel   = "activity_level"
	KeyClimate         = "climate"
)

// AllKeys 所有设置键（恢复默认 / 清空数据时整体删除）
var AllKeys = []string{
	KeyUserName, KeyWakeTime, KeySleepTime, KeyDailyGoal, KeyServingSize,
	KeyReminderEnabled, KeyLanguage, KeySoundEnabled, KeySoundType, KeyFirstTime,
	KeyWeight, KeyGender, KeyActivityLevel, KeyClimate,
}

// LoadSettings 读取设置；缺失、格式错误或读取失败的值使用默认值（读取失败记录警告）
func LoadSettings(ctx context.Context, s SettingsStore, logger *zap.Logger) models.Settings {
	def := models.DefaultSettings()
	raw := make(map[string]string, len(AllKeys))
	for _, k := range AllKeys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			logger.Warn("Failed to read setting, using default",
				zap.String("key", k),
				zap.Error(err),
			)
			continue
		}
		if ok {
			raw[k] = v
		}
	}

	out := def
	if v, ok := raw[KeyUserName]; ok && v != "" {
		out.UserName = v
	}
	out.Window.Wake = models.ParseTimeOfDay(raw[KeyWakeTime], def.Window.Wake)
	out.Window.Sleep = models.ParseTimeOfDay(raw[KeySleepTime], def.Window.Sleep)
	out.DailyGoal = parseFloat(raw[KeyDailyGoal], def.DailyGoal)
	out.ServingSize = parseFloat(raw[KeyServingSize], def.ServingSize)
	out.ReminderEnabled = parseBool(raw[KeyReminderEnabled], def.ReminderEnabled)
	if v, ok := raw[KeyLanguage]; ok {
		out.Language = models.Language(v)
	}
	out.SoundEnabled = parseBool(raw[KeySoundEnabled], def.SoundEnabled)
	if v, ok := raw[KeySoundType]; ok {
		out.SoundType = models.SoundType(v)
	}
	out.FirstTime = parseBool(raw[KeyFirstTime], def.FirstTime)

	if v, ok := raw[KeyWeight]; ok {
		out.Profile.WeightKg = planner.ParseWeight(v)
	}
	if v, ok := raw[KeyGender]; ok {
		out.Profile.Gender = models.Gender(v)
	}
	if v, ok := raw[KeyActivityLevel]; ok {
		out.Profile.ActivityLevel = models.ActivityLevel(v)
	}
	if v, ok := raw[KeyClimate]; ok {
		out.Profile.Climate = models.Climate(v)
	}
	return out.Normalize()
}

// SaveSettings 写入全部设置
func SaveSettings(ctx context.Context, s SettingsStore, st models.Settings) error {
	return s.SetMany(ctx, Encode(st))
}

// Encode 设置 -> 键值
func Encode(st models.Settings) map[string]string {
	return map[string]string{
		KeyUserName:        st.UserName,
		KeyWakeTime:        st.Window.Wake.String(),
		KeySleepTime:       st.Window.Sleep.String(),
		KeyDailyGoal:       strconv.FormatFloat(st.DailyGoal, 'f', -1, 64),
		KeyServingSize:     strconv.FormatFloat(st.ServingSize, 'f', 2, 64),
		KeyReminderEnabled: strconv.FormatBool(st.ReminderEnabled),
		KeyLanguage:        string(st.Language),
		KeySoundEnabled:    strconv.FormatBool(st.SoundEnabled),
		KeySoundType:       string(st.SoundType),
		KeyFirstTime:       strconv.FormatBool(st.FirstTime),
		KeyWeight:          strconv.FormatFloat(st.Profile.WeightKg, 'f', -1, 64),
		KeyGender:          string(st.Profile.Gender),
		KeyActivityLevel:   string(st.Profile.ActivityLevel),
		KeyClimate:         string(st.Profile.Climate),
	}
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
