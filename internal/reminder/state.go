package reminder

import (
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/i18n"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

// State 运行时状态
type State int

const (
	Idle    State = iota // 提醒关闭或不在清醒窗口内
	Pending              // 已武装，倒计时到下一次提醒
	Showing              // 提醒正在展示
	Snoozed              // 稍后提醒（固定 10 分钟）
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Showing:
		return "showing"
	case Snoozed:
		return "snoozed"
	default:
		return "unknown"
	}
}

// SnoozeDelay 稍后提醒的固定延迟，与常规间隔无关
const SnoozeDelay = 10 * time.Minute

// Config 运行时输入（来自当前设置与间隔计算）
type Config struct {
	Enabled         bool
	Window          models.WakeWindow
	IntervalMinutes int
	GoalLiters      float64
	ServingLiters   float64
	Language        models.Language
	SoundEnabled    bool
	SoundType       models.SoundType
}

// sameSchedule 影响倒计时的输入是否相同
func (c Config) sameSchedule(o Config) bool {
	return c.Window == o.Window &&
		c.IntervalMinutes == o.IntervalMinutes &&
		c.GoalLiters == o.GoalLiters &&
		c.ServingLiters == o.ServingLiters
}

func (c Config) interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Snapshot 当前状态快照
type Snapshot struct {
	State      State     `json:"state"`
	NextFireAt time.Time `json:"next_fire_at,omitempty"`
	ShownAt    time.Time `json:"shown_at,omitempty"`
	ResumeAt   time.Time `json:"resume_at,omitempty"`
}

// Reminder 展示给用户的一次提醒
type Reminder struct {
	ShownAt   time.Time       `json:"shown_at"`
	Language  models.Language `json:"language"`
	Resumed   bool            `json:"resumed"` // 稍后提醒到期后的再次展示
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	SnoozeCTA string          `json:"snooze_cta"`
	DrinkCTA  string          `json:"drink_cta"`
}

// FeedbackRequest 喝水反馈（振动 + 可选音效）
type FeedbackRequest struct {
	VibrateMillis int              `json:"vibrate_ms"`
	Sound         models.SoundType `json:"sound,omitempty"`
}

func newReminder(lang models.Language, at time.Time, resumed bool) Reminder {
	texts := i18n.Reminder(lang)
	return Reminder{
		ShownAt:   at,
		Language:  models.NormalizeLanguage(string(lang)),
		Resumed:   resumed,
		Title:     texts.Title,
		Body:      texts.Body,
		SnoozeCTA: texts.SnoozeCTA,
		DrinkCTA:  texts.DrinkCTA,
	}
}
