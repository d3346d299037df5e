// Package notifier 把提醒计划下发到设备侧（系统通知）以及前台提醒的展示通道
package notifier

import (
	"context"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/i18n"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

// Notification 一条待调度的系统通知
type Notification struct {
	Seq    int       `json:"seq"`
	FireAt time.Time `json:"fire_at"`
	Hour   int       `json:"hour"`
	Minute int       `json:"minute"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Sound  bool      `json:"sound"`
}

// Gateway 系统通知网关，调用方只记录错误，不重试
type Gateway interface {
	CancelAll(ctx context.Context) error
	Schedule(ctx context.Context, n Notification) error
}

// BuildNotifications 把计划换算成绝对时间的通知，已过去的时刻跳过。
// base 所在日期为第 0 天；正文按序号在文案池中轮换。
func BuildNotifications(plan *models.ReminderPlan, base, now time.Time, lang models.Language, sound bool) []Notification {
	if plan == nil {
		return nil
	}
	title := i18n.NotificationTitle(lang)
	out := make([]Notification, 0, len(plan.FireTimes))
	for _, ft := range plan.FireTimes {
		at := ft.At(base)
		if !at.After(now) {
			continue
		}
		out = append(out, Notification{
			Seq:    len(out),
			FireAt: at,
			Hour:   ft.Hour,
			Minute: ft.Minute,
			Title:  title,
			Body:   i18n.NotificationBody(lang, len(out)),
			Sound:  sound,
		})
	}
	return out
}
