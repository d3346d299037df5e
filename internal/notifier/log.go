package notifier

import (
	"context"

	"github.com/Hans-Rafael/glup-water-reminder/internal/reminder"

	"go.uber.org/zap"
)

// LogPresenter 未配置 MQTT 时的前台提醒/反馈实现，只写日志
type LogPresenter struct {
	logger *zap.Logger
}

func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) Show(ctx context.Context, r reminder.Reminder) error {
	p.logger.Info("Reminder shown",
		zap.Time("shown_at", r.ShownAt),
		zap.Bool("resumed", r.Resumed),
		zap.String("title", r.Title),
	)
	return nil
}

func (p *LogPresenter) Hide(ctx context.Context) error {
	p.logger.Debug("Reminder hidden")
	return nil
}

func (p *LogPresenter) Play(ctx context.Context, req reminder.FeedbackRequest) error {
	p.logger.Debug("Drink feedback",
		zap.Int("vibrate_ms", req.VibrateMillis),
		zap.String("sound", string(req.Sound)),
	)
	return nil
}
