package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "github.com/Hans-Rafael/glup-water-reminder/common/redis"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
	"github.com/Hans-Rafael/glup-water-reminder/internal/reminder"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 用户动作
const (
	ActionSettingsChanged = "settings_changed"
	ActionDismiss         = "dismiss"
	ActionSnooze          = "snooze"
	ActionDrinkNow        = "drink_now"
	ActionLogDrink        = "log_drink"
	ActionDeleteDrink     = "delete_drink"
	ActionAdjustServing   = "adjust_serving"
	ActionRestoreDefaults = "restore_defaults"
	ActionClearData       = "clear_data"
	ActionOnboarding      = "complete_onboarding"
	ActionUpdateProfile   = "update_profile"
)

// ActionMessage 动作消息（Redis Stream 的 data 字段）
type ActionMessage struct {
	Action   string               `json:"action"`
	Settings *models.Settings     `json:"settings,omitempty"` // settings_changed：为空时从存储重新加载
	Profile  *models.DailyProfile `json:"profile,omitempty"`
	UserName string               `json:"user_name,omitempty"`
	Amount   float64              `json:"amount,omitempty"`
	Delta    float64              `json:"delta,omitempty"`
	DrinkID  string               `json:"drink_id,omitempty"`
}

// Dispatcher 动作的执行方（由 service.Controller 实现）
type Dispatcher interface {
	Reload(ctx context.Context) (*models.ReminderPlan, error)
	SaveSettings(ctx context.Context, s models.Settings) (*models.ReminderPlan, error)
	Dismiss(ctx context.Context) error
	Snooze(ctx context.Context) error
	DrinkNow(ctx context.Context) (*models.DrinkEvent, error)
	LogDrink(ctx context.Context, amountLiters float64) (*models.DrinkEvent, error)
	DeleteDrink(ctx context.Context, id string) error
	AdjustServing(ctx context.Context, delta float64) (float64, error)
	RestoreDefaults(ctx context.Context) (*models.ReminderPlan, error)
	ClearAllData(ctx context.Context) error
	CompleteOnboarding(ctx context.Context, name string, profile models.DailyProfile) (*models.ReminderPlan, error)
	UpdateProfile(ctx context.Context, profile models.DailyProfile) (*models.ReminderPlan, error)
}

// Options 消费者配置
type Options struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
}

// ActionConsumer 从 Redis Streams 消费用户动作
type ActionConsumer struct {
	opts        Options
	redisClient *redis.Client
	dispatcher  Dispatcher
	logger      *zap.Logger
}

// NewActionConsumer 创建动作消费者
func NewActionConsumer(opts Options, redisClient *redis.Client, dispatcher Dispatcher, logger *zap.Logger) *ActionConsumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 2 * time.Second
	}
	return &ActionConsumer{
		opts:        opts,
		redisClient: redisClient,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Start 启动消费循环，ctx 取消时返回
func (c *ActionConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.opts.Stream, c.opts.Group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.opts.Stream, err)
	}

	c.logger.Info("Action consumer started",
		zap.String("stream", c.opts.Stream),
		zap.String("consumer_group", c.opts.Group),
		zap.String("consumer_name", c.opts.Consumer),
	)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume action stream",
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// ConsumeOnce 读取并处理一批消息，返回处理条数。
// 处理失败的消息同样确认，避免坏消息反复投递。
func (c *ActionConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.opts.Stream,
		c.opts.Group,
		c.opts.Consumer,
		c.opts.BatchSize,
		c.opts.Block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", c.opts.Stream, err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process action",
				zap.String("stream", msg.Stream),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
		if err := rediscommon.AckMessages(ctx, c.redisClient, c.opts.Stream, c.opts.Group, msg.ID); err != nil {
			c.logger.Error("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return len(messages), nil
}

func (c *ActionConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	data := msg.String("data")
	if data == "" {
		return fmt.Errorf("missing data field")
	}
	var action ActionMessage
	if err := json.Unmarshal([]byte(data), &action); err != nil {
		return fmt.Errorf("failed to unmarshal action: %w", err)
	}

	c.logger.Debug("Dispatching action",
		zap.String("message_id", msg.ID),
		zap.String("action", action.Action),
	)
	err := c.Dispatch(ctx, action)
	if errors.Is(err, reminder.ErrNotShowing) {
		c.logger.Debug("Action skipped",
			zap.String("action", action.Action),
			zap.String("reason", err.Error()),
		)
		return nil
	}
	return err
}

// Dispatch 执行一个动作
func (c *ActionConsumer) Dispatch(ctx context.Context, a ActionMessage) error {
	var err error
	switch a.Action {
	case ActionSettingsChanged:
		if a.Settings != nil {
			_, err = c.dispatcher.SaveSettings(ctx, *a.Settings)
		} else {
			_, err = c.dispatcher.Reload(ctx)
		}
	case ActionDismiss:
		err = c.dispatcher.Dismiss(ctx)
	case ActionSnooze:
		err = c.dispatcher.Snooze(ctx)
	case ActionDrinkNow:
		_, err = c.dispatcher.DrinkNow(ctx)
	case ActionLogDrink:
		_, err = c.dispatcher.LogDrink(ctx, a.Amount)
	case ActionDeleteDrink:
		err = c.dispatcher.DeleteDrink(ctx, a.DrinkID)
	case ActionAdjustServing:
		_, err = c.dispatcher.AdjustServing(ctx, a.Delta)
	case ActionRestoreDefaults:
		_, err = c.dispatcher.RestoreDefaults(ctx)
	case ActionClearData:
		err = c.dispatcher.ClearAllData(ctx)
	case ActionOnboarding, ActionUpdateProfile:
		if a.Profile == nil {
			return fmt.Errorf("%s requires a profile", a.Action)
		}
		if a.Action == ActionOnboarding {
			_, err = c.dispatcher.CompleteOnboarding(ctx, a.UserName, *a.Profile)
		} else {
			_, err = c.dispatcher.UpdateProfile(ctx, *a.Profile)
		}
	default:
		c.logger.Warn("Unknown action, ignored", zap.String("action", a.Action))
		return nil
	}
	return err
}
