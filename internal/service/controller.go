package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/clock"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
	"github.com/Hans-Rafael/glup-water-reminder/internal/notifier"
	"github.com/Hans-Rafael/glup-water-reminder/internal/planner"
	"github.com/Hans-Rafael/glup-water-reminder/internal/reminder"
	"github.com/Hans-Rafael/glup-water-reminder/internal/report"
	"github.com/Hans-Rafael/glup-water-reminder/internal/repository"
	"github.com/Hans-Rafael/glup-water-reminder/internal/store"

	"go.uber.org/zap"
)

// ErrSuperseded 排队期间已有更新的设置变更，本次被丢弃
var ErrSuperseded = errors.New("settings change superseded by a newer one")

// DefaultNotifyTimeout 一次完整下发（取消 + 全部调度）的时间上限
const DefaultNotifyTimeout = 30 * time.Second

// Controller 设置变更的唯一入口：计算间隔 -> 生成计划 -> 下发通知 -> 更新前台状态机
type Controller struct {
	store   store.SettingsStore
	drinks  repository.DrinkLog
	gateway notifier.Gateway
	runtime *reminder.Runtime
	clock   clock.Clock
	logger  *zap.Logger
	horizon int

	notifyTimeout time.Duration

	editMu sync.Mutex // 串行化 读取-修改-保存
	gen    atomic.Uint64
	mu     sync.Mutex // 串行化整个下发流程

	stateMu  sync.RWMutex
	settings models.Settings
	plan     *models.ReminderPlan
	planDay  time.Time
}

// NewController 创建控制器（初始为默认设置，需 Reload 后生效）
func NewController(
	settingsStore store.SettingsStore,
	drinks repository.DrinkLog,
	gateway notifier.Gateway,
	runtime *reminder.Runtime,
	clk clock.Clock,
	horizonDays int,
	logger *zap.Logger,
) *Controller {
	if horizonDays <= 0 {
		horizonDays = planner.DefaultHorizonDays
	}
	return &Controller{
		store:    settingsStore,
		drinks:   drinks,
		gateway:  gateway,
		runtime:  runtime,
		clock:    clk,
		logger:   logger,
		horizon:  horizonDays,
		settings: models.DefaultSettings(),

		notifyTimeout: DefaultNotifyTimeout,
	}
}

// Settings 当前生效的设置
func (c *Controller) Settings() models.Settings {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.settings
}

// Plan 当前生效的计划
func (c *Controller) Plan() *models.ReminderPlan {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.plan
}

// Reload 从存储重新加载设置并重建计划
func (c *Controller) Reload(ctx context.Context) (*models.ReminderPlan, error) {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	s := store.LoadSettings(ctx, c.store, c.logger)
	return c.apply(ctx, s)
}

// apply 同 OnSettingsChanged，但被更新的变更取代时不视为错误（返回当前计划）
func (c *Controller) apply(ctx context.Context, s models.Settings) (*models.ReminderPlan, error) {
	plan, err := c.OnSettingsChanged(ctx, s)
	if errors.Is(err, ErrSuperseded) {
		return c.Plan(), nil
	}
	return plan, err
}

// OnSettingsChanged 以最新设置整体重建计划。
// 并发触发时按到达顺序排队，只有最后一次会真正执行，更早的返回 ErrSuperseded。
func (c *Controller) OnSettingsChanged(ctx context.Context, s models.Settings) (*models.ReminderPlan, error) {
	gen := c.gen.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen.Load() {
		c.logger.Debug("Settings change superseded before dispatch", zap.Uint64("generation", gen))
		return nil, ErrSuperseded
	}

	s = s.Normalize()
	plan := planner.Plan(s.Window, s.DailyGoal, s.ServingSize, c.horizon)

	now := c.clock.Now()
	c.stateMu.Lock()
	c.settings = s
	c.plan = plan
	c.planDay = repository.StartOfDay(now)
	c.stateMu.Unlock()

	c.logger.Info("Reminder plan rebuilt",
		zap.Uint64("generation", gen),
		zap.Bool("reminder_enabled", s.ReminderEnabled),
		zap.String("wake_time", s.Window.Wake.String()),
		zap.String("sleep_time", s.Window.Sleep.String()),
		zap.Float64("daily_goal", s.DailyGoal),
		zap.Float64("serving_size", s.ServingSize),
		zap.Int("interval_minutes", plan.IntervalMinutes),
		zap.Int("glasses_needed", plan.GlassesNeeded),
		zap.Int("fire_times", len(plan.FireTimes)),
		zap.Bool("degenerate", plan.Degenerate),
	)
	if plan.Degenerate {
		c.logger.Warn("Sleep time is not after wake time, no reminders will be scheduled",
			zap.String("wake_time", s.Window.Wake.String()),
			zap.String("sleep_time", s.Window.Sleep.String()),
		)
	}

	c.runtime.Apply(runtimeConfig(s, plan))

	pushCtx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	defer cancel()
	c.pushNotifications(pushCtx, gen, s, plan, now)
	return plan, nil
}

// pushNotifications 取消全部旧通知后按计划重新调度；失败只记录日志，超时后放弃剩余部分
func (c *Controller) pushNotifications(ctx context.Context, gen uint64, s models.Settings, plan *models.ReminderPlan, now time.Time) {
	if err := c.gateway.CancelAll(ctx); err != nil {
		c.logger.Warn("Failed to cancel scheduled notifications", zap.Error(err))
	}
	if !s.ReminderEnabled {
		return
	}

	notifications := notifier.BuildNotifications(plan, now, now, s.Language, s.SoundEnabled)
	failed := 0
	for i, n := range notifications {
		if c.gen.Load() != gen {
			c.logger.Debug("Newer settings change queued, stop scheduling",
				zap.Int("scheduled", i),
			)
			return
		}
		if ctx.Err() != nil {
			c.logger.Warn("Notification gateway too slow, remaining notifications dropped",
				zap.Int("scheduled", i),
				zap.Int("total", len(notifications)),
				zap.Error(ctx.Err()),
			)
			return
		}
		if err := c.gateway.Schedule(ctx, n); err != nil {
			failed++
			c.logger.Warn("Failed to schedule notification",
				zap.Time("fire_at", n.FireAt),
				zap.Error(err),
			)
		}
	}
	c.logger.Debug("Notifications scheduled",
		zap.Int("total", len(notifications)),
		zap.Int("failed", failed),
	)
}

func runtimeConfig(s models.Settings, plan *models.ReminderPlan) reminder.Config {
	return reminder.Config{
		Enabled:         s.ReminderEnabled && !plan.Degenerate,
		Window:          s.Window,
		IntervalMinutes: plan.IntervalMinutes,
		GoalLiters:      s.DailyGoal,
		ServingLiters:   s.ServingSize,
		Language:        s.Language,
		SoundEnabled:    s.SoundEnabled,
		SoundType:       s.SoundType,
	}
}

// SaveSettings 持久化并重建计划
func (c *Controller) SaveSettings(ctx context.Context, s models.Settings) (*models.ReminderPlan, error) {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	return c.save(ctx, s)
}

func (c *Controller) save(ctx context.Context, s models.Settings) (*models.ReminderPlan, error) {
	s = s.Normalize()
	if err := store.SaveSettings(ctx, c.store, s); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return c.apply(ctx, s)
}

// update 基于当前设置修改后保存，整个过程持有 editMu
func (c *Controller) update(ctx context.Context, fn func(s *models.Settings)) (models.Settings, *models.ReminderPlan, error) {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	s := c.Settings()
	fn(&s)
	plan, err := c.save(ctx, s)
	return s, plan, err
}

// AdjustServing 调整杯量（限制在 0.05..0.5），返回新杯量
func (c *Controller) AdjustServing(ctx context.Context, delta float64) (float64, error) {
	s, _, err := c.update(ctx, func(s *models.Settings) {
		s.ServingSize = models.ClampServing(s.ServingSize + delta)
	})
	if err != nil {
		return 0, err
	}
	return s.ServingSize, nil
}

// CompleteOnboarding 根据资料计算目标，保存并关闭首次引导
func (c *Controller) CompleteOnboarding(ctx context.Context, name string, profile models.DailyProfile) (*models.ReminderPlan, error) {
	s, plan, err := c.update(ctx, func(s *models.Settings) {
		if name != "" {
			s.UserName = name
		}
		s.Profile = profile
		s.DailyGoal = planner.ComputeGoal(profile).Liters
		s.FirstTime = false
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Onboarding completed",
		zap.Float64("weight_kg", profile.WeightKg),
		zap.String("gender", string(profile.Gender)),
		zap.String("activity_level", string(profile.ActivityLevel)),
		zap.String("climate", string(profile.Climate)),
		zap.Float64("daily_goal", s.DailyGoal),
	)
	return plan, nil
}

// UpdateProfile 更新资料并重新计算目标
func (c *Controller) UpdateProfile(ctx context.Context, profile models.DailyProfile) (*models.ReminderPlan, error) {
	_, plan, err := c.update(ctx, func(s *models.Settings) {
		s.Profile = profile
		s.DailyGoal = planner.ComputeGoal(profile).Liters
	})
	return plan, err
}

// RestoreDefaults 删除所有设置键，按默认值重建计划
func (c *Controller) RestoreDefaults(ctx context.Context) (*models.ReminderPlan, error) {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	if err := c.store.RemoveMany(ctx, store.AllKeys); err != nil {
		return nil, fmt.Errorf("failed to remove settings: %w", err)
	}
	c.logger.Info("Settings restored to defaults")
	return c.apply(ctx, models.DefaultSettings())
}

// ClearAllData 清空饮水记录与全部设置
func (c *Controller) ClearAllData(ctx context.Context) error {
	if err := c.drinks.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear drink history: %w", err)
	}
	_, err := c.RestoreDefaults(ctx)
	return err
}

// LogDrink 手动记录一杯；amount <= 0 时使用当前杯量
func (c *Controller) LogDrink(ctx context.Context, amountLiters float64) (*models.DrinkEvent, error) {
	s := c.Settings()
	if amountLiters <= 0 || math.IsNaN(amountLiters) {
		amountLiters = s.ServingSize
	}
	ev, err := c.drinks.Append(ctx, amountLiters, c.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to log drink: %w", err)
	}
	c.runtime.PlayFeedback(ctx, reminder.Config{SoundEnabled: s.SoundEnabled, SoundType: s.SoundType})
	return ev, nil
}

// DeleteDrink 删除一条记录
func (c *Controller) DeleteDrink(ctx context.Context, id string) error {
	return c.drinks.Delete(ctx, id)
}

// Progress 今日进度（仅展示，达到目标后提醒照常）
func (c *Controller) Progress(ctx context.Context) (*models.DailyProgress, error) {
	s := c.Settings()
	start := repository.StartOfDay(c.clock.Now())
	events, err := c.drinks.ListRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list today's drinks: %w", err)
	}

	p := &models.DailyProgress{
		GoalLiters:    s.DailyGoal,
		Drinks:        len(events),
		GlassesNeeded: planner.GlassesNeeded(s.DailyGoal, s.ServingSize),
	}
	for _, ev := range events {
		p.TotalLiters += ev.AmountLiters
	}
	p.TotalLiters = math.Round(p.TotalLiters*1000) / 1000
	p.Percent = int(math.Min(100, math.Floor(p.TotalLiters/s.DailyGoal*100)))
	p.GoalReached = p.TotalLiters >= s.DailyGoal
	return p, nil
}

// DailyTotals 最近 days 天（含今天）的每日汇总，按日期升序
func (c *Controller) DailyTotals(ctx context.Context, days int) ([]models.DailyTotal, error) {
	if days <= 0 {
		days = planner.DefaultHorizonDays
	}
	now := c.clock.Now()
	end := repository.StartOfDay(now).AddDate(0, 0, 1)
	from := end.AddDate(0, 0, -days)
	events, err := c.drinks.ListRange(ctx, from, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	return repository.AggregateDaily(events, from, days, now.Location()), nil
}

// ExportHistory 导出最近 days 天的历史为 Excel
func (c *Controller) ExportHistory(ctx context.Context, w io.Writer, days int) error {
	totals, err := c.DailyTotals(ctx, days)
	if err != nil {
		return err
	}
	s := c.Settings()
	return report.WriteHistoryXLSX(w, totals, s.DailyGoal, s.Language)
}

// Refresh 定时调用：重新评估清醒窗口；跨天后按当前设置重建计划，使已下发的通知始终覆盖未来 horizon 天
func (c *Controller) Refresh(ctx context.Context) {
	c.runtime.Refresh()

	c.editMu.Lock()
	defer c.editMu.Unlock()
	today := repository.StartOfDay(c.clock.Now())
	c.stateMu.RLock()
	planDay, s := c.planDay, c.settings
	c.stateMu.RUnlock()
	if planDay.IsZero() || !planDay.Before(today) {
		return
	}

	c.logger.Info("New day, extending reminder plan",
		zap.Time("plan_day", planDay),
		zap.Time("today", today),
	)
	if _, err := c.apply(ctx, s); err != nil {
		c.logger.Warn("Failed to extend reminder plan", zap.Error(err))
	}
}

// Dismiss 关闭当前提醒
func (c *Controller) Dismiss(ctx context.Context) error {
	return c.runtime.Dismiss(ctx)
}

// Snooze 10 分钟后再提醒
func (c *Controller) Snooze(ctx context.Context) error {
	return c.runtime.Snooze(ctx)
}

// DrinkNow 在提醒上选择"我喝水了"
func (c *Controller) DrinkNow(ctx context.Context) (*models.DrinkEvent, error) {
	return c.runtime.DrinkNow(ctx)
}

// Snapshot 前台状态机快照
func (c *Controller) Snapshot() reminder.Snapshot {
	return c.runtime.Snapshot()
}
