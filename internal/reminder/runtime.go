package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/clock"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"

	"go.uber.org/zap"
)

// ErrNotShowing 当前没有正在展示的提醒
var ErrNotShowing = errors.New("no reminder is showing")

const (
	drinkVibrateMillis = 60
	sideEffectTimeout  = 5 * time.Second
)

// Presenter 前台提醒展示
type Presenter interface {
	Show(ctx context.Context, r Reminder) error
	Hide(ctx context.Context) error
}

// Feedback 振动/音效，失败不影响状态流转
type Feedback interface {
	Play(ctx context.Context, req FeedbackRequest) error
}

// DrinkLog 饮水记录
type DrinkLog interface {
	Append(ctx context.Context, amountLiters float64, at time.Time) (*models.DrinkEvent, error)
}

// Runtime 前台提醒状态机
//
// 同一时刻最多只有一个定时器。每次武装都会递增 gen，旧定时器回调发现 gen 不一致即放弃，
// 因此设置变更后不会出现旧倒计时重复触发。
// Show/Hide 在 presentMu 下串行执行；Show 前再次确认 gen，已被关闭或稍后的提醒不会再展示。
type Runtime struct {
	clock     clock.Clock
	presenter Presenter
	feedback  Feedback
	drinks    DrinkLog
	logger    *zap.Logger

	presentMu sync.Mutex

	mu       sync.Mutex
	cfg      Config
	state    State
	timer    clock.Timer
	gen      uint64
	deadline time.Time
	shownAt  time.Time
	closed   bool
}

// NewRuntime 创建状态机（初始为 Idle，需要 Apply 配置后才会武装）
func NewRuntime(clk clock.Clock, presenter Presenter, feedback Feedback, drinks DrinkLog, logger *zap.Logger) *Runtime {
	return &Runtime{
		clock:     clk,
		presenter: presenter,
		feedback:  feedback,
		drinks:    drinks,
		logger:    logger,
		state:     Idle,
	}
}

// Apply 应用新配置
//   - 关闭提醒：任何状态回到 Idle
//   - Idle：在窗口内则开始倒计时
//   - Pending：计划相关输入变化时丢弃旧倒计时，按新间隔从现在重新计时
//   - Showing/Snoozed：保持，下一次武装时使用新配置
func (r *Runtime) Apply(cfg Config) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	prev := r.cfg
	r.cfg = cfg
	now := r.clock.Now()
	hide := false

	switch {
	case !cfg.Enabled:
		hide = r.state == Showing
		r.toIdleLocked()
	case r.state == Idle:
		r.armPendingLocked(now)
	case r.state == Pending && !prev.sameSchedule(cfg):
		r.armPendingLocked(now)
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Debug("Reminder runtime config applied",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("interval_minutes", cfg.IntervalMinutes),
		zap.String("state", snap.State.String()),
		zap.Time("next_fire_at", snap.NextFireAt),
	)
	if hide {
		r.hide()
	}
}

// Refresh 重新评估窗口：Idle 且进入窗口则武装，Pending 且离开窗口则回到 Idle
func (r *Runtime) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.cfg.Enabled {
		return
	}
	now := r.clock.Now()
	switch r.state {
	case Idle:
		if r.inWindowLocked(now) {
			r.armPendingLocked(now)
			r.logger.Debug("Reminder window opened, countdown armed",
				zap.Time("next_fire_at", r.deadline),
			)
		}
	case Pending:
		if !r.inWindowLocked(now) {
			r.toIdleLocked()
		}
	}
}

// Dismiss 关闭提醒：Showing -> Pending
func (r *Runtime) Dismiss(ctx context.Context) error {
	if _, err := r.closeReminder(); err != nil {
		return err
	}
	r.hideWith(ctx)
	return nil
}

// DrinkNow "我喝水了"：Showing -> Pending，并记录一杯当前杯量
func (r *Runtime) DrinkNow(ctx context.Context) (*models.DrinkEvent, error) {
	cfg, err := r.closeReminder()
	if err != nil {
		return nil, err
	}
	r.hideWith(ctx)

	ev, err := r.drinks.Append(ctx, cfg.ServingLiters, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to log drink from reminder: %w", err)
	}
	r.PlayFeedback(ctx, cfg)
	return ev, nil
}

// Snooze 稍后提醒：Showing -> Snoozed，10 分钟后再次展示
func (r *Runtime) Snooze(ctx context.Context) error {
	r.mu.Lock()
	if r.closed || r.state != Showing {
		r.mu.Unlock()
		return ErrNotShowing
	}
	now := r.clock.Now()
	r.state = Snoozed
	r.armLocked(SnoozeDelay, now)
	resumeAt := r.deadline
	r.mu.Unlock()

	r.logger.Info("Reminder snoozed", zap.Time("resume_at", resumeAt))
	r.hideWith(ctx)
	return nil
}

// Snapshot 当前状态
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Close 停止定时器，之后的所有调用都是空操作
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toIdleLocked()
	r.closed = true
}

// PlayFeedback 触发喝水反馈，错误与 panic 都只记录日志
func (r *Runtime) PlayFeedback(ctx context.Context, cfg Config) {
	if r.feedback == nil {
		return
	}
	req := FeedbackRequest{VibrateMillis: drinkVibrateMillis}
	if cfg.SoundEnabled {
		req.Sound = cfg.SoundType
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Feedback panicked, ignored", zap.Any("panic", rec))
		}
	}()
	if err := r.feedback.Play(ctx, req); err != nil {
		r.logger.Warn("Feedback failed, ignored", zap.Error(err))
	}
}

func (r *Runtime) closeReminder() (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != Showing {
		return Config{}, ErrNotShowing
	}
	r.armPendingLocked(r.clock.Now())
	return r.cfg, nil
}

// onTimer 定时器回调；gen 不一致说明已被取代
func (r *Runtime) onTimer(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	now := r.clock.Now()

	if r.state != Pending && r.state != Snoozed {
		r.mu.Unlock()
		return
	}
	if !r.cfg.Enabled || !r.inWindowLocked(now) {
		r.logger.Debug("Reminder due outside wake window, going idle",
			zap.String("state", r.state.String()),
		)
		r.toIdleLocked()
		r.mu.Unlock()
		return
	}

	resumed := r.state == Snoozed
	r.state = Showing
	r.shownAt = now
	r.deadline = time.Time{}
	rem := newReminder(r.cfg.Language, now, resumed)
	r.mu.Unlock()

	r.logger.Info("Showing hydration reminder",
		zap.Time("shown_at", now),
		zap.Bool("resumed", resumed),
	)

	r.presentMu.Lock()
	defer r.presentMu.Unlock()
	if !r.stillShowing(gen) {
		r.logger.Debug("Reminder closed before it was presented")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := r.presenter.Show(ctx, rem); err != nil {
		r.logger.Warn("Failed to present reminder", zap.Error(err))
	}
}

func (r *Runtime) stillShowing(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.gen == gen && r.state == Showing
}

// armPendingLocked 按当前间隔进入 Pending；不在窗口内则回到 Idle
func (r *Runtime) armPendingLocked(now time.Time) {
	if !r.cfg.Enabled || !r.inWindowLocked(now) {
		r.toIdleLocked()
		return
	}
	r.state = Pending
	r.armLocked(r.cfg.interval(), now)
}

func (r *Runtime) armLocked(d time.Duration, now time.Time) {
	r.stopTimerLocked()
	r.gen++
	gen := r.gen
	r.deadline = now.Add(d)
	r.shownAt = time.Time{}
	r.timer = r.clock.AfterFunc(d, func() { r.onTimer(gen) })
}

func (r *Runtime) toIdleLocked() {
	r.stopTimerLocked()
	r.gen++
	r.state = Idle
	r.deadline = time.Time{}
	r.shownAt = time.Time{}
}

func (r *Runtime) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Runtime) inWindowLocked(now time.Time) bool {
	return r.cfg.Window.Contains(now.Hour()*60 + now.Minute())
}

func (r *Runtime) snapshotLocked() Snapshot {
	snap := Snapshot{State: r.state}
	switch r.state {
	case Pending:
		snap.NextFireAt = r.deadline
	case Showing:
		snap.ShownAt = r.shownAt
	case Snoozed:
		snap.ResumeAt = r.deadline
	}
	return snap
}

func (r *Runtime) hide() {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	r.hideWith(ctx)
}

func (r *Runtime) hideWith(ctx context.Context) {
	r.presentMu.Lock()
	defer r.presentMu.Unlock()
	if err := r.presenter.Hide(ctx); err != nil {
		r.logger.Warn("Failed to hide reminder", zap.Error(err))
	}
}
