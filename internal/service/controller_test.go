package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/clock"
	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
	"github.com/Hans-Rafael/glup-water-reminder/internal/notifier"
	"github.com/Hans-Rafael/glup-water-reminder/internal/reminder"
	"github.com/Hans-Rafael/glup-water-reminder/internal/repository"
	"github.com/Hans-Rafael/glup-water-reminder/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// fakeGateway 记录下发的命令，可注入错误或在第一次 CancelAll 时阻塞
type fakeGateway struct {
	mu        sync.Mutex
	calls     []string
	scheduled []notifier.Notification
	err       error

	blockOnce sync.Once
	entered   chan struct{}
	release   chan struct{}
}

func (g *fakeGateway) CancelAll(ctx context.Context) error {
	if g.release != nil {
		g.blockOnce.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, notifier.CommandCancelAll)
	g.scheduled = nil
	return g.err
}

func (g *fakeGateway) Schedule(ctx context.Context, n notifier.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, notifier.CommandSchedule)
	g.scheduled = append(g.scheduled, n)
	return g.err
}

func (g *fakeGateway) snapshot() ([]string, []notifier.Notification) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...), append([]notifier.Notification(nil), g.scheduled...)
}

// stallingGateway 每次调用都阻塞到 ctx 结束
type stallingGateway struct {
	calls atomic.Int32
}

func (g *stallingGateway) CancelAll(ctx context.Context) error {
	g.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (g *stallingGateway) Schedule(ctx context.Context, n notifier.Notification) error {
	g.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

type nopPresenter struct{}

func (nopPresenter) Show(ctx context.Context, r reminder.Reminder) error { return nil }
func (nopPresenter) Hide(ctx context.Context) error                      { return nil }

type testEnv struct {
	ctrl    *Controller
	clock   *clock.Fake
	store   *store.MemoryStore
	drinks  *repository.MemoryDrinkLog
	gateway *fakeGateway
}

var today = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func setupController(t *testing.T, gateway *fakeGateway) *testEnv {
	if gateway == nil {
		gateway = &fakeGateway{}
	}
	clk := clock.NewFake(today.Add(9 * time.Hour))
	drinks := repository.NewMemoryDrinkLog("u1")
	rt := reminder.NewRuntime(clk, nopPresenter{}, nil, drinks, zap.NewNop())
	t.Cleanup(rt.Close)
	st := store.NewMemoryStore()
	ctrl := NewController(st, drinks, gateway, rt, clk, 7, zap.NewNop())
	return &testEnv{ctrl: ctrl, clock: clk, store: st, drinks: drinks, gateway: gateway}
}

func TestOnSettingsChanged_DefaultDay(t *testing.T) {
	env := setupController(t, nil)

	plan, err := env.ctrl.OnSettingsChanged(context.Background(), models.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 69, plan.IntervalMinutes)
	assert.Equal(t, 13, plan.GlassesNeeded)
	assert.Len(t, plan.FireTimes, 13*7)

	calls, scheduled := env.gateway.snapshot()
	require.NotEmpty(t, calls)
	assert.Equal(t, notifier.CommandCancelAll, calls[0])
	// 今天 07:00 与 08:09 已过
	assert.Len(t, scheduled, 13*7-2)
	assert.Equal(t, today.Add(9*time.Hour+18*time.Minute), scheduled[0].FireAt)
	assert.Equal(t, "Recordatorio Glup", scheduled[0].Title)

	snap := env.ctrl.Snapshot()
	assert.Equal(t, reminder.Pending, snap.State)
	assert.Equal(t, today.Add(10*time.Hour+9*time.Minute), snap.NextFireAt)
}

func TestOnSettingsChanged_DisabledCancelsOnly(t *testing.T) {
	env := setupController(t, nil)
	_, err := env.ctrl.OnSettingsChanged(context.Background(), models.DefaultSettings())
	require.NoError(t, err)

	s := models.DefaultSettings()
	s.ReminderEnabled = false
	_, err = env.ctrl.OnSettingsChanged(context.Background(), s)
	require.NoError(t, err)

	calls, scheduled := env.gateway.snapshot()
	assert.Equal(t, notifier.CommandCancelAll, calls[len(calls)-1])
	assert.Empty(t, scheduled)
	assert.Equal(t, reminder.Idle, env.ctrl.Snapshot().State)
}

func TestOnSettingsChanged_DegenerateWindow(t *testing.T) {
	env := setupController(t, nil)
	s := models.DefaultSettings()
	s.Window = models.WakeWindow{Wake: 22 * 60, Sleep: 7 * 60}

	plan, err := env.ctrl.OnSettingsChanged(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, plan.Degenerate)
	assert.Equal(t, 60, plan.IntervalMinutes)
	assert.Empty(t, plan.FireTimes)

	_, scheduled := env.gateway.snapshot()
	assert.Empty(t, scheduled)
	assert.Equal(t, reminder.Idle, env.ctrl.Snapshot().State)
}

func TestOnSettingsChanged_GatewayFailureIgnored(t *testing.T) {
	env := setupController(t, &fakeGateway{err: errors.New("relay down")})

	plan, err := env.ctrl.OnSettingsChanged(context.Background(), models.DefaultSettings())
	require.NoError(t, err)
	assert.NotNil(t, plan)
	assert.Equal(t, reminder.Pending, env.ctrl.Snapshot().State)
}

func TestOnSettingsChanged_LatestWins(t *testing.T) {
	gw := &fakeGateway{entered: make(chan struct{}), release: make(chan struct{})}
	env := setupController(t, gw)
	ctx := context.Background()

	first := models.DefaultSettings()
	second := models.DefaultSettings()
	second.DailyGoal = 3.0
	third := models.DefaultSettings()
	third.DailyGoal = 2.0

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = env.ctrl.OnSettingsChanged(ctx, first)
	}()
	<-gw.entered

	errs := make([]error, 2)
	for i, s := range []models.Settings{second, third} {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.ctrl.OnSettingsChanged(ctx, s)
		}()
		want := uint64(i + 2)
		require.Eventually(t, func() bool { return env.ctrl.gen.Load() == want }, time.Second, time.Millisecond)
	}

	close(gw.release)
	wg.Wait()

	assert.ErrorIs(t, errs[0], ErrSuperseded)
	assert.NoError(t, errs[1])
	assert.Equal(t, 2.0, env.ctrl.Settings().DailyGoal)
	assert.Equal(t, 10, env.ctrl.Plan().GlassesNeeded)

	// 最终下发的只有最后一次计划
	_, scheduled := gw.snapshot()
	assert.Len(t, scheduled, 10*7-2)
}

func TestReloadAndSaveSettings(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()
	require.NoError(t, env.store.SetMany(ctx, map[string]string{
		store.KeyWakeTime:    "06:00",
		store.KeySleepTime:   "23:00",
		store.KeyDailyGoal:   "1.2",
		store.KeyServingSize: "0.5",
	}))

	plan, err := env.ctrl.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.GlassesNeeded)
	assert.Equal(t, 340, plan.IntervalMinutes)

	s := env.ctrl.Settings()
	s.Language = models.LanguageEN
	_, err = env.ctrl.SaveSettings(ctx, s)
	require.NoError(t, err)
	v, ok, err := env.store.Get(ctx, store.KeyLanguage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", v)
}

func TestAdjustServing(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()
	_, err := env.ctrl.OnSettingsChanged(ctx, models.DefaultSettings())
	require.NoError(t, err)

	got, err := env.ctrl.AdjustServing(ctx, models.ServingStep)
	require.NoError(t, err)
	assert.Equal(t, 0.25, got)
	assert.Equal(t, 10, env.ctrl.Plan().GlassesNeeded)
	v, _, _ := env.store.Get(ctx, store.KeyServingSize)
	assert.Equal(t, "0.25", v)

	for i := 0; i < 10; i++ {
		got, err = env.ctrl.AdjustServing(ctx, models.ServingStep)
		require.NoError(t, err)
	}
	assert.Equal(t, models.MaxServing, got)

	got, err = env.ctrl.AdjustServing(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, models.MinServing, got)
}

func TestCompleteOnboarding(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()

	profile := models.DailyProfile{WeightKg: 60, Gender: models.GenderFemale, ActivityLevel: models.ActivityHigh, Climate: models.ClimateHot}
	plan, err := env.ctrl.CompleteOnboarding(ctx, "Ana", profile)
	require.NoError(t, err)
	assert.Equal(t, 17, plan.GlassesNeeded)

	s := env.ctrl.Settings()
	assert.Equal(t, "Ana", s.UserName)
	assert.InDelta(t, 3.4, s.DailyGoal, 1e-9)
	assert.False(t, s.FirstTime)

	loaded := store.LoadSettings(ctx, env.store, zap.NewNop())
	assert.False(t, loaded.FirstTime)
	assert.Equal(t, profile, loaded.Profile)

	_, err = env.ctrl.UpdateProfile(ctx, models.DefaultProfile())
	require.NoError(t, err)
	assert.InDelta(t, 2.5, env.ctrl.Settings().DailyGoal, 1e-9)
}

func TestRestoreDefaultsAndClearAllData(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()

	s := models.DefaultSettings()
	s.DailyGoal = 3.0
	_, err := env.ctrl.SaveSettings(ctx, s)
	require.NoError(t, err)
	_, err = env.ctrl.LogDrink(ctx, 0.3)
	require.NoError(t, err)

	_, err = env.ctrl.RestoreDefaults(ctx)
	require.NoError(t, err)
	_, ok, _ := env.store.Get(ctx, store.KeyDailyGoal)
	assert.False(t, ok)
	assert.Equal(t, models.DefaultGoal, env.ctrl.Settings().DailyGoal)

	require.NoError(t, env.ctrl.ClearAllData(ctx))
	p, err := env.ctrl.Progress(ctx)
	require.NoError(t, err)
	assert.Zero(t, p.Drinks)
}

func TestLogDrinkAndProgress(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()
	_, err := env.ctrl.OnSettingsChanged(ctx, models.DefaultSettings())
	require.NoError(t, err)

	ev, err := env.ctrl.LogDrink(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.2, ev.AmountLiters)
	assert.Equal(t, 9, ev.Hour)

	for i := 0; i < 5; i++ {
		_, err = env.ctrl.LogDrink(ctx, 0.5)
		require.NoError(t, err)
	}

	p, err := env.ctrl.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Drinks)
	assert.InDelta(t, 2.7, p.TotalLiters, 1e-9)
	assert.Equal(t, 100, p.Percent)
	assert.True(t, p.GoalReached)
	assert.Equal(t, 13, p.GlassesNeeded)

	// 达标后提醒照常
	assert.Equal(t, reminder.Pending, env.ctrl.Snapshot().State)

	require.NoError(t, env.ctrl.DeleteDrink(ctx, ev.ID))
	assert.ErrorIs(t, env.ctrl.DeleteDrink(ctx, ev.ID), repository.ErrDrinkNotFound)
	p, err = env.ctrl.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Drinks)
	assert.Equal(t, 100, p.Percent)
}

func TestReminderActionsThroughController(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()
	_, err := env.ctrl.OnSettingsChanged(ctx, models.DefaultSettings())
	require.NoError(t, err)

	assert.ErrorIs(t, env.ctrl.Dismiss(ctx), reminder.ErrNotShowing)

	env.clock.Advance(69 * time.Minute)
	require.Equal(t, reminder.Showing, env.ctrl.Snapshot().State)
	require.NoError(t, env.ctrl.Snooze(ctx))
	env.clock.Advance(reminder.SnoozeDelay)
	require.Equal(t, reminder.Showing, env.ctrl.Snapshot().State)

	ev, err := env.ctrl.DrinkNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.2, ev.AmountLiters)
	assert.Equal(t, reminder.Pending, env.ctrl.Snapshot().State)

	p, err := env.ctrl.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Drinks)
	assert.Equal(t, 8, p.Percent)
}

func TestDailyTotalsAndExport(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()
	_, err := env.ctrl.OnSettingsChanged(ctx, models.DefaultSettings())
	require.NoError(t, err)

	_, err = env.drinks.Append(ctx, 0.5, today.AddDate(0, 0, -2).Add(10*time.Hour))
	require.NoError(t, err)
	_, err = env.ctrl.LogDrink(ctx, 0.3)
	require.NoError(t, err)

	totals, err := env.ctrl.DailyTotals(ctx, 3)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, today.AddDate(0, 0, -2), totals[0].Day)
	assert.Equal(t, 1, totals[0].Drinks)
	assert.Zero(t, totals[1].Drinks)
	assert.InDelta(t, 0.3, totals[2].Liters, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, env.ctrl.ExportHistory(ctx, &buf, 3))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Historial")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestOnSettingsChanged_RuntimeArmedWhileGatewayBusy(t *testing.T) {
	gw := &fakeGateway{entered: make(chan struct{}), release: make(chan struct{})}
	env := setupController(t, gw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.ctrl.OnSettingsChanged(context.Background(), models.DefaultSettings())
	}()
	<-gw.entered

	snap := env.ctrl.Snapshot()
	assert.Equal(t, reminder.Pending, snap.State)
	assert.Equal(t, today.Add(10*time.Hour+9*time.Minute), snap.NextFireAt)

	close(gw.release)
	<-done
}

func TestOnSettingsChanged_GatewayTimeoutBounded(t *testing.T) {
	clk := clock.NewFake(today.Add(9 * time.Hour))
	drinks := repository.NewMemoryDrinkLog("u1")
	rt := reminder.NewRuntime(clk, nopPresenter{}, nil, drinks, zap.NewNop())
	t.Cleanup(rt.Close)
	gw := &stallingGateway{}
	ctrl := NewController(store.NewMemoryStore(), drinks, gw, rt, clk, 7, zap.NewNop())
	ctrl.notifyTimeout = 20 * time.Millisecond

	start := time.Now()
	plan, err := ctrl.OnSettingsChanged(context.Background(), models.DefaultSettings())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 13, plan.GlassesNeeded)
	// 取消超时后不再逐条调度
	assert.Equal(t, int32(1), gw.calls.Load())
	assert.Equal(t, reminder.Pending, ctrl.Snapshot().State)
}

func TestRefresh_ExtendsPlanEachNewDay(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()

	_, err := env.ctrl.OnSettingsChanged(ctx, models.DefaultSettings())
	require.NoError(t, err)

	// 同一天内刷新不会重新下发
	env.ctrl.Refresh(ctx)
	calls, _ := env.gateway.snapshot()
	assert.Len(t, calls, 1+13*7-2)

	for i := 0; i < 10*48; i++ {
		env.clock.Advance(30 * time.Minute)
		env.ctrl.Refresh(ctx)
	}
	now := env.clock.Now()
	require.Equal(t, today.AddDate(0, 0, 10).Add(9*time.Hour), now)

	calls, scheduled := env.gateway.snapshot()
	cancels := 0
	for _, c := range calls {
		if c == notifier.CommandCancelAll {
			cancels++
		}
	}
	assert.Equal(t, 11, cancels)

	// 最后一次重建发生在当天 00:00，覆盖接下来 7 天
	require.Len(t, scheduled, 13*7)
	assert.Equal(t, today.AddDate(0, 0, 10).Add(7*time.Hour), scheduled[0].FireAt)
	assert.Equal(t, today.AddDate(0, 0, 16).Add(20*time.Hour+48*time.Minute), scheduled[len(scheduled)-1].FireAt)
	future := 0
	for _, n := range scheduled {
		if n.FireAt.After(now) {
			future++
		}
	}
	assert.Equal(t, 13*7-2, future)
}

func TestRefresh_NoPlanYet(t *testing.T) {
	env := setupController(t, nil)
	env.clock.Advance(48 * time.Hour)
	env.ctrl.Refresh(context.Background())

	calls, _ := env.gateway.snapshot()
	assert.Empty(t, calls)
	assert.Nil(t, env.ctrl.Plan())
}

func TestAdjustServing_ConcurrentStepsAllApplied(t *testing.T) {
	env := setupController(t, nil)
	ctx := context.Background()
	_, err := env.ctrl.Reload(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ctrl.AdjustServing(ctx, models.ServingStep)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 0.4, env.ctrl.Settings().ServingSize, 1e-9)
	v, ok, err := env.store.Get(ctx, store.KeyServingSize)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.40", v)
}
