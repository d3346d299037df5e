package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

// MemoryDrinkLog 进程内饮水记录（未启用数据库时使用，重启即丢失）
type MemoryDrinkLog struct {
	mu     sync.Mutex
	userID string
	events []models.DrinkEvent
}

func NewMemoryDrinkLog(userID string) *MemoryDrinkLog {
	return &MemoryDrinkLog{userID: userID}
}

func (m *MemoryDrinkLog) Append(ctx context.Context, amountLiters float64, at time.Time) (*models.DrinkEvent, error) {
	ev := newDrinkEvent(m.userID, amountLiters, at)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return ev, nil
}

func (m *MemoryDrinkLog) ListRange(ctx context.Context, from, to time.Time) ([]models.DrinkEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DrinkEvent
	for _, ev := range m.events {
		if !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryDrinkLog) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ev := range m.events {
		if ev.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return ErrDrinkNotFound
}

func (m *MemoryDrinkLog) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	return nil
}
