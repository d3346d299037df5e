package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDrinkNotFound 记录不存在（或属于其他用户）
var ErrDrinkNotFound = errors.New("drink event not found")

// DrinkLog 饮水记录存储
type DrinkLog interface {
	Append(ctx context.Context, amountLiters float64, at time.Time) (*models.DrinkEvent, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.DrinkEvent, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

const drinkEventsSchema = `
	CREATE TABLE IF NOT EXISTS drink_events (
		id            UUID PRIMARY KEY,
		user_id       TEXT NOT NULL,
		drank_at      TIMESTAMPTZ NOT NULL,
		hour          SMALLINT NOT NULL,
		amount_liters DOUBLE PRECISION NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drink_events_user_time ON drink_events (user_id, drank_at);
`

// DrinkEventsRepository PostgreSQL 饮水记录仓库（按用户隔离）
type DrinkEventsRepository struct {
	db     *sql.DB
	userID string
	logger *zap.Logger
}

// NewDrinkEventsRepository 创建饮水记录仓库
func NewDrinkEventsRepository(db *sql.DB, userID string, logger *zap.Logger) *DrinkEventsRepository {
	return &DrinkEventsRepository{
		db:     db,
		userID: userID,
		logger: logger,
	}
}

// EnsureSchema 建表（幂等）
func (r *DrinkEventsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, drinkEventsSchema); err != nil {
		return fmt.Errorf("failed to ensure drink_events schema: %w", err)
	}
	return nil
}

// Append 追加一条饮水记录
func (r *DrinkEventsRepository) Append(ctx context.Context, amountLiters float64, at time.Time) (*models.DrinkEvent, error) {
	ev := newDrinkEvent(r.userID, amountLiters, at)

	query := `
		INSERT INTO drink_events (id, user_id, drank_at, hour, amount_liters)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, ev.ID, ev.UserID, ev.Timestamp, ev.Hour, ev.AmountLiters); err != nil {
		return nil, fmt.Errorf("failed to insert drink event: %w", err)
	}

	r.logger.Debug("Drink event stored",
		zap.String("drink_id", ev.ID),
		zap.Float64("amount_liters", ev.AmountLiters),
	)
	return ev, nil
}

// ListRange 查询 [from, to) 内的记录，按时间升序
func (r *DrinkEventsRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.DrinkEvent, error) {
	query := `
		SELECT id, user_id, drank_at, hour, amount_liters
		FROM drink_events
		WHERE user_id = $1
		  AND drank_at >= $2
		  AND drank_at < $3
		ORDER BY drank_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, r.userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query drink events: %w", err)
	}
	defer rows.Close()

	var events []models.DrinkEvent
	for rows.Next() {
		var ev models.DrinkEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Timestamp, &ev.Hour, &ev.AmountLiters); err != nil {
			return nil, fmt.Errorf("failed to scan drink event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drink events: %w", err)
	}
	return events, nil
}

// Delete 删除一条记录
func (r *DrinkEventsRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drink_events WHERE id = $1 AND user_id = $2`, id, r.userID)
	if err != nil {
		return fmt.Errorf("failed to delete drink event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrDrinkNotFound
	}
	return nil
}

// DeleteAll 清空该用户的全部记录
func (r *DrinkEventsRepository) DeleteAll(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drink_events WHERE user_id = $1`, r.userID)
	if err != nil {
		return fmt.Errorf("failed to delete drink events: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		r.logger.Info("Drink history cleared", zap.Int64("deleted", n))
	}
	return nil
}

func newDrinkEvent(userID string, amountLiters float64, at time.Time) *models.DrinkEvent {
	return &models.DrinkEvent{
		ID:           uuid.New().String(),
		UserID:       userID,
		Timestamp:    at,
		Hour:         at.Hour(),
		AmountLiters: amountLiters,
	}
}
