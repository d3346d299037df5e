package repository

import (
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/internal/models"
)

// StartOfDay t 所在日期的 00:00（t 的时区）
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AggregateDaily 按 loc 时区的自然日汇总，从 from 所在日起连续 days 天（无记录的日期为 0）
func AggregateDaily(events []models.DrinkEvent, from time.Time, days int, loc *time.Location) []models.DailyTotal {
	if days <= 0 {
		return nil
	}
	start := StartOfDay(from.In(loc))
	totals := make([]models.DailyTotal, days)
	for i := range totals {
		totals[i].Day = start.AddDate(0, 0, i)
	}
	for _, ev := range events {
		day := StartOfDay(ev.Timestamp.In(loc))
		for i := range totals {
			if totals[i].Day.Equal(day) {
				totals[i].Liters += ev.AmountLiters
				totals[i].Drinks++
				break
			}
		}
	}
	return totals
}
