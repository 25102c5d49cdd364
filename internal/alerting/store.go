package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/commutewatch-data/internal/common/db"
	"github.com/commutewatch-data/pkg/transit/models"
)

// Store reads the monitoring schedules the batch iterates over.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// ListSchedules returns every monitoring schedule. Day-of-week sets are
// stored as integer arrays (0 = Sunday, matching time.Weekday).
func (s *Store) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	query := `
		SELECT schedule_id, route_id, days, start_time, end_time, timezone
		FROM commute.route_schedules
		ORDER BY route_id, schedule_id
	`

	rows, err := s.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		var schedule models.Schedule
		var days []int64
		err := rows.Scan(
			&schedule.ScheduleID,
			&schedule.RouteID,
			pq.Array(&days),
			&schedule.StartTime,
			&schedule.EndTime,
			&schedule.Timezone,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule row: %w", err)
		}
		for _, d := range days {
			schedule.Days = append(schedule.Days, time.Weekday(d))
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedule rows: %w", err)
	}

	return schedules, nil
}
