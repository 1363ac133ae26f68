package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/shiftline/shiftline/internal/jobs"
)

// SubmitReminderJob emails every active employee who has not yet handed in
// their declaration for the target period. Runs early in the following month.
type SubmitReminderJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Client  *Client
	clock   func() time.Time
}

// NewSubmitReminderJob initialises the reminder handler.
func NewSubmitReminderJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics, client *Client) *SubmitReminderJob {
	return &SubmitReminderJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		Client:  client,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reminder run.
func (j *SubmitReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("submit reminder: handler not configured")
	}
	var payload SubmitReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Year == 0 || payload.Month == 0 {
		// Default to the month that just closed.
		prev := j.clock().AddDate(0, -1, 0)
		payload.Year = prev.Year()
		payload.Month = int(prev.Month())
	}

	tracker := j.metrics().Track(TaskTimesheetSubmitReminder)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int("year", payload.Year), slog.Int("month", payload.Month))
	logger.Info("starting submit reminder run")

	rows, err := j.Pool.Query(ctx, `
		SELECT u.id, u.full_name, u.email
		FROM users u
		WHERE u.is_active
		  AND NOT EXISTS (
		      SELECT 1 FROM declarations d
		      JOIN periods p ON p.id = d.period_id
		      WHERE d.employee_id = u.id
		        AND p.year = $1 AND p.month = $2
		        AND d.status NOT IN ('DRAFT', 'CORRECTION'))
		ORDER BY u.full_name`,
		payload.Year, payload.Month)
	if err != nil {
		resultErr = err
		return resultErr
	}
	defer rows.Close()

	reminded := 0
	for rows.Next() {
		var id int64
		var name, email string
		if err := rows.Scan(&id, &name, &email); err != nil {
			resultErr = err
			return resultErr
		}
		if j.Client == nil {
			continue
		}
		_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      email,
			Subject: fmt.Sprintf("Timesheet for %d-%02d awaiting submission", payload.Year, payload.Month),
			Body:    fmt.Sprintf("Hi %s, your monthly declaration for %d-%02d has not been submitted yet.", name, payload.Year, payload.Month),
		})
		if err != nil {
			logger.Warn("enqueue reminder email", slog.Int64("employee_id", id), slog.Any("error", err))
			continue
		}
		reminded++
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	logger.Info("completed submit reminder run", slog.Int("reminded", reminded))
	return resultErr
}

func (j *SubmitReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SubmitReminderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
