package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/shiftline/shiftline/internal/jobs"
)

// IntegrityScanJob re-derives declaration totals from the day-entry ledger
// and repairs any cached total that drifted. Drift should never happen while
// every mutation recomputes inside its transaction; this scan is the nightly
// backstop that proves it.
type IntegrityScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob initialises the integrity scan handler.
func NewIntegrityScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle executes the integrity scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTimesheetIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("job", TaskTimesheetIntegrityScan))
	start := time.Now()
	logger.Info("starting integrity scan",
		slog.Int("year", payload.Year), slog.Int("month", payload.Month))

	repaired, scanned, err := j.scan(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("integrity scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, r := range repaired {
		logger.Warn("declaration total drift repaired",
			slog.Int64("declaration_id", r.ID),
			slog.Int64("employee_id", r.EmployeeID),
			slog.Int("cached_minutes", r.Cached),
			slog.Int("derived_minutes", r.Derived),
		)
	}
	j.metrics().AddDrift(len(repaired))

	logger.Info("completed integrity scan",
		slog.Int("scanned", scanned),
		slog.Int("repaired", len(repaired)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type driftedDeclaration struct {
	ID         int64
	EmployeeID int64
	Cached     int
	Derived    int
}

func (j *IntegrityScanJob) scan(ctx context.Context, payload IntegrityScanPayload) ([]driftedDeclaration, int, error) {
	query := `
		SELECT d.id, d.employee_id, d.total_minutes,
		       COALESCE((SELECT SUM(e.work_minutes) FROM day_entries e
		                 WHERE e.declaration_id = d.id AND NOT e.deleted), 0) AS derived
		FROM declarations d
		JOIN periods p ON p.id = d.period_id`
	args := []any{}
	if payload.Year > 0 && payload.Month > 0 {
		query += ` WHERE p.year = $1 AND p.month = $2`
		args = append(args, payload.Year, payload.Month)
	}

	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	scanned := 0
	var drifted []driftedDeclaration
	for rows.Next() {
		var d driftedDeclaration
		if err := rows.Scan(&d.ID, &d.EmployeeID, &d.Cached, &d.Derived); err != nil {
			return nil, scanned, err
		}
		scanned++
		if d.Cached != d.Derived {
			drifted = append(drifted, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, scanned, err
	}

	for _, d := range drifted {
		_, err := j.Pool.Exec(ctx,
			`UPDATE declarations SET total_minutes = $2, updated_at = NOW() WHERE id = $1`,
			d.ID, d.Derived)
		if err != nil {
			return drifted, scanned, err
		}
	}
	return drifted, scanned, nil
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *IntegrityScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
