package declarations

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftline/shiftline/internal/platform/db"
)

var (
	// ErrNotFound indicates the declaration or day entry does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict indicates a stale-read write was rejected by the
	// optimistic version stamp. Retry after re-fetching.
	ErrVersionConflict = errors.New("declaration was modified concurrently")
)

// UpdateStatusParams carries one status transition write.
type UpdateStatusParams struct {
	ID      int64
	Status  Status
	ActorID int64
	Version int64
}

// QueueFilter selects declarations for the read projections.
type QueueFilter struct {
	PeriodID int64
	Statuses []Status
	// EmployeeIDs limits rows to the actor's subordinate set. Ignored when
	// All is set (bypass role).
	EmployeeIDs []int64
	All         bool
	Page        int
	PerPage     int
}

// Repository provides persistence for declarations and their day entries.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, id int64) (*Declaration, error)
	GetForEmployee(ctx context.Context, periodID, employeeID int64) (*Declaration, error)
	Create(ctx context.Context, d Declaration) (int64, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) error

	UpsertDay(ctx context.Context, e DayEntry) (DayEntry, error)
	SoftDeleteDay(ctx context.Context, declarationID int64, date time.Time) error
	ListDays(ctx context.Context, declarationID int64) ([]DayEntry, error)
	RecomputeTotal(ctx context.Context, declarationID int64) (int, error)

	ListQueue(ctx context.Context, filter QueueFilter) ([]Summary, int, error)
	MonitoringRows(ctx context.Context, periodID int64, employeeIDs []int64, all bool) ([]MonitoringRow, error)
	ListForPeriod(ctx context.Context, periodID int64) ([]Summary, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn against a repository bound to one transaction, so a ledger
// mutation and the total recompute land atomically.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const declarationColumns = `
d.id, d.public_id, d.period_id, p.year, p.month, d.employee_id, d.employee_name,
d.status, d.total_minutes, d.submitted_at, d.approved_at, d.approved_by,
d.status_changed_by, d.status_changed_at, d.version, d.created_at, d.updated_at`

func scanDeclaration(row pgx.Row) (*Declaration, error) {
	var d Declaration
	err := row.Scan(&d.ID, &d.PublicID, &d.PeriodID, &d.Year, &d.Month,
		&d.EmployeeID, &d.EmployeeName, &d.Status, &d.TotalMinutes,
		&d.SubmittedAt, &d.ApprovedAt, &d.ApprovedBy,
		&d.StatusChangedBy, &d.StatusChangedAt, &d.Version,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Declaration, error) {
	const query = `
SELECT` + declarationColumns + `
FROM declarations d
JOIN periods p ON p.id = d.period_id
WHERE d.id = $1`
	return scanDeclaration(r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetForEmployee(ctx context.Context, periodID, employeeID int64) (*Declaration, error) {
	const query = `
SELECT` + declarationColumns + `
FROM declarations d
JOIN periods p ON p.id = d.period_id
WHERE d.period_id = $1 AND d.employee_id = $2`
	return scanDeclaration(r.db.QueryRow(ctx, query, periodID, employeeID))
}

func (r *repository) Create(ctx context.Context, d Declaration) (int64, error) {
	const query = `
INSERT INTO declarations (public_id, period_id, employee_id, employee_name, status)
VALUES (gen_random_uuid(), $1, $2, $3, $4)
RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query, d.PeriodID, d.EmployeeID, d.EmployeeName, d.Status).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateStatus applies one transition guarded by the version stamp. A zero
// row count means another writer got there first.
func (r *repository) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	const query = `
UPDATE declarations SET
  status = $2,
  status_changed_by = $3,
  status_changed_at = NOW(),
  submitted_at = CASE WHEN $2 = 'SUBMITTED' THEN NOW() ELSE submitted_at END,
  approved_at  = CASE WHEN $2 = 'APPROVED'  THEN NOW() ELSE approved_at END,
  approved_by  = CASE WHEN $2 = 'APPROVED'  THEN $3    ELSE approved_by END,
  version = version + 1,
  updated_at = NOW()
WHERE id = $1 AND version = $4`
	tag, err := r.db.Exec(ctx, query, params.ID, params.Status, params.ActorID, params.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) UpsertDay(ctx context.Context, e DayEntry) (DayEntry, error) {
	const query = `
INSERT INTO day_entries (declaration_id, entry_date, start_minute, end_minute, work_minutes, note)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (declaration_id, entry_date) DO UPDATE SET
  start_minute = EXCLUDED.start_minute,
  end_minute   = EXCLUDED.end_minute,
  work_minutes = EXCLUDED.work_minutes,
  note         = EXCLUDED.note,
  deleted      = FALSE,
  updated_at   = NOW()
RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		e.DeclarationID, e.Date, e.StartMinute, e.EndMinute, e.WorkMinutes, e.Note).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return DayEntry{}, err
	}
	return e, nil
}

func (r *repository) SoftDeleteDay(ctx context.Context, declarationID int64, date time.Time) error {
	const query = `
UPDATE day_entries SET deleted = TRUE, updated_at = NOW()
WHERE declaration_id = $1 AND entry_date = $2 AND NOT deleted`
	tag, err := r.db.Exec(ctx, query, declarationID, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListDays(ctx context.Context, declarationID int64) ([]DayEntry, error) {
	const query = `
SELECT id, declaration_id, entry_date, start_minute, end_minute, work_minutes, note, deleted, created_at, updated_at
FROM day_entries
WHERE declaration_id = $1 AND NOT deleted
ORDER BY entry_date ASC`
	rows, err := r.db.Query(ctx, query, declarationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var days []DayEntry
	for rows.Next() {
		var e DayEntry
		if err := rows.Scan(&e.ID, &e.DeclarationID, &e.Date, &e.StartMinute, &e.EndMinute,
			&e.WorkMinutes, &e.Note, &e.Deleted, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		days = append(days, e)
	}
	return days, rows.Err()
}

// RecomputeTotal re-derives the cached total from the live day entries
// instead of patching it incrementally, so overwrites and deletes can never
// make it drift.
func (r *repository) RecomputeTotal(ctx context.Context, declarationID int64) (int, error) {
	const query = `
UPDATE declarations SET
  total_minutes = COALESCE((
    SELECT SUM(work_minutes) FROM day_entries
    WHERE declaration_id = $1 AND NOT deleted
  ), 0),
  updated_at = NOW()
WHERE id = $1
RETURNING total_minutes`
	var total int
	if err := r.db.QueryRow(ctx, query, declarationID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return total, nil
}

const summaryColumns = `
d.id, d.public_id, p.year, p.month, d.employee_id, d.employee_name,
d.status, d.total_minutes, d.submitted_at, d.approved_at,
(SELECT COUNT(*) FROM day_entries e WHERE e.declaration_id = d.id AND NOT e.deleted) AS day_count`

func scanSummaries(rows pgx.Rows) ([]Summary, error) {
	defer rows.Close()
	var list []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.PublicID, &s.Year, &s.Month, &s.EmployeeID,
			&s.EmployeeName, &s.Status, &s.TotalMinutes,
			&s.SubmittedAt, &s.ApprovedAt, &s.DayCount); err != nil {
			return nil, err
		}
		s.TotalFormatted = FormatMinutes(s.TotalMinutes)
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *repository) ListQueue(ctx context.Context, filter QueueFilter) ([]Summary, int, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	where := ` WHERE d.period_id = $1 AND d.status = ANY($2)`
	args := []interface{}{filter.PeriodID, statuses}
	if !filter.All {
		where += ` AND d.employee_id = ANY($3)`
		args = append(args, filter.EmployeeIDs)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM declarations d` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
SELECT` + summaryColumns + `
FROM declarations d
JOIN periods p ON p.id = d.period_id` + where + `
ORDER BY d.employee_name ASC, d.id ASC`
	if filter.PerPage > 0 {
		offset := (filter.Page - 1) * filter.PerPage
		if offset < 0 {
			offset = 0
		}
		query += ` LIMIT $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.PerPage)
		query += ` OFFSET $` + strconv.Itoa(len(args)+1)
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) MonitoringRows(ctx context.Context, periodID int64, employeeIDs []int64, all bool) ([]MonitoringRow, error) {
	query := `
SELECT u.id, u.full_name, d.id, d.status, COALESCE(d.total_minutes, 0),
  COALESCE((SELECT COUNT(*) FROM day_entries e WHERE e.declaration_id = d.id AND NOT e.deleted), 0)
FROM users u
LEFT JOIN declarations d ON d.employee_id = u.id AND d.period_id = $1
WHERE u.is_active`
	args := []interface{}{periodID}
	if !all {
		query += ` AND u.id = ANY($2)`
		args = append(args, employeeIDs)
	}
	query += ` ORDER BY u.full_name ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []MonitoringRow
	for rows.Next() {
		var row MonitoringRow
		var declID *int64
		var status *Status
		if err := rows.Scan(&row.EmployeeID, &row.EmployeeName, &declID, &status,
			&row.TotalMinutes, &row.DayCount); err != nil {
			return nil, err
		}
		row.DeclarationID = declID
		if status != nil {
			row.Status = *status
		}
		row.TotalFormatted = FormatMinutes(row.TotalMinutes)
		list = append(list, row)
	}
	return list, rows.Err()
}

func (r *repository) ListForPeriod(ctx context.Context, periodID int64) ([]Summary, error) {
	query := `
SELECT` + summaryColumns + `
FROM declarations d
JOIN periods p ON p.id = d.period_id
WHERE d.period_id = $1
ORDER BY d.employee_name ASC, d.id ASC`
	rows, err := r.db.Query(ctx, query, periodID)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}
