package declarations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shiftline/shiftline/internal/shared"
	"github.com/shiftline/shiftline/internal/timesheet/comments"
	"github.com/shiftline/shiftline/internal/timesheet/periods"
)

var (
	// ErrValidation indicates malformed or out-of-policy input.
	ErrValidation = errors.New("validation failed")
	// ErrNotEditable indicates a ledger mutation against a declaration that
	// is no longer in an editable status.
	ErrNotEditable = errors.New("declaration is not editable")
	// ErrAccessDenied indicates the declaration exists but the actor lacks
	// authority over it. Distinct from ErrNotFound.
	ErrAccessDenied = errors.New("access denied")
	// ErrNothingToSubmit indicates a submit against an empty declaration.
	ErrNothingToSubmit = errors.New("nothing to submit")
)

const minuteGranularity = 5

const (
	defaultQueuePerPage = 50
	maxQueuePerPage     = 200
)

// Service implements the time-entry ledger and the approval workflow.
type Service struct {
	repo     Repository
	periods  periods.Repository
	comments *comments.Service
	audit    shared.AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, periodRepo periods.Repository, commentSvc *comments.Service, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		periods:  periodRepo,
		comments: commentSvc,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveDay validates and upserts one day entry in the actor's own
// declaration of the given period, creating both period and declaration
// lazily, then re-derives the monthly total. Upsert, not append: a second
// save for the same date overwrites the first.
func (s *Service) SaveDay(ctx context.Context, caps Capabilities, year, month int, req SaveDayRequest) (*DayEntryResponse, error) {
	if !caps.EditOwn && !caps.Bypass {
		return nil, fmt.Errorf("%w: ledger edits require the employee role", ErrAccessDenied)
	}

	date, startMinute, duration, err := s.validateDay(year, month, req)
	if err != nil {
		return nil, err
	}

	period, err := s.periods.Resolve(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("resolve period: %w", err)
	}

	var saved DayEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		decl, err := s.ensureDeclaration(ctx, repo, period.ID, caps)
		if err != nil {
			return err
		}
		if !decl.Status.Editable() {
			return fmt.Errorf("%w: status is %s", ErrNotEditable, decl.Status)
		}

		entry := DayEntry{
			DeclarationID: decl.ID,
			Date:          date,
			StartMinute:   startMinute,
			// End time is start plus duration; entries reaching past
			// midnight keep counting instead of wrapping.
			EndMinute:   startMinute + duration,
			WorkMinutes: duration,
			Note:        req.Note,
		}
		saved, err = repo.UpsertDay(ctx, entry)
		if err != nil {
			return fmt.Errorf("upsert day: %w", err)
		}
		if _, err := repo.RecomputeTotal(ctx, decl.ID); err != nil {
			return fmt.Errorf("recompute total: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toDayResponse(saved)
	return &resp, nil
}

// DeleteDay soft-deletes the entry for the given date and re-derives the
// total. Fails with not-found when no period, declaration or live day exists.
func (s *Service) DeleteDay(ctx context.Context, caps Capabilities, year, month int, dateStr string) error {
	if !caps.EditOwn && !caps.Bypass {
		return fmt.Errorf("%w: ledger edits require the employee role", ErrAccessDenied)
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("%w: malformed date %q", ErrValidation, dateStr)
	}

	period, err := s.periods.Find(ctx, year, month)
	if err != nil {
		if errors.Is(err, periods.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		decl, err := repo.GetForEmployee(ctx, period.ID, caps.ActorID)
		if err != nil {
			return err
		}
		if !decl.Status.Editable() {
			return fmt.Errorf("%w: status is %s", ErrNotEditable, decl.Status)
		}
		if err := repo.SoftDeleteDay(ctx, decl.ID, date); err != nil {
			return err
		}
		if _, err := repo.RecomputeTotal(ctx, decl.ID); err != nil {
			return fmt.Errorf("recompute total: %w", err)
		}
		return nil
	})
}

// MyDeclaration returns the actor's declaration with day entries and
// comments, or an empty draft shape when nothing has been recorded yet.
func (s *Service) MyDeclaration(ctx context.Context, caps Capabilities, year, month int) (*DeclarationDetail, error) {
	empty := &DeclarationDetail{
		Declaration: &Declaration{
			Year:         year,
			Month:        month,
			EmployeeID:   caps.ActorID,
			EmployeeName: caps.ActorName,
			Status:       StatusDraft,
		},
		Days:           []DayEntryResponse{},
		Comments:       []comments.Comment{},
		TotalFormatted: FormatMinutes(0),
	}

	period, err := s.periods.Find(ctx, year, month)
	if err != nil {
		if errors.Is(err, periods.ErrNotFound) {
			return empty, nil
		}
		return nil, err
	}
	decl, err := s.repo.GetForEmployee(ctx, period.ID, caps.ActorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return empty, nil
		}
		return nil, err
	}
	return s.detail(ctx, decl)
}

// Submit moves the actor's declaration to Submitted. Fails as validation
// when there is nothing recorded, and as state-conflict when the current
// status does not allow submission.
func (s *Service) Submit(ctx context.Context, caps Capabilities, year, month int, comment *string) (*Declaration, error) {
	if !caps.EditOwn {
		return nil, fmt.Errorf("%w: only the owner may submit", ErrAccessDenied)
	}

	period, err := s.periods.Find(ctx, year, month)
	if err != nil {
		if errors.Is(err, periods.ErrNotFound) {
			return nil, fmt.Errorf("%w: no time recorded for %d-%02d", ErrNothingToSubmit, year, month)
		}
		return nil, err
	}
	decl, err := s.repo.GetForEmployee(ctx, period.ID, caps.ActorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no time recorded for %d-%02d", ErrNothingToSubmit, year, month)
		}
		return nil, err
	}
	if decl.TotalMinutes <= 0 {
		return nil, fmt.Errorf("%w: declared total is zero", ErrNothingToSubmit)
	}

	return s.applyTransition(ctx, caps, decl, ActionSubmit, comment)
}

// Get returns the full declaration for supervisor/payroll/admin review.
func (s *Service) Get(ctx context.Context, caps Capabilities, id int64) (*DeclarationDetail, error) {
	decl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caps.CanView(decl) {
		return nil, ErrAccessDenied
	}
	return s.detail(ctx, decl)
}

// Approve moves a Submitted declaration to Approved.
func (s *Service) Approve(ctx context.Context, caps Capabilities, id int64, comment *string) (*Declaration, error) {
	return s.manage(ctx, caps, id, ActionApprove, comment)
}

// Reject returns a Submitted declaration to the employee for correction.
func (s *Service) Reject(ctx context.Context, caps Capabilities, id int64, comment *string) (*Declaration, error) {
	return s.manage(ctx, caps, id, ActionReject, comment)
}

// AdvanceToSettlement hands an Approved declaration over to payroll.
func (s *Service) AdvanceToSettlement(ctx context.Context, caps Capabilities, id int64, comment *string) (*Declaration, error) {
	return s.manage(ctx, caps, id, ActionSettle, comment)
}

// ReturnForCorrection reopens an Approved or Settlement declaration.
// Payroll-only.
func (s *Service) ReturnForCorrection(ctx context.Context, caps Capabilities, id int64, comment *string) (*Declaration, error) {
	decl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caps.Settle && !caps.Bypass {
		return nil, fmt.Errorf("%w: return for correction requires the payroll role", ErrAccessDenied)
	}
	return s.applyTransition(ctx, caps, decl, ActionReturn, comment)
}

// ApprovalQueue lists Submitted declarations in the period, filtered to the
// actor's subordinate set unless the actor bypasses.
func (s *Service) ApprovalQueue(ctx context.Context, caps Capabilities, year, month, page, perPage int) (*QueuePage, error) {
	if !caps.Approve && !caps.Bypass {
		return nil, fmt.Errorf("%w: approval queue requires the supervisor role", ErrAccessDenied)
	}
	return s.queue(ctx, caps, year, month, []Status{StatusSubmitted}, caps.Bypass, page, perPage)
}

// PayrollQueue lists Approved and Settlement declarations in the period.
func (s *Service) PayrollQueue(ctx context.Context, caps Capabilities, year, month, page, perPage int) (*QueuePage, error) {
	if !caps.Settle && !caps.Bypass {
		return nil, fmt.Errorf("%w: payroll queue requires the payroll role", ErrAccessDenied)
	}
	return s.queue(ctx, caps, year, month, []Status{StatusApproved, StatusSettlement}, true, page, perPage)
}

// Monitoring shows every covered employee's progress for the period,
// including employees with no declaration yet, regardless of status.
func (s *Service) Monitoring(ctx context.Context, caps Capabilities, year, month int) ([]MonitoringRow, error) {
	if !caps.Approve && !caps.Bypass {
		return nil, fmt.Errorf("%w: monitoring requires the supervisor role", ErrAccessDenied)
	}

	// A missing period simply means nobody has recorded anything yet; the
	// left join against period id 0 still yields one zero-progress row per
	// employee.
	var periodID int64
	if period, err := s.periods.Find(ctx, year, month); err == nil {
		periodID = period.ID
	} else if !errors.Is(err, periods.ErrNotFound) {
		return nil, err
	}

	if !caps.Bypass && len(caps.SubordinateIDs()) == 0 {
		return []MonitoringRow{}, nil
	}
	rows, err := s.repo.MonitoringRows(ctx, periodID, caps.SubordinateIDs(), caps.Bypass)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []MonitoringRow{}
	}
	return rows, nil
}

// ExportRows returns every declaration of the period for report export.
func (s *Service) ExportRows(ctx context.Context, caps Capabilities, year, month int) ([]Summary, error) {
	if !caps.Approve && !caps.Settle && !caps.Bypass {
		return nil, fmt.Errorf("%w: export requires a reviewing role", ErrAccessDenied)
	}
	period, err := s.periods.Find(ctx, year, month)
	if err != nil {
		if errors.Is(err, periods.ErrNotFound) {
			return []Summary{}, nil
		}
		return nil, err
	}
	rows, err := s.repo.ListForPeriod(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Summary{}
	}
	return rows, nil
}

// ListComments returns a declaration's comment log.
func (s *Service) ListComments(ctx context.Context, caps Capabilities, id int64) ([]comments.Comment, error) {
	decl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caps.CanView(decl) {
		return nil, ErrAccessDenied
	}
	list, err := s.comments.List(ctx, decl.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []comments.Comment{}
	}
	return list, nil
}

// AddComment appends a free-form comment, tagged with the actor's effective
// role in this declaration's context.
func (s *Service) AddComment(ctx context.Context, caps Capabilities, id int64, content string) (comments.Comment, error) {
	decl, err := s.repo.Get(ctx, id)
	if err != nil {
		return comments.Comment{}, err
	}
	if !caps.CanView(decl) {
		return comments.Comment{}, ErrAccessDenied
	}
	return s.comments.Add(ctx, comments.Comment{
		DeclarationID: decl.ID,
		AuthorID:      caps.ActorID,
		AuthorName:    caps.ActorName,
		AuthorRole:    caps.RoleFor(decl),
		Content:       content,
	})
}

// manage runs the supervisor-gated transitions (approve/reject/settle).
func (s *Service) manage(ctx context.Context, caps Capabilities, id int64, action Action, comment *string) (*Declaration, error) {
	decl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caps.CanManage(decl.EmployeeID) {
		return nil, fmt.Errorf("%w: employee %d is not in your approval scope", ErrAccessDenied, decl.EmployeeID)
	}
	return s.applyTransition(ctx, caps, decl, action, comment)
}

// applyTransition resolves the target status from the workflow table, writes
// it guarded by the version stamp, and records comment and audit trails.
func (s *Service) applyTransition(ctx context.Context, caps Capabilities, decl *Declaration, action Action, comment *string) (*Declaration, error) {
	next, err := NextStatus(action, decl.Status)
	if err != nil {
		return nil, err
	}

	err = s.repo.UpdateStatus(ctx, UpdateStatusParams{
		ID:      decl.ID,
		Status:  next,
		ActorID: caps.ActorID,
		Version: decl.Version,
	})
	if err != nil {
		return nil, err
	}

	if comment != nil && *comment != "" {
		_, err := s.comments.Add(ctx, comments.Comment{
			DeclarationID: decl.ID,
			AuthorID:      caps.ActorID,
			AuthorName:    caps.ActorName,
			AuthorRole:    caps.RoleFor(decl),
			Content:       *comment,
		})
		if err != nil {
			s.logger.Warn("record transition comment",
				slog.Int64("declaration_id", decl.ID), slog.Any("error", err))
		}
	}

	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  caps.ActorID,
			Action:   "timesheet." + string(action),
			Entity:   "declaration",
			EntityID: strconv.FormatInt(decl.ID, 10),
			Meta: map[string]any{
				"from":     string(decl.Status),
				"to":       string(next),
				"employee": decl.EmployeeID,
			},
		})
		if err != nil {
			s.logger.Warn("record audit log",
				slog.Int64("declaration_id", decl.ID), slog.Any("error", err))
		}
	}

	return s.repo.Get(ctx, decl.ID)
}

func (s *Service) queue(ctx context.Context, caps Capabilities, year, month int, statuses []Status, all bool, page, perPage int) (*QueuePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > maxQueuePerPage {
		perPage = defaultQueuePerPage
	}
	empty := &QueuePage{Items: []Summary{}, Pagination: shared.NewPagination(page, perPage, 0)}

	period, err := s.periods.Find(ctx, year, month)
	if err != nil {
		if errors.Is(err, periods.ErrNotFound) {
			return empty, nil
		}
		return nil, err
	}
	if !all && len(caps.SubordinateIDs()) == 0 {
		return empty, nil
	}
	rows, total, err := s.repo.ListQueue(ctx, QueueFilter{
		PeriodID:    period.ID,
		Statuses:    statuses,
		EmployeeIDs: caps.SubordinateIDs(),
		All:         all,
		Page:        page,
		PerPage:     perPage,
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Summary{}
	}
	return &QueuePage{Items: rows, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

func (s *Service) ensureDeclaration(ctx context.Context, repo Repository, periodID int64, caps Capabilities) (*Declaration, error) {
	decl, err := repo.GetForEmployee(ctx, periodID, caps.ActorID)
	if err == nil {
		return decl, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	id, err := repo.Create(ctx, Declaration{
		PeriodID:     periodID,
		EmployeeID:   caps.ActorID,
		EmployeeName: caps.ActorName,
		Status:       StatusDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("create declaration: %w", err)
	}
	return repo.Get(ctx, id)
}

func (s *Service) detail(ctx context.Context, decl *Declaration) (*DeclarationDetail, error) {
	days, err := s.repo.ListDays(ctx, decl.ID)
	if err != nil {
		return nil, err
	}
	commentLog, err := s.comments.List(ctx, decl.ID)
	if err != nil {
		return nil, err
	}
	if commentLog == nil {
		commentLog = []comments.Comment{}
	}
	return &DeclarationDetail{
		Declaration:    decl,
		Days:           toDayResponses(days),
		Comments:       commentLog,
		TotalFormatted: FormatMinutes(decl.TotalMinutes),
	}, nil
}

// validateDay applies the day-entry policy: date inside the period's month,
// 5-minute granularity, positive duration of at most 24 hours, and no
// entries for months after the current one.
func (s *Service) validateDay(year, month int, req SaveDayRequest) (date time.Time, startMinute, duration int, err error) {
	date, parseErr := time.Parse("2006-01-02", req.Date)
	if parseErr != nil {
		return time.Time{}, 0, 0, fmt.Errorf("%w: malformed date %q", ErrValidation, req.Date)
	}
	if date.Year() != year || int(date.Month()) != month {
		return time.Time{}, 0, 0, fmt.Errorf("%w: date %s is outside %d-%02d", ErrValidation, req.Date, year, month)
	}

	now := s.now()
	if year > now.Year() || (year == now.Year() && month > int(now.Month())) {
		return time.Time{}, 0, 0, fmt.Errorf("%w: %d-%02d is in the future", ErrValidation, year, month)
	}

	start, parseErr := time.Parse("15:04", req.StartTime)
	if parseErr != nil {
		return time.Time{}, 0, 0, fmt.Errorf("%w: malformed start time %q", ErrValidation, req.StartTime)
	}
	startMinute = start.Hour()*60 + start.Minute()

	if req.DurationHours < 0 || req.DurationHours > 24 {
		return time.Time{}, 0, 0, fmt.Errorf("%w: hours must be between 0 and 24", ErrValidation)
	}
	if req.DurationMinutes < 0 || req.DurationMinutes >= 60 {
		return time.Time{}, 0, 0, fmt.Errorf("%w: minutes must be between 0 and 55", ErrValidation)
	}
	if req.DurationMinutes%minuteGranularity != 0 {
		return time.Time{}, 0, 0, fmt.Errorf("%w: minutes must be a multiple of %d", ErrValidation, minuteGranularity)
	}

	duration = req.DurationHours*60 + req.DurationMinutes
	if duration <= 0 {
		return time.Time{}, 0, 0, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if duration > 24*60 {
		return time.Time{}, 0, 0, fmt.Errorf("%w: duration exceeds 24 hours", ErrValidation)
	}

	return date, startMinute, duration, nil
}
