package declarations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shiftline/shiftline/internal/shared"
	"github.com/shiftline/shiftline/internal/timesheet/comments"
	"github.com/shiftline/shiftline/internal/timesheet/periods"
	_ "github.com/shiftline/shiftline/testing"
)

type fakeRepo struct {
	declarations map[int64]*Declaration
	days         map[int64]map[string]DayEntry
	nextDeclID   int64
	nextDayID    int64
	activeUsers  []MonitoringRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		declarations: make(map[int64]*Declaration),
		days:         make(map[int64]map[string]DayEntry),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*Declaration, error) {
	d, ok := f.declarations[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (f *fakeRepo) GetForEmployee(ctx context.Context, periodID, employeeID int64) (*Declaration, error) {
	for _, d := range f.declarations {
		if d.PeriodID == periodID && d.EmployeeID == employeeID {
			clone := *d
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) Create(ctx context.Context, d Declaration) (int64, error) {
	f.nextDeclID++
	d.ID = f.nextDeclID
	d.Version = 1
	f.declarations[d.ID] = &d
	return d.ID, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	d, ok := f.declarations[params.ID]
	if !ok {
		return ErrNotFound
	}
	if d.Version != params.Version {
		return ErrVersionConflict
	}
	now := time.Now()
	d.Status = params.Status
	d.StatusChangedBy = &params.ActorID
	d.StatusChangedAt = &now
	switch params.Status {
	case StatusSubmitted:
		d.SubmittedAt = &now
	case StatusApproved:
		d.ApprovedAt = &now
		d.ApprovedBy = &params.ActorID
	}
	d.Version++
	return nil
}

func (f *fakeRepo) UpsertDay(ctx context.Context, e DayEntry) (DayEntry, error) {
	key := e.Date.Format("2006-01-02")
	byDate, ok := f.days[e.DeclarationID]
	if !ok {
		byDate = make(map[string]DayEntry)
		f.days[e.DeclarationID] = byDate
	}
	if existing, ok := byDate[key]; ok {
		e.ID = existing.ID
	} else {
		f.nextDayID++
		e.ID = f.nextDayID
	}
	e.Deleted = false
	byDate[key] = e
	return e, nil
}

func (f *fakeRepo) SoftDeleteDay(ctx context.Context, declarationID int64, date time.Time) error {
	key := date.Format("2006-01-02")
	e, ok := f.days[declarationID][key]
	if !ok || e.Deleted {
		return ErrNotFound
	}
	e.Deleted = true
	f.days[declarationID][key] = e
	return nil
}

func (f *fakeRepo) ListDays(ctx context.Context, declarationID int64) ([]DayEntry, error) {
	var out []DayEntry
	for _, e := range f.days[declarationID] {
		if !e.Deleted {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) RecomputeTotal(ctx context.Context, declarationID int64) (int, error) {
	d, ok := f.declarations[declarationID]
	if !ok {
		return 0, ErrNotFound
	}
	total := 0
	for _, e := range f.days[declarationID] {
		if !e.Deleted {
			total += e.WorkMinutes
		}
	}
	d.TotalMinutes = total
	return total, nil
}

func (f *fakeRepo) ListQueue(ctx context.Context, filter QueueFilter) ([]Summary, int, error) {
	allowed := make(map[int64]struct{}, len(filter.EmployeeIDs))
	for _, id := range filter.EmployeeIDs {
		allowed[id] = struct{}{}
	}
	wantStatus := make(map[Status]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		wantStatus[s] = struct{}{}
	}
	var out []Summary
	for _, d := range f.declarations {
		if d.PeriodID != filter.PeriodID {
			continue
		}
		if _, ok := wantStatus[d.Status]; !ok {
			continue
		}
		if !filter.All {
			if _, ok := allowed[d.EmployeeID]; !ok {
				continue
			}
		}
		out = append(out, Summary{
			ID:           d.ID,
			EmployeeID:   d.EmployeeID,
			EmployeeName: d.EmployeeName,
			Status:       d.Status,
			TotalMinutes: d.TotalMinutes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.PerPage > 0 {
		offset := (filter.Page - 1) * filter.PerPage
		if offset >= len(out) {
			out = nil
		} else {
			end := offset + filter.PerPage
			if end > len(out) {
				end = len(out)
			}
			out = out[offset:end]
		}
	}
	return out, total, nil
}

func (f *fakeRepo) MonitoringRows(ctx context.Context, periodID int64, employeeIDs []int64, all bool) ([]MonitoringRow, error) {
	allowed := make(map[int64]struct{}, len(employeeIDs))
	for _, id := range employeeIDs {
		allowed[id] = struct{}{}
	}
	var out []MonitoringRow
	for _, u := range f.activeUsers {
		if !all {
			if _, ok := allowed[u.EmployeeID]; !ok {
				continue
			}
		}
		row := MonitoringRow{EmployeeID: u.EmployeeID, EmployeeName: u.EmployeeName}
		for _, d := range f.declarations {
			if d.PeriodID == periodID && d.EmployeeID == u.EmployeeID {
				id := d.ID
				row.DeclarationID = &id
				row.Status = d.Status
				row.TotalMinutes = d.TotalMinutes
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeRepo) ListForPeriod(ctx context.Context, periodID int64) ([]Summary, error) {
	var out []Summary
	for _, d := range f.declarations {
		if d.PeriodID == periodID {
			out = append(out, Summary{
				ID:           d.ID,
				EmployeeID:   d.EmployeeID,
				EmployeeName: d.EmployeeName,
				Status:       d.Status,
				TotalMinutes: d.TotalMinutes,
			})
		}
	}
	return out, nil
}

type fakePeriods struct {
	byKey  map[string]periods.Period
	nextID int64
}

func newFakePeriods() *fakePeriods {
	return &fakePeriods{byKey: make(map[string]periods.Period)}
}

func (f *fakePeriods) key(year, month int) string { return fmt.Sprintf("%d-%d", year, month) }

func (f *fakePeriods) Resolve(ctx context.Context, year, month int) (periods.Period, error) {
	if p, ok := f.byKey[f.key(year, month)]; ok {
		return p, nil
	}
	f.nextID++
	p := periods.Period{ID: f.nextID, Year: year, Month: month}
	f.byKey[f.key(year, month)] = p
	return p, nil
}

func (f *fakePeriods) Find(ctx context.Context, year, month int) (periods.Period, error) {
	if p, ok := f.byKey[f.key(year, month)]; ok {
		return p, nil
	}
	return periods.Period{}, periods.ErrNotFound
}

type fakeCommentRepo struct {
	entries []comments.Comment
	nextID  int64
}

func (f *fakeCommentRepo) Insert(ctx context.Context, c comments.Comment) (comments.Comment, error) {
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	f.entries = append(f.entries, c)
	return c, nil
}

func (f *fakeCommentRepo) ListForDeclaration(ctx context.Context, declarationID int64) ([]comments.Comment, error) {
	var out []comments.Comment
	for _, c := range f.entries {
		if c.DeclarationID == declarationID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAudit struct {
	records []shared.AuditLog
}

func (f *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	f.records = append(f.records, log)
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	periods  *fakePeriods
	comments *fakeCommentRepo
	audit    *fakeAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	periodRepo := newFakePeriods()
	commentRepo := &fakeCommentRepo{}
	audit := &fakeAudit{}
	logger := slog.Default()
	svc := NewService(repo, periodRepo, comments.NewService(commentRepo, logger), audit, logger)
	svc.now = func() time.Time {
		return time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)
	}
	return &fixture{svc: svc, repo: repo, periods: periodRepo, comments: commentRepo, audit: audit}
}

func employeeCaps(id int64, name string) Capabilities {
	return Capabilities{ActorID: id, ActorName: name, EditOwn: true}
}

func supervisorCaps(id int64, subordinates ...int64) Capabilities {
	set := make(map[int64]struct{}, len(subordinates))
	for _, s := range subordinates {
		set[s] = struct{}{}
	}
	return Capabilities{ActorID: id, ActorName: "Supervisor", Approve: true, subordinates: set}
}

func payrollCaps(id int64) Capabilities {
	return Capabilities{ActorID: id, ActorName: "Payroll", Settle: true}
}

func adminCaps(id int64) Capabilities {
	return Capabilities{ActorID: id, ActorName: "Admin", Bypass: true}
}

func saveDay(t *testing.T, f *fixture, caps Capabilities, date, start string, hours, minutes int) *DayEntryResponse {
	t.Helper()
	day, err := f.svc.SaveDay(context.Background(), caps, 2025, 7, SaveDayRequest{
		Date:            date,
		StartTime:       start,
		DurationHours:   hours,
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return day
}

func TestSaveDayAccumulatesTotal(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	saveDay(t, f, emp, "2025-07-02", "08:30", 8, 30)
	saveDay(t, f, emp, "2025-07-03", "09:00", 7, 45)
	saveDay(t, f, emp, "2025-07-04", "08:00", 8, 0)
	saveDay(t, f, emp, "2025-07-07", "07:15", 9, 15)

	detail, err := f.svc.MyDeclaration(context.Background(), emp, 2025, 7)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, detail.Declaration.Status)
	require.Equal(t, 2490, detail.Declaration.TotalMinutes)
	require.Equal(t, "41:30", detail.TotalFormatted)
	require.Len(t, detail.Days, 5)
}

func TestSaveDayOverwritesSameDate(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	first := saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	second := saveDay(t, f, emp, "2025-07-01", "09:30", 6, 15)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "09:30", second.StartTime)
	require.Equal(t, "15:45", second.EndTime)

	detail, err := f.svc.MyDeclaration(context.Background(), emp, 2025, 7)
	require.NoError(t, err)
	require.Len(t, detail.Days, 1)
	require.Equal(t, 375, detail.Declaration.TotalMinutes)
}

func TestSaveDayEndMayPassMidnight(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	day := saveDay(t, f, emp, "2025-07-01", "22:00", 4, 0)
	require.Equal(t, "22:00", day.StartTime)
	require.Equal(t, "26:00", day.EndTime)
	require.Equal(t, 240, day.WorkMinutes)
}

func TestSaveDayValidation(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	cases := []struct {
		name string
		req  SaveDayRequest
	}{
		{"zero duration", SaveDayRequest{Date: "2025-07-01", StartTime: "08:00"}},
		{"off-grid minutes", SaveDayRequest{Date: "2025-07-01", StartTime: "08:00", DurationMinutes: 17}},
		{"over 24 hours", SaveDayRequest{Date: "2025-07-01", StartTime: "00:00", DurationHours: 24, DurationMinutes: 5}},
		{"date outside month", SaveDayRequest{Date: "2025-06-30", StartTime: "08:00", DurationHours: 8}},
		{"malformed date", SaveDayRequest{Date: "July 1st", StartTime: "08:00", DurationHours: 8}},
		{"malformed start", SaveDayRequest{Date: "2025-07-01", StartTime: "8 am", DurationHours: 8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SaveDay(context.Background(), emp, 2025, 7, tc.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	// 24h00 sits exactly on the cap.
	day := saveDay(t, f, emp, "2025-07-01", "00:00", 24, 0)
	require.Equal(t, 1440, day.WorkMinutes)
}

func TestSaveDayRejectsFutureMonth(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	_, err := f.svc.SaveDay(context.Background(), emp, 2025, 8, SaveDayRequest{
		Date: "2025-08-01", StartTime: "08:00", DurationHours: 8,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSaveDayRejectedAfterSubmission(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	_, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)

	_, err = f.svc.SaveDay(context.Background(), emp, 2025, 7, SaveDayRequest{
		Date: "2025-07-02", StartTime: "08:00", DurationHours: 8,
	})
	require.ErrorIs(t, err, ErrNotEditable)

	err = f.svc.DeleteDay(context.Background(), emp, 2025, 7, "2025-07-01")
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestDeleteDayRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	saveDay(t, f, emp, "2025-07-02", "08:00", 4, 0)

	require.NoError(t, f.svc.DeleteDay(context.Background(), emp, 2025, 7, "2025-07-01"))

	detail, err := f.svc.MyDeclaration(context.Background(), emp, 2025, 7)
	require.NoError(t, err)
	require.Equal(t, 240, detail.Declaration.TotalMinutes)
	require.Len(t, detail.Days, 1)

	// A second delete of the same date finds nothing live.
	err = f.svc.DeleteDay(context.Background(), emp, 2025, 7, "2025-07-01")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDayUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	err := f.svc.DeleteDay(context.Background(), emp, 2025, 7, "2025-07-01")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMyDeclarationEmptyShape(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	detail, err := f.svc.MyDeclaration(context.Background(), emp, 2025, 7)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, detail.Declaration.Status)
	require.Zero(t, detail.Declaration.ID)
	require.Empty(t, detail.Days)
	require.Equal(t, "0:00", detail.TotalFormatted)
}

func TestSubmitRequiresRecordedTime(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	_, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.ErrorIs(t, err, ErrNothingToSubmit)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	require.NoError(t, f.svc.DeleteDay(context.Background(), emp, 2025, 7, "2025-07-01"))

	_, err = f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.ErrorIs(t, err, ErrNothingToSubmit)
}

func TestLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	sup := supervisorCaps(2, 1)
	pay := payrollCaps(3)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	note := "first draft"
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, &note)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, decl.Status)
	require.NotNil(t, decl.SubmittedAt)

	reason := "missing the 2nd"
	decl, err = f.svc.Reject(context.Background(), sup, decl.ID, &reason)
	require.NoError(t, err)
	require.Equal(t, StatusCorrection, decl.Status)

	saveDay(t, f, emp, "2025-07-02", "08:00", 8, 0)
	decl, err = f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, decl.Status)

	decl, err = f.svc.Approve(context.Background(), sup, decl.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, decl.Status)
	require.NotNil(t, decl.ApprovedAt)
	require.Equal(t, int64(2), *decl.ApprovedBy)

	decl, err = f.svc.AdvanceToSettlement(context.Background(), sup, decl.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSettlement, decl.Status)

	decl, err = f.svc.ReturnForCorrection(context.Background(), pay, decl.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCorrection, decl.Status)

	// Transition comments carry the author's capacity.
	list, err := f.comments.ListForDeclaration(context.Background(), decl.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "employee", list[0].AuthorRole)
	require.Equal(t, "supervisor", list[1].AuthorRole)

	// Every transition left an audit record.
	require.Len(t, f.audit.records, 6)
	require.Equal(t, "timesheet.SUBMIT", f.audit.records[0].Action)
	require.Equal(t, "timesheet.RETURN", f.audit.records[5].Action)
}

func TestApproveOutOfOrder(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	sup := supervisorCaps(2, 1)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)

	// Settlement straight from Submitted is illegal.
	_, err = f.svc.AdvanceToSettlement(context.Background(), sup, decl.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Approving twice is illegal the second time.
	decl, err = f.svc.Approve(context.Background(), sup, decl.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), sup, decl.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveRequiresCoverage(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	stranger := supervisorCaps(9)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), stranger, decl.ID, nil)
	require.ErrorIs(t, err, ErrAccessDenied)

	// Bypass ignores the subordinate set.
	_, err = f.svc.Approve(context.Background(), adminCaps(10), decl.ID, nil)
	require.NoError(t, err)
}

func TestReturnRequiresPayroll(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	sup := supervisorCaps(2, 1)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)
	decl, err = f.svc.Approve(context.Background(), sup, decl.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.ReturnForCorrection(context.Background(), sup, decl.ID, nil)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.ReturnForCorrection(context.Background(), payrollCaps(3), decl.ID, nil)
	require.NoError(t, err)
}

func TestStaleVersionSurfacesConflict(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	sup := supervisorCaps(2, 1)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)

	// Another writer bumps the version between read and write.
	f.repo.declarations[decl.ID].Version++

	err = f.repo.UpdateStatus(context.Background(), UpdateStatusParams{
		ID: decl.ID, Status: StatusApproved, ActorID: sup.ActorID, Version: decl.Version,
	})
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	other := employeeCaps(5, "Someone Else")
	pay := payrollCaps(3)

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), emp, decl.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), other, decl.ID)
	require.ErrorIs(t, err, ErrAccessDenied)

	// Payroll cannot see declarations before approval.
	_, err = f.svc.Get(context.Background(), pay, decl.ID)
	require.ErrorIs(t, err, ErrAccessDenied)

	decl, err = f.svc.Approve(context.Background(), supervisorCaps(2, 1), decl.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), pay, decl.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), adminCaps(10), decl.ID)
	require.NoError(t, err)
}

func TestApprovalQueueScope(t *testing.T) {
	f := newFixture(t)
	alice := employeeCaps(1, "Alice")
	bob := employeeCaps(2, "Bob")

	saveDay(t, f, alice, "2025-07-01", "08:00", 8, 0)
	_, err := f.svc.Submit(context.Background(), alice, 2025, 7, nil)
	require.NoError(t, err)
	saveDay(t, f, bob, "2025-07-01", "08:00", 8, 0)
	_, err = f.svc.Submit(context.Background(), bob, 2025, 7, nil)
	require.NoError(t, err)

	page, err := f.svc.ApprovalQueue(context.Background(), supervisorCaps(9, 1), 2025, 7, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, int64(1), page.Items[0].EmployeeID)
	require.Equal(t, 1, page.Pagination.Total)

	// No subordinates resolved means an empty queue, not everyone's.
	page, err = f.svc.ApprovalQueue(context.Background(), supervisorCaps(9), 2025, 7, 1, 0)
	require.NoError(t, err)
	require.Empty(t, page.Items)

	page, err = f.svc.ApprovalQueue(context.Background(), adminCaps(10), 2025, 7, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	_, err = f.svc.ApprovalQueue(context.Background(), alice, 2025, 7, 1, 0)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestApprovalQueuePagination(t *testing.T) {
	f := newFixture(t)
	for i := int64(1); i <= 5; i++ {
		emp := employeeCaps(i, fmt.Sprintf("Employee %d", i))
		saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
		_, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
		require.NoError(t, err)
	}

	admin := adminCaps(10)
	page, err := f.svc.ApprovalQueue(context.Background(), admin, 2025, 7, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 5, page.Pagination.Total)
	require.Equal(t, 3, page.Pagination.TotalPages)
	require.Equal(t, 2, page.Pagination.PerPage)

	page, err = f.svc.ApprovalQueue(context.Background(), admin, 2025, 7, 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = f.svc.ApprovalQueue(context.Background(), admin, 2025, 7, 4, 2)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, 5, page.Pagination.Total)
}

func TestPayrollQueueListsApprovedAndSettlement(t *testing.T) {
	f := newFixture(t)
	alice := employeeCaps(1, "Alice")
	bob := employeeCaps(2, "Bob")
	sup := supervisorCaps(9, 1, 2)

	saveDay(t, f, alice, "2025-07-01", "08:00", 8, 0)
	declA, err := f.svc.Submit(context.Background(), alice, 2025, 7, nil)
	require.NoError(t, err)
	saveDay(t, f, bob, "2025-07-01", "08:00", 8, 0)
	declB, err := f.svc.Submit(context.Background(), bob, 2025, 7, nil)
	require.NoError(t, err)

	declA, err = f.svc.Approve(context.Background(), sup, declA.ID, nil)
	require.NoError(t, err)
	declB, err = f.svc.Approve(context.Background(), sup, declB.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.AdvanceToSettlement(context.Background(), sup, declB.ID, nil)
	require.NoError(t, err)

	page, err := f.svc.PayrollQueue(context.Background(), payrollCaps(3), 2025, 7, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 2, page.Pagination.Total)
}

func TestMonitoringIncludesEmployeesWithoutDeclaration(t *testing.T) {
	f := newFixture(t)
	f.repo.activeUsers = []MonitoringRow{
		{EmployeeID: 1, EmployeeName: "Alice"},
		{EmployeeID: 2, EmployeeName: "Bob"},
	}
	alice := employeeCaps(1, "Alice")
	saveDay(t, f, alice, "2025-07-01", "08:00", 8, 0)

	rows, err := f.svc.Monitoring(context.Background(), supervisorCaps(9, 1, 2), 2025, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].DeclarationID)
	require.Nil(t, rows[1].DeclarationID)
}

func TestMonitoringUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	f.repo.activeUsers = []MonitoringRow{{EmployeeID: 1, EmployeeName: "Alice"}}

	rows, err := f.svc.Monitoring(context.Background(), supervisorCaps(9, 1), 2024, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].DeclarationID)
}

func TestCommentsGatedByVisibility(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")
	other := employeeCaps(5, "Someone Else")

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)
	decl, err := f.svc.Submit(context.Background(), emp, 2025, 7, nil)
	require.NoError(t, err)

	_, err = f.svc.AddComment(context.Background(), other, decl.ID, "peeking")
	require.ErrorIs(t, err, ErrAccessDenied)

	c, err := f.svc.AddComment(context.Background(), emp, decl.ID, "forgot overtime on the 4th")
	require.NoError(t, err)
	require.Equal(t, "employee", c.AuthorRole)

	c, err = f.svc.AddComment(context.Background(), supervisorCaps(2, 1), decl.ID, "please fix")
	require.NoError(t, err)
	require.Equal(t, "supervisor", c.AuthorRole)

	list, err := f.svc.ListComments(context.Background(), emp, decl.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestExportRows(t *testing.T) {
	f := newFixture(t)
	emp := employeeCaps(1, "Eli Employee")

	saveDay(t, f, emp, "2025-07-01", "08:00", 8, 0)

	rows, err := f.svc.ExportRows(context.Background(), supervisorCaps(9, 1), 2025, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = f.svc.ExportRows(context.Background(), payrollCaps(3), 2024, 2)
	require.NoError(t, err)
	require.Empty(t, rows)

	_, err = f.svc.ExportRows(context.Background(), emp, 2025, 7)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestSubmitRejectedForNonOwnerRole(t *testing.T) {
	f := newFixture(t)
	sup := supervisorCaps(2, 1)
	_, err := f.svc.Submit(context.Background(), sup, 2025, 7, nil)
	require.ErrorIs(t, err, ErrAccessDenied)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}
