package declarations

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the lifecycle states of a monthly declaration.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusSubmitted  Status = "SUBMITTED"
	StatusCorrection Status = "CORRECTION"
	StatusApproved   Status = "APPROVED"
	StatusSettlement Status = "SETTLEMENT"
)

// Editable reports whether day entries of a declaration in this status may
// be created, overwritten or deleted. Draft and Correction share identical
// editability semantics.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusCorrection
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusCorrection, StatusApproved, StatusSettlement:
		return true
	}
	return false
}

// Declaration is one employee's aggregate time record for one period.
// Exactly one exists per (period, employee); it is never deleted, only
// status-transitioned.
type Declaration struct {
	ID           int64     `json:"id"`
	PublicID     uuid.UUID `json:"public_id"`
	PeriodID     int64     `json:"-"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	EmployeeID   int64     `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	Status       Status    `json:"status"`
	// TotalMinutes caches the sum of work minutes over live day entries.
	// It is re-derived from the ledger after every mutation.
	TotalMinutes    int        `json:"total_minutes"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	StatusChangedBy *int64     `json:"status_changed_by,omitempty"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Days []DayEntry `json:"days,omitempty"`
}

// DayEntry is a single day's worked-time record within a declaration.
// Identified uniquely by (declaration, date). Deleted entries stay in the
// table with the flag set so total recomputation stays well-defined.
type DayEntry struct {
	ID            int64     `json:"id"`
	DeclarationID int64     `json:"-"`
	Date          time.Time `json:"date"`
	// StartMinute and EndMinute are minutes from midnight. EndMinute is
	// start plus duration and may overrun 1440 for shifts entered late in
	// the day; no wrap-around is applied.
	StartMinute int       `json:"-"`
	EndMinute   int       `json:"-"`
	WorkMinutes int       `json:"work_minutes"`
	Note        *string   `json:"note,omitempty"`
	Deleted     bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary is the queue/listing projection of a declaration.
type Summary struct {
	ID             int64      `json:"id"`
	PublicID       uuid.UUID  `json:"public_id"`
	Year           int        `json:"year"`
	Month          int        `json:"month"`
	EmployeeID     int64      `json:"employee_id"`
	EmployeeName   string     `json:"employee_name"`
	Status         Status     `json:"status"`
	TotalMinutes   int        `json:"total_minutes"`
	TotalFormatted string     `json:"total_formatted"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	DayCount       int        `json:"day_count"`
}

// MonitoringRow shows one subordinate's progress in a period, including
// employees who have not created a declaration yet.
type MonitoringRow struct {
	EmployeeID     int64  `json:"employee_id"`
	EmployeeName   string `json:"employee_name"`
	DeclarationID  *int64 `json:"declaration_id,omitempty"`
	Status         Status `json:"status,omitempty"`
	TotalMinutes   int    `json:"total_minutes"`
	TotalFormatted string `json:"total_formatted"`
	DayCount       int    `json:"day_count"`
}

// FormatMinutes renders a minute count as H:MM (e.g. 2490 -> "41:30").
// Hours are not truncated to a day.
func FormatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}

// FormatClock renders minutes from midnight as HH:MM. Values past midnight
// keep counting (25:30) rather than wrapping.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
