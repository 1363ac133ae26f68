package declarations

import (
	"time"

	"github.com/shiftline/shiftline/internal/shared"
	"github.com/shiftline/shiftline/internal/timesheet/comments"
)

// SaveDayRequest carries one day-entry upsert.
type SaveDayRequest struct {
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string  `json:"start_time" validate:"required,datetime=15:04"`
	DurationHours   int     `json:"duration_hours" validate:"gte=0,lte=24"`
	DurationMinutes int     `json:"duration_minutes" validate:"gte=0,lt=60"`
	Note            *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// TransitionRequest carries the optional free-text comment attached to a
// status transition.
type TransitionRequest struct {
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// AddCommentRequest carries a free-form comment.
type AddCommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// DayEntryResponse is the outward shape of a day entry.
type DayEntryResponse struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	WorkMinutes int       `json:"work_minutes"`
	Worked      string    `json:"worked"`
	Note        *string   `json:"note,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QueuePage is one page of a queue projection.
type QueuePage struct {
	Items      []Summary         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// DeclarationDetail is the full read model: declaration, its live day
// entries and its comment log.
type DeclarationDetail struct {
	Declaration    *Declaration       `json:"declaration"`
	Days           []DayEntryResponse `json:"days"`
	Comments       []comments.Comment `json:"comments"`
	TotalFormatted string             `json:"total_formatted"`
}

func toDayResponse(e DayEntry) DayEntryResponse {
	return DayEntryResponse{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		StartTime:   FormatClock(e.StartMinute),
		EndTime:     FormatClock(e.EndMinute),
		WorkMinutes: e.WorkMinutes,
		Worked:      FormatMinutes(e.WorkMinutes),
		Note:        e.Note,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toDayResponses(entries []DayEntry) []DayEntryResponse {
	out := make([]DayEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDayResponse(e))
	}
	return out
}
