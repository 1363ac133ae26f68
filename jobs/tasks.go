package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTimesheetIntegrityScan re-derives declaration totals and repairs
	// any cached value that drifted from the day-entry ledger.
	TaskTimesheetIntegrityScan = "timesheet:integrity_scan"
	// TaskTimesheetSubmitReminder nudges employees who have not submitted
	// their declaration for the previous month.
	TaskTimesheetSubmitReminder = "timesheet:submit_reminder"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP/Mailpit in phase 2.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// IntegrityScanPayload scopes an integrity scan. Zero values mean every
// period.
type IntegrityScanPayload struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

// NewIntegrityScanTask constructs an integrity scan task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTimesheetIntegrityScan, data), nil
}

// SubmitReminderPayload scopes a reminder run to one period.
type SubmitReminderPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewSubmitReminderTask constructs a submit reminder task.
func NewSubmitReminderTask(payload SubmitReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTimesheetSubmitReminder, data), nil
}
