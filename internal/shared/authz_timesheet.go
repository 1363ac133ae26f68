package shared

// Timesheet permissions resolved from the actor's role set.
const (
	PermTimesheetEditOwn = "timesheet.own.edit"
	PermTimesheetApprove = "timesheet.approve"
	PermTimesheetMonitor = "timesheet.monitor"
	PermTimesheetSettle  = "timesheet.settle"
	PermTimesheetBypass  = "timesheet.bypass"
	PermTimesheetExport  = "timesheet.export"
)

// TimesheetScopes lists all permissions of the timesheet module.
func TimesheetScopes() []string {
	return []string{
		PermTimesheetEditOwn,
		PermTimesheetApprove,
		PermTimesheetMonitor,
		PermTimesheetSettle,
		PermTimesheetBypass,
		PermTimesheetExport,
	}
}
