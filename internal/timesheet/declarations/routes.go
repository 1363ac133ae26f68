package declarations

import (
	"github.com/go-chi/chi/v5"

	"github.com/shiftline/shiftline/internal/rbac"
	"github.com/shiftline/shiftline/internal/shared"
)

// MountRoutes registers the timesheet routes on the authenticated API router.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/timesheets/{year}/{month}", func(r chi.Router) {
		r.Use(guard.RequireAny(shared.PermTimesheetEditOwn, shared.PermTimesheetBypass))
		r.Get("/", h.MyDeclaration)
		r.Post("/days", h.SaveDay)
		r.Delete("/days/{date}", h.DeleteDay)
		r.Post("/submit", h.Submit)
	})

	r.Route("/declarations", func(r chi.Router) {
		r.With(guard.RequireAny(shared.PermTimesheetApprove, shared.PermTimesheetBypass)).
			Get("/approvals", h.ApprovalQueue)
		r.With(guard.RequireAny(shared.PermTimesheetMonitor, shared.PermTimesheetBypass)).
			Get("/monitoring", h.Monitoring)
		r.With(guard.RequireAny(shared.PermTimesheetSettle, shared.PermTimesheetBypass)).
			Get("/payroll", h.PayrollQueue)
		r.With(guard.RequireAny(shared.PermTimesheetExport, shared.PermTimesheetBypass)).
			Get("/export", h.Export)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Get("/comments", h.ListComments)
			r.Post("/comments", h.AddComment)

			r.With(guard.RequireAny(shared.PermTimesheetApprove, shared.PermTimesheetBypass)).
				Post("/approve", h.Approve)
			r.With(guard.RequireAny(shared.PermTimesheetApprove, shared.PermTimesheetBypass)).
				Post("/reject", h.Reject)
			r.With(guard.RequireAny(shared.PermTimesheetApprove, shared.PermTimesheetBypass)).
				Post("/settle", h.Settle)
			r.With(guard.RequireAny(shared.PermTimesheetSettle, shared.PermTimesheetBypass)).
				Post("/return", h.Return)
		})
	})
}
