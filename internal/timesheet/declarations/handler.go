package declarations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shiftline/shiftline/internal/platform/httpx"
	"github.com/shiftline/shiftline/internal/shared"
	"github.com/shiftline/shiftline/internal/timesheet/periods"
)

// Handler exposes the timesheet and declaration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	access   *AccessResolver
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, access *AccessResolver) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		access:   access,
		validate: validator.New(),
	}
}

// MyDeclaration returns the signed-in employee's declaration for the period.
func (h *Handler) MyDeclaration(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.pathPeriod(w, r)
	if !ok {
		return
	}
	detail, err := h.service.MyDeclaration(r.Context(), caps, year, month)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// SaveDay upserts a single day entry.
func (h *Handler) SaveDay(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.pathPeriod(w, r)
	if !ok {
		return
	}
	var req SaveDayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	day, err := h.service.SaveDay(r.Context(), caps, year, month, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, day)
}

// DeleteDay soft-deletes a day entry.
func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.pathPeriod(w, r)
	if !ok {
		return
	}
	date := chi.URLParam(r, "date")
	if err := h.service.DeleteDay(r.Context(), caps, year, month, date); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Submit hands the declaration to the approval pipeline.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.pathPeriod(w, r)
	if !ok {
		return
	}
	comment, ok := h.transitionComment(w, r)
	if !ok {
		return
	}
	decl, err := h.service.Submit(r.Context(), caps, year, month, comment)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decl)
}

// Get returns one declaration with entries and comments.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), caps, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// Approve approves a submitted declaration.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Reject returns a submitted declaration for correction.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// Settle hands an approved declaration over to payroll settlement.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.AdvanceToSettlement)
}

// Return reopens an approved or settling declaration for correction.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ReturnForCorrection)
}

// ApprovalQueue lists submitted declarations awaiting the supervisor.
func (h *Handler) ApprovalQueue(w http.ResponseWriter, r *http.Request) {
	h.listQueue(w, r, h.service.ApprovalQueue)
}

// PayrollQueue lists approved and settling declarations.
func (h *Handler) PayrollQueue(w http.ResponseWriter, r *http.Request) {
	h.listQueue(w, r, h.service.PayrollQueue)
}

// Monitoring lists every covered employee's progress for the period.
func (h *Handler) Monitoring(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.queryPeriod(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Monitoring(r.Context(), caps, year, month)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// ListComments returns a declaration's comment log.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListComments(r.Context(), caps, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

// AddComment appends a free-form comment to a declaration.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AddCommentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	comment, err := h.service.AddComment(r.Context(), caps, id, req.Content)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, caps Capabilities, id int64, comment *string) (*Declaration, error)) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	comment, ok := h.transitionComment(w, r)
	if !ok {
		return
	}
	decl, err := run(r.Context(), caps, id, comment)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decl)
}

func (h *Handler) listQueue(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, caps Capabilities, year, month, page, perPage int) (*QueuePage, error)) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.queryPeriod(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	result, err := run(r.Context(), caps, year, month, page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// capabilities resolves the actor's authority from the session.
func (h *Handler) capabilities(w http.ResponseWriter, r *http.Request) (Capabilities, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || strings.TrimSpace(sess.User()) == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Capabilities{}, false
	}
	actorID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Capabilities{}, false
	}
	caps, err := h.access.Resolve(r.Context(), actorID, sess.Get("full_name"))
	if err != nil {
		h.logger.Error("resolve capabilities", slog.Int64("actor_id", actorID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return Capabilities{}, false
	}
	return caps, true
}

func (h *Handler) pathPeriod(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid month")
		return 0, 0, false
	}
	return year, month, true
}

func (h *Handler) queryPeriod(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid month")
		return 0, 0, false
	}
	return year, month, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid declaration id")
		return 0, false
	}
	return id, true
}

func (h *Handler) transitionComment(w http.ResponseWriter, r *http.Request) (*string, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, true
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, false
	}
	return req.Comment, true
}

// respondError maps domain errors onto the problem-details vocabulary.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, periods.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, "declaration not found"))
	case errors.Is(err, ErrAccessDenied):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrForbidden, err.Error()))
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNothingToSubmit):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, ErrNotEditable), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrVersionConflict):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error()))
	default:
		h.logger.Error("timesheet request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
