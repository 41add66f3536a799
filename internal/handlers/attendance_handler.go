package handlers

import (
	"context"
	"net/http"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

type AttendanceService interface {
	CreateOrUpdate(ctx context.Context, actor services.Actor, in services.AttendanceInput) (*models.AttendanceRecord, error)
	Get(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Delete(ctx context.Context, actor services.Actor, id int64) error
}

type AttendanceHandler struct {
	base
	service AttendanceService
}

func NewAttendanceHandler(service AttendanceService, production bool) *AttendanceHandler {
	return &AttendanceHandler{base: newBase("ATTENDANCE", production), service: service}
}

// AttendanceRequest is one headcount submission. Supplying id edits that
// record directly.
type AttendanceRequest struct {
	ID              *int64      `json:"id,omitempty" validate:"omitempty,gt=0"`
	Date            models.Date `json:"date" swaggertype:"string" example:"2025-06-01"`
	MeetingType     string      `json:"meetingType" validate:"required,oneof=table homeMeeting prayer" example:"table"`
	Scope           string      `json:"scope" validate:"required,oneof=full_congregation district small_group" example:"district"`
	ScopeValue      string      `json:"scopeValue" validate:"max=100" example:"North"`
	AdultCount      int         `json:"adultCount" validate:"gte=0,lte=100000" example:"42"`
	YouthChildCount int         `json:"youthChildCount" validate:"gte=0,lte=100000" example:"17"`
	District        string      `json:"district" validate:"max=100"`
	Notes           string      `json:"notes" validate:"max=2000"`
}

// Submit records or corrects a headcount
// @Summary Submit attendance
// @Description Record a headcount. District and small group counts replace the existing count for the same date, meeting type and scope; full congregation counts are always appended.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttendanceRequest true "Attendance"
// @Success 200 {object} models.AttendanceRecord
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /attendance [post]
func (h *AttendanceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req AttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.service.CreateOrUpdate(r.Context(), actor, services.AttendanceInput{
		ID:              req.ID,
		Date:            req.Date,
		MeetingType:     models.MeetingType(req.MeetingType),
		Scope:           models.Scope(req.Scope),
		ScopeValue:      req.ScopeValue,
		AdultCount:      req.AdultCount,
		YouthChildCount: req.YouthChildCount,
		District:        req.District,
		Notes:           req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, record)
}

// List returns attendance records, newest first
// @Summary List attendance
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "First date (YYYY-MM-DD)"
// @Param endDate query string false "Last date (YYYY-MM-DD)"
// @Param meetingType query string false "table, homeMeeting or prayer"
// @Param scope query string false "full_congregation, district or small_group"
// @Param scopeValue query string false "District or group name"
// @Param limit query int false "Maximum rows (default 200)"
// @Success 200 {array} models.AttendanceRecord
// @Failure 400 {object} services.ErrorResponse
// @Router /attendance [get]
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	start, ok := h.dateQuery(w, r, "startDate")
	if !ok {
		return
	}
	end, ok := h.dateQuery(w, r, "endDate")
	if !ok {
		return
	}
	limit, ok := h.intQuery(w, r, "limit")
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.AttendanceFilter{
		StartDate:   start,
		EndDate:     end,
		MeetingType: models.MeetingType(q.Get("meetingType")),
		Scope:       models.Scope(q.Get("scope")),
		ScopeValue:  q.Get("scopeValue"),
		Limit:       limit,
	}
	if filter.MeetingType != "" && !filter.MeetingType.Valid() {
		services.SendErrorResponse(w, "Invalid meetingType", http.StatusBadRequest, nil)
		return
	}
	if filter.Scope != "" && !filter.Scope.Valid() {
		services.SendErrorResponse(w, "Invalid scope", http.StatusBadRequest, nil)
		return
	}

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, records)
}

// Get returns one attendance record
// @Summary Get attendance record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path int true "Record ID"
// @Success 200 {object} models.AttendanceRecord
// @Failure 404 {object} services.ErrorResponse
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, record)
}

// Delete removes an attendance record
// @Summary Delete attendance record
// @Description Only the submitter or an admin may delete a record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path int true "Record ID"
// @Success 200 {object} messageResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, messageResponse{Success: true})
}
