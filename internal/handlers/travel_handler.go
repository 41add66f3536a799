package handlers

import (
	"context"
	"net/http"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

type TravelService interface {
	Create(ctx context.Context, actor services.Actor, in services.TravelInput) (*models.TravelSchedule, error)
	Update(ctx context.Context, actor services.Actor, id int64, in services.TravelInput) (*models.TravelSchedule, error)
	Delete(ctx context.Context, actor services.Actor, id int64) error
	ListForUser(ctx context.Context, userID int64) ([]models.TravelSchedule, error)
	ListAll(ctx context.Context, from, to models.Date) ([]models.TravelSchedule, error)
	FindOverlappingSchedules(ctx context.Context, userID int64, start, end models.Date, excludeID *int64) ([]models.TravelSchedule, error)
}

type TravelHandler struct {
	base
	service TravelService
}

func NewTravelHandler(service TravelService, production bool) *TravelHandler {
	return &TravelHandler{base: newBase("TRAVEL", production), service: service}
}

type TravelRequest struct {
	StartDate   models.Date `json:"startDate" swaggertype:"string" example:"2025-06-01"`
	EndDate     models.Date `json:"endDate" swaggertype:"string" example:"2025-06-05"`
	Destination string      `json:"destination" validate:"max=200" example:"Taipei"`
	Notes       string      `json:"notes" validate:"max=2000"`
}

func (req TravelRequest) input() services.TravelInput {
	return services.TravelInput{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Destination: req.Destination,
		Notes:       req.Notes,
	}
}

// List returns the caller's travel schedules, or everyone's for admins
// passing all=true
// @Summary List travel schedules
// @Tags travel
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Admins only: list every member's schedules"
// @Param from query string false "With all=true: schedules ending on or after (YYYY-MM-DD)"
// @Param to query string false "With all=true: schedules starting on or before (YYYY-MM-DD)"
// @Success 200 {array} models.TravelSchedule
// @Failure 403 {object} services.ErrorResponse
// @Router /travel [get]
func (h *TravelHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}

	var (
		schedules []models.TravelSchedule
		err       error
	)
	if r.URL.Query().Get("all") == "true" {
		if !actor.IsAdmin() {
			services.SendErrorResponse(w, "Insufficient permissions", http.StatusForbidden, nil)
			return
		}
		from, ok := h.dateQuery(w, r, "from")
		if !ok {
			return
		}
		to, ok := h.dateQuery(w, r, "to")
		if !ok {
			return
		}
		schedules, err = h.service.ListAll(r.Context(), from, to)
	} else {
		schedules, err = h.service.ListForUser(r.Context(), actor.ID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, schedules)
}

// Overlaps lists the caller's schedules sharing a day with a date range
// @Summary Check travel overlaps
// @Description Preview which existing trips would block a create or update
// @Tags travel
// @Produce json
// @Security BearerAuth
// @Param startDate query string true "First day (YYYY-MM-DD)"
// @Param endDate query string true "Last day (YYYY-MM-DD)"
// @Param excludeId query int false "Schedule being edited"
// @Success 200 {array} models.TravelSchedule
// @Failure 400 {object} services.ErrorResponse
// @Router /travel/overlaps [get]
func (h *TravelHandler) Overlaps(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	start, ok := h.dateQuery(w, r, "startDate")
	if !ok {
		return
	}
	end, ok := h.dateQuery(w, r, "endDate")
	if !ok {
		return
	}
	if start.IsZero() || end.IsZero() || start.After(end) {
		services.SendErrorResponse(w, "startDate and endDate are required and must be in order", http.StatusBadRequest, nil)
		return
	}
	excludeID, ok := h.intQuery(w, r, "excludeId")
	if !ok {
		return
	}

	var exclude *int64
	if excludeID > 0 {
		id := int64(excludeID)
		exclude = &id
	}
	schedules, err := h.service.FindOverlappingSchedules(r.Context(), actor.ID, start, end, exclude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, schedules)
}

// Create adds a travel schedule for the caller
// @Summary Create travel schedule
// @Description Dates are inclusive; a trip sharing any day with an existing trip is rejected with the conflicting ids
// @Tags travel
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TravelRequest true "Travel schedule"
// @Success 201 {object} models.TravelSchedule
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /travel [post]
func (h *TravelHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req TravelRequest
	if !h.decode(w, r, &req) {
		return
	}

	schedule, err := h.service.Create(r.Context(), actor, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, schedule)
}

// Update changes a travel schedule
// @Summary Update travel schedule
// @Tags travel
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Param request body TravelRequest true "Travel schedule"
// @Success 200 {object} models.TravelSchedule
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /travel/{id} [put]
func (h *TravelHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var req TravelRequest
	if !h.decode(w, r, &req) {
		return
	}

	schedule, err := h.service.Update(r.Context(), actor, id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, schedule)
}

// Delete removes a travel schedule
// @Summary Delete travel schedule
// @Tags travel
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 200 {object} messageResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /travel/{id} [delete]
func (h *TravelHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
