package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

type GymService interface {
	Create(ctx context.Context, actor services.Actor, date models.Date, start, end models.ClockTime) (*models.GymReservation, error)
	CheckIn(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error)
	CheckOut(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error)
	Cancel(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error)
	TimeSlots(ctx context.Context, date models.Date) ([]models.TimeSlot, error)
	HasReservationOnDate(ctx context.Context, userID int64, date models.Date) (bool, error)
	ListForUser(ctx context.Context, userID int64, from models.Date) ([]models.GymReservation, error)
	ListByDate(ctx context.Context, date models.Date, includeCancelled bool) ([]models.GymReservation, error)
	CheckInQR(ctx context.Context, actor services.Actor, id int64) (string, string, error)
	Today() models.Date
}

type GymHandler struct {
	base
	service GymService
}

func NewGymHandler(service GymService, production bool) *GymHandler {
	return &GymHandler{base: newBase("GYM", production), service: service}
}

type ReservationRequest struct {
	Date      models.Date      `json:"date" swaggertype:"string" example:"2025-06-01"`
	StartTime models.ClockTime `json:"startTime" swaggertype:"string" example:"09:00"`
	EndTime   models.ClockTime `json:"endTime" swaggertype:"string" example:"10:00"`
}

type TimeSlotsResponse struct {
	Date           models.Date       `json:"date" swaggertype:"string" example:"2025-06-01"`
	HasReservation bool              `json:"hasReservation"`
	Slots          []models.TimeSlot `json:"slots"`
}

// TimeSlots lists the half-hour slots of a day
// @Summary Gym time slots
// @Description List every half-hour slot of the opening hours with its availability
// @Tags gym
// @Produce json
// @Security BearerAuth
// @Param date path string true "Day (YYYY-MM-DD)"
// @Success 200 {object} TimeSlotsResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /gym/time-slots/{date} [get]
func (h *GymHandler) TimeSlots(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	slots, err := h.service.TimeSlots(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	booked, err := h.service.HasReservationOnDate(r.Context(), actor.ID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, TimeSlotsResponse{Date: date, HasReservation: booked, Slots: slots})
}

// ListReservations returns the caller's upcoming reservations. Admins may
// pass date to see every booking on that day.
// @Summary List gym reservations
// @Tags gym
// @Produce json
// @Security BearerAuth
// @Param date query string false "Admins only: every reservation on this day (YYYY-MM-DD)"
// @Param includeCancelled query bool false "With date: include cancelled reservations"
// @Param history query bool false "Include past reservations"
// @Success 200 {array} models.GymReservation
// @Failure 403 {object} services.ErrorResponse
// @Router /gym/reservations [get]
func (h *GymHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	date, ok := h.dateQuery(w, r, "date")
	if !ok {
		return
	}

	var (
		reservations []models.GymReservation
		err          error
	)
	q := r.URL.Query()
	switch {
	case !date.IsZero():
		if !actor.IsAdmin() {
			services.SendErrorResponse(w, "Insufficient permissions", http.StatusForbidden, nil)
			return
		}
		reservations, err = h.service.ListByDate(r.Context(), date, q.Get("includeCancelled") == "true")
	case q.Get("history") == "true":
		reservations, err = h.service.ListForUser(r.Context(), actor.ID, models.Date{})
	default:
		reservations, err = h.service.ListForUser(r.Context(), actor.ID, h.service.Today())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, reservations)
}

// CreateReservation books a slot
// @Summary Reserve the gym
// @Description Book 30 to 120 minutes on half-hour boundaries. One reservation per member per day; overlapping bookings are rejected.
// @Tags gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReservationRequest true "Reservation"
// @Success 201 {object} models.GymReservation
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Slot taken or already reserved that day"
// @Router /gym/reservations [post]
func (h *GymHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	reservation, err := h.service.Create(r.Context(), actor, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, reservation)
}

type reservationAction func(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error)

func (h *GymHandler) transition(w http.ResponseWriter, r *http.Request, action reservationAction) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	reservation, err := action(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, reservation)
}

// CheckIn marks arrival
// @Summary Check in
// @Description Allowed from 15 minutes before to 15 minutes after the start time
// @Tags gym
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} models.GymReservation
// @Failure 400 {object} services.ErrorResponse "Outside the check-in window"
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /gym/reservations/{id}/check-in [post]
func (h *GymHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CheckIn)
}

// CheckOut marks departure
// @Summary Check out
// @Tags gym
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} models.GymReservation
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /gym/reservations/{id}/check-out [post]
func (h *GymHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CheckOut)
}

// Cancel releases a reservation
// @Summary Cancel reservation
// @Description Owner or admin. Cancelling an already cancelled reservation succeeds without change.
// @Tags gym
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} models.GymReservation
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /gym/reservations/{id}/cancel [post]
func (h *GymHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}
