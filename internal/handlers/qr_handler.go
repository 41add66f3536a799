package handlers

import (
	"net/http"

	"github.com/churchapp/backend/internal/services"
)

type ReservationQRResponse struct {
	Success bool   `json:"success" example:"true"`
	QRCode  string `json:"qrCode" example:"gym-reservation:42"`
	QRImage string `json:"qrImage" example:"iVBORw0KGgoAAAANSUhEUgAA..."`
}

// ReservationQR renders the check-in QR code of a reservation
// @Summary Reservation QR code
// @Description Base64 PNG encoding the reservation's check-in payload
// @Tags gym
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} ReservationQRResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Reservation is cancelled or finished"
// @Router /gym/reservations/{id}/qr [get]
func (h *GymHandler) ReservationQR(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	qrCode, qrImage, err := h.service.CheckInQR(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, ReservationQRResponse{Success: true, QRCode: qrCode, QRImage: qrImage})
}
