package models

import "time"

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationCheckedIn  ReservationStatus = "checked_in"
	ReservationCheckedOut ReservationStatus = "checked_out"
	ReservationCancelled  ReservationStatus = "cancelled"
)

type GymReservation struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"userId"`
	Date         Date              `json:"date" swaggertype:"string" example:"2025-06-01"`
	StartTime    ClockTime         `json:"startTime" swaggertype:"string" example:"09:00"`
	EndTime      ClockTime         `json:"endTime" swaggertype:"string" example:"10:00"`
	Status       ReservationStatus `json:"status" example:"pending"`
	CheckedInAt  *time.Time        `json:"checkedInAt,omitempty"`
	CheckedOutAt *time.Time        `json:"checkedOutAt,omitempty"`
	CancelledAt  *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// StartsAt returns the slot start as an instant in loc.
func (g *GymReservation) StartsAt(loc *time.Location) time.Time {
	return g.Date.In(loc).Add(time.Duration(g.StartTime) * time.Minute)
}

func (g *GymReservation) Duration() time.Duration {
	return time.Duration(g.EndTime-g.StartTime) * time.Minute
}

// TimeSlot is one bookable half hour of a day.
type TimeSlot struct {
	StartTime ClockTime `json:"startTime" swaggertype:"string" example:"09:00"`
	EndTime   ClockTime `json:"endTime" swaggertype:"string" example:"09:30"`
	Available bool      `json:"available"`
}
