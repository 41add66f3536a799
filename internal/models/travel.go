package models

import "time"

type TravelSchedule struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	StartDate   Date      `json:"startDate" swaggertype:"string" example:"2025-06-01"`
	EndDate     Date      `json:"endDate" swaggertype:"string" example:"2025-06-05"`
	Destination string    `json:"destination" example:"Taipei"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Overlaps treats both ranges as inclusive on each end.
func (t *TravelSchedule) Overlaps(start, end Date) bool {
	return !t.StartDate.After(end) && !t.EndDate.Before(start)
}
