package models

import "time"

type MeetingType string

const (
	MeetingTable       MeetingType = "table"
	MeetingHomeMeeting MeetingType = "homeMeeting"
	MeetingPrayer      MeetingType = "prayer"
)

func (m MeetingType) Valid() bool {
	switch m {
	case MeetingTable, MeetingHomeMeeting, MeetingPrayer:
		return true
	}
	return false
}

// Scope is the aggregation level of an attendance count.
type Scope string

const (
	ScopeFullCongregation Scope = "full_congregation"
	ScopeDistrict         Scope = "district"
	ScopeSmallGroup       Scope = "small_group"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeFullCongregation, ScopeDistrict, ScopeSmallGroup:
		return true
	}
	return false
}

// AppendOnly reports whether records of this scope never merge with each other.
func (s Scope) AppendOnly() bool {
	return s == ScopeFullCongregation
}

type AttendanceRecord struct {
	ID              int64       `json:"id" example:"12"`
	Date            Date        `json:"date" swaggertype:"string" example:"2025-01-01"`
	MeetingType     MeetingType `json:"meetingType" example:"table"`
	Scope           Scope       `json:"scope" example:"district"`
	ScopeValue      string      `json:"scopeValue" example:"North"`
	AdultCount      int         `json:"adultCount" example:"50"`
	YouthChildCount int         `json:"youthChildCount" example:"10"`
	District        string      `json:"district,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedBy       *int64      `json:"createdBy,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (a *AttendanceRecord) Total() int {
	return a.AdultCount + a.YouthChildCount
}

// AttendanceFilter narrows a listing; zero fields are ignored.
type AttendanceFilter struct {
	StartDate   Date
	EndDate     Date
	MeetingType MeetingType
	Scope       Scope
	ScopeValue  string
	Limit       int
}
