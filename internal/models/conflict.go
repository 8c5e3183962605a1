package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSessionDuration is used when the duration field is empty, in minutes
const DefaultSessionDuration = 120

// Weekday is a scheduling day as used by EDUCORE groups
type Weekday string

const (
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

var weekdays = []Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseWeekday accepts a full day name or its three letter abbreviation, in any case
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range weekdays {
		full := strings.ToLower(string(d))
		if s == full || (len(s) == 3 && strings.HasPrefix(full, s)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// ScheduleFields are the four watched fields of the group form, as entered
type ScheduleFields struct {
	RoomID   string `json:"room_id"`
	Day      string `json:"day"`
	Time     string `json:"time"`
	Duration string `json:"duration"`
}

// Complete reports whether room, day and time are all filled in
func (f ScheduleFields) Complete() bool {
	return strings.TrimSpace(f.RoomID) != "" &&
		strings.TrimSpace(f.Day) != "" &&
		strings.TrimSpace(f.Time) != ""
}

// DurationMinutes returns the entered duration, or the default when empty or not a number
func (f ScheduleFields) DurationMinutes() int {
	d, err := strconv.Atoi(strings.TrimSpace(f.Duration))
	if err != nil || d == 0 {
		return DefaultSessionDuration
	}
	return d
}

// Query builds the conflict-check request for these fields
func (f ScheduleFields) Query(excludeGroupID *string) ConflictQuery {
	return ConflictQuery{
		RoomID:         strings.TrimSpace(f.RoomID),
		Day:            strings.TrimSpace(f.Day),
		Time:           strings.TrimSpace(f.Time),
		Duration:       f.DurationMinutes(),
		ExcludeGroupID: excludeGroupID,
	}
}

// ConflictQuery is the body of a conflict-check request
type ConflictQuery struct {
	RoomID         string  `json:"room_id" validate:"required"`
	Day            string  `json:"day" validate:"required,weekday"`
	Time           string  `json:"time" validate:"required,datetime=15:04"`
	Duration       int     `json:"duration" validate:"min=1,max=1440"`
	ExcludeGroupID *string `json:"exclude_group_id"`
}

// Slot returns the time slot part of the query, used to look up available rooms
func (q ConflictQuery) Slot() Slot {
	return Slot{Day: q.Day, Time: q.Time, Duration: q.Duration}
}

// Slot identifies a weekly time slot
type Slot struct {
	Day      string `json:"day"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
}

// Conflict describes the group already holding the requested slot
type Conflict struct {
	MessageAr     string `json:"message_ar"`
	MessageEn     string `json:"message_en,omitempty"`
	GroupName     string `json:"group_name"`
	ConflictStart string `json:"conflict_start"`
	ConflictEnd   string `json:"conflict_end"`
}

// ConflictResult is the response of a conflict-check request
type ConflictResult struct {
	HasConflict bool      `json:"has_conflict"`
	Conflict    *Conflict `json:"conflict,omitempty"`
}

// ConflictingGroup is a group that occupies a room during a slot
type ConflictingGroup struct {
	GroupID  ID     `json:"group_id"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
}

// AvailableRoom is one row of the available-rooms response
type AvailableRoom struct {
	ID                ID                 `json:"id"`
	RoomID            ID                 `json:"room_id,omitempty"`
	Name              string             `json:"name"`
	Capacity          int                `json:"capacity"`
	IsAvailable       bool               `json:"is_available"`
	ConflictingGroups []ConflictingGroup `json:"conflicting_groups,omitempty"`
}

// Key returns the room id regardless of which field the server filled in
func (r AvailableRoom) Key() ID {
	if r.ID != "" {
		return r.ID
	}
	return r.RoomID
}
