package models

import (
	"encoding/json"
	"fmt"
)

// RoomStatus is the attendance state of a room as computed by the server
type RoomStatus string

const (
	RoomStatusActive        RoomStatus = "active"
	RoomStatusLowAttendance RoomStatus = "low_attendance"
	RoomStatusIssues        RoomStatus = "issues"
	RoomStatusEmpty         RoomStatus = "empty"
)

// StatusDisplay is the presentation metadata for an enum value
type StatusDisplay struct {
	Class string
	Icon  string
	Text  string
}

var roomStatusDisplay = map[RoomStatus]StatusDisplay{
	RoomStatusActive:        {Class: "status-active", Icon: "🟢", Text: "جاري الحصة"},
	RoomStatusLowAttendance: {Class: "status-warning", Icon: "🟡", Text: "حضور منخفض"},
	RoomStatusIssues:        {Class: "status-danger", Icon: "🔴", Text: "مشاكل"},
	RoomStatusEmpty:         {Class: "status-empty", Icon: "⚪", Text: "فارغة"},
}

// ParseRoomStatus converts a wire value into a RoomStatus.
// Unknown values are rejected rather than rendered with a fallback.
func ParseRoomStatus(s string) (RoomStatus, error) {
	status := RoomStatus(s)
	if _, ok := roomStatusDisplay[status]; !ok {
		return "", fmt.Errorf("unknown room status %q", s)
	}
	return status, nil
}

// Display returns the class, icon and label for the status
func (s RoomStatus) Display() StatusDisplay {
	return roomStatusDisplay[s]
}

// UnmarshalJSON validates the status while decoding
func (s *RoomStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := ParseRoomStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
