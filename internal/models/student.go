package models

import (
	"encoding/json"
	"fmt"
)

// StudentStatus is a student's attendance state for today's session
type StudentStatus string

const (
	StudentStatusPresent         StudentStatus = "present"
	StudentStatusLate            StudentStatus = "late"
	StudentStatusLateBlocked     StudentStatus = "late_blocked"
	StudentStatusVeryLateBlocked StudentStatus = "very_late_blocked"
	StudentStatusAbsent          StudentStatus = "absent"
	StudentStatusNotArrived      StudentStatus = "not_arrived"
)

var studentStatusDisplay = map[StudentStatus]StatusDisplay{
	StudentStatusPresent:         {Class: "bg-success", Text: "حاضر"},
	StudentStatusLate:            {Class: "bg-warning", Text: "متأخر"},
	StudentStatusLateBlocked:     {Class: "bg-danger", Text: "محظور (متأخر)"},
	StudentStatusVeryLateBlocked: {Class: "bg-dark", Text: "محظور (متأخر جداً)"},
	StudentStatusAbsent:          {Class: "bg-secondary", Text: "غائب"},
	StudentStatusNotArrived:      {Class: "bg-light text-dark", Text: "لم يحضر"},
}

// ParseStudentStatus converts a wire value into a StudentStatus
func ParseStudentStatus(s string) (StudentStatus, error) {
	status := StudentStatus(s)
	if _, ok := studentStatusDisplay[status]; !ok {
		return "", fmt.Errorf("unknown student status %q", s)
	}
	return status, nil
}

// Display returns the badge class and label for the status
func (s StudentStatus) Display() StatusDisplay {
	return studentStatusDisplay[s]
}

// UnmarshalJSON validates the status while decoding
func (s *StudentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := ParseStudentStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// StudentAttendance is one roster line of the room detail view
type StudentAttendance struct {
	StudentID   ID            `json:"student_id,omitempty"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Status      StudentStatus `json:"status"`
	CheckInTime *string       `json:"check_in_time"`
	IsBlocked   bool          `json:"is_blocked,omitempty"`
}

// RoomInfo is the static part of a room
type RoomInfo struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// RoomDetail is the full roster of a room, fetched on demand
type RoomDetail struct {
	Room     RoomInfo            `json:"room"`
	Session  *SessionSummary     `json:"session"`
	Students []StudentAttendance `json:"students"`
}
