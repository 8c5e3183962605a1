package models

// SessionSummary describes the session currently running in a room
type SessionSummary struct {
	GroupName       string `json:"group_name"`
	TeacherName     string `json:"teacher_name"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Capacity        int    `json:"capacity,omitempty"`
	Present         int    `json:"present"`
	Late            int    `json:"late"`
	LateBlocked     int    `json:"late_blocked,omitempty"`
	VeryLateBlocked int    `json:"very_late_blocked,omitempty"`
	Absent          int    `json:"absent,omitempty"`
	BlockedTotal    int    `json:"blocked_total"`
	NotArrived      int    `json:"not_arrived"`
	Total           int    `json:"total"`
}

// AttendancePercent returns present/total rounded to a whole percent
func (s *SessionSummary) AttendancePercent() int {
	if s == nil || s.Total <= 0 {
		return 0
	}
	return (s.Present*100 + s.Total/2) / s.Total
}

// RoomSnapshot is one room as reported by a single poll
type RoomSnapshot struct {
	ID       ID              `json:"id"`
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Status   RoomStatus      `json:"status"`
	Session  *SessionSummary `json:"session,omitempty"`
}

// HasSession reports whether a session is running in the room
func (r RoomSnapshot) HasSession() bool {
	return r.Session != nil
}
