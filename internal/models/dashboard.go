package models

// Summary holds the dashboard counters
type Summary struct {
	TotalPresentToday int    `json:"total_present_today"`
	ActiveSessions    int    `json:"active_sessions"`
	TotalRooms        int    `json:"total_rooms,omitempty"`
	CurrentTime       string `json:"current_time,omitempty"`
	CurrentDate       string `json:"current_date,omitempty"`
	CurrentDayAr      string `json:"current_day_ar,omitempty"`
}

// SeverityDanger marks alerts rendered with the danger style; every other
// severity is rendered as a warning.
const SeverityDanger = "danger"

// Alert is a server generated notice shown next to the room grid
type Alert struct {
	Type      string `json:"type,omitempty"`
	Severity  string `json:"severity"`
	Room      string `json:"room,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// IsDanger reports whether the alert uses the danger style
func (a Alert) IsDanger() bool {
	return a.Severity == SeverityDanger
}

// LiveStatus is the payload of the live-status endpoint
type LiveStatus struct {
	Timestamp string         `json:"timestamp,omitempty"`
	Summary   Summary        `json:"summary"`
	Rooms     []RoomSnapshot `json:"rooms"`
	Alerts    []Alert        `json:"alerts"`
}

// PrintReport is the payload of the print-report endpoint
type PrintReport struct {
	PrintTimestamp string         `json:"print_timestamp"`
	Summary        Summary        `json:"summary"`
	Rooms          []RoomSnapshot `json:"rooms"`
	GeneratedBy    string         `json:"generated_by"`
}
