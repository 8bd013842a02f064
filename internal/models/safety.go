package models

import "time"

// AlertType categorizes a safety alert.
type AlertType string

const (
	AlertTypeSOS      AlertType = "sos"
	AlertTypeLocation AlertType = "location"
	AlertTypeMeetup   AlertType = "meetup"
	AlertTypeCustom   AlertType = "custom"
)

// LocationSnapshot is a point-in-time copy of a position, never a live
// reference to the location log.
type LocationSnapshot struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SafetyAlert is a user- or system-raised alert. Alerts are never hard
// deleted; dismissed and resolved are independent flags set via their own
// operations.
type SafetyAlert struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        AlertType         `json:"type"`
	Priority    string            `json:"priority"`
	Description string            `json:"description"`
	Message     string            `json:"message,omitempty"`
	Location    *LocationSnapshot `json:"location,omitempty"`
	Dismissed   bool              `json:"dismissed"`
	Resolved    bool              `json:"resolved"`
	DismissedAt *time.Time        `json:"dismissed_at,omitempty"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DisplayStatus derives the single status consumers show. Resolved takes
// precedence over dismissed when both flags are set.
func (a *SafetyAlert) DisplayStatus() string {
	switch {
	case a.Resolved:
		return "resolved"
	case a.Dismissed:
		return "dismissed"
	default:
		return "active"
	}
}

// CheckStatus is the lifecycle state of a scheduled safety check.
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusCompleted CheckStatus = "completed"
	CheckStatusMissed    CheckStatus = "missed"
)

// SafetyCheck is a scheduled check-in. It transitions pending -> completed
// when the user confirms, or pending -> missed when the sweep finds it
// overdue.
type SafetyCheck struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Type             string            `json:"type"`
	Status           CheckStatus       `json:"status"`
	ScheduledFor     time.Time         `json:"scheduled_for"`
	Location         *LocationSnapshot `json:"location,omitempty"`
	Description      string            `json:"description,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	NotifiedContacts []string          `json:"notified_contacts,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// EmergencyContact is whom to notify when an SOS alert fires.
type EmergencyContact struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	Priority     string    `json:"priority"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// SafetyReport is the orthogonal side-channel of a match report action. It
// never changes the match status.
type SafetyReport struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporter_id"`
	ReportedID string    `json:"reported_id"`
	MatchID    string    `json:"match_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Evidence is a supporting artifact attached to a safety report.
type Evidence struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
