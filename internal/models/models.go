package models

import "time"

// User represents an authenticated identity. Credentials and profile editing
// live outside this service; only the id, role and push token matter here.
type User struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"`
	PushToken *string   `json:"push_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PrivacyMode controls how a location is exposed in nearby queries.
type PrivacyMode string

const (
	PrivacyModePrecise     PrivacyMode = "precise"
	PrivacyModeApproximate PrivacyMode = "approximate"
	PrivacyModeZone        PrivacyMode = "zone"
)

// Valid reports whether m is a known privacy mode.
func (m PrivacyMode) Valid() bool {
	switch m {
	case PrivacyModePrecise, PrivacyModeApproximate, PrivacyModeZone:
		return true
	}
	return false
}

// LocationRecord is one row of a user's append-only location log. Rows are
// never mutated; state changes create a new row copying the prior lat/long.
// The most recent row by timestamp is the user's current location.
type LocationRecord struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	Accuracy       *float64    `json:"accuracy,omitempty"`
	PrivacyMode    PrivacyMode `json:"privacy_mode"`
	SharingEnabled bool        `json:"sharing_enabled"`
	Timestamp      time.Time   `json:"timestamp"`
}

// PrivacyZone is a user-defined circular region that suppresses the owner's
// visibility while their current position falls inside it.
type PrivacyZone struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	RadiusMeters     float64   `json:"radius_meters"`
	HideFromMatching bool      `json:"hide_from_matching"`
	CreatedAt        time.Time `json:"created_at"`
}

// MatchStatus is the lifecycle state of a match pair.
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusDeclined MatchStatus = "declined"
	MatchStatusBlocked  MatchStatus = "blocked"
)

// Match represents a surfaced candidate pair and its lifecycle state. Version
// increments on every status transition so concurrent conflicting transitions
// fail instead of silently overwriting each other.
type Match struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	MatchedUserID string      `json:"matched_user_id"`
	Status        MatchStatus `json:"status"`
	Score         int         `json:"score"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsParticipant reports whether userID is one of the two sides of the match.
func (m *Match) IsParticipant(userID string) bool {
	return m.UserID == userID || m.MatchedUserID == userID
}

// MatchScore is the ephemeral composite score computed for a candidate pair
// at query time. Each subscore is 0-100; total is the weighted sum.
type MatchScore struct {
	Total         int `json:"total"`
	Distance      int `json:"distance"`
	Interests     int `json:"interests"`
	Availability  int `json:"availability"`
	ActivityTypes int `json:"activity_types"`
}

// MatchPreferences are a user's declared matching filters and overlap sets.
type MatchPreferences struct {
	UserID        string    `json:"user_id"`
	MaxDistanceKm float64   `json:"max_distance_km"`
	MinAge        int       `json:"min_age"`
	MaxAge        int       `json:"max_age"`
	Interests     []string  `json:"interests"`
	ActivityTypes []string  `json:"activity_types"`
	Availability  []string  `json:"availability"`
	TimeWindow    string    `json:"time_window,omitempty"`
	VerifiedOnly  bool      `json:"verified_only"`
	WithPhoto     bool      `json:"with_photo"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Candidate is one ranked entry of a match query result.
type Candidate struct {
	UserID     string     `json:"user_id"`
	DistanceKm float64    `json:"distance_km"`
	Score      MatchScore `json:"score"`
}

// RateLimitAttempt is one sliding-window counter row. Rows age out of the
// window implicitly; queries only count the trailing 60 seconds.
type RateLimitAttempt struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Action     string    `json:"action"`
	UserID     *string   `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
