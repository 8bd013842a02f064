package models

import "time"

// Notification is a persisted in-app notification.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// QuietHours is a per-user window during which notifications are deferred.
// Start and End are "HH:MM" local times; a window wraps midnight when End
// sorts before Start.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// NotificationCategories toggles delivery per notification type.
type NotificationCategories struct {
	Matches  bool `json:"matches"`
	Messages bool `json:"messages"`
	Events   bool `json:"events"`
	System   bool `json:"system"`
	Safety   bool `json:"safety"`
}

// Enabled reports whether the named category is switched on. Unknown
// categories default to deliverable.
func (c NotificationCategories) Enabled(category string) bool {
	switch category {
	case "matches":
		return c.Matches
	case "messages":
		return c.Messages
	case "events":
		return c.Events
	case "system":
		return c.System
	case "safety":
		return c.Safety
	}
	return true
}

// NotificationPreferences hold a user's delivery configuration.
type NotificationPreferences struct {
	UserID       string                 `json:"user_id"`
	PushEnabled  bool                   `json:"push_enabled"`
	EmailEnabled bool                   `json:"email_enabled"`
	Categories   NotificationCategories `json:"categories"`
	QuietHours   QuietHours             `json:"quiet_hours"`
}

// DefaultNotificationPreferences are applied the first time a user is seen.
func DefaultNotificationPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:       userID,
		PushEnabled:  true,
		EmailEnabled: true,
		Categories: NotificationCategories{
			Matches:  true,
			Messages: true,
			Events:   true,
			System:   true,
			Safety:   true,
		},
		QuietHours: QuietHours{
			Enabled: false,
			Start:   "22:00",
			End:     "07:00",
		},
	}
}

// QueuedNotification is a notification deferred by quiet hours, replayed once
// ProcessAfter has passed.
type QueuedNotification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	ProcessAfter time.Time `json:"process_after"`
	CreatedAt    time.Time `json:"created_at"`
}
