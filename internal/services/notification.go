package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, prefs *models.NotificationPreferences) error
	Enqueue(ctx context.Context, q *models.QueuedNotification) error
	ClaimDue(ctx context.Context, now time.Time) ([]*models.QueuedNotification, error)
}

type pushTokenStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// PushSender delivers a push notification to a device token.
type PushSender interface {
	Push(ctx context.Context, deviceToken, title, body string) error
}

// NotificationService routes notifications through preference and
// quiet-hours gates, persisting them and fanning out over the hub and
// push transport.
type NotificationService struct {
	store notificationStore
	users pushTokenStore
	hub   *Hub
	push  PushSender
	now   func() time.Time
}

func NewNotificationService(store notificationStore, users pushTokenStore, hub *Hub, push PushSender) *NotificationService {
	return &NotificationService{
		store: store,
		users: users,
		hub:   hub,
		push:  push,
		now:   time.Now,
	}
}

// Send delivers a notification to the user, deferring it when the user's
// quiet hours are in effect. Category-disabled notifications are dropped.
func (s *NotificationService) Send(ctx context.Context, userID, category, title, message string) error {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return err
	}
	if !prefs.Categories.Enabled(category) {
		log.Debug().Str("userId", userID).Str("category", category).Msg("Notification category disabled, dropping")
		return nil
	}

	now := s.now()
	if prefs.QuietHours.Enabled && inQuietHours(prefs.QuietHours, now) {
		queued := &models.QueuedNotification{
			ID:           uuid.New().String(),
			UserID:       userID,
			Type:         category,
			Title:        title,
			Message:      message,
			ProcessAfter: quietHoursEnd(prefs.QuietHours, now),
			CreatedAt:    now,
		}
		if err := s.store.Enqueue(ctx, queued); err != nil {
			return fmt.Errorf("failed to defer notification: %w", err)
		}
		log.Info().
			Str("userId", userID).
			Time("processAfter", queued.ProcessAfter).
			Msg("Notification deferred by quiet hours")
		return nil
	}

	return s.deliver(ctx, userID, category, title, message, prefs)
}

func (s *NotificationService) deliver(ctx context.Context, userID, category, title, message string, prefs *models.NotificationPreferences) error {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      category,
		Title:     title,
		Message:   message,
		Timestamp: s.now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	if s.hub != nil {
		s.hub.SendToUser(userID, EventNotification.Channel(), Event{Type: EventNotification, Payload: n})
	}

	if prefs.PushEnabled && s.push != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to load user for push delivery")
			return nil
		}
		if user.PushToken == nil || *user.PushToken == "" {
			return nil
		}
		if err := s.push.Push(ctx, *user.PushToken, title, message); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Push delivery failed")
		}
	}
	return nil
}

// ProcessOfflineQueue replays deferred notifications whose quiet window has
// passed. Each claimed entry goes back through Send, so preference changes
// made during the deferral still apply. An entry landing inside a moved
// quiet window is enqueued again; quietHoursEnd always returns a future
// instant, so a requeue cannot come due within the same sweep.
func (s *NotificationService) ProcessOfflineQueue(ctx context.Context) error {
	due, err := s.store.ClaimDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to claim deferred notifications: %w", err)
	}
	for _, q := range due {
		if err := s.Send(ctx, q.UserID, q.Type, q.Title, q.Message); err != nil {
			log.Error().Err(err).Str("userId", q.UserID).Msg("Failed to replay deferred notification")
		}
	}
	if len(due) > 0 {
		log.Info().Int("count", len(due)).Msg("Replayed deferred notifications")
	}
	return nil
}

// Preferences returns stored preferences, falling back to defaults for
// users that never configured them.
func (s *NotificationService) Preferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			defaults := models.DefaultNotificationPreferences(userID)
			return &defaults, nil
		}
		return nil, err
	}
	return prefs, nil
}

// UpdatePreferences validates and stores the user's delivery configuration.
func (s *NotificationService) UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	if prefs.QuietHours.Enabled {
		if _, _, err := parseClock(prefs.QuietHours.Start); err != nil {
			return apperr.Validation("invalid quiet hours start time")
		}
		if _, _, err := parseClock(prefs.QuietHours.End); err != nil {
			return apperr.Validation("invalid quiet hours end time")
		}
	}
	return s.store.UpsertPreferences(ctx, prefs)
}

// inQuietHours reports whether t falls inside the window. A window whose
// end sorts before its start wraps midnight.
func inQuietHours(q models.QuietHours, t time.Time) bool {
	startH, startM, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	endH, endM, err := parseClock(q.End)
	if err != nil {
		return false
	}
	cur := t.Hour()*60 + t.Minute()
	start := startH*60 + startM
	end := endH*60 + endM
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// quietHoursEnd returns the next moment the window closes, relative to t.
func quietHoursEnd(q models.QuietHours, t time.Time) time.Time {
	endH, endM, err := parseClock(q.End)
	if err != nil {
		return t
	}
	end := time.Date(t.Year(), t.Month(), t.Day(), endH, endM, 0, 0, t.Location())
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

func parseClock(s string) (int, int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h, m, nil
}
