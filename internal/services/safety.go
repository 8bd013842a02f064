package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"
)

type safetyStore interface {
	CreateAlert(ctx context.Context, alert *models.SafetyAlert) error
	GetAlertByID(ctx context.Context, id string) (*models.SafetyAlert, error)
	ListActiveAlerts(ctx context.Context, userID string) ([]*models.SafetyAlert, error)
	SetAlertDismissed(ctx context.Context, id string, at time.Time) error
	SetAlertResolved(ctx context.Context, id string, at time.Time) error
	CreateCheck(ctx context.Context, check *models.SafetyCheck) error
	GetCheckByID(ctx context.Context, id string) (*models.SafetyCheck, error)
	ListChecksByUser(ctx context.Context, userID string, status models.CheckStatus) ([]*models.SafetyCheck, error)
	CompleteCheck(ctx context.Context, id string, at time.Time) error
	ClaimOverdueChecks(ctx context.Context, cutoff time.Time) ([]*models.SafetyCheck, error)
}

type contactStore interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	GetByID(ctx context.Context, id string) (*models.EmergencyContact, error)
	ListByUser(ctx context.Context, userID string) ([]*models.EmergencyContact, error)
	Delete(ctx context.Context, id string) error
}

// notifier is the slice of NotificationService the safety flows need.
type notifier interface {
	Send(ctx context.Context, userID, category, title, message string) error
}

// contactSender reaches an emergency contact over the contact's stored
// email or phone. Contacts are not users: a contact row id resolves to
// nothing in the user table, so the in-app notification path cannot
// address them.
type contactSender interface {
	Alert(ctx context.Context, contact *models.EmergencyContact, title, body string) error
}

// SafetyService manages alerts, scheduled check-ins and emergency
// contacts. SOS alerts fan out to the user's contacts immediately.
type SafetyService struct {
	store        safetyStore
	contacts     contactStore
	notify       notifier
	contactAlert contactSender
	hub          *Hub
	missedGrace  time.Duration
	now          func() time.Time
}

func NewSafetyService(store safetyStore, contacts contactStore, notify notifier, contactAlert contactSender, hub *Hub, missedGrace time.Duration) *SafetyService {
	return &SafetyService{
		store:        store,
		contacts:     contacts,
		notify:       notify,
		contactAlert: contactAlert,
		hub:          hub,
		missedGrace:  missedGrace,
		now:          time.Now,
	}
}

// CreateAlertInput carries the caller-supplied alert fields. Location, when
// present, is stored as a snapshot copied from the request.
type CreateAlertInput struct {
	Type        models.AlertType
	Description string
	Message     string
	Location    *models.LocationSnapshot
}

// CreateAlert raises a new alert. SOS alerts are treated as critical and
// trigger emergency contact notification.
func (s *SafetyService) CreateAlert(ctx context.Context, userID string, input CreateAlertInput) (*models.SafetyAlert, error) {
	switch input.Type {
	case models.AlertTypeSOS, models.AlertTypeLocation, models.AlertTypeMeetup, models.AlertTypeCustom:
	default:
		return nil, apperr.Validation("unknown alert type")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperr.Validation("alert description is required")
	}

	now := s.now()
	alert := &models.SafetyAlert{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        input.Type,
		Priority:    alertPriority(input.Type),
		Description: input.Description,
		Message:     input.Message,
		Location:    input.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.SendToUser(userID, EventEmergencyAlert.Channel(), Event{Type: EventEmergencyAlert, Payload: alert})
	}
	if alert.Type == models.AlertTypeSOS {
		s.notifyEmergencyContacts(ctx, alert)
	}
	return alert, nil
}

func alertPriority(t models.AlertType) string {
	if t == models.AlertTypeSOS {
		return "critical"
	}
	return "normal"
}

// notifyEmergencyContacts delivers the alert to every contact over the
// out-of-band transport. Failures are logged per contact.
func (s *SafetyService) notifyEmergencyContacts(ctx context.Context, alert *models.SafetyAlert) {
	contacts, err := s.contacts.ListByUser(ctx, alert.UserID)
	if err != nil {
		log.Error().Err(err).Str("userId", alert.UserID).Msg("Failed to load emergency contacts for SOS alert")
		return
	}
	if len(contacts) == 0 {
		log.Warn().Str("userId", alert.UserID).Msg("SOS alert raised with no emergency contacts configured")
		return
	}
	for _, c := range contacts {
		if err := s.contactAlert.Alert(ctx, c, "Emergency alert", alert.Description); err != nil {
			log.Error().Err(err).Str("contactId", c.ID).Msg("Failed to alert emergency contact")
		}
	}
}

// ActiveAlerts lists the user's alerts that are neither dismissed nor
// resolved.
func (s *SafetyService) ActiveAlerts(ctx context.Context, userID string) ([]*models.SafetyAlert, error) {
	return s.store.ListActiveAlerts(ctx, userID)
}

// DismissAlert marks the alert dismissed. The alert row is kept.
func (s *SafetyService) DismissAlert(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	alert, err := s.ownedAlert(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.SetAlertDismissed(ctx, alertID, now); err != nil {
		return nil, err
	}
	alert.Dismissed = true
	alert.DismissedAt = &now
	alert.UpdatedAt = now
	return alert, nil
}

// ResolveAlert marks the alert resolved. Resolution is independent of
// dismissal.
func (s *SafetyService) ResolveAlert(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	alert, err := s.ownedAlert(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.SetAlertResolved(ctx, alertID, now); err != nil {
		return nil, err
	}
	alert.Resolved = true
	alert.ResolvedAt = &now
	alert.UpdatedAt = now
	return alert, nil
}

func (s *SafetyService) ownedAlert(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	alert, err := s.store.GetAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, apperr.Forbidden("alert belongs to another user")
	}
	return alert, nil
}

// CreateCheckInput describes a scheduled check-in. A zero ScheduledFor
// schedules the check immediately.
type CreateCheckInput struct {
	Type         string
	ScheduledFor time.Time
	Description  string
	Location     *models.LocationSnapshot
}

// ScheduleCheck creates a pending safety check.
func (s *SafetyService) ScheduleCheck(ctx context.Context, userID string, input CreateCheckInput) (*models.SafetyCheck, error) {
	now := s.now()
	scheduledFor := input.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}
	check := &models.SafetyCheck{
		ID:           uuid.New().String(),
		UserID:       userID,
		Type:         input.Type,
		Status:       models.CheckStatusPending,
		ScheduledFor: scheduledFor,
		Location:     input.Location,
		Description:  input.Description,
		CreatedAt:    now,
	}
	if err := s.store.CreateCheck(ctx, check); err != nil {
		return nil, err
	}
	return check, nil
}

// CompleteCheck confirms a pending check-in. Completing a check that is no
// longer pending fails with a conflict.
func (s *SafetyService) CompleteCheck(ctx context.Context, userID, checkID string) (*models.SafetyCheck, error) {
	check, err := s.store.GetCheckByID(ctx, checkID)
	if err != nil {
		return nil, err
	}
	if check.UserID != userID {
		return nil, apperr.Forbidden("safety check belongs to another user")
	}
	now := s.now()
	if err := s.store.CompleteCheck(ctx, checkID, now); err != nil {
		return nil, err
	}
	check.Status = models.CheckStatusCompleted
	check.CompletedAt = &now
	return check, nil
}

// ListChecks returns the user's checks, optionally filtered by status.
func (s *SafetyService) ListChecks(ctx context.Context, userID string, status models.CheckStatus) ([]*models.SafetyCheck, error) {
	return s.store.ListChecksByUser(ctx, userID, status)
}

// SweepMissedChecks transitions overdue pending checks to missed and
// notifies each affected user. Run periodically by the scheduler.
func (s *SafetyService) SweepMissedChecks(ctx context.Context) error {
	cutoff := s.now().Add(-s.missedGrace)
	missed, err := s.store.ClaimOverdueChecks(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, check := range missed {
		log.Warn().Str("checkId", check.ID).Str("userId", check.UserID).Msg("Safety check missed")
		if s.hub != nil {
			s.hub.SendToUser(check.UserID, EventSafetyCheck.Channel(), Event{Type: EventSafetyCheck, Payload: check})
		}
		if err := s.notify.Send(ctx, check.UserID, "safety", "Missed safety check", "You missed a scheduled safety check-in."); err != nil {
			log.Error().Err(err).Str("checkId", check.ID).Msg("Failed to notify user of missed check")
		}
	}
	return nil
}

// AddContact registers an emergency contact for the user.
func (s *SafetyService) AddContact(ctx context.Context, userID string, contact *models.EmergencyContact) (*models.EmergencyContact, error) {
	if strings.TrimSpace(contact.Name) == "" {
		return nil, apperr.Validation("contact name is required")
	}
	if contact.Email == "" && contact.Phone == "" {
		return nil, apperr.Validation("contact needs an email or phone number")
	}
	contact.ID = uuid.New().String()
	contact.UserID = userID
	if contact.Priority == "" {
		contact.Priority = "primary"
	}
	contact.CreatedAt = s.now()
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// ListContacts returns the user's emergency contacts in priority order.
func (s *SafetyService) ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error) {
	return s.contacts.ListByUser(ctx, userID)
}

// RemoveContact deletes one of the user's emergency contacts.
func (s *SafetyService) RemoveContact(ctx context.Context, userID, contactID string) error {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if contact.UserID != userID {
		return apperr.Forbidden("contact belongs to another user")
	}
	return s.contacts.Delete(ctx, contactID)
}
