package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"
)

type fakeSafetyStore struct {
	alerts map[string]*models.SafetyAlert
	checks map[string]*models.SafetyCheck
}

func newFakeSafetyStore() *fakeSafetyStore {
	return &fakeSafetyStore{
		alerts: make(map[string]*models.SafetyAlert),
		checks: make(map[string]*models.SafetyCheck),
	}
}

func (f *fakeSafetyStore) CreateAlert(_ context.Context, alert *models.SafetyAlert) error {
	f.alerts[alert.ID] = alert
	return nil
}

func (f *fakeSafetyStore) GetAlertByID(_ context.Context, id string) (*models.SafetyAlert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, apperr.NotFound("alert not found")
	}
	return a, nil
}

func (f *fakeSafetyStore) ListActiveAlerts(_ context.Context, userID string) ([]*models.SafetyAlert, error) {
	var out []*models.SafetyAlert
	for _, a := range f.alerts {
		if a.UserID == userID && !a.Dismissed && !a.Resolved {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSafetyStore) SetAlertDismissed(_ context.Context, id string, at time.Time) error {
	a, ok := f.alerts[id]
	if !ok {
		return apperr.NotFound("alert not found")
	}
	a.Dismissed = true
	a.DismissedAt = &at
	return nil
}

func (f *fakeSafetyStore) SetAlertResolved(_ context.Context, id string, at time.Time) error {
	a, ok := f.alerts[id]
	if !ok {
		return apperr.NotFound("alert not found")
	}
	a.Resolved = true
	a.ResolvedAt = &at
	return nil
}

func (f *fakeSafetyStore) CreateCheck(_ context.Context, check *models.SafetyCheck) error {
	f.checks[check.ID] = check
	return nil
}

func (f *fakeSafetyStore) GetCheckByID(_ context.Context, id string) (*models.SafetyCheck, error) {
	c, ok := f.checks[id]
	if !ok {
		return nil, apperr.NotFound("safety check not found")
	}
	return c, nil
}

func (f *fakeSafetyStore) ListChecksByUser(_ context.Context, userID string, status models.CheckStatus) ([]*models.SafetyCheck, error) {
	var out []*models.SafetyCheck
	for _, c := range f.checks {
		if c.UserID != userID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeSafetyStore) CompleteCheck(_ context.Context, id string, at time.Time) error {
	c, ok := f.checks[id]
	if !ok {
		return apperr.NotFound("safety check not found")
	}
	if c.Status != models.CheckStatusPending {
		return apperr.Conflict("safety check is not pending")
	}
	c.Status = models.CheckStatusCompleted
	c.CompletedAt = &at
	return nil
}

func (f *fakeSafetyStore) ClaimOverdueChecks(_ context.Context, cutoff time.Time) ([]*models.SafetyCheck, error) {
	var claimed []*models.SafetyCheck
	for _, c := range f.checks {
		if c.Status == models.CheckStatusPending && c.ScheduledFor.Before(cutoff) {
			c.Status = models.CheckStatusMissed
			claimed = append(claimed, c)
		}
	}
	return claimed, nil
}

type fakeContactStore struct {
	contacts map[string]*models.EmergencyContact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[string]*models.EmergencyContact)}
}

func (f *fakeContactStore) Create(_ context.Context, contact *models.EmergencyContact) error {
	f.contacts[contact.ID] = contact
	return nil
}

func (f *fakeContactStore) GetByID(_ context.Context, id string) (*models.EmergencyContact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, apperr.NotFound("contact not found")
	}
	return c, nil
}

func (f *fakeContactStore) ListByUser(_ context.Context, userID string) ([]*models.EmergencyContact, error) {
	var out []*models.EmergencyContact
	for _, c := range f.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContactStore) Delete(_ context.Context, id string) error {
	delete(f.contacts, id)
	return nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Send(_ context.Context, userID, category, title, message string) error {
	n.sent = append(n.sent, userID+":"+category)
	return nil
}

type recordingContactSender struct {
	alerted []*models.EmergencyContact
}

func (s *recordingContactSender) Alert(_ context.Context, contact *models.EmergencyContact, title, body string) error {
	s.alerted = append(s.alerted, contact)
	return nil
}

type safetyFixture struct {
	store        *fakeSafetyStore
	contacts     *fakeContactStore
	notify       *recordingNotifier
	contactAlert *recordingContactSender
	svc          *SafetyService
}

func newSafetyFixture(now time.Time) *safetyFixture {
	store := newFakeSafetyStore()
	contacts := newFakeContactStore()
	notify := &recordingNotifier{}
	contactAlert := &recordingContactSender{}
	svc := NewSafetyService(store, contacts, notify, contactAlert, nil, 15*time.Minute)
	svc.now = func() time.Time { return now }
	return &safetyFixture{store: store, contacts: contacts, notify: notify, contactAlert: contactAlert, svc: svc}
}

func TestCreateAlertValidation(t *testing.T) {
	fx := newSafetyFixture(time.Now())

	_, err := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: "panic", Description: "help",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: models.AlertTypeCustom, Description: "  ",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateSOSAlertReachesContactsOutOfBand(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	fx.contacts.contacts["c1"] = &models.EmergencyContact{ID: "c1", UserID: "u1", Name: "Ana", Phone: "1"}
	fx.contacts.contacts["c2"] = &models.EmergencyContact{ID: "c2", UserID: "u1", Name: "Ben", Email: "ben@example.com"}

	alert, err := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: models.AlertTypeSOS, Description: "need help now",
	})
	require.NoError(t, err)
	assert.Equal(t, "critical", alert.Priority)

	// each contact is alerted with its stored reachability details
	require.Len(t, fx.contactAlert.alerted, 2)
	byID := map[string]*models.EmergencyContact{}
	for _, c := range fx.contactAlert.alerted {
		byID[c.ID] = c
	}
	require.Contains(t, byID, "c1")
	require.Contains(t, byID, "c2")
	assert.Equal(t, "1", byID["c1"].Phone)
	assert.Equal(t, "ben@example.com", byID["c2"].Email)

	// contact row ids are not user ids, so nothing goes through the
	// user-addressed notification path
	assert.Empty(t, fx.notify.sent)
}

func TestNonSOSAlertDoesNotAlertContacts(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	fx.contacts.contacts["c1"] = &models.EmergencyContact{ID: "c1", UserID: "u1", Name: "Ana", Phone: "1"}

	alert, err := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: models.AlertTypeMeetup, Description: "meeting someone",
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", alert.Priority)
	assert.Empty(t, fx.contactAlert.alerted)
	assert.Empty(t, fx.notify.sent)
}

func TestCreateAlertPushesEmergencyAlertEventToOwner(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	hub := NewHub()
	fx.svc.hub = hub
	conn := &stubConn{}
	client := hub.Register("u1", conn)
	hub.Subscribe(client, EventEmergencyAlert.Channel())

	_, err := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: models.AlertTypeCustom, Description: "odd vibe",
	})
	require.NoError(t, err)

	require.Equal(t, 1, conn.frameCount())
	var got Event
	require.NoError(t, json.Unmarshal(conn.frames[0], &got))
	assert.Equal(t, EventEmergencyAlert, got.Type)
}

func TestDismissAndResolveAreIndependent(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	alert, err := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: models.AlertTypeCustom, Description: "odd vibe",
	})
	require.NoError(t, err)

	dismissed, err := fx.svc.DismissAlert(context.Background(), "u1", alert.ID)
	require.NoError(t, err)
	assert.True(t, dismissed.Dismissed)
	assert.False(t, dismissed.Resolved)
	assert.Equal(t, "dismissed", dismissed.DisplayStatus())

	resolved, err := fx.svc.ResolveAlert(context.Background(), "u1", alert.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Dismissed)
	assert.True(t, resolved.Resolved)
	// resolved wins when both flags are set
	assert.Equal(t, "resolved", resolved.DisplayStatus())
}

func TestActiveAlertsExcludeHandledOnes(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	a1, _ := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{Type: models.AlertTypeCustom, Description: "one"})
	a2, _ := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{Type: models.AlertTypeCustom, Description: "two"})
	_, _ = fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{Type: models.AlertTypeCustom, Description: "three"})

	_, err := fx.svc.DismissAlert(context.Background(), "u1", a1.ID)
	require.NoError(t, err)
	_, err = fx.svc.ResolveAlert(context.Background(), "u1", a2.ID)
	require.NoError(t, err)

	active, err := fx.svc.ActiveAlerts(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "three", active[0].Description)
}

func TestAlertOwnershipEnforced(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	alert, err := fx.svc.CreateAlert(context.Background(), "u1", CreateAlertInput{
		Type: models.AlertTypeCustom, Description: "mine",
	})
	require.NoError(t, err)

	_, err = fx.svc.DismissAlert(context.Background(), "intruder", alert.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = fx.svc.ResolveAlert(context.Background(), "intruder", alert.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestScheduleCheckDefaultsToNow(t *testing.T) {
	now := time.Now()
	fx := newSafetyFixture(now)

	check, err := fx.svc.ScheduleCheck(context.Background(), "u1", CreateCheckInput{Type: "meetup"})
	require.NoError(t, err)
	assert.Equal(t, models.CheckStatusPending, check.Status)
	assert.Equal(t, now, check.ScheduledFor)
}

func TestCompleteCheckOnlyOnce(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	check, err := fx.svc.ScheduleCheck(context.Background(), "u1", CreateCheckInput{Type: "meetup"})
	require.NoError(t, err)

	completed, err := fx.svc.CompleteCheck(context.Background(), "u1", check.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckStatusCompleted, completed.Status)

	_, err = fx.svc.CompleteCheck(context.Background(), "u1", check.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCompleteCheckOwnership(t *testing.T) {
	fx := newSafetyFixture(time.Now())
	check, err := fx.svc.ScheduleCheck(context.Background(), "u1", CreateCheckInput{Type: "meetup"})
	require.NoError(t, err)

	_, err = fx.svc.CompleteCheck(context.Background(), "intruder", check.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestSweepMarksOverdueChecksMissed(t *testing.T) {
	now := time.Now()
	fx := newSafetyFixture(now)

	// scheduled 30 minutes ago, past the 15 minute grace
	overdue := &models.SafetyCheck{
		ID: "late", UserID: "u1", Status: models.CheckStatusPending,
		ScheduledFor: now.Add(-30 * time.Minute),
	}
	// scheduled 5 minutes ago, still inside the grace window
	recent := &models.SafetyCheck{
		ID: "fresh", UserID: "u1", Status: models.CheckStatusPending,
		ScheduledFor: now.Add(-5 * time.Minute),
	}
	fx.store.checks[overdue.ID] = overdue
	fx.store.checks[recent.ID] = recent

	require.NoError(t, fx.svc.SweepMissedChecks(context.Background()))

	assert.Equal(t, models.CheckStatusMissed, overdue.Status)
	assert.Equal(t, models.CheckStatusPending, recent.Status)
	assert.Equal(t, []string{"u1:safety"}, fx.notify.sent)
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Now()
	fx := newSafetyFixture(now)
	fx.store.checks["late"] = &models.SafetyCheck{
		ID: "late", UserID: "u1", Status: models.CheckStatusPending,
		ScheduledFor: now.Add(-time.Hour),
	}

	require.NoError(t, fx.svc.SweepMissedChecks(context.Background()))
	require.NoError(t, fx.svc.SweepMissedChecks(context.Background()))
	// the second sweep claims nothing
	assert.Len(t, fx.notify.sent, 1)
}

func TestContactValidationAndOwnership(t *testing.T) {
	fx := newSafetyFixture(time.Now())

	_, err := fx.svc.AddContact(context.Background(), "u1", &models.EmergencyContact{Name: ""})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = fx.svc.AddContact(context.Background(), "u1", &models.EmergencyContact{Name: "Ana"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	contact, err := fx.svc.AddContact(context.Background(), "u1", &models.EmergencyContact{Name: "Ana", Phone: "1"})
	require.NoError(t, err)

	err = fx.svc.RemoveContact(context.Background(), "intruder", contact.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	require.NoError(t, fx.svc.RemoveContact(context.Background(), "u1", contact.ID))
}
