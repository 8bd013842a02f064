package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"
)

type fakeMatchStore struct {
	matches map[string]*models.Match
	prefs   map[string]*models.MatchPreferences
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{
		matches: make(map[string]*models.Match),
		prefs:   make(map[string]*models.MatchPreferences),
	}
}

func (f *fakeMatchStore) Create(_ context.Context, match *models.Match) error {
	cp := *match
	f.matches[match.ID] = &cp
	return nil
}

func (f *fakeMatchStore) GetByID(_ context.Context, id string) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, apperr.NotFound("match not found")
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMatchStore) GetByPair(_ context.Context, userA, userB string) (*models.Match, error) {
	for _, m := range f.matches {
		if (m.UserID == userA && m.MatchedUserID == userB) || (m.UserID == userB && m.MatchedUserID == userA) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("match not found")
}

func (f *fakeMatchStore) ListByUser(_ context.Context, userID string) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.IsParticipant(userID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMatchStore) UpdateStatus(_ context.Context, id string, status models.MatchStatus, version int) error {
	m, ok := f.matches[id]
	if !ok || m.Version != version {
		return apperr.Conflict("match was modified concurrently")
	}
	m.Status = status
	m.Version++
	m.UpdatedAt = time.Now()
	return nil
}

func (f *fakeMatchStore) GetPreferences(_ context.Context, userID string) (*models.MatchPreferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return nil, apperr.NotFound("match preferences not found")
	}
	return p, nil
}

func (f *fakeMatchStore) GetPreferencesForUsers(_ context.Context, userIDs []string) (map[string]*models.MatchPreferences, error) {
	out := make(map[string]*models.MatchPreferences)
	for _, id := range userIDs {
		if p, ok := f.prefs[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeMatchStore) UpsertPreferences(_ context.Context, prefs *models.MatchPreferences) error {
	f.prefs[prefs.UserID] = prefs
	return nil
}

type fakeProfileStore struct {
	profiles map[string]*models.Profile
}

func (f *fakeProfileStore) GetProfiles(_ context.Context, userIDs []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile)
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeReportStore struct {
	reports []*models.SafetyReport
}

func (f *fakeReportStore) Create(_ context.Context, report *models.SafetyReport) error {
	f.reports = append(f.reports, report)
	return nil
}

type matchingFixture struct {
	matches   *fakeMatchStore
	profiles  *fakeProfileStore
	reports   *fakeReportStore
	locations *fakeLocationStore
	svc       *MatchingService
}

func newMatchingFixture(t *testing.T) *matchingFixture {
	t.Helper()
	matches := newFakeMatchStore()
	profiles := &fakeProfileStore{profiles: make(map[string]*models.Profile)}
	reports := &fakeReportStore{}
	locations := &fakeLocationStore{}

	svc := NewMatchingService(
		matches,
		profiles,
		reports,
		NewLocationService(locations),
		NewPrivacyService(newFakeZoneStore()),
		NewRateLimiter(&fakeRateLimitStore{}),
		nil,
		10,
		50,
	)
	return &matchingFixture{
		matches:   matches,
		profiles:  profiles,
		reports:   reports,
		locations: locations,
		svc:       svc,
	}
}

func (fx *matchingFixture) seedLocation(userID string, lat, lon float64) {
	fx.locations.Create(context.Background(), &models.LocationRecord{
		ID: userID + "-loc", UserID: userID,
		Latitude: lat, Longitude: lon,
		SharingEnabled: true,
		PrivacyMode:    models.PrivacyModePrecise,
		Timestamp:      time.Now(),
	})
}

func (fx *matchingFixture) seedMatch(id, userA, userB string, status models.MatchStatus) *models.Match {
	m := &models.Match{
		ID: id, UserID: userA, MatchedUserID: userB,
		Status: status, Version: 1,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	fx.matches.matches[id] = m
	return m
}

func TestFindMatchesRequiresCurrentLocation(t *testing.T) {
	fx := newMatchingFixture(t)

	_, err := fx.svc.FindMatches(context.Background(), "u1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFindMatchesRanksByScoreThenDistance(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedLocation("me", 37.7749, -122.4194)
	// same distance band, different activity overlap
	fx.seedLocation("strong", 37.7760, -122.4194)
	fx.seedLocation("weak", 37.7760, -122.4000)

	fx.matches.prefs["me"] = &models.MatchPreferences{
		UserID: "me", ActivityTypes: []string{"hiking", "running"},
	}
	fx.matches.prefs["strong"] = &models.MatchPreferences{
		UserID: "strong", ActivityTypes: []string{"hiking", "running"},
	}
	fx.matches.prefs["weak"] = &models.MatchPreferences{
		UserID: "weak", ActivityTypes: []string{"chess"},
	}

	candidates, err := fx.svc.FindMatches(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "strong", candidates[0].UserID)
	assert.Equal(t, "weak", candidates[1].UserID)
	assert.Greater(t, candidates[0].Score.Total, candidates[1].Score.Total)
}

func TestFindMatchesSuppressesHiddenCandidates(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedLocation("me", 37.7749, -122.4194)
	fx.seedLocation("hidden", 37.7760, -122.4194)

	_, _, err := fx.svc.privacy.CreateZone(context.Background(), "hidden", CreateZoneInput{
		Name: "home", Latitude: 37.7760, Longitude: -122.4194, RadiusMeters: 500,
	})
	require.NoError(t, err)

	candidates, err := fx.svc.FindMatches(context.Background(), "me")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindMatchesAppliesProfileFilters(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedLocation("me", 37.7749, -122.4194)
	fx.seedLocation("young", 37.7760, -122.4194)
	fx.seedLocation("unverified", 37.7761, -122.4194)
	fx.seedLocation("ok", 37.7762, -122.4194)

	fx.matches.prefs["me"] = &models.MatchPreferences{
		UserID: "me", MinAge: 21, VerifiedOnly: true,
	}
	fx.profiles.profiles["young"] = &models.Profile{UserID: "young", Age: 19, Verified: true}
	fx.profiles.profiles["unverified"] = &models.Profile{UserID: "unverified", Age: 30, Verified: false}
	fx.profiles.profiles["ok"] = &models.Profile{UserID: "ok", Age: 30, Verified: true}

	candidates, err := fx.svc.FindMatches(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "ok", candidates[0].UserID)
}

func TestFindMatchesIsRateLimited(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedLocation("me", 37.7749, -122.4194)

	for i := 0; i < 5; i++ {
		_, err := fx.svc.FindMatches(context.Background(), "me")
		require.NoError(t, err)
	}
	_, err := fx.svc.FindMatches(context.Background(), "me")
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

func TestCreateMatchRejectsDuplicatePair(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusPending)

	_, err := fx.svc.CreateMatch(context.Background(), "u1", "u2")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// order does not matter
	_, err = fx.svc.CreateMatch(context.Background(), "u2", "u1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateMatchRejectsSelf(t *testing.T) {
	fx := newMatchingFixture(t)

	_, err := fx.svc.CreateMatch(context.Background(), "u1", "u1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAcceptMatchTransitionsPending(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusPending)

	match, err := fx.svc.AcceptMatch(context.Background(), "u2", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusAccepted, match.Status)
	assert.Equal(t, 2, match.Version)
}

func TestTransitionRejectsNonParticipant(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusPending)

	_, err := fx.svc.AcceptMatch(context.Background(), "stranger", "m1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = fx.svc.GetMatch(context.Background(), "stranger", "m1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestBlockedMatchIsTerminal(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusBlocked)

	_, err := fx.svc.AcceptMatch(context.Background(), "u1", "m1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = fx.svc.BlockMatch(context.Background(), "u1", "m1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestBlockFromAcceptedSucceeds(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusAccepted)

	match, err := fx.svc.BlockMatch(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusBlocked, match.Status)
}

func TestAcceptAfterDeclineConflicts(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusDeclined)

	_, err := fx.svc.AcceptMatch(context.Background(), "u1", "m1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestConcurrentTransitionLosesOnStaleVersion(t *testing.T) {
	fx := newMatchingFixture(t)
	seeded := fx.seedMatch("m1", "u1", "u2", models.MatchStatusPending)
	staleVersion := seeded.Version

	// another writer bumps the version between read and write
	_, err := fx.svc.AcceptMatch(context.Background(), "u1", "m1")
	require.NoError(t, err)

	// replaying the original transition against the stale version conflicts
	err = fx.matches.UpdateStatus(context.Background(), "m1", models.MatchStatusDeclined, staleVersion)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestReportMatchCreatesReportWithoutStatusChange(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusAccepted)

	report, err := fx.svc.ReportMatch(context.Background(), "u1", "m1", "harassment")
	require.NoError(t, err)
	assert.Equal(t, "u1", report.ReporterID)
	assert.Equal(t, "u2", report.ReportedID)
	assert.Equal(t, "m1", report.MatchID)

	match, err := fx.svc.GetMatch(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusAccepted, match.Status)
}

func TestReportMatchRequiresReason(t *testing.T) {
	fx := newMatchingFixture(t)
	fx.seedMatch("m1", "u1", "u2", models.MatchStatusAccepted)

	_, err := fx.svc.ReportMatch(context.Background(), "u1", "m1", "   ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, fx.reports.reports)
}

func TestPreferencesDefaultsWhenUnset(t *testing.T) {
	fx := newMatchingFixture(t)

	prefs, err := fx.svc.Preferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, prefs.MaxDistanceKm)
}

func TestUpdatePreferencesValidatesAgeRange(t *testing.T) {
	fx := newMatchingFixture(t)

	err := fx.svc.UpdatePreferences(context.Background(), &models.MatchPreferences{
		UserID: "u1", MinAge: 40, MaxAge: 20,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
