package services

import (
	"math"

	"disco-backend/internal/models"
)

// Composite score weights. They sum to 0.8, not 1.0: the maximum
// achievable total is 80 even though subscores run 0-100. Stored scores
// depend on these exact values.
const (
	weightDistance      = 0.3
	weightActivityTypes = 0.3
	weightAvailability  = 0.2
)

// neutralScore is used when a subscore has no signal (unknown distance or an
// empty preference set on either side).
const neutralScore = 50

// scoreMatch computes the composite score for a candidate pair. distanceKm
// may be negative to mean "unknown distance".
func scoreMatch(requester, candidate *models.MatchPreferences, distanceKm float64) models.MatchScore {
	if requester == nil {
		requester = &models.MatchPreferences{}
	}
	if candidate == nil {
		candidate = &models.MatchPreferences{}
	}
	distanceScore := scoreDistance(distanceKm)
	activityScore := scoreSetOverlapJaccard(requester.ActivityTypes, candidate.ActivityTypes)
	availabilityScore := scoreSetOverlapMax(requester.Availability, candidate.Availability)

	total := int(math.Round(
		float64(distanceScore)*weightDistance +
			float64(activityScore)*weightActivityTypes +
			float64(availabilityScore)*weightAvailability,
	))

	return models.MatchScore{
		Total:         total,
		Distance:      int(math.Round(float64(distanceScore) * weightDistance)),
		Interests:     int(math.Round(float64(activityScore) * weightActivityTypes)),
		Availability:  int(math.Round(float64(availabilityScore) * weightAvailability)),
		ActivityTypes: int(math.Round(float64(activityScore) * weightActivityTypes)),
	}
}

// scoreDistance maps kilometers to 0-100: full marks at 1km or closer, zero
// at 50km or farther, linear in between.
func scoreDistance(distanceKm float64) int {
	switch {
	case distanceKm < 0:
		return neutralScore
	case distanceKm <= 1:
		return 100
	case distanceKm >= 50:
		return 0
	default:
		return int(math.Round(100 - (distanceKm/50)*100))
	}
}

// scoreSetOverlapJaccard scores shared members over the union of both sets.
// Either side empty is neutral.
func scoreSetOverlapJaccard(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return neutralScore
	}
	setA := toSet(a)
	setB := toSet(b)

	common := 0
	union := len(setA)
	for item := range setB {
		if _, ok := setA[item]; ok {
			common++
		} else {
			union++
		}
	}
	return int(math.Round(float64(common) / float64(union) * 100))
}

// scoreSetOverlapMax scores shared members over the larger set's size.
// Either side empty is neutral.
func scoreSetOverlapMax(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return neutralScore
	}
	setA := toSet(a)
	setB := toSet(b)

	common := 0
	for item := range setB {
		if _, ok := setA[item]; ok {
			common++
		}
	}
	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	return int(math.Round(float64(common) / float64(larger) * 100))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
