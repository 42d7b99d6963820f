package services

import (
	"math"
	"sort"
	"strings"

	"vibin_matchcore/models"
)

// Distance bands shown instead of exact distances.
const (
	BandNearby  = "nearby"       // < 5 km
	BandClose   = "close"        // < 25 km
	BandArea    = "in your area" // < 100 km
	BandFarAway = "far away"
)

// Compatibility scores two profiles for display. It is recomputed on every
// listing and never persisted.
func Compatibility(me, other *models.UserProfile) *models.Compatibility {
	if me == nil || other == nil {
		return nil
	}
	c := &models.Compatibility{SharedInterests: sharedInterests(me.Interests, other.Interests)}

	score := math.Min(float64(len(c.SharedInterests))*10, 50)
	if me.LookingFor != "" && strings.EqualFold(me.LookingFor, other.LookingFor) {
		score += 20
	}
	if me.Orientation != "" && strings.EqualFold(me.Orientation, other.Orientation) {
		score += 10
	}

	if me.HasLocation() && other.HasLocation() {
		km := haversineDistance(me.Latitude, me.Longitude, other.Latitude, other.Longitude)
		rounded := math.Round(km*10) / 10
		c.DistanceKm = &rounded
		c.DistanceBand = distanceBand(km)
		switch c.DistanceBand {
		case BandNearby:
			score += 20
		case BandClose:
			score += 15
		case BandArea:
			score += 10
		}
	}

	c.Score = math.Min(score, 100)
	return c
}

func sharedInterests(a, b []string) []string {
	theirs := make(map[string]bool, len(b))
	for _, s := range b {
		theirs[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var shared []string
	seen := map[string]bool{}
	for _, s := range a {
		key := strings.ToLower(strings.TrimSpace(s))
		if key != "" && theirs[key] && !seen[key] {
			seen[key] = true
			shared = append(shared, key)
		}
	}
	sort.Strings(shared)
	return shared
}

func distanceBand(km float64) string {
	switch {
	case km < 5:
		return BandNearby
	case km < 25:
		return BandClose
	case km < 100:
		return BandArea
	default:
		return BandFarAway
	}
}

// haversineDistance returns the great-circle distance in kilometers.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
