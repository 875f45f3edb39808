package services

import (
	"os"
	"strconv"

	"golang.org/x/exp/slices"
)

// DefaultMatchRadiusMeters bounds owner discovery around a departure
// point when MATCH_RADIUS_METERS is not set.
const DefaultMatchRadiusMeters = 10000.0

// CandidateOwner is a boat owner discovered near a departure point.
type CandidateOwner struct {
	OwnerID  uint
	BoatID   uint
	Distance float64 // meters
}

// Matching discovers nearby boat owners for booking fan-out.
type Matching struct {
	geo    *GeoIndex
	boats  BoatStore
	radius float64
}

func NewMatching(geo *GeoIndex, boats BoatStore) *Matching {
	radius := DefaultMatchRadiusMeters
	if v := os.Getenv("MATCH_RADIUS_METERS"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			radius = r
		}
	}
	return &Matching{geo: geo, boats: boats, radius: radius}
}

// Radius returns the configured discovery radius in meters.
func (m *Matching) Radius() float64 { return m.radius }

// FindCandidateOwners returns distinct owner IDs for boats within
// radiusMeters of the point, ordered by distance ascending with ties
// broken by boat ID. radiusMeters <= 0 falls back to the configured
// default. Zero candidates is a valid result, not an error.
func (m *Matching) FindCandidateOwners(lat, lng, radiusMeters float64) ([]CandidateOwner, error) {
	if radiusMeters <= 0 {
		radiusMeters = m.radius
	}

	matches := m.geo.Query(lat, lng, radiusMeters)
	if len(matches) == 0 {
		return nil, nil
	}

	var candidates []CandidateOwner
	var seen []uint
	for _, match := range matches {
		boat, err := m.boats.Get(match.BoatID)
		if err != nil {
			// Index can briefly outlive a deleted boat; skip it.
			continue
		}
		if slices.Contains(seen, boat.OwnerID) {
			continue
		}
		seen = append(seen, boat.OwnerID)
		candidates = append(candidates, CandidateOwner{
			OwnerID:  boat.OwnerID,
			BoatID:   match.BoatID,
			Distance: match.Distance,
		})
	}
	return candidates, nil
}
