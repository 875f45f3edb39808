package services

import (
	"math"
	"sort"
	"sync"
	"time"
)

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two
// points on a spherical earth. All radius comparisons in the geo index
// use this same formula so the boundary behavior stays consistent.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0
	la1 := lat1 * math.Pi / 180.0
	la2 := lat2 * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(la1)*math.Cos(la2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// geoCellDegrees is the side of a grid cell. 0.05° latitude is about
// 5.5 km, so marina-scale queries touch only a handful of cells.
const geoCellDegrees = 0.05

type geoCell struct {
	latIdx int
	lngIdx int
}

type geoEntry struct {
	boatID    uint
	lat       float64
	lng       float64
	updatedAt time.Time
	cell      geoCell
}

// GeoMatch is one boat returned by a radius query.
type GeoMatch struct {
	BoatID   uint
	Lat      float64
	Lng      float64
	Distance float64 // meters
}

// GeoIndex keeps the last known position of every boat in a bucketed
// grid so radius queries only scan nearby cells. Upserts are atomic per
// boat: a concurrent query sees either the old or the new position,
// never a half-applied one.
type GeoIndex struct {
	mu    sync.RWMutex
	boats map[uint]*geoEntry
	cells map[geoCell]map[uint]*geoEntry
}

func NewGeoIndex() *GeoIndex {
	return &GeoIndex{
		boats: make(map[uint]*geoEntry),
		cells: make(map[geoCell]map[uint]*geoEntry),
	}
}

func cellFor(lat, lng float64) geoCell {
	return geoCell{
		latIdx: int(math.Floor(lat / geoCellDegrees)),
		lngIdx: int(math.Floor(lng / geoCellDegrees)),
	}
}

// Upsert records the boat's latest position, overwriting any previous
// one. Stale updates (older than the stored timestamp) are dropped.
func (g *GeoIndex) Upsert(boatID uint, lat, lng float64, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.boats[boatID]; ok {
		if at.Before(prev.updatedAt) {
			return
		}
		delete(g.cells[prev.cell], boatID)
	}

	entry := &geoEntry{boatID: boatID, lat: lat, lng: lng, updatedAt: at, cell: cellFor(lat, lng)}
	g.boats[boatID] = entry
	bucket, ok := g.cells[entry.cell]
	if !ok {
		bucket = make(map[uint]*geoEntry)
		g.cells[entry.cell] = bucket
	}
	bucket[boatID] = entry
}

// Remove drops a boat from the index (boat deleted by admin).
func (g *GeoIndex) Remove(boatID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.boats[boatID]; ok {
		delete(g.cells[prev.cell], boatID)
		delete(g.boats, boatID)
	}
}

// Position returns the last known point for a boat.
func (g *GeoIndex) Position(boatID uint) (lat, lng float64, at time.Time, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, found := g.boats[boatID]
	if !found {
		return 0, 0, time.Time{}, false
	}
	return entry.lat, entry.lng, entry.updatedAt, true
}

// Query returns every boat within radiusMeters of the point, ordered by
// distance ascending with ties broken by boat ID.
func (g *GeoIndex) Query(lat, lng, radiusMeters float64) []GeoMatch {
	if radiusMeters <= 0 {
		return nil
	}

	// Degrees spanned by the radius; the longitude span widens away
	// from the equator.
	latSpan := radiusMeters / 111320.0
	cosLat := math.Cos(lat * math.Pi / 180.0)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngSpan := radiusMeters / (111320.0 * cosLat)

	// Cell indexes do not wrap at the +-180 meridian, so a query window
	// straddling it misses boats on the far side. Fine for a coastal
	// service area nowhere near the antimeridian.
	minCell := cellFor(lat-latSpan, lng-lngSpan)
	maxCell := cellFor(lat+latSpan, lng+lngSpan)

	g.mu.RLock()
	var matches []GeoMatch
	for latIdx := minCell.latIdx; latIdx <= maxCell.latIdx; latIdx++ {
		for lngIdx := minCell.lngIdx; lngIdx <= maxCell.lngIdx; lngIdx++ {
			for _, entry := range g.cells[geoCell{latIdx: latIdx, lngIdx: lngIdx}] {
				d := Haversine(lat, lng, entry.lat, entry.lng)
				if d <= radiusMeters {
					matches = append(matches, GeoMatch{
						BoatID:   entry.boatID,
						Lat:      entry.lat,
						Lng:      entry.lng,
						Distance: d,
					})
				}
			}
		}
	}
	g.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].BoatID < matches[j].BoatID
	})
	return matches
}

// All snapshots every tracked boat, ordered by boat ID. Distance is
// zero since there is no reference point.
func (g *GeoIndex) All() []GeoMatch {
	g.mu.RLock()
	matches := make([]GeoMatch, 0, len(g.boats))
	for boatID, entry := range g.boats {
		matches = append(matches, GeoMatch{BoatID: boatID, Lat: entry.lat, Lng: entry.lng})
	}
	g.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].BoatID < matches[j].BoatID
	})
	return matches
}

// Len reports how many boats the index currently tracks.
func (g *GeoIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.boats)
}
