package services

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Tunis to Bizerte, roughly 60km.
	d := Haversine(36.8065, 10.1815, 37.2744, 9.8739)
	assert.InDelta(t, 59000, d, 4000)

	// Same point is zero.
	assert.Equal(t, 0.0, Haversine(36.8, 10.18, 36.8, 10.18))
}

func TestGeoIndexUpsertAndQuery(t *testing.T) {
	geo := NewGeoIndex()
	now := time.Now()

	geo.Upsert(1, 36.8000, 10.1800, now)
	geo.Upsert(2, 36.8050, 10.1800, now) // ~550m north
	geo.Upsert(3, 37.5000, 10.1800, now) // ~78km away

	matches := geo.Query(36.8000, 10.1800, 10000)
	require.Len(t, matches, 2)

	// Ordered by distance ascending.
	assert.Equal(t, uint(1), matches[0].BoatID)
	assert.Equal(t, uint(2), matches[1].BoatID)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
}

func TestGeoIndexMoveAcrossCells(t *testing.T) {
	geo := NewGeoIndex()
	now := time.Now()

	geo.Upsert(1, 36.8000, 10.1800, now)
	require.Len(t, geo.Query(36.8000, 10.1800, 1000), 1)

	// Move the boat far away; it must leave the old cell entirely.
	geo.Upsert(1, 40.0000, 12.0000, now.Add(time.Second))
	assert.Empty(t, geo.Query(36.8000, 10.1800, 10000))
	require.Len(t, geo.Query(40.0000, 12.0000, 1000), 1)
	assert.Equal(t, 1, geo.Len())
}

func TestGeoIndexStaleUpdateDropped(t *testing.T) {
	geo := NewGeoIndex()
	now := time.Now()

	geo.Upsert(1, 36.8000, 10.1800, now)
	// An older timestamp must not move the boat backwards.
	geo.Upsert(1, 40.0000, 12.0000, now.Add(-time.Minute))

	lat, lng, _, ok := geo.Position(1)
	require.True(t, ok)
	assert.Equal(t, 36.8000, lat)
	assert.Equal(t, 10.1800, lng)
}

func TestGeoIndexRemove(t *testing.T) {
	geo := NewGeoIndex()
	geo.Upsert(1, 36.8, 10.18, time.Now())
	geo.Remove(1)

	_, _, _, ok := geo.Position(1)
	assert.False(t, ok)
	assert.Empty(t, geo.Query(36.8, 10.18, 10000))
	assert.Equal(t, 0, geo.Len())

	// Removing twice is a no-op.
	geo.Remove(1)
}

// Query against a brute-force haversine scan over random positions.
func TestGeoIndexQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	geo := NewGeoIndex()
	now := time.Now()

	type pos struct{ lat, lng float64 }
	boats := make(map[uint]pos)
	for id := uint(1); id <= 300; id++ {
		p := pos{
			lat: 36.5 + rng.Float64(),
			lng: 9.8 + rng.Float64(),
		}
		boats[id] = p
		geo.Upsert(id, p.lat, p.lng, now)
	}

	centerLat, centerLng := 37.0, 10.3
	const radius = 15000.0

	var want []uint
	for id, p := range boats {
		if Haversine(centerLat, centerLng, p.lat, p.lng) <= radius {
			want = append(want, id)
		}
	}

	matches := geo.Query(centerLat, centerLng, radius)
	require.Len(t, matches, len(want))
	for _, m := range matches {
		assert.LessOrEqual(t, m.Distance, radius)
		p := boats[m.BoatID]
		assert.Equal(t, p.lat, m.Lat)
		assert.Equal(t, p.lng, m.Lng)
	}
}

func TestGeoIndexConcurrentAccess(t *testing.T) {
	geo := NewGeoIndex()
	var wg sync.WaitGroup

	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := uint(worker*200 + i + 1)
				geo.Upsert(id, 36.8+float64(i)*0.001, 10.18, time.Now())
			}
		}(worker)
	}
	for reader := 0; reader < 4; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				geo.Query(36.8, 10.18, 5000)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1600, geo.Len())
}
