package tracker

import (
	"math/rand"

	"github.com/google/uuid"
)

// coordSource yields successive coordinates for one unit. The source is
// chosen once when the reporter starts, never per tick.
type coordSource interface {
	// Next returns the unit's current coordinate. ok is false when the
	// source has nothing yet (a device that stopped publishing).
	Next() (lat, lng float64, ok bool)
}

// syntheticSource walks a small random path around a fixed reference
// point. It stands in for device GPS when no live fix is available, so
// the console still has something to show during drills and demos.
type syntheticSource struct {
	lat, lng float64
	rng      *rand.Rand
}

func newSyntheticSource(refLat, refLng float64, seed int64) *syntheticSource {
	rng := rand.New(rand.NewSource(seed))
	return &syntheticSource{
		lat: refLat + (rng.Float64()-0.5)*0.01,
		lng: refLng + (rng.Float64()-0.5)*0.01,
		rng: rng,
	}
}

func (s *syntheticSource) Next() (float64, float64, bool) {
	s.lat += (s.rng.Float64() - 0.5) * 0.0002
	s.lng += (s.rng.Float64() - 0.5) * 0.0002
	return s.lat, s.lng, true
}

// deviceSource reads the latest fix a unit's device published over the
// broker.
type deviceSource struct {
	feed   *DeviceFeed
	unitID uuid.UUID
}

func (s *deviceSource) Next() (float64, float64, bool) {
	fix, ok := s.feed.Latest(s.unitID)
	if !ok {
		return 0, 0, false
	}
	return fix.Lat, fix.Lng, true
}
