package tracker

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func TestSyntheticSourceStaysNearReference(t *testing.T) {
	const refLat, refLng = -33.4489, -70.6483
	src := newSyntheticSource(refLat, refLng, 42)

	for i := 0; i < 100; i++ {
		lat, lng, ok := src.Next()
		if !ok {
			t.Fatal("synthetic source reported no coordinate")
		}
		if math.Abs(lat-refLat) > 0.1 || math.Abs(lng-refLng) > 0.1 {
			t.Fatalf("step %d wandered too far: %f, %f", i, lat, lng)
		}
	}
}

func TestSyntheticSourceDeterministicPerSeed(t *testing.T) {
	a := newSyntheticSource(0, 0, 7)
	b := newSyntheticSource(0, 0, 7)

	for i := 0; i < 10; i++ {
		alat, alng, _ := a.Next()
		blat, blng, _ := b.Next()
		if alat != blat || alng != blng {
			t.Fatalf("step %d diverged between identical seeds", i)
		}
	}
}

func TestDeviceFeedInitRejectsMissingStore(t *testing.T) {
	feed := &DeviceFeed{}
	feed.Log = slog.Default()
	if err := feed.Init(&DeviceFeedOptions{Identities: nil}); err == nil {
		t.Fatal("expected init to reject a nil identity store")
	}
}

func TestDeviceSourceFollowsFeed(t *testing.T) {
	unitID := uuid.New()
	feed := &DeviceFeed{latest: map[uuid.UUID]Fix{}}
	src := &deviceSource{feed: feed, unitID: unitID}

	if _, _, ok := src.Next(); ok {
		t.Fatal("device source yielded a coordinate before any fix")
	}

	feed.latest[unitID] = Fix{Lat: -33.45, Lng: -70.65}
	lat, lng, ok := src.Next()
	if !ok || lat != -33.45 || lng != -70.65 {
		t.Fatalf("got %f, %f, %v", lat, lng, ok)
	}
}
