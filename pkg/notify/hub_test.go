package notify

import (
	"testing"
	"time"
)

func TestNotifyFanOut(t *testing.T) {
	hub := NewHub()
	ch1 := hub.Subscribe(TablePositions)
	ch2 := hub.Subscribe(TablePositions)
	other := hub.Subscribe(TableMessages)

	hub.Notify(TablePositions)

	for i, ch := range []chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive signal", i)
		}
	}

	select {
	case <-other:
		t.Fatal("messages subscriber received positions signal")
	default:
	}
}

func TestNotifyNeverBlocks(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(TableMessages)

	// Nobody is draining; repeated notifies must coalesce, not block.
	for range 10 {
		hub.Notify(TableMessages)
	}

	select {
	case <-ch:
	default:
		t.Fatal("expected one pending signal")
	}
	select {
	case <-ch:
		t.Fatal("signals did not coalesce")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(TablePositions)
	hub.Unsubscribe(TablePositions, ch)

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// Notifying afterwards must not panic on the removed channel.
	hub.Notify(TablePositions)
}
