package httpapi

import (
	"testing"

	"github.com/probegate/probegate/internal/domain"
)

func TestRunHub_ReplaysHistoryToLateSubscribers(t *testing.T) {
	h := newRunHub()
	h.Publish(domain.ProgressEvent{Index: 0, Total: 2})
	h.Publish(domain.ProgressEvent{Index: 1, Total: 2})

	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < 2; i++ {
		f := <-ch
		if f.Type != "progress" || f.Event.Index != i {
			t.Fatalf("replay frame %d wrong: %+v", i, f)
		}
	}
}

func TestRunHub_FinishClosesSubscribers(t *testing.T) {
	h := newRunHub()
	ch := h.Subscribe()

	h.Publish(domain.ProgressEvent{Index: 0, Total: 1})
	h.Finish(&domain.Run{ID: "r", State: domain.StateCompleted})

	var types []string
	for f := range ch {
		types = append(types, f.Type)
	}
	if len(types) != 2 || types[0] != "progress" || types[1] != "report" {
		t.Fatalf("want progress then report then close, got %v", types)
	}
}

func TestRunHub_SubscribeAfterFinishGetsFullHistory(t *testing.T) {
	h := newRunHub()
	h.Publish(domain.ProgressEvent{Index: 0, Total: 1})
	h.Finish(&domain.Run{ID: "r", State: domain.StateCompleted})

	ch := h.Subscribe()
	var types []string
	for f := range ch {
		types = append(types, f.Type)
	}
	if len(types) != 2 || types[1] != "report" {
		t.Fatalf("late subscriber should see everything, got %v", types)
	}
}

func TestRunHub_PublishAfterFinishIsDropped(t *testing.T) {
	h := newRunHub()
	h.Finish(&domain.Run{ID: "r"})
	h.Publish(domain.ProgressEvent{Index: 9})

	ch := h.Subscribe()
	n := 0
	for range ch {
		n++
	}
	if n != 1 {
		t.Fatalf("post-finish publish must be dropped, got %d frames", n)
	}
}
