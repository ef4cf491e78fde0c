package httpapi

import (
	"sync"

	"github.com/probegate/probegate/internal/domain"
)

// Frame is one message on a run's event stream.
type Frame struct {
	Type  string                `json:"type"` // "progress" or "report"
	Event *domain.ProgressEvent `json:"event,omitempty"`
	Run   *domain.Run           `json:"run,omitempty"`
}

// runHub fans a run's ProgressEvents out to any number of stream consumers.
// Late subscribers get the buffered history first, so every consumer sees
// the same ordered sequence ending in the terminal report frame.
type runHub struct {
	mu     sync.Mutex
	buffer []Frame
	subs   map[chan Frame]struct{}
	closed bool
}

func newRunHub() *runHub {
	return &runHub{subs: make(map[chan Frame]struct{})}
}

// Publish appends a progress frame and delivers it to live subscribers.
// A subscriber that cannot keep up has the frame dropped; stream delivery
// never blocks the runner.
func (h *runHub) Publish(ev domain.ProgressEvent) {
	h.frame(Frame{Type: "progress", Event: &ev})
}

// Finish delivers the terminal report frame and closes all subscriptions.
func (h *runHub) Finish(run *domain.Run) {
	h.frame(Frame{Type: "report", Run: run})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

func (h *runHub) frame(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.buffer = append(h.buffer, f)
	for ch := range h.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// Subscribe returns a channel that replays the buffered frames and then
// follows live ones. The channel is closed by Finish, or immediately after
// the replay when the hub already finished. Call Unsubscribe when done.
func (h *runHub) Subscribe() chan Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Frame, 256+len(h.buffer))
	for _, f := range h.buffer {
		ch <- f
	}
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *runHub) Unsubscribe(ch chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}
