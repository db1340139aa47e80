package hub

import "github.com/tailored-agentic-units/recommender/orchestrate/messaging"

// history is a fixed-capacity ring of delivered messages. Callers hold the
// hub mutex.
type history struct {
	buf   []*messaging.Message
	start int
	count int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 1
	}
	return &history{buf: make([]*messaging.Message, capacity)}
}

func (h *history) append(msg *messaging.Message) {
	if h.count < len(h.buf) {
		h.buf[(h.start+h.count)%len(h.buf)] = msg
		h.count++
		return
	}
	h.buf[h.start] = msg
	h.start = (h.start + 1) % len(h.buf)
}

// snapshot returns the retained messages oldest first.
func (h *history) snapshot() []*messaging.Message {
	out := make([]*messaging.Message, h.count)
	for i := range h.count {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *history) len() int {
	return h.count
}
