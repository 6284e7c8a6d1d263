package gateway

import (
	"sync"

	"github.com/cangate-io/cangate/internal/safety"
)

// MemSegment is an in-memory Segment for tests and bench simulations.
// Frames injected with Inject are delivered to the subscribed handler as
// if they arrived from the wire; published frames are recorded.
type MemSegment struct {
	num uint8

	mu      sync.Mutex
	handler FrameHandler
	sent    []safety.Frame
	closed  chan struct{}
}

var _ Segment = (*MemSegment)(nil)

// NewMemSegment creates a detached in-memory segment with the given bus number.
func NewMemSegment(num uint8) *MemSegment {
	return &MemSegment{
		num:    num,
		closed: make(chan struct{}),
	}
}

func (m *MemSegment) Bus() uint8 {
	return m.num
}

func (m *MemSegment) Subscribe(h FrameHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

func (m *MemSegment) Publish(f safety.Frame) error {
	m.mu.Lock()
	m.sent = append(m.sent, f)
	m.mu.Unlock()
	return nil
}

func (m *MemSegment) Run() error {
	<-m.closed
	return nil
}

func (m *MemSegment) Close() error {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}

// Inject simulates an inbound frame on this segment.
func (m *MemSegment) Inject(f safety.Frame) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		f.Bus = m.num
		h(f)
	}
}

// Sent returns a copy of the frames published on this segment.
func (m *MemSegment) Sent() []safety.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]safety.Frame, len(m.sent))
	copy(out, m.sent)
	return out
}
