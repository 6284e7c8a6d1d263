package gateway

import (
	"fmt"
	"net"

	"github.com/brutella/can"

	"github.com/cangate-io/cangate/internal/safety"
)

// FrameHandler consumes inbound frames from a segment.
type FrameHandler func(safety.Frame)

// Segment is one physical or simulated CAN bus attachment. Implementations
// must deliver inbound frames to the subscribed handler and accept frames
// for transmission.
type Segment interface {
	// Bus returns the segment's bus number within the vehicle profile.
	Bus() uint8

	// Subscribe registers the handler for inbound frames. Must be called
	// before Run.
	Subscribe(h FrameHandler)

	// Publish queues a frame for transmission on this segment.
	Publish(f safety.Frame) error

	// Run pumps inbound frames until the segment is closed.
	Run() error

	// Close detaches from the underlying bus.
	Close() error
}

// socketSegment adapts a SocketCAN interface to the Segment contract.
type socketSegment struct {
	num uint8
	bus *can.Bus
}

// DialSegment opens the named SocketCAN interface as bus number num.
func DialSegment(ifname string, num uint8) (Segment, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("gateway: no such CAN interface %q: %w", ifname, err)
	}

	conn, err := can.NewReadWriteCloserForInterface(iface)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to open %q: %w", ifname, err)
	}

	return &socketSegment{
		num: num,
		bus: can.NewBus(conn),
	}, nil
}

func (s *socketSegment) Bus() uint8 {
	return s.num
}

func (s *socketSegment) Subscribe(h FrameHandler) {
	s.bus.SubscribeFunc(func(cf can.Frame) {
		h(fromCanFrame(s.num, cf))
	})
}

func (s *socketSegment) Publish(f safety.Frame) error {
	return s.bus.Publish(toCanFrame(f))
}

func (s *socketSegment) Run() error {
	return s.bus.ConnectAndPublish()
}

func (s *socketSegment) Close() error {
	return s.bus.Disconnect()
}

func fromCanFrame(bus uint8, cf can.Frame) safety.Frame {
	n := int(cf.Length)
	if n > len(cf.Data) {
		n = len(cf.Data)
	}
	data := make([]byte, n)
	copy(data, cf.Data[:n])
	return safety.Frame{
		Bus:  bus,
		ID:   cf.ID,
		Data: data,
	}
}

func toCanFrame(f safety.Frame) can.Frame {
	cf := can.Frame{
		ID:     f.ID,
		Length: uint8(len(f.Data)),
	}
	if len(f.Data) > len(cf.Data) {
		cf.Length = uint8(len(cf.Data))
	}
	copy(cf.Data[:], f.Data)
	return cf
}
