package safety

// RouteDecision is the outcome of the forwarding policy for one frame:
// either forward to a destination bus or drop.
type RouteDecision struct {
	Forward bool
	Bus     uint8
}

// Drop is the blocking decision.
var Drop = RouteDecision{}

// ForwardTo builds a forwarding decision to the given bus.
func ForwardTo(bus uint8) RouteDecision {
	return RouteDecision{Forward: true, Bus: bus}
}

// Router implements the bus-forwarding policy: a pure, stateless, total
// function of (source bus, identifier) parameterized by the profile's bus
// roles and reserved stock-actuator identifiers.
type Router struct {
	main  uint8
	adas  uint8
	cam   uint8
	stock map[uint32]struct{}
}

// NewRouter builds a router for the given bus roles.
func NewRouter(main, adas, cam uint8, stockIDs []uint32) *Router {
	r := &Router{
		main:  main,
		adas:  adas,
		cam:   cam,
		stock: make(map[uint32]struct{}, len(stockIDs)),
	}
	for _, id := range stockIDs {
		r.stock[id] = struct{}{}
	}
	return r
}

// Route decides the destination for an inbound frame.
//
// Main-bus frames carrying a stock-actuator identifier are dropped so the
// OEM controller's own command cannot fight the injected one; all other
// main traffic is spliced through to the camera bus. Camera traffic is
// returned to main so the rest of the vehicle sees it as if it came from
// the original source. Frames from any other bus, ADAS included, are
// dropped.
func (r *Router) Route(bus uint8, id uint32) RouteDecision {
	switch bus {
	case r.main:
		if _, blocked := r.stock[id]; blocked {
			return Drop
		}
		return ForwardTo(r.cam)
	case r.cam:
		return ForwardTo(r.main)
	default:
		return Drop
	}
}
