package safety

import (
	"time"
)

// MonitoredMessage describes one message the watchdog expects to keep
// arriving at a known rate. Immutable once configured.
type MonitoredMessage struct {
	ID          uint32
	Bus         uint8
	Length      int
	FrequencyHz float64
}

// WatchdogEntry is the mutable tracking state for one MonitoredMessage.
type WatchdogEntry struct {
	Msg      MonitoredMessage
	LastSeen time.Time
	Seen     bool
	Stale    bool
}

// Watchdog tracks message freshness for a fixed monitored set and detects
// the presence of the stock actuator's own messages on the bus.
//
// Observe is called for every inbound frame; Check is driven once per
// control cycle, strictly after frame processing for that cycle.
type Watchdog struct {
	entries   []WatchdogEntry
	stockIDs  map[uint32]struct{}
	tolerance float64
	start     time.Time
	fault     bool
}

// NewWatchdog builds a watchdog over the given monitored set. A message
// never observed since init is treated as stale relative to the init time,
// so the tolerance window starts running immediately.
func NewWatchdog(set []MonitoredMessage, stockIDs []uint32, tolerance float64, now time.Time) *Watchdog {
	w := &Watchdog{
		entries:   make([]WatchdogEntry, len(set)),
		stockIDs:  make(map[uint32]struct{}, len(stockIDs)),
		tolerance: tolerance,
		start:     now,
	}
	for i, m := range set {
		w.entries[i] = WatchdogEntry{Msg: m}
	}
	for _, id := range stockIDs {
		w.stockIDs[id] = struct{}{}
	}
	return w
}

// Observe records the arrival of a frame. Frames whose length does not
// match the monitored descriptor are not counted as fresh. Timestamps are
// kept monotonically non-decreasing.
func (w *Watchdog) Observe(bus uint8, id uint32, length int, now time.Time) {
	for i := range w.entries {
		e := &w.entries[i]
		if e.Msg.ID != id || e.Msg.Bus != bus || e.Msg.Length != length {
			continue
		}
		if !e.Seen || now.After(e.LastSeen) {
			e.LastSeen = now
		}
		e.Seen = true
	}
}

// StockMessage reports whether the identifier belongs to the reserved
// stock-actuator set. Pure membership, not time based.
func (w *Watchdog) StockMessage(id uint32) bool {
	_, ok := w.stockIDs[id]
	return ok
}

// Check evaluates staleness for every entry at the given time and returns
// true if any monitored message has dropped out. An entry is stale when
// the elapsed time since it was last seen (or since init, if never seen)
// exceeds tolerance periods of its expected frequency.
func (w *Watchdog) Check(now time.Time) bool {
	fault := false
	for i := range w.entries {
		e := &w.entries[i]
		ref := w.start
		if e.Seen {
			ref = e.LastSeen
		}
		limit := w.tolerance / e.Msg.FrequencyHz
		e.Stale = now.Sub(ref).Seconds() > limit
		if e.Stale {
			fault = true
		}
	}
	w.fault = fault
	return fault
}

// Fault returns the result of the most recent Check.
func (w *Watchdog) Fault() bool {
	return w.fault
}

// Entries returns a copy of the current tracking state for diagnostics.
func (w *Watchdog) Entries() []WatchdogEntry {
	out := make([]WatchdogEntry, len(w.entries))
	copy(out, w.entries)
	return out
}
