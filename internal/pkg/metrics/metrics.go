package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the project-wide metrics registry, served by the
// diagnostics HTTP server.
var Registry = prometheus.NewRegistry()

var (
	// FramesForwardedTotal counts frames relayed between segments.
	FramesForwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cangate_frames_forwarded_total",
			Help: "Total number of CAN frames forwarded between bus segments.",
		},
		[]string{"source", "destination"},
	)

	// FramesDroppedTotal counts frames blocked by the forwarding policy.
	// reason: stock-suppressed, policy, overflow
	FramesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cangate_frames_dropped_total",
			Help: "Total number of CAN frames dropped by the gateway.",
		},
		[]string{"reason"},
	)

	// CommandsBlockedTotal counts outgoing commands that failed a safety check.
	// reason: inactive-command, absolute-limit, rate-limit, allowlist-mismatch
	CommandsBlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cangate_commands_blocked_total",
			Help: "Total number of outgoing commands rejected by the safety validator.",
		},
		[]string{"reason"},
	)

	// CommandViolationsTotal counts violations including advisory-only ones.
	CommandViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cangate_command_violations_total",
			Help: "Total number of limit violations computed, whether or not enforced.",
		},
		[]string{"reason"},
	)

	// WatchdogFault is 1 while any monitored message is stale.
	WatchdogFault = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cangate_watchdog_fault",
			Help: "Whether any monitored message is currently stale (1=fault).",
		},
	)

	// ControlsAllowed is 1 while command injection is permitted.
	ControlsAllowed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cangate_controls_allowed",
			Help: "Whether command injection is currently permitted (1=allowed).",
		},
	)

	// FrameProcessingSeconds observes per-frame handling latency in the
	// relay loop.
	FrameProcessingSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cangate_frame_processing_seconds",
			Help:    "Latency of processing one inbound frame through the safety engine.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		FramesForwardedTotal,
		FramesDroppedTotal,
		CommandsBlockedTotal,
		CommandViolationsTotal,
		WatchdogFault,
		ControlsAllowed,
		FrameProcessingSeconds,
	)
}
