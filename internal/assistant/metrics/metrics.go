// Package metrics exposes diagnostic counters for the assistant subsystem.
// Decode failures and protocol violations are invisible to the user, so the
// counters are the only way to notice them in a running deployment.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesDecoded counts successfully classified inbound frames by kind.
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onesky_assistant_frames_decoded_total",
		Help: "Inbound assistant frames successfully decoded, by frame kind.",
	}, []string{"kind"})

	// DecodeFailures counts payloads that matched no known frame shape.
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onesky_assistant_decode_failures_total",
		Help: "Inbound assistant payloads dropped because they could not be classified.",
	})

	// ProtocolViolations counts frames dropped by the assembler's no-op
	// rules, by violation kind.
	ProtocolViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onesky_assistant_protocol_violations_total",
		Help: "Assistant frames discarded as protocol violations, by kind.",
	}, []string{"kind"})

	// FallbackRequests counts plain request/response sends by outcome.
	FallbackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onesky_assistant_fallback_requests_total",
		Help: "Chat sends routed over the non-streaming HTTP path, by outcome.",
	}, []string{"outcome"})
)
