// Package metrics records Prometheus metrics for the MCTP request/response
// engine, the PDR repository, and the effecter write pipeline.
//
// Mirrors the teacher's pkg/metrics shape: an interface consumers hold, with
// a nil value meaning "collection disabled, zero overhead" rather than a
// boolean flag threaded through every call site.
package metrics

import "time"

// Recorder records pldmd's observable events. A nil *PrometheusMetrics (the
// only implementation) is valid and every method on it is a no-op, so callers can
// unconditionally call through it without checking for nil themselves.
type Recorder interface {
	// RecordRequest records one completed MCTP request/response round trip.
	RecordRequest(pldmType uint8, command uint8, duration time.Duration, completionCode uint8)

	// RecordRequestTimeout records a request that was never answered before
	// its deadline (spec §4.2 per-command timeouts).
	RecordRequestTimeout(pldmType uint8, command uint8)

	// SetInFlightRequests reports the current number of outstanding
	// requests awaiting a response.
	SetInFlightRequests(count int)

	// RecordRepositorySize reports the PDR repository's current record
	// count and total body byte size (spec §3.2).
	RecordRepositorySize(records int, bytes int)

	// RecordEffecterWrite records one effecter write attempt and its
	// outcome ("success", "validation_failed", "send_failed").
	RecordEffecterWrite(effecterID uint16, outcome string)

	// SetActiveHosts reports the number of MCTP endpoints currently marked
	// up by the host-sync probe (spec §4.3.1).
	SetActiveHosts(count int)
}
