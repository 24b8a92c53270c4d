package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for one PLDM exchange.
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	EID        uint8     // MCTP endpoint id the message is addressed to/from
	InstanceID uint8     // PLDM instance-id (5 bits, 0..31)
	Type       uint8     // PLDM type (BASE/PLATFORM/BIOS/FRU/FW_UPDATE/OEM)
	Command    uint8     // PLDM command code
	TID        uint8     // PLDM terminus id, 0xFF if unknown
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a request addressed to eid.
func NewLogContext(eid uint8) *LogContext {
	return &LogContext{
		EID:       eid,
		TID:       0xFF,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithCommand returns a copy with type/command set
func (lc *LogContext) WithCommand(pldmType, command uint8) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Type = pldmType
		clone.Command = command
	}
	return clone
}

// WithInstanceID returns a copy with the instance-id set
func (lc *LogContext) WithInstanceID(instanceID uint8) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.InstanceID = instanceID
	}
	return clone
}

// WithTID returns a copy with the terminus id set
func (lc *LogContext) WithTID(tid uint8) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TID = tid
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
