package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the PLDM stack.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// MCTP / PLDM addressing
	// ========================================================================
	KeyEID        = "eid"         // MCTP endpoint id
	KeyTID        = "tid"         // PLDM terminus id
	KeyInstanceID = "instance_id" // PLDM 5-bit instance-id
	KeyPLDMType   = "pldm_type"   // PLDM type (BASE/PLATFORM/BIOS/FRU/FW_UPDATE/OEM)
	KeyCommand    = "command"     // PLDM command code
	KeyCompletion = "completion"  // PLDM completion code

	// ========================================================================
	// PDR repository / entity tree
	// ========================================================================
	KeyRecordHandle  = "record_handle"  // PDR record handle
	KeyPDRType       = "pdr_type"       // PDR type tag
	KeyEntityType    = "entity_type"    // entity type
	KeyEntityInst    = "entity_inst"    // entity instance number
	KeyContainerID   = "container_id"   // entity container id
	KeyTerminusHdl   = "terminus_hdl"   // terminus handle
	KeyRemote        = "remote"         // whether a PDR/entity is host-sourced
	KeyRecordCount   = "record_count"   // repository record count
	KeyRepoSizeBytes = "repo_size"      // repository total byte size

	// ========================================================================
	// Effecters / sensors
	// ========================================================================
	KeyEffecterID    = "effecter_id"
	KeySensorID      = "sensor_id"
	KeyStateSetID    = "state_set_id"
	KeySensorOffset  = "sensor_offset"
	KeyPropertyName  = "property_name"
	KeyObjectPath    = "object_path"
	KeyRawValue      = "raw_value"
	KeyEffecterState = "effecter_state"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Transport / storage
	// ========================================================================
	KeyBytes     = "bytes"
	KeyBucket    = "bucket"   // S3 bucket for OEM file transfer
	KeyObjectKey = "object_key"
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }
func SpanID(id string) slog.Attr  { return slog.String(KeySpanID, id) }

// ----------------------------------------------------------------------------
// MCTP / PLDM addressing
// ----------------------------------------------------------------------------

func EID(eid uint8) slog.Attr           { return slog.Any(KeyEID, eid) }
func TID(tid uint8) slog.Attr           { return slog.Any(KeyTID, tid) }
func InstanceID(iid uint8) slog.Attr    { return slog.Any(KeyInstanceID, iid) }
func PLDMType(t uint8) slog.Attr        { return slog.Any(KeyPLDMType, t) }
func Command(cmd uint8) slog.Attr       { return slog.Any(KeyCommand, cmd) }
func Completion(code uint8) slog.Attr   { return slog.Any(KeyCompletion, code) }

// ----------------------------------------------------------------------------
// PDR repository / entity tree
// ----------------------------------------------------------------------------

func RecordHandle(h uint32) slog.Attr  { return slog.Uint64(KeyRecordHandle, uint64(h)) }
func PDRType(t uint8) slog.Attr        { return slog.Any(KeyPDRType, t) }
func EntityType(t uint16) slog.Attr    { return slog.Any(KeyEntityType, t) }
func EntityInstance(i uint16) slog.Attr { return slog.Any(KeyEntityInst, i) }
func ContainerID(id uint16) slog.Attr  { return slog.Any(KeyContainerID, id) }
func TerminusHandle(h uint16) slog.Attr { return slog.Any(KeyTerminusHdl, h) }
func Remote(remote bool) slog.Attr     { return slog.Bool(KeyRemote, remote) }
func RecordCount(n int) slog.Attr      { return slog.Int(KeyRecordCount, n) }
func RepoSizeBytes(n int) slog.Attr    { return slog.Int(KeyRepoSizeBytes, n) }

// ----------------------------------------------------------------------------
// Effecters / sensors
// ----------------------------------------------------------------------------

func EffecterID(id uint16) slog.Attr     { return slog.Any(KeyEffecterID, id) }
func SensorID(id uint16) slog.Attr       { return slog.Any(KeySensorID, id) }
func StateSetID(id uint16) slog.Attr     { return slog.Any(KeyStateSetID, id) }
func SensorOffset(off uint8) slog.Attr   { return slog.Any(KeySensorOffset, off) }
func PropertyName(name string) slog.Attr { return slog.String(KeyPropertyName, name) }
func ObjectPath(path string) slog.Attr   { return slog.String(KeyObjectPath, path) }
func RawValue(v int64) slog.Attr         { return slog.Int64(KeyRawValue, v) }
func EffecterState(s uint8) slog.Attr    { return slog.Any(KeyEffecterState, s) }

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func ErrorCode(code int) slog.Attr  { return slog.Int(KeyErrorCode, code) }
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }
func MaxRetries(n int) slog.Attr    { return slog.Int(KeyMaxRetries, n) }

// ----------------------------------------------------------------------------
// Transport / storage
// ----------------------------------------------------------------------------

func Bytes(n int) slog.Attr      { return slog.Int(KeyBytes, n) }
func Bucket(name string) slog.Attr    { return slog.String(KeyBucket, name) }
func ObjectKey(key string) slog.Attr  { return slog.String(KeyObjectKey, key) }
