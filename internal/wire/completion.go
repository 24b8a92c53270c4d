package wire

import "fmt"

// Completion codes common to every PLDM type (DSP0240 Table 7, spec §4.6/§7).
const (
	Success              uint8 = 0x00
	Error                uint8 = 0x01
	ErrorInvalidData     uint8 = 0x02
	ErrorInvalidLength   uint8 = 0x03
	ErrorNotReady        uint8 = 0x04
	ErrorUnsupportedCmd  uint8 = 0x05
	ErrorInvalidPLDMType uint8 = 0x20
)

// File-I/O completion code extensions used by the IBM OEM file transfer
// commands (spec §4.6, original_source/oem/ibm/libpldm/file_io.h).
const (
	ErrorInvalidFileHandle  uint8 = 0x80
	ErrorDataOutOfRange     uint8 = 0x81
	ErrorInvalidReadLength  uint8 = 0x82
	ErrorInvalidWriteLength uint8 = 0x83
)

// CompletionError wraps a non-success completion code so responder code can
// recover it with errors.As instead of inventing a second error channel for
// protocol-level failures (spec §7, "Protocol" error kind).
type CompletionError struct {
	CompletionCode uint8
	Msg            string
}

func (e *CompletionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("pldm completion 0x%02x: %s", e.CompletionCode, e.Msg)
	}
	return fmt.Sprintf("pldm completion 0x%02x", e.CompletionCode)
}

// NewCompletionError constructs a CompletionError.
func NewCompletionError(code uint8, msg string) error {
	return &CompletionError{CompletionCode: code, Msg: msg}
}

// CompletionCodeName returns a human-readable name for well-known codes, or
// a generic fallback.
func CompletionCodeName(code uint8) string {
	switch code {
	case Success:
		return "SUCCESS"
	case Error:
		return "ERROR"
	case ErrorInvalidData:
		return "ERROR_INVALID_DATA"
	case ErrorInvalidLength:
		return "ERROR_INVALID_LENGTH"
	case ErrorNotReady:
		return "ERROR_NOT_READY"
	case ErrorUnsupportedCmd:
		return "ERROR_UNSUPPORTED_PLDM_CMD"
	case ErrorInvalidPLDMType:
		return "ERROR_INVALID_PLDM_TYPE"
	case ErrorInvalidFileHandle:
		return "INVALID_FILE_HANDLE"
	case ErrorDataOutOfRange:
		return "DATA_OUT_OF_RANGE"
	case ErrorInvalidReadLength:
		return "INVALID_READ_LENGTH"
	case ErrorInvalidWriteLength:
		return "INVALID_WRITE_LENGTH"
	default:
		return fmt.Sprintf("0x%02x", code)
	}
}
