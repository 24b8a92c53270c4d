package wire

import "fmt"

// Platform command codes touching state/numeric effecters (DSP0248 §6.3,
// spec §6.3).
const (
	CmdSetStateEffecterStates   uint8 = 0x39
	CmdSetNumericEffecterValue  uint8 = 0x31
	CmdGetNumericEffecterValue  uint8 = 0x32
	CmdSetNumericEffecterEnable uint8 = 0x30
	CmdGetStateSensorReadings   uint8 = 0x21
)

// Effecter/sensor operational states (DSP0248 Table 26).
const (
	EffecterOperEnabledUpdatePending   uint8 = 0
	EffecterOperEnabledNoUpdatePending uint8 = 1
	EffecterOperDisabled               uint8 = 2
	EffecterOperUnavailable            uint8 = 3
	EffecterOperStatusUnknown          uint8 = 4
	EffecterOperFailed                 uint8 = 5
	EffecterOperInitializing           uint8 = 6
	EffecterOperShuttingDown           uint8 = 7
	EffecterOperInTest                 uint8 = 8
)

// set_request_set (DSP0248 Table 35): the only two values SetStateEffecterStates
// uses in this stack (no-op fields are never exercised beyond PLDM_NO_CHANGE).
const (
	RequestSet uint8 = 1
	NoChange   uint8 = 0
)

// StateField is one (set_request, effecter_state) pair in a
// SetStateEffecterStates composite request (DSP0248 Table 34).
type StateField struct {
	RequestSet uint8
	State      uint8
}

// EncodeSetStateEffecterStatesReq builds the request body: effecter_id(u16)
// ‖ composite_effecter_count(u8) ‖ field[composite_effecter_count] where each
// field is (set_request(u8), effecter_state(u8)).
func EncodeSetStateEffecterStatesReq(effecterID uint16, fields []StateField) ([]byte, error) {
	if len(fields) == 0 || len(fields) > 8 {
		return nil, fmt.Errorf("wire: composite effecter count %d out of range", len(fields))
	}
	body := make([]byte, 2+1+2*len(fields))
	PutUint16(body[0:2], effecterID)
	body[2] = uint8(len(fields))
	for i, f := range fields {
		body[3+2*i] = f.RequestSet
		body[3+2*i+1] = f.State
	}
	return body, nil
}

// DecodeSetStateEffecterStatesReq parses the body EncodeSetStateEffecterStatesReq
// produces, as seen by the responder side.
func DecodeSetStateEffecterStatesReq(body []byte) (effecterID uint16, fields []StateField, err error) {
	if len(body) < 3 {
		return 0, nil, fmt.Errorf("wire: SetStateEffecterStates body too short: %d bytes", len(body))
	}
	effecterID, err = Uint16(body[0:2])
	if err != nil {
		return 0, nil, err
	}
	count := int(body[2])
	if count == 0 || count > 8 {
		return 0, nil, fmt.Errorf("wire: composite effecter count %d out of range", count)
	}
	if len(body) < 3+2*count {
		return 0, nil, fmt.Errorf("wire: SetStateEffecterStates body too short for %d fields", count)
	}
	fields = make([]StateField, count)
	for i := 0; i < count; i++ {
		fields[i] = StateField{RequestSet: body[3+2*i], State: body[3+2*i+1]}
	}
	return effecterID, fields, nil
}

// EncodeSetNumericEffecterValueReq builds the request body: effecter_id(u16)
// ‖ effecter_data_size(u8) ‖ raw value, encoded at the width dataSize names
// (DSP0248 Table 34: 0=u8, 1=s8, 2=u16, 3=s16, 4=u32, 5=s32).
func EncodeSetNumericEffecterValueReq(effecterID uint16, dataSize uint8, raw int64) ([]byte, error) {
	width, err := numericWidth(dataSize)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 2+1+width)
	PutUint16(body[0:2], effecterID)
	body[2] = dataSize
	putNumeric(body[3:], dataSize, raw)
	return body, nil
}

// DecodeSetNumericEffecterValueReq parses the body EncodeSetNumericEffecterValueReq
// produces.
func DecodeSetNumericEffecterValueReq(body []byte) (effecterID uint16, dataSize uint8, raw int64, err error) {
	if len(body) < 3 {
		return 0, 0, 0, fmt.Errorf("wire: SetNumericEffecterValue body too short: %d bytes", len(body))
	}
	effecterID, err = Uint16(body[0:2])
	if err != nil {
		return 0, 0, 0, err
	}
	dataSize = body[2]
	width, err := numericWidth(dataSize)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(body) < 3+width {
		return 0, 0, 0, fmt.Errorf("wire: SetNumericEffecterValue body too short for data size %d", dataSize)
	}
	raw = getNumeric(body[3:], dataSize)
	return effecterID, dataSize, raw, nil
}

// EncodeSetNumericEffecterEnableReq builds the request body: effecter_id(u16)
// ‖ effecter_operational_state(u8). operState is written as given; this
// stack's writer only ever requests enabled-update-pending or disabled
// (spec §4.4.4).
func EncodeSetNumericEffecterEnableReq(effecterID uint16, operState uint8) []byte {
	body := make([]byte, 3)
	PutUint16(body[0:2], effecterID)
	body[2] = operState
	return body
}

// DecodeSetNumericEffecterEnableReq parses the body EncodeSetNumericEffecterEnableReq
// produces.
func DecodeSetNumericEffecterEnableReq(body []byte) (effecterID uint16, operState uint8, err error) {
	if len(body) < 3 {
		return 0, 0, fmt.Errorf("wire: SetNumericEffecterEnable body too short: %d bytes", len(body))
	}
	effecterID, err = Uint16(body[0:2])
	if err != nil {
		return 0, 0, err
	}
	return effecterID, body[2], nil
}

// EncodeGetNumericEffecterValueReq builds the request body: effecter_id(u16).
func EncodeGetNumericEffecterValueReq(effecterID uint16) []byte {
	body := make([]byte, 2)
	PutUint16(body, effecterID)
	return body
}

// DecodeGetNumericEffecterValueReq parses the body EncodeGetNumericEffecterValueReq
// produces.
func DecodeGetNumericEffecterValueReq(body []byte) (effecterID uint16, err error) {
	if len(body) < 2 {
		return 0, fmt.Errorf("wire: GetNumericEffecterValue body too short: %d bytes", len(body))
	}
	return Uint16(body)
}

// EncodeGetNumericEffecterValueResp builds the response body:
// effecter_data_size(u8) ‖ effecter_operational_state(u8) ‖ present_value ‖
// pending_value, both encoded at dataSize's width.
func EncodeGetNumericEffecterValueResp(dataSize, operState uint8, present, pending int64) ([]byte, error) {
	width, err := numericWidth(dataSize)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 2+2*width)
	body[0] = dataSize
	body[1] = operState
	putNumeric(body[2:], dataSize, present)
	putNumeric(body[2+width:], dataSize, pending)
	return body, nil
}

// DecodeGetNumericEffecterValueResp parses the body EncodeGetNumericEffecterValueResp
// produces.
func DecodeGetNumericEffecterValueResp(body []byte) (dataSize, operState uint8, present, pending int64, err error) {
	if len(body) < 2 {
		return 0, 0, 0, 0, fmt.Errorf("wire: GetNumericEffecterValue response too short: %d bytes", len(body))
	}
	dataSize = body[0]
	operState = body[1]
	width, err := numericWidth(dataSize)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if len(body) < 2+2*width {
		return 0, 0, 0, 0, fmt.Errorf("wire: GetNumericEffecterValue response too short for data size %d", dataSize)
	}
	present = getNumeric(body[2:], dataSize)
	pending = getNumeric(body[2+width:], dataSize)
	return dataSize, operState, present, pending, nil
}

func numericWidth(dataSize uint8) (int, error) {
	switch dataSize {
	case 0, 1:
		return 1, nil
	case 2, 3:
		return 2, nil
	case 4, 5:
		return 4, nil
	default:
		return 0, fmt.Errorf("wire: unknown effecter data size %d", dataSize)
	}
}

func putNumeric(buf []byte, dataSize uint8, v int64) {
	switch dataSize {
	case 0, 1:
		buf[0] = byte(v)
	case 2, 3:
		PutUint16(buf, uint16(v))
	case 4, 5:
		PutUint32(buf, uint32(v))
	}
}

func getNumeric(buf []byte, dataSize uint8) int64 {
	switch dataSize {
	case 0:
		return int64(buf[0])
	case 1:
		return int64(int8(buf[0]))
	case 2:
		v, _ := Uint16(buf)
		return int64(v)
	case 3:
		v, _ := Uint16(buf)
		return int64(int16(v))
	case 4:
		v, _ := Uint32(buf)
		return int64(v)
	case 5:
		v, _ := Uint32(buf)
		return int64(int32(v))
	default:
		return 0
	}
}
