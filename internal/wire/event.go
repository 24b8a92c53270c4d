package wire

import "fmt"

// PlatformEventMessage command code and event-format tags (DSP0248 §16.1,
// spec §4.5).
const (
	CmdPlatformEventMessage uint8 = 0x0A

	EventFormatSensorEvent           uint8 = 0x00
	EventFormatEffecterEvent         uint8 = 0x05
	EventFormatStateSensorEvent      uint8 = 0x01
	EventFormatPDRRepositoryChgEvent uint8 = 0x0C
)

// PDRRepositoryChgEvent operation codes (DSP0248 Table 17).
const (
	PDRRepoOpRecordsAdded    uint8 = 0
	PDRRepoOpRecordsModified uint8 = 1
	PDRRepoOpRecordsDeleted  uint8 = 2
)

// PDRRepoChangeRecordFormatHandles is the only change-record format this
// stack emits or parses: a flat list of record handles (spec §4.5.2 "the
// payload carries ... the list of merged record handles").
const PDRRepoChangeRecordFormatHandles uint8 = 0x01

// platformEventStatusSuccess is the single status byte this responder ever
// returns on PlatformEventMessage (spec §4.5.1 "acknowledges with completion
// code SUCCESS and a platform_event_status = 0 byte").
const platformEventStatusSuccess uint8 = 0

// EncodePlatformEventMessageReq builds the request body: format(u8) ‖
// event_data[].
func EncodePlatformEventMessageReq(format uint8, eventData []byte) []byte {
	body := make([]byte, 1+len(eventData))
	body[0] = format
	copy(body[1:], eventData)
	return body
}

// DecodePlatformEventMessageReq splits the body into its format tag and
// opaque event-data payload.
func DecodePlatformEventMessageReq(body []byte) (format uint8, eventData []byte, err error) {
	if len(body) < 1 {
		return 0, nil, fmt.Errorf("wire: PlatformEventMessage body too short: %d bytes", len(body))
	}
	return body[0], body[1:], nil
}

// EncodePlatformEventMessageResp builds the fixed 1-byte status response this
// responder always sends on receipt of an event.
func EncodePlatformEventMessageResp() []byte {
	return []byte{platformEventStatusSuccess}
}

// StateSensorEventData is the event_data payload for
// EventFormatStateSensorEvent (DSP0248 Table 20): sensor_id(u16) ‖
// sensor_offset(u8) ‖ event_state(u8) ‖ previous_event_state(u8).
type StateSensorEventData struct {
	SensorID           uint16
	SensorOffset       uint8
	EventState         uint8
	PreviousEventState uint8
}

// EncodeStateSensorEventData encodes the StateSensorEvent payload.
func EncodeStateSensorEventData(d StateSensorEventData) []byte {
	buf := make([]byte, 5)
	PutUint16(buf[0:2], d.SensorID)
	buf[2] = d.SensorOffset
	buf[3] = d.EventState
	buf[4] = d.PreviousEventState
	return buf
}

// DecodeStateSensorEventData decodes the StateSensorEvent payload.
func DecodeStateSensorEventData(buf []byte) (StateSensorEventData, error) {
	if len(buf) < 5 {
		return StateSensorEventData{}, fmt.Errorf("wire: StateSensorEvent data too short: %d bytes", len(buf))
	}
	sensorID, err := Uint16(buf[0:2])
	if err != nil {
		return StateSensorEventData{}, err
	}
	return StateSensorEventData{
		SensorID:           sensorID,
		SensorOffset:       buf[2],
		EventState:         buf[3],
		PreviousEventState: buf[4],
	}, nil
}

// PDRRepositoryChgEventData is the event_data payload for
// EventFormatPDRRepositoryChgEvent, restricted to the single change-record
// this stack emits: one operation applied to one list of record handles
// (spec §4.5.2).
type PDRRepositoryChgEventData struct {
	Operation     uint8
	RecordHandles []uint32
}

// EncodePDRRepositoryChgEventData encodes: event_data_format(u8)=handles ‖
// number_of_change_records(u8)=1 ‖ event_data_operation(u8) ‖
// number_of_change_entries(u8) ‖ change_entry[u32]...
func EncodePDRRepositoryChgEventData(d PDRRepositoryChgEventData) []byte {
	buf := make([]byte, 4+4*len(d.RecordHandles))
	buf[0] = PDRRepoChangeRecordFormatHandles
	buf[1] = 1
	buf[2] = d.Operation
	buf[3] = uint8(len(d.RecordHandles))
	for i, h := range d.RecordHandles {
		PutUint32(buf[4+4*i:], h)
	}
	return buf
}

// DecodePDRRepositoryChgEventData decodes the payload
// EncodePDRRepositoryChgEventData produces. Only a single change record is
// supported, matching what this stack ever emits or expects to receive.
func DecodePDRRepositoryChgEventData(buf []byte) (PDRRepositoryChgEventData, error) {
	if len(buf) < 4 {
		return PDRRepositoryChgEventData{}, fmt.Errorf("wire: PDRRepositoryChgEvent data too short: %d bytes", len(buf))
	}
	if buf[0] != PDRRepoChangeRecordFormatHandles {
		return PDRRepositoryChgEventData{}, fmt.Errorf("wire: unsupported PDR change record format 0x%02x", buf[0])
	}
	numRecords := buf[1]
	if numRecords != 1 {
		return PDRRepositoryChgEventData{}, fmt.Errorf("wire: unsupported PDR change record count %d", numRecords)
	}
	operation := buf[2]
	count := int(buf[3])
	if len(buf) < 4+4*count {
		return PDRRepositoryChgEventData{}, fmt.Errorf("wire: PDRRepositoryChgEvent data too short for %d handles", count)
	}
	handles := make([]uint32, count)
	for i := 0; i < count; i++ {
		h, err := Uint32(buf[4+4*i:])
		if err != nil {
			return PDRRepositoryChgEventData{}, err
		}
		handles[i] = h
	}
	return PDRRepositoryChgEventData{Operation: operation, RecordHandles: handles}, nil
}
