package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformEventMessageEnvelopeRoundTrip(t *testing.T) {
	body := EncodePlatformEventMessageReq(EventFormatStateSensorEvent, []byte{0x01, 0x02, 0x03})
	format, data, err := DecodePlatformEventMessageReq(body)
	require.NoError(t, err)
	assert.Equal(t, EventFormatStateSensorEvent, format)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)

	assert.Equal(t, []byte{platformEventStatusSuccess}, EncodePlatformEventMessageResp())
}

func TestStateSensorEventDataRoundTrip(t *testing.T) {
	d := StateSensorEventData{SensorID: 300, SensorOffset: 1, EventState: 3, PreviousEventState: 2}
	buf := EncodeStateSensorEventData(d)
	got, err := DecodeStateSensorEventData(buf)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestPDRRepositoryChgEventDataRoundTrip(t *testing.T) {
	d := PDRRepositoryChgEventData{
		Operation:     PDRRepoOpRecordsAdded,
		RecordHandles: []uint32{1, 2, 3},
	}
	buf := EncodePDRRepositoryChgEventData(d)
	got, err := DecodePDRRepositoryChgEventData(buf)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestPDRRepositoryChgEventDataRejectsUnsupportedFormat(t *testing.T) {
	buf := []byte{0xFF, 1, PDRRepoOpRecordsAdded, 0}
	_, err := DecodePDRRepositoryChgEventData(buf)
	assert.Error(t, err)
}
