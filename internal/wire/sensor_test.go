package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStateSensorReadingsRoundTrip(t *testing.T) {
	reqBody := EncodeGetStateSensorReadingsReq(17)
	id, err := DecodeGetStateSensorReadingsReq(reqBody)
	require.NoError(t, err)
	assert.Equal(t, uint16(17), id)

	readings := []SensorReading{
		{OperationalState: SensorOperEnabled, PresentState: 2, PreviousState: 1, EventState: 2},
		{OperationalState: SensorOperFailed, PresentState: 0, PreviousState: 0, EventState: 0},
	}
	respBody, err := EncodeGetStateSensorReadingsResp(readings)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), respBody[0])

	got, err := DecodeGetStateSensorReadingsResp(respBody)
	require.NoError(t, err)
	assert.Equal(t, readings, got)
}

func TestGetStateSensorReadingsRejectsOutOfRangeCount(t *testing.T) {
	_, err := EncodeGetStateSensorReadingsResp(nil)
	assert.Error(t, err)
	_, err = EncodeGetStateSensorReadingsResp(make([]SensorReading, 9))
	assert.Error(t, err)
}
