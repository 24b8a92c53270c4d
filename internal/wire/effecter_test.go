package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStateEffecterStatesBodyRoundTrip(t *testing.T) {
	fields := []StateField{
		{RequestSet: RequestSet, State: 2},
		{RequestSet: NoChange, State: 0},
	}
	body, err := EncodeSetStateEffecterStatesReq(4, fields)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x00, 0x02, 0x01, 0x02, 0x00, 0x00}, body)

	gotID, gotFields, err := DecodeSetStateEffecterStatesReq(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), gotID)
	assert.Equal(t, fields, gotFields)
}

func TestSetStateEffecterStatesRejectsOutOfRangeCount(t *testing.T) {
	_, err := EncodeSetStateEffecterStatesReq(1, nil)
	assert.Error(t, err)
	_, err = EncodeSetStateEffecterStatesReq(1, make([]StateField, 9))
	assert.Error(t, err)
}

func TestSetNumericEffecterValueRoundTripAllWidths(t *testing.T) {
	cases := []struct {
		dataSize uint8
		raw      int64
	}{
		{0, 200},
		{1, -100},
		{2, 60000},
		{3, -30000},
		{4, 4000000000},
		{5, -2000000000},
	}
	for _, c := range cases {
		body, err := EncodeSetNumericEffecterValueReq(9, c.dataSize, c.raw)
		require.NoError(t, err)
		id, size, raw, err := DecodeSetNumericEffecterValueReq(body)
		require.NoError(t, err)
		assert.Equal(t, uint16(9), id)
		assert.Equal(t, c.dataSize, size)
		assert.Equal(t, c.raw, raw)
	}
}

func TestSetNumericEffecterEnableRoundTrip(t *testing.T) {
	body := EncodeSetNumericEffecterEnableReq(12, EffecterOperDisabled)
	assert.Equal(t, []byte{0x0C, 0x00, EffecterOperDisabled}, body)

	id, state, err := DecodeSetNumericEffecterEnableReq(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(12), id)
	assert.Equal(t, EffecterOperDisabled, state)
}

func TestGetNumericEffecterValueRoundTrip(t *testing.T) {
	reqBody := EncodeGetNumericEffecterValueReq(5)
	id, err := DecodeGetNumericEffecterValueReq(reqBody)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), id)

	respBody, err := EncodeGetNumericEffecterValueResp(4, EffecterOperEnabledNoUpdatePending, 300, 350)
	require.NoError(t, err)
	dataSize, operState, present, pending, err := DecodeGetNumericEffecterValueResp(respBody)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), dataSize)
	assert.Equal(t, EffecterOperEnabledNoUpdatePending, operState)
	assert.Equal(t, int64(300), present)
	assert.Equal(t, int64(350), pending)
}
