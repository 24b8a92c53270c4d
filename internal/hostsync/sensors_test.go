package hostsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

type fakeDispatcher struct {
	eid    uint8
	sensor uint16
	offset uint8
	state  uint8
	calls  int
}

func (d *fakeDispatcher) DispatchStateSensorReading(_ context.Context, eid uint8, sensorID uint16, offset uint8, eventState uint8) {
	d.eid, d.sensor, d.offset, d.state = eid, sensorID, offset, eventState
	d.calls++
}

func TestReadStateSensorsDispatchesEachOffset(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	repo := pdr.NewRepository()
	entity := pdr.Entity{Type: 1, Instance: 1, ContainerID: 0}
	body := make([]byte, 8)
	wire.PutUint16(body[0:2], 42) // sensor_id
	wire.PutUint16(body[2:4], entity.Type)
	wire.PutUint16(body[4:6], entity.Instance)
	wire.PutUint16(body[6:8], entity.ContainerID)
	handle, err := repo.Add(body, pdr.TypeStateSensor, true, 0, 0)
	require.NoError(t, err)

	s := New(engine, repo, effecter.NewRegistry(), 9, pdr.NewTree())

	respBody, err := wire.EncodeGetStateSensorReadingsResp([]wire.SensorReading{
		{OperationalState: wire.SensorOperEnabled, PresentState: 1, PreviousState: 0, EventState: 1},
	})
	require.NoError(t, err)
	respondOnce(t, transport, 9, respBody, wire.Success)

	dispatch := &fakeDispatcher{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.ReadStateSensors(ctx, []uint32{handle}, dispatch)

	assert.Equal(t, 1, dispatch.calls)
	assert.Equal(t, uint8(9), dispatch.eid)
	assert.Equal(t, uint16(42), dispatch.sensor)
	assert.Equal(t, uint8(0), dispatch.offset)
	assert.Equal(t, uint8(1), dispatch.state)
}

func TestReadStateSensorsSkipsVanishedRecord(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	s := New(engine, pdr.NewRepository(), effecter.NewRegistry(), 9, pdr.NewTree())
	dispatch := &fakeDispatcher{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.ReadStateSensors(ctx, []uint32{999}, dispatch)

	assert.Equal(t, 0, dispatch.calls)
}

func TestEnqueuePDRChangeFeedsModifiedQueue(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	s := New(engine, pdr.NewRepository(), effecter.NewRegistry(), 9, pdr.NewTree())
	s.EnqueuePDRChange([]uint32{5, 6}, wire.PDRRepoOpRecordsModified)

	handle, ok := s.nextQueuedHandle()
	require.True(t, ok)
	assert.Equal(t, uint32(5), handle)
	handle, ok = s.nextQueuedHandle()
	require.True(t, ok)
	assert.Equal(t, uint32(6), handle)
}
