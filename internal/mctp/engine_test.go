package mctp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// loopbackTransport serves ReadDatagram from a channel and discards
// WriteDatagram calls, simulating a peer that never replies on its own — tests
// drive both sides by writing crafted datagrams directly into the channel.
type loopbackTransport struct {
	mu   sync.Mutex
	inCh chan []byte
}

func newLoopbackTransport() *loopbackTransport {
	return &loopbackTransport{inCh: make(chan []byte, 16)}
}

func (lt *loopbackTransport) ReadDatagram(buf []byte) (int, error) {
	dg, ok := <-lt.inCh
	if !ok {
		return 0, errClosed{}
	}
	n := copy(buf, dg)
	return n, nil
}

func (lt *loopbackTransport) WriteDatagram(buf []byte) (int, error) {
	// The "wire" for this test: outbound datagrams are discarded; tests feed
	// canned responses to ReadDatagram via inject below.
	return len(buf), nil
}

func (lt *loopbackTransport) inject(dg []byte) { lt.inCh <- dg }

type errClosed struct{}

func (errClosed) Error() string { return "loopback closed" }

func TestEngineSendRecvMatchesResponse(t *testing.T) {
	transport := newLoopbackTransport()
	ids := instanceid.NewDB()
	engine := NewEngine(transport, ids, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = engine.Serve(ctx) }()
	defer engine.Stop()
	defer func() { close(transport.inCh) }()

	const eid = 9
	instanceID, err := ids.Next(eid)
	require.NoError(t, err)

	req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, 0x39, []byte{0xAA})
	require.NoError(t, err)

	// Deliver the matching response shortly after the request is sent, as
	// if the remote terminus replied.
	go func() {
		time.Sleep(20 * time.Millisecond)
		resp, _ := wire.EncodeResponse(instanceID, wire.TypePlatform, 0x39, wire.Success, []byte{0x01})
		dg := make([]byte, 2+len(resp))
		dg[0] = eid
		dg[1] = MsgType
		copy(dg[2:], resp)
		transport.inject(dg)
	}()

	respMsg, err := engine.SendRecv(ctx, eid, req)
	require.NoError(t, err)

	_, cc, body, err := wire.SplitResponse(respMsg)
	require.NoError(t, err)
	assert.Equal(t, wire.Success, cc)
	assert.Equal(t, []byte{0x01}, body)

	assert.False(t, ids.IsReserved(eid, instanceID))
}

func TestEngineSendRecvTimesOut(t *testing.T) {
	transport := newLoopbackTransport()
	ids := instanceid.NewDB()
	engine := NewEngine(transport, ids, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = engine.Serve(ctx) }()
	defer engine.Stop()
	defer func() { close(transport.inCh) }()

	const eid = 3
	instanceID, err := ids.Next(eid)
	require.NoError(t, err)

	req, err := wire.EncodeRequest(instanceID, wire.TypeBase, 1, nil)
	require.NoError(t, err)

	reqCtx, reqCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer reqCancel()

	_, err = engine.SendRecv(reqCtx, eid, req)
	assert.Error(t, err)
	assert.False(t, ids.IsReserved(eid, instanceID))
}

func TestEngineMismatchedResponseIsDropped(t *testing.T) {
	transport := newLoopbackTransport()
	ids := instanceid.NewDB()
	engine := NewEngine(transport, ids, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = engine.Serve(ctx) }()
	defer engine.Stop()
	defer func() { close(transport.inCh) }()

	const eid = 1
	instanceID, err := ids.Next(eid)
	require.NoError(t, err)
	req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, 0x39, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		// Wrong command: must be dropped, not delivered.
		wrong, _ := wire.EncodeResponse(instanceID, wire.TypePlatform, 0x40, wire.Success, nil)
		dg := make([]byte, 2+len(wrong))
		dg[0] = eid
		dg[1] = MsgType
		copy(dg[2:], wrong)
		transport.inject(dg)

		time.Sleep(10 * time.Millisecond)
		right, _ := wire.EncodeResponse(instanceID, wire.TypePlatform, 0x39, wire.Success, nil)
		dg2 := make([]byte, 2+len(right))
		dg2[0] = eid
		dg2[1] = MsgType
		copy(dg2[2:], right)
		transport.inject(dg2)
	}()

	reqCtx, reqCancel := context.WithTimeout(ctx, time.Second)
	defer reqCancel()
	respMsg, err := engine.SendRecv(reqCtx, eid, req)
	require.NoError(t, err)
	_, cc, _, err := wire.SplitResponse(respMsg)
	require.NoError(t, err)
	assert.Equal(t, wire.Success, cc)
}

func TestEngineRecordsRequestMetrics(t *testing.T) {
	transport := newLoopbackTransport()
	ids := instanceid.NewDB()
	engine := NewEngine(transport, ids, nil)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	engine.SetMetrics(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = engine.Serve(ctx) }()
	defer engine.Stop()
	defer func() { close(transport.inCh) }()

	const eid = 9
	instanceID, err := ids.Next(eid)
	require.NoError(t, err)
	req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, 0x39, nil)
	require.NoError(t, err)

	go func() {
		resp, _ := wire.EncodeResponse(instanceID, wire.TypePlatform, 0x39, wire.Success, nil)
		dg := make([]byte, 2+len(resp))
		dg[0] = eid
		dg[1] = MsgType
		copy(dg[2:], resp)
		transport.inject(dg)
	}()

	_, err = engine.SendRecv(ctx, eid, req)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "pldmd_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one completed request observed")
}
