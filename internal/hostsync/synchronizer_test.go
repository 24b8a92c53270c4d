package hostsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/store/models"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// fakeStore is an in-memory stand-in for *internal/store.GORMStore,
// satisfying TerminusRecorder without touching a real database.
type fakeStore struct {
	mu       sync.Mutex
	termini  map[uint8]*models.Terminus
	statuses map[uint8]models.TerminusStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{termini: make(map[uint8]*models.Terminus), statuses: make(map[uint8]models.TerminusStatus)}
}

func (f *fakeStore) UpsertTerminus(_ context.Context, tid, eid uint8, name string) (*models.Terminus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &models.Terminus{TID: tid, EID: eid, Name: name}
	f.termini[tid] = t
	return t, nil
}

func (f *fakeStore) SetTerminusStatus(_ context.Context, tid uint8, status models.TerminusStatus, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.termini[tid]; !ok {
		return models.ErrTerminusNotFound
	}
	f.statuses[tid] = status
	return nil
}

type fakeTransport struct {
	mu   sync.Mutex
	inCh chan []byte
	sent chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inCh: make(chan []byte, 16), sent: make(chan []byte, 16)}
}

func (f *fakeTransport) ReadDatagram(buf []byte) (int, error) {
	dg, ok := <-f.inCh
	if !ok {
		return 0, errClosed{}
	}
	return copy(buf, dg), nil
}

func (f *fakeTransport) WriteDatagram(buf []byte) (int, error) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.sent <- cp
	return len(buf), nil
}

type errClosed struct{}

func (errClosed) Error() string { return "fake transport closed" }

func newTestEngine(t *testing.T) (*mctp.Engine, *fakeTransport, func()) {
	t.Helper()
	transport := newFakeTransport()
	ids := instanceid.NewDB()
	engine := mctp.NewEngine(transport, ids, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = engine.Serve(ctx) }()
	cleanup := func() {
		cancel()
		close(transport.inCh)
		engine.Stop()
	}
	return engine, transport, cleanup
}

// respondOnce answers the next request the engine sends with a response
// carrying body, using the request's own instance id.
func respondOnce(t *testing.T, transport *fakeTransport, hostEID uint8, body []byte, cc uint8) {
	t.Helper()
	go func() {
		dg := <-transport.sent
		require.GreaterOrEqual(t, len(dg), 2)
		hdr, err := wire.DecodeHeader(dg[2:])
		require.NoError(t, err)
		resp, err := wire.EncodeResponse(hdr.InstanceID, hdr.Type, hdr.Command, cc, body)
		require.NoError(t, err)
		full := make([]byte, 2+len(resp))
		full[0] = hostEID
		full[1] = mctp.MsgType
		copy(full[2:], resp)
		transport.inCh <- full
	}()
}

func TestProbeMarksHostUpOnSuccess(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	s := New(engine, pdr.NewRepository(), effecter.NewRegistry(), 9, pdr.NewTree())
	respondOnce(t, transport, 9, nil, wire.Success)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	up, err := s.Probe(ctx)
	require.NoError(t, err)
	assert.True(t, up)
}

func TestProbeTimesOutWhenHostSilent(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	s := New(engine, pdr.NewRepository(), effecter.NewRegistry(), 9, pdr.NewTree())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	up, err := s.Probe(ctx)
	require.NoError(t, err)
	assert.False(t, up)
}

func TestWalkFetchesSingleRecordAndStops(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	repo := pdr.NewRepository()
	s := New(engine, repo, effecter.NewRegistry(), 9, pdr.NewTree())
	s.FetchFullWalk()

	locatorBody := pdr.EncodeTerminusLocatorBody(pdr.TerminusLocatorInfo{TID: 9, Validity: 1, TerminusHandle: 1})
	locatorRecord := &pdr.Record{Handle: 1, Type: pdr.TypeTerminusLocator, Body: locatorBody}
	raw := locatorRecord.Bytes()
	respBody := wire.EncodeGetPDRResp(wire.GetPDRResponse{
		NextRecordHandle: 0,
		TransferFlag:     wire.TransferFlagStartAndEnd,
		RecordData:       raw,
	})
	respondOnce(t, transport, 9, respBody, wire.Success)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := s.Walk(ctx)
	require.NoError(t, err)
	assert.False(t, result.Merged)
	assert.Equal(t, 1, repo.Count())
}

func TestProbePersistsTerminusStatus(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	s := New(engine, pdr.NewRepository(), effecter.NewRegistry(), 9, pdr.NewTree())
	fs := newFakeStore()
	s.SetStore(fs)
	respondOnce(t, transport, 9, nil, wire.Success)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	up, err := s.Probe(ctx)
	require.NoError(t, err)
	assert.True(t, up)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, models.TerminusStatusUp, fs.statuses[9])
}

func TestWalkRecordsRepositorySizeMetric(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	repo := pdr.NewRepository()
	s := New(engine, repo, effecter.NewRegistry(), 9, pdr.NewTree())
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s.SetMetrics(m)
	s.FetchFullWalk()

	locatorBody := pdr.EncodeTerminusLocatorBody(pdr.TerminusLocatorInfo{TID: 9, Validity: 1, TerminusHandle: 1})
	locatorRecord := &pdr.Record{Handle: 1, Type: pdr.TypeTerminusLocator, Body: locatorBody}
	respBody := wire.EncodeGetPDRResp(wire.GetPDRResponse{
		NextRecordHandle: 0,
		TransferFlag:     wire.TransferFlagStartAndEnd,
		RecordData:       locatorRecord.Bytes(),
	})
	respondOnce(t, transport, 9, respBody, wire.Success)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.Walk(ctx)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "pldmd_pdr_repository_records")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWalkPersistsDiscoveredTerminus(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	repo := pdr.NewRepository()
	s := New(engine, repo, effecter.NewRegistry(), 9, pdr.NewTree())
	fs := newFakeStore()
	s.SetStore(fs)
	s.FetchFullWalk()

	locatorBody := pdr.EncodeTerminusLocatorBody(pdr.TerminusLocatorInfo{TID: 7, Validity: 1, TerminusHandle: 1})
	locatorRecord := &pdr.Record{Handle: 1, Type: pdr.TypeTerminusLocator, Body: locatorBody}
	respBody := wire.EncodeGetPDRResp(wire.GetPDRResponse{
		NextRecordHandle: 0,
		TransferFlag:     wire.TransferFlagStartAndEnd,
		RecordData:       locatorRecord.Bytes(),
	})
	respondOnce(t, transport, 9, respBody, wire.Success)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.Walk(ctx)
	require.NoError(t, err)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	term, ok := fs.termini[7]
	require.True(t, ok)
	assert.Equal(t, uint8(9), term.EID)
}

func TestWalkAbortsOnNonSuccessCompletion(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	s := New(engine, pdr.NewRepository(), effecter.NewRegistry(), 9, pdr.NewTree())
	s.FetchFullWalk()

	respondOnce(t, transport, 9, nil, wire.ErrorInvalidData)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := s.Walk(ctx)
	require.NoError(t, err)
	assert.False(t, result.Merged)

	// the queue should still hold no leftover handle: the aborted handle was
	// popped, not requeued (spec §4.3.5: caller decides whether to retry).
	assert.Equal(t, 0, len(s.pendingHandles))
}

func TestTeardownResetsToBMCOnlyState(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	repo := pdr.NewRepository()
	reg := effecter.NewRegistry()
	bmcTree := pdr.NewTree()
	bmcEntity := pdr.Entity{Type: 1, Instance: 1, ContainerID: 0}
	_, err := bmcTree.Add(bmcEntity, nil, pdr.AssociationLogical, true)
	require.NoError(t, err)

	// a BMC-local record, plus a remote one the host contributed.
	_, err = repo.Add([]byte{1, 2, 3}, pdr.TypeOEMStateSensor, false, 0, 0)
	require.NoError(t, err)
	_, err = repo.Add([]byte{4, 5, 6}, pdr.TypeOEMStateSensor, true, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, repo.Count())

	reg.PutSensor(effecter.SensorKey{TID: 9, SensorID: 1}, &effecter.SensorInfo{})

	s := New(engine, repo, reg, 9, bmcTree)
	s.SetBootProgress(BootProgressOSRunning)
	s.mergedHostParents = true
	s.pendingHandles = []uint32{42}

	s.Teardown(context.Background())

	assert.Equal(t, 1, repo.Count(), "only the local record survives teardown")
	_, ok := reg.Sensor(effecter.SensorKey{TID: 9, SensorID: 1})
	assert.False(t, ok, "sensor map is cleared on teardown")
	assert.Equal(t, BootProgressOff, s.BootProgress())
	assert.False(t, s.mergedHostParents)
	assert.Empty(t, s.pendingHandles)
	assert.Equal(t, []pdr.Entity{bmcEntity}, s.tree.Visit(), "working tree is restored to the BMC-only snapshot")
}
