package effecter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

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

func TestLoadFileValidatesCompositeCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "effecters.json")
	cfg := File{Effecters: []EffecterConfig{{
		MCTPEID:                9,
		EffecterID:             InvalidEffecterID,
		CompositeEffecterCount: 2,
		Effecters: []EffecterEntry{
			{DBusInfo: DBusInfo{ObjectPath: "/x", Interface: "y", PropertyName: "z", PropertyType: "string"},
				PropertyValues: []string{"on", "off"}, State: StateInfo{ID: 1, StateValues: []string{"on", "off"}}},
		},
	}}}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = LoadFile(path)
	assert.Error(t, err) // len(Effecters)=1 != CompositeEffecterCount=2
}

func TestLoadFileAcceptsConsistentConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "effecters.json")
	cfg := File{Effecters: []EffecterConfig{{
		MCTPEID:                9,
		EffecterID:             InvalidEffecterID,
		CompositeEffecterCount: 1,
		Effecters: []EffecterEntry{
			{DBusInfo: DBusInfo{ObjectPath: "/x", Interface: "y", PropertyName: "z", PropertyType: "string"},
				PropertyValues: []string{"on", "off"}, State: StateInfo{ID: 1, StateValues: []string{"on", "off"}}},
		},
	}}}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Effecters, 1)
}

func TestSchemaGeneratesValidJSON(t *testing.T) {
	raw, err := Schema()
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, "PLDM Effecter Configuration", v["title"])
}

func TestFindStateEffecterIDMatchesEntity(t *testing.T) {
	repo := pdr.NewRepository()
	body := make([]byte, 12)
	wire.PutUint16(body[0:2], 42)  // effecter_id
	wire.PutUint16(body[2:4], 1)   // entity_type
	wire.PutUint16(body[4:6], 1)   // entity_instance
	wire.PutUint16(body[6:8], 1)   // container_id
	body[9] = 1                    // composite count
	wire.PutUint16(body[10:12], 7) // state_set_id
	_, err := repo.Add(body, pdr.TypeStateEffecter, false, 0, 0)
	require.NoError(t, err)

	id, err := FindStateEffecterID(repo, 1, 1, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), id)

	_, err = FindStateEffecterID(repo, 1, 1, 1, 999)
	assert.Error(t, err)
}

func TestWriteStateEffecterBuildsCompositeVector(t *testing.T) {
	engine, transport, cleanup := newTestEngine(t)
	defer cleanup()

	w := &Writer{Engine: engine}
	cfg := &EffecterConfig{MCTPEID: 5, EffecterID: 4, CompositeEffecterCount: 2}
	entry := &EffecterEntry{DBusInfoIndex: 1, State: StateInfo{StateValues: []string{"off", "on"}}}

	go func() {
		dg := <-transport.sent
		msg, sentHdr := stripPrefix(t, dg)
		// effecter 4, count 2: field 0 left unchanged, field 1 set to state 1.
		assert.Equal(t, []byte{0x04, 0x00, 0x02, wire.NoChange, 0x00, wire.RequestSet, 0x01}, msg[wire.HeaderLength:])
		resp, _ := wire.EncodeResponse(sentHdr.InstanceID, wire.TypePlatform, wire.CmdSetStateEffecterStates, wire.Success, nil)
		full := make([]byte, 2+len(resp))
		full[0] = 5
		full[1] = mctp.MsgType
		copy(full[2:], resp)
		transport.inCh <- full
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := w.WriteStateEffecter(ctx, 5, cfg, entry, 1)
	require.NoError(t, err)
}

func stripPrefix(t *testing.T, dg []byte) ([]byte, wire.Header) {
	t.Helper()
	require.GreaterOrEqual(t, len(dg), 2)
	hdr, err := wire.DecodeHeader(dg[2:])
	require.NoError(t, err)
	return dg[2:], hdr
}

func TestWriteStateEffecterRejectsWhenBootNotReady(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	w := &Writer{Engine: engine, Boot: stubBoot("Off")}
	cfg := &EffecterConfig{MCTPEID: 5, EffecterID: 4, CompositeEffecterCount: 1}
	entry := &EffecterEntry{DBusInfoIndex: 0, State: StateInfo{StateValues: []string{"off", "on"}}}

	err := w.WriteStateEffecter(context.Background(), 5, cfg, entry, 1)
	assert.Error(t, err)
}

type stubBoot string

func (s stubBoot) BootProgress() string { return string(s) }

func TestWritePowerCapValidatesRange(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	w := &Writer{Engine: engine}
	info := &EffecterInfo{EffecterID: 9, DataSize: 4, Resolution: 1, MinSettable: 50, MaxSettable: 300}

	err := w.WritePowerCap(context.Background(), 1, info, 10)
	assert.Error(t, err)
}

// fakeAuditRecorder is an in-memory stand-in for *internal/store.GORMStore,
// satisfying AuditRecorder without touching a real database.
type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeAuditRecorder) RecordEffecterWrite(_ context.Context, _ uint8, effecterID uint16, outcome, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, fmt.Sprintf("%d:%s", effecterID, outcome))
	return nil
}

func TestWritePowerCapRecordsAuditEntry(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	audit := &fakeAuditRecorder{}
	w := &Writer{Engine: engine, Audit: audit}
	info := &EffecterInfo{EffecterID: 9, DataSize: 4, Resolution: 1, MinSettable: 50, MaxSettable: 300}

	err := w.WritePowerCap(context.Background(), 1, info, 10)
	assert.Error(t, err)

	audit.mu.Lock()
	defer audit.mu.Unlock()
	assert.Equal(t, []string{"9:validation_failed"}, audit.entries)
}

func TestWritePowerCapRecordsValidationFailureMetric(t *testing.T) {
	engine, _, cleanup := newTestEngine(t)
	defer cleanup()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w := &Writer{Engine: engine, Metrics: m}
	info := &EffecterInfo{EffecterID: 9, DataSize: 4, Resolution: 1, MinSettable: 50, MaxSettable: 300}

	err := w.WritePowerCap(context.Background(), 1, info, 10)
	assert.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "pldmd_effecter_writes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestToRawFromRawRoundTrip(t *testing.T) {
	raw := toRaw(150, 0.5, 10)
	assert.Equal(t, int64(280), raw)
	assert.InDelta(t, 150, fromRaw(raw, 0.5, 10), 0.01)
}

func TestPluginRegistryNotifiesInOrder(t *testing.T) {
	reg := NewPluginRegistry()
	var order []string
	reg.Register(namedPlugin{name: "a", fn: func() { order = append(order, "a") }})
	reg.Register(namedPlugin{name: "b", fn: func() { order = append(order, "b") }})

	reg.NotifyNumericEffecterCreated(EffecterInfo{}, nil)
	assert.Equal(t, []string{"a", "b"}, order)
}

type namedPlugin struct {
	name string
	fn   func()
}

func (n namedPlugin) Name() string { return n.name }
func (n namedPlugin) OnNumericEffecterCreated(EffecterInfo, *pdr.Record) { n.fn() }
