package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/store/models"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// loopbackTransport is a minimal mctp.Transport that echoes a canned
// SetNumericEffecterValue success response back for every request sent,
// mirroring internal/effecter's own fake transport harness.
type loopbackTransport struct {
	mu   sync.Mutex
	sent chan []byte
	in   chan []byte
}

func newLoopbackTransport() *loopbackTransport {
	return &loopbackTransport{sent: make(chan []byte, 8), in: make(chan []byte, 8)}
}

func (l *loopbackTransport) ReadDatagram(buf []byte) (int, error) {
	dg, ok := <-l.in
	if !ok {
		return 0, errLoopbackClosed{}
	}
	return copy(buf, dg), nil
}

func (l *loopbackTransport) WriteDatagram(buf []byte) (int, error) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	l.sent <- cp
	return len(buf), nil
}

type errLoopbackClosed struct{}

func (errLoopbackClosed) Error() string { return "loopback transport closed" }

func newTestWriter(t *testing.T) (*effecter.Writer, func()) {
	t.Helper()
	transport := newLoopbackTransport()
	ids := instanceid.NewDB()
	engine := mctp.NewEngine(transport, ids, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = engine.Serve(ctx) }()

	go func() {
		dg := <-transport.sent
		hdr, err := wire.DecodeHeader(dg[2:])
		if err != nil {
			return
		}
		resp, err := wire.EncodeResponse(hdr.InstanceID, hdr.Type, hdr.Command, wire.Success, nil)
		if err != nil {
			return
		}
		full := make([]byte, 2+len(resp))
		full[0] = 5
		full[1] = mctp.MsgType
		copy(full[2:], resp)
		transport.in <- full
	}()

	cleanup := func() {
		cancel()
		close(transport.in)
		engine.Stop()
	}
	return &effecter.Writer{Engine: engine}, cleanup
}

func TestSetPowerCapSucceeds(t *testing.T) {
	writer, cleanup := newTestWriter(t)
	defer cleanup()

	reg := effecter.NewRegistry()
	reg.PutEffecter(9, &effecter.EffecterInfo{EffecterID: 9, DataSize: 4, Resolution: 1, MinSettable: 50, MaxSettable: 300})

	store := newFakeStore()
	h := NewEffecterHandler(writer, reg, store)

	r := chi.NewRouter()
	r.Put("/effecters/{id}/power-cap", h.SetPowerCap)

	body, _ := json.Marshal(setPowerCapRequest{EID: 5, Watts: 150})
	req := httptest.NewRequest(http.MethodPut, "/effecters/9/power-cap", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rr, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SetPowerCap")
	}

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSetPowerCapRejectsUnregisteredEffecter(t *testing.T) {
	writer, cleanup := newTestWriter(t)
	defer cleanup()

	reg := effecter.NewRegistry()
	store := newFakeStore()
	h := NewEffecterHandler(writer, reg, store)

	r := chi.NewRouter()
	r.Put("/effecters/{id}/power-cap", h.SetPowerCap)

	body, _ := json.Marshal(setPowerCapRequest{EID: 5, Watts: 150})
	req := httptest.NewRequest(http.MethodPut, "/effecters/42/power-cap", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetPowerCapRejectsOutOfRange(t *testing.T) {
	writer, cleanup := newTestWriter(t)
	defer cleanup()

	reg := effecter.NewRegistry()
	reg.PutEffecter(9, &effecter.EffecterInfo{EffecterID: 9, DataSize: 4, Resolution: 1, MinSettable: 50, MaxSettable: 300})

	store := newFakeStore()
	h := NewEffecterHandler(writer, reg, store)

	r := chi.NewRouter()
	r.Put("/effecters/{id}/power-cap", h.SetPowerCap)

	body, _ := json.Marshal(setPowerCapRequest{EID: 5, Watts: 10})
	req := httptest.NewRequest(http.MethodPut, "/effecters/9/power-cap", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListAuditReturnsEntries(t *testing.T) {
	store := newFakeStore()
	store.audit[9] = append(store.audit[9], &models.EffecterAuditEntry{ID: "a1", EID: 5, EffecterID: 9, Outcome: "success"})
	writer := &effecter.Writer{}
	reg := effecter.NewRegistry()
	h := NewEffecterHandler(writer, reg, store)

	r := chi.NewRouter()
	r.Get("/effecters/{id}/audit", h.ListAudit)

	req := httptest.NewRequest(http.MethodGet, "/effecters/9/audit", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}
