package responder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

func TestDispatcherUnknownTypeAndCommand(t *testing.T) {
	d := NewDispatcher()
	d.Register(wire.TypePlatform, CmdGetPDR, "GetPDR", func(ctx context.Context, eid uint8, body []byte) ([]byte, uint8) {
		return nil, wire.Success
	})

	_, cc := d.Handle(context.Background(), 1, wire.Header{Type: wire.TypeFRU, Command: 1}, nil)
	assert.Equal(t, wire.ErrorInvalidPLDMType, cc)

	_, cc = d.Handle(context.Background(), 1, wire.Header{Type: wire.TypePlatform, Command: 0xFF}, nil)
	assert.Equal(t, wire.ErrorUnsupportedCmd, cc)

	_, cc = d.Handle(context.Background(), 1, wire.Header{Type: wire.TypePlatform, Command: CmdGetPDR}, nil)
	assert.Equal(t, wire.Success, cc)
}

func TestBaseDiscoveryHandlers(t *testing.T) {
	base := NewBaseDiscovery(7, []uint8{wire.TypeBase, wire.TypePlatform}, map[uint8][]uint8{
		wire.TypeBase:     {CmdGetPLDMTypes, CmdGetPLDMCommands},
		wire.TypePlatform: {CmdGetPDR},
	})
	d := NewDispatcher()
	base.Register(d)

	body, cc := d.Handle(context.Background(), 1, wire.Header{Type: wire.TypeBase, Command: CmdGetTID}, nil)
	assert.Equal(t, wire.Success, cc)
	assert.Equal(t, []byte{7}, body)

	body, cc = d.Handle(context.Background(), 1, wire.Header{Type: wire.TypeBase, Command: CmdGetPLDMTypes}, nil)
	require.Equal(t, wire.Success, cc)
	require.Len(t, body, 8)
	assert.NotZero(t, body[0]&(1<<wire.TypeBase))
	assert.NotZero(t, body[0]&(1<<wire.TypePlatform))

	reqBody := []byte{wire.TypeBase, 0, 0, 0, 0}
	body, cc = d.Handle(context.Background(), 1, wire.Header{Type: wire.TypeBase, Command: CmdGetPLDMCommands}, reqBody)
	require.Equal(t, wire.Success, cc)
	assert.NotZero(t, body[CmdGetPLDMTypes/8]&(1<<(CmdGetPLDMTypes%8)))
}

func TestPDRHandlersGetPDR(t *testing.T) {
	repo := pdr.NewRepository()
	handle, err := repo.Add([]byte{0xAA, 0xBB}, pdr.TypeStateSensor, false, 0, 0)
	require.NoError(t, err)

	h := &PDRHandlers{Repo: repo}
	d := NewDispatcher()
	h.Register(d)

	req := make([]byte, 4+4+1+2+2)
	// record_handle = 0 => first record
	resp, cc := d.Handle(context.Background(), 1, wire.Header{Type: wire.TypePlatform, Command: CmdGetPDR}, req)
	require.Equal(t, wire.Success, cc)

	nextHandle, err := wire.Uint32(resp[0:4])
	require.NoError(t, err)
	assert.Equal(t, uint32(0), nextHandle) // tail: only one record

	recordData := resp[11:]
	rec, _, err := repo.Find(handle)
	require.NoError(t, err)
	assert.Equal(t, rec.Bytes(), recordData)
}

func TestPDRHandlersGetPDRMiss(t *testing.T) {
	repo := pdr.NewRepository()
	h := &PDRHandlers{Repo: repo}
	d := NewDispatcher()
	h.Register(d)

	req := make([]byte, 4+4+1+2+2)
	wire.PutUint32(req[0:4], 999)
	_, cc := d.Handle(context.Background(), 1, wire.Header{Type: wire.TypePlatform, Command: CmdGetPDR}, req)
	assert.Equal(t, wire.ErrorInvalidData, cc)
}

func TestPDRHandlersRepositoryInfo(t *testing.T) {
	repo := pdr.NewRepository()
	repo.Add([]byte{1, 2, 3}, pdr.TypeStateSensor, false, 0, 0)

	h := &PDRHandlers{Repo: repo}
	d := NewDispatcher()
	h.Register(d)

	resp, cc := d.Handle(context.Background(), 1, wire.Header{Type: wire.TypePlatform, Command: CmdGetPDRRepositoryInfo}, nil)
	require.Equal(t, wire.Success, cc)
	count, err := wire.Uint32(resp[1:5])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)
	size, err := wire.Uint32(resp[5:9])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), size)
}
