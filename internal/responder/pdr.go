package responder

import (
	"context"

	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// Platform command codes touching the PDR repository (DSP0248, spec §6.3).
// Mirrors wire.CmdGetPDR/wire.CmdGetPDRRepositoryInfo, the requester-side
// constants internal/hostsync dispatches against the host.
const (
	CmdGetPDRRepositoryInfo uint8 = 0x50
	CmdGetPDR               uint8 = 0x51
)

// PDRHandlers answers GetPDR / GetPDRRepositoryInfo against repo
// (spec §4.1, §6.4).
type PDRHandlers struct {
	Repo *pdr.Repository
}

// Register installs this PDRHandlers' handlers into d under PLDM type
// PLATFORM.
func (h *PDRHandlers) Register(d *Dispatcher) {
	d.Register(wire.TypePlatform, CmdGetPDR, "GetPDR", h.handleGetPDR)
	d.Register(wire.TypePlatform, CmdGetPDRRepositoryInfo, "GetPDRRepositoryInfo", h.handleGetPDRRepositoryInfo)
}

// handleGetPDR implements the wire-level find(handle) contract (spec §4.1
// find): record_handle=0 returns the first record. Request body:
// record_handle(u32) ‖ data_transfer_handle(u32) ‖
// transfer_operation_flag(u8) ‖ request_count(u16) ‖ record_change_number(u16).
func (h *PDRHandlers) handleGetPDR(_ context.Context, _ uint8, body []byte) ([]byte, uint8) {
	if len(body) < 4 {
		return nil, wire.ErrorInvalidLength
	}
	handle, err := wire.Uint32(body[0:4])
	if err != nil {
		return nil, wire.ErrorInvalidLength
	}

	rec, next, err := h.Repo.Find(handle)
	if err != nil {
		return nil, wire.Error
	}
	if rec == nil {
		return nil, wire.ErrorInvalidData
	}

	resp := wire.EncodeGetPDRResp(wire.GetPDRResponse{
		NextRecordHandle:       next,
		NextDataTransferHandle: 0, // single-part only
		TransferFlag:           wire.TransferFlagStartAndEnd,
		RecordData:             rec.Bytes(),
	})
	return resp, wire.Success
}

// handleGetPDRRepositoryInfo reports repository-wide counters (DSP0248
// GetPDRRepositoryInfo response, trimmed to the fields this stack tracks:
// record count and total repository size, spec §3.2).
func (h *PDRHandlers) handleGetPDRRepositoryInfo(_ context.Context, _ uint8, _ []byte) ([]byte, uint8) {
	resp := make([]byte, 1+4+4)
	resp[0] = 0 // repository state: available
	wire.PutUint32(resp[1:5], uint32(h.Repo.Count()))
	wire.PutUint32(resp[5:9], uint32(h.Repo.TotalSize()))
	return resp, wire.Success
}
