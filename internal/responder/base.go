package responder

import (
	"context"

	"github.com/openbmc-go/pldmd/internal/wire"
)

// Base discovery command codes (DSP0240, spec §6.3).
const (
	CmdGetTID          uint8 = 0x02
	CmdGetPLDMVersion  uint8 = 0x03
	CmdGetPLDMTypes    uint8 = 0x04
	CmdGetPLDMCommands uint8 = 0x05
)

// BaseDiscovery answers the GetPLDMTypes/GetPLDMCommands/GetPLDMVersion/
// GetTID handshake a requester uses to probe this terminus's capabilities
// (spec's SUPPLEMENTED FEATURES: base discovery handshake, grounded on
// original_source/libpldm/base.c and pldmmctpd/pldm_base_helper.cpp).
type BaseDiscovery struct {
	TID               uint8
	SupportedTypes    []uint8
	SupportedCommands map[uint8][]uint8 // pldmType -> sorted command codes
}

// NewBaseDiscovery constructs a BaseDiscovery advertising the given types
// and, per type, the commands this terminus answers.
func NewBaseDiscovery(tid uint8, supportedTypes []uint8, supportedCommands map[uint8][]uint8) *BaseDiscovery {
	return &BaseDiscovery{TID: tid, SupportedTypes: supportedTypes, SupportedCommands: supportedCommands}
}

// Register installs this BaseDiscovery's handlers into d under PLDM type
// BASE.
func (b *BaseDiscovery) Register(d *Dispatcher) {
	d.Register(wire.TypeBase, CmdGetTID, "GetTID", b.handleGetTID)
	d.Register(wire.TypeBase, CmdGetPLDMTypes, "GetPLDMTypes", b.handleGetTypes)
	d.Register(wire.TypeBase, CmdGetPLDMCommands, "GetPLDMCommands", b.handleGetCommands)
	d.Register(wire.TypeBase, CmdGetPLDMVersion, "GetPLDMVersion", b.handleGetVersion)
}

func (b *BaseDiscovery) handleGetTID(_ context.Context, _ uint8, _ []byte) ([]byte, uint8) {
	return []byte{b.TID}, wire.Success
}

// handleGetTypes encodes the 64-bit PLDM type bitmap (DSP0240 Table 11):
// bit N of byte N/8 is set if type N is supported.
func (b *BaseDiscovery) handleGetTypes(_ context.Context, _ uint8, _ []byte) ([]byte, uint8) {
	bitmap := make([]byte, 8)
	for _, t := range b.SupportedTypes {
		bitmap[t/8] |= 1 << (t % 8)
	}
	return bitmap, wire.Success
}

// handleGetCommands encodes the 256-bit command-support bitmap for the
// requested PLDM type (DSP0240 Table 13). Request body: pldm_type(u8) ‖
// version(4 bytes, ignored here).
func (b *BaseDiscovery) handleGetCommands(_ context.Context, _ uint8, body []byte) ([]byte, uint8) {
	if len(body) < 1 {
		return nil, wire.ErrorInvalidLength
	}
	requestedType := body[0]
	commands, ok := b.SupportedCommands[requestedType]
	if !ok {
		return nil, wire.ErrorInvalidData
	}
	bitmap := make([]byte, 32)
	for _, c := range commands {
		bitmap[c/8] |= 1 << (c % 8)
	}
	return bitmap, wire.Success
}

// handleGetVersion reports version 1.0.0 for every supported type; this
// stack does not track per-type version negotiation beyond the fixed
// DSP0248 baseline (spec Non-goals: firmware image parsing and version
// negotiation nuance are out of scope beyond the header).
func (b *BaseDiscovery) handleGetVersion(_ context.Context, _ uint8, body []byte) ([]byte, uint8) {
	if len(body) < 5 {
		return nil, wire.ErrorInvalidLength
	}
	// Response body: next_transfer_handle(u32 LE) ‖ transfer_flag(u8) ‖
	// pldm_ver32. This stack never splits the version data across parts, so
	// next_transfer_handle is always 0 and transfer_flag is always
	// start-and-end (0x05). pldm_ver32 1.0.0.0 is conventionally packed as
	// 0xF1F0F000 (DSP0240).
	resp := make([]byte, 4+1+4)
	wire.PutUint32(resp[0:4], 0)
	resp[4] = 0x05
	copy(resp[5:9], []byte{0xF1, 0xF0, 0xF0, 0x00})
	return resp, wire.Success
}
