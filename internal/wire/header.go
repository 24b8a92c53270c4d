// Package wire implements the PLDM common message header (DSP0240 §7) and
// the little-endian primitive encoding every PLDM command body uses.
//
// PLDM is carried on MCTP as fixed little-endian binary: this package is the
// equivalent of the teacher's internal/protocol/xdr package, but for the
// opposite byte order and a 3-byte (request) / 4-byte (response) header
// instead of XDR's record-marked RPC framing.
package wire

import (
	"encoding/binary"
	"fmt"
)

// PLDM types (DSP0240 Table 7, spec §6.3).
const (
	TypeBase      uint8 = 0
	TypePlatform  uint8 = 2
	TypeBIOS      uint8 = 3
	TypeFRU       uint8 = 4
	TypeFWUpdate  uint8 = 5
	TypeOEM       uint8 = 63
)

// HeaderVersion is the only header version this stack understands.
const HeaderVersion uint8 = 0

// HeaderLength is the common request header size in bytes (instance/rq/d byte,
// type byte, command byte).
const HeaderLength = 3

// ResponseHeaderLength is HeaderLength plus the one-byte completion code that
// every PLDM response prepends to its payload.
const ResponseHeaderLength = HeaderLength + 1

// Header is the 3-byte PLDM common message header (spec §6.2):
//
//	byte 0: [rq:1 | d:1 | rsvd:1 | iid:5]
//	byte 1: [hdr_ver:2 | type:6]
//	byte 2: [command:8]
type Header struct {
	InstanceID uint8 // 5 bits, 0..31
	IsRequest  bool
	IsAsyncReq bool // "d" bit: async notification (no response expected)
	Type       uint8
	Command    uint8
}

// Encode writes the 3-byte header to buf, which must have length >= HeaderLength.
func (h Header) Encode(buf []byte) error {
	if len(buf) < HeaderLength {
		return fmt.Errorf("wire: header buffer too small: %d < %d", len(buf), HeaderLength)
	}
	if h.InstanceID > 0x1F {
		return fmt.Errorf("wire: instance id %d out of range", h.InstanceID)
	}
	if h.Type > 0x3F {
		return fmt.Errorf("wire: pldm type %d out of range", h.Type)
	}

	var b0 uint8 = h.InstanceID
	if h.IsRequest {
		b0 |= 1 << 7
	}
	if h.IsAsyncReq {
		b0 |= 1 << 6
	}
	buf[0] = b0
	buf[1] = (HeaderVersion << 6) | h.Type
	buf[2] = h.Command
	return nil
}

// DecodeHeader parses the 3-byte header prefix of msg.
func DecodeHeader(msg []byte) (Header, error) {
	if len(msg) < HeaderLength {
		return Header{}, fmt.Errorf("wire: message too short for header: %d bytes", len(msg))
	}
	b0, b1, b2 := msg[0], msg[1], msg[2]
	return Header{
		InstanceID: b0 & 0x1F,
		IsRequest:  b0&(1<<7) != 0,
		IsAsyncReq: b0&(1<<6) != 0,
		Type:       b1 & 0x3F,
		Command:    b2,
	}, nil
}

// EncodeRequest builds a complete PLDM request message: header followed by body.
func EncodeRequest(instanceID, pldmType, command uint8, body []byte) ([]byte, error) {
	hdr := Header{InstanceID: instanceID, IsRequest: true, Type: pldmType, Command: command}
	msg := make([]byte, HeaderLength+len(body))
	if err := hdr.Encode(msg); err != nil {
		return nil, err
	}
	copy(msg[HeaderLength:], body)
	return msg, nil
}

// EncodeResponse builds a complete PLDM response message: header, completion
// code, then body.
func EncodeResponse(instanceID, pldmType, command, completionCode uint8, body []byte) ([]byte, error) {
	hdr := Header{InstanceID: instanceID, IsRequest: false, Type: pldmType, Command: command}
	msg := make([]byte, ResponseHeaderLength+len(body))
	if err := hdr.Encode(msg); err != nil {
		return nil, err
	}
	msg[HeaderLength] = completionCode
	copy(msg[ResponseHeaderLength:], body)
	return msg, nil
}

// SplitResponse decodes a response message's header, completion code, and body.
func SplitResponse(msg []byte) (hdr Header, completionCode uint8, body []byte, err error) {
	hdr, err = DecodeHeader(msg)
	if err != nil {
		return Header{}, 0, nil, err
	}
	if len(msg) < ResponseHeaderLength {
		return Header{}, 0, nil, fmt.Errorf("wire: response too short: %d bytes", len(msg))
	}
	return hdr, msg[HeaderLength], msg[ResponseHeaderLength:], nil
}

// ----------------------------------------------------------------------------
// Little-endian primitive helpers, mirroring the teacher's xdr encode/decode
// helpers but for PLDM's byte order and fixed-width integers (no padding,
// no length-prefixed opaque/string framing).
// ----------------------------------------------------------------------------

// PutUint16 writes v to buf[0:2] little-endian.
func PutUint16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// PutUint32 writes v to buf[0:4] little-endian.
func PutUint32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// Uint16 reads a little-endian uint16 from buf[0:2].
func Uint16(buf []byte) (uint16, error) {
	if len(buf) < 2 {
		return 0, fmt.Errorf("wire: buffer too short for uint16: %d bytes", len(buf))
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// Uint32 reads a little-endian uint32 from buf[0:4].
func Uint32(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("wire: buffer too short for uint32: %d bytes", len(buf))
	}
	return binary.LittleEndian.Uint32(buf), nil
}
