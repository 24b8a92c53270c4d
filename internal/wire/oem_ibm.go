package wire

import (
	"encoding/binary"
	"fmt"
)

// IBM OEM file-transfer commands (spec's SUPPLEMENTED FEATURES: dump/PEL/
// certificate/LID exchange), dispatched under PLDM type OEM (63). These
// codes are this stack's own numbering, not a published IANA OEM
// assignment — original_source/oem/ibm/libpldm/file_io.h defines the same
// four operations against IBM's real OEM number, which this stack does not
// claim.
const (
	CmdOEMNewFileAvailable uint8 = 0x01
	CmdOEMWriteFile        uint8 = 0x02
	CmdOEMReadFile         uint8 = 0x03
	CmdOEMFileAck          uint8 = 0x04
)

// EncodeOEMNewFileAvailableReq builds the request announcing fileHandle
// (fileType, total length) is ready for transfer (the original's
// newFileAvailable, DSP0267-style).
func EncodeOEMNewFileAvailableReq(fileHandle uint32, fileType uint16, length uint64) []byte {
	buf := make([]byte, 14)
	PutUint32(buf[0:4], fileHandle)
	PutUint16(buf[4:6], fileType)
	binary.LittleEndian.PutUint64(buf[6:14], length)
	return buf
}

// DecodeOEMNewFileAvailableReq parses EncodeOEMNewFileAvailableReq's body.
func DecodeOEMNewFileAvailableReq(body []byte) (fileHandle uint32, fileType uint16, length uint64, err error) {
	if len(body) < 14 {
		return 0, 0, 0, fmt.Errorf("wire: OEM NewFileAvailable request too short (%d bytes)", len(body))
	}
	fileHandle, _ = Uint32(body[0:4])
	fileType, _ = Uint16(body[4:6])
	length = binary.LittleEndian.Uint64(body[6:14])
	return fileHandle, fileType, length, nil
}

// EncodeOEMWriteFileReq builds a sequential write of data at offset into
// fileHandle's transfer.
func EncodeOEMWriteFileReq(fileHandle, offset uint32, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	PutUint32(buf[0:4], fileHandle)
	PutUint32(buf[4:8], offset)
	copy(buf[8:], data)
	return buf
}

// DecodeOEMWriteFileReq parses EncodeOEMWriteFileReq's body. The returned
// data slice aliases body.
func DecodeOEMWriteFileReq(body []byte) (fileHandle, offset uint32, data []byte, err error) {
	if len(body) < 8 {
		return 0, 0, nil, fmt.Errorf("wire: OEM WriteFile request too short (%d bytes)", len(body))
	}
	fileHandle, _ = Uint32(body[0:4])
	offset, _ = Uint32(body[4:8])
	return fileHandle, offset, body[8:], nil
}

// EncodeOEMWriteFileResp builds the response reporting written bytes.
func EncodeOEMWriteFileResp(written uint32) []byte {
	buf := make([]byte, 4)
	PutUint32(buf, written)
	return buf
}

// EncodeOEMReadFileReq builds a read of length bytes at offset from
// fileHandle's stored transfer.
func EncodeOEMReadFileReq(fileHandle, offset, length uint32) []byte {
	buf := make([]byte, 12)
	PutUint32(buf[0:4], fileHandle)
	PutUint32(buf[4:8], offset)
	PutUint32(buf[8:12], length)
	return buf
}

// DecodeOEMReadFileReq parses EncodeOEMReadFileReq's body.
func DecodeOEMReadFileReq(body []byte) (fileHandle, offset, length uint32, err error) {
	if len(body) < 12 {
		return 0, 0, 0, fmt.Errorf("wire: OEM ReadFile request too short (%d bytes)", len(body))
	}
	fileHandle, _ = Uint32(body[0:4])
	offset, _ = Uint32(body[4:8])
	length, _ = Uint32(body[8:12])
	return fileHandle, offset, length, nil
}

// EncodeOEMReadFileResp wraps the returned bytes; the completion code
// already carries success/failure so the body is just the payload.
func EncodeOEMReadFileResp(data []byte) []byte {
	return append([]byte(nil), data...)
}

// EncodeOEMFileAckReq builds the transfer-closing acknowledgement (the
// original's fileAck).
func EncodeOEMFileAckReq(fileHandle uint32, status uint8) []byte {
	buf := make([]byte, 5)
	PutUint32(buf[0:4], fileHandle)
	buf[4] = status
	return buf
}

// DecodeOEMFileAckReq parses EncodeOEMFileAckReq's body.
func DecodeOEMFileAckReq(body []byte) (fileHandle uint32, status uint8, err error) {
	if len(body) < 5 {
		return 0, 0, fmt.Errorf("wire: OEM FileAck request too short (%d bytes)", len(body))
	}
	fileHandle, _ = Uint32(body[0:4])
	return fileHandle, body[4], nil
}
