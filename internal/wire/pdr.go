package wire

import "fmt"

// PDR-repository and base-discovery command codes a requester issues
// against a remote terminus (spec §4.3.1 start-up probe, §4.3.2 PDR walk).
// Mirrors internal/responder's own command constants for the same codes,
// which that package declares separately (it imports this package for
// encoding, not for these constants), the way the teacher's client and
// server RPC stubs each carry their own procedure-number constants.
const (
	CmdGetPLDMVersion       uint8 = 0x03
	CmdGetPDRRepositoryInfo uint8 = 0x50
	CmdGetPDR               uint8 = 0x51
)

// GetPDR transfer-operation flags (DSP0248 Table 78).
const (
	TransferOpFlagGetFirstPart uint8 = 0x01
)

// GetPDR transfer-completion flags (DSP0248 Table 79).
const (
	TransferFlagStart       uint8 = 0x01
	TransferFlagStartAndEnd uint8 = 0x05
)

// EncodeGetPDRReq builds the GetPDR request body (DSP0248 Table 78):
// record_handle(u32) ‖ data_transfer_handle(u32) ‖
// transfer_operation_flag(u8) ‖ request_count(u16) ‖ record_change_number(u16).
func EncodeGetPDRReq(recordHandle, dataTransferHandle uint32, opFlag uint8, requestCount, recordChangeNumber uint16) []byte {
	buf := make([]byte, 4+4+1+2+2)
	PutUint32(buf[0:4], recordHandle)
	PutUint32(buf[4:8], dataTransferHandle)
	buf[8] = opFlag
	PutUint16(buf[9:11], requestCount)
	PutUint16(buf[11:13], recordChangeNumber)
	return buf
}

// DecodeGetPDRReq parses a GetPDR request body.
func DecodeGetPDRReq(body []byte) (recordHandle, dataTransferHandle uint32, opFlag uint8, requestCount, recordChangeNumber uint16, err error) {
	if len(body) < 13 {
		return 0, 0, 0, 0, 0, fmt.Errorf("wire: GetPDR request body too short: %d bytes", len(body))
	}
	recordHandle, _ = Uint32(body[0:4])
	dataTransferHandle, _ = Uint32(body[4:8])
	opFlag = body[8]
	requestCount, _ = Uint16(body[9:11])
	recordChangeNumber, _ = Uint16(body[11:13])
	return recordHandle, dataTransferHandle, opFlag, requestCount, recordChangeNumber, nil
}

// GetPDRResponse is the decoded body of a GetPDR response, restricted to
// the single-part transfer this stack ever sends or expects (spec §4.3.2
// "the implementation must accept single-part responses whose full body
// fits").
type GetPDRResponse struct {
	NextRecordHandle       uint32
	NextDataTransferHandle uint32
	TransferFlag           uint8
	ResponseCount          uint16
	RecordData             []byte
}

// EncodeGetPDRResp builds a single-part GetPDR response body: next_record_handle(u32)
// ‖ next_data_transfer_handle(u32) ‖ transfer_flag(u8) ‖ response_count(u16) ‖
// record_data[response_count].
func EncodeGetPDRResp(resp GetPDRResponse) []byte {
	buf := make([]byte, 4+4+1+2+len(resp.RecordData))
	PutUint32(buf[0:4], resp.NextRecordHandle)
	PutUint32(buf[4:8], resp.NextDataTransferHandle)
	buf[8] = resp.TransferFlag
	PutUint16(buf[9:11], uint16(len(resp.RecordData)))
	copy(buf[11:], resp.RecordData)
	return buf
}

// DecodeGetPDRResp parses a single-part GetPDR response body.
func DecodeGetPDRResp(body []byte) (GetPDRResponse, error) {
	if len(body) < 11 {
		return GetPDRResponse{}, fmt.Errorf("wire: GetPDR response body too short: %d bytes", len(body))
	}
	next, _ := Uint32(body[0:4])
	nextTransfer, _ := Uint32(body[4:8])
	flag := body[8]
	count, _ := Uint16(body[9:11])
	if len(body) < 11+int(count) {
		return GetPDRResponse{}, fmt.Errorf("wire: GetPDR response record data truncated: want %d have %d", count, len(body)-11)
	}
	return GetPDRResponse{
		NextRecordHandle:       next,
		NextDataTransferHandle: nextTransfer,
		TransferFlag:           flag,
		ResponseCount:          count,
		RecordData:             append([]byte(nil), body[11:11+int(count)]...),
	}, nil
}

// EncodeGetPLDMVersionReq builds the GetPLDMVersion request body (DSP0240
// Table 14): transfer_handle(u32) ‖ transfer_operation_flag(u8) ‖ pldm_type(u8).
func EncodeGetPLDMVersionReq(transferHandle uint32, opFlag uint8, pldmType uint8) []byte {
	buf := make([]byte, 4+1+1)
	PutUint32(buf[0:4], transferHandle)
	buf[4] = opFlag
	buf[5] = pldmType
	return buf
}
