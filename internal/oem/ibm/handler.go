package ibm

import (
	"context"
	"fmt"
	"sync"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/responder"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// transfer tracks one in-flight or completed file transfer.
type transfer struct {
	fileType FileType
	length   uint64
	buf      []byte
	complete bool
}

// Handler answers the IBM OEM file-transfer commands (NewFileAvailable,
// WriteFile, ReadFile, FileAck), persisting completed transfers to a Store.
// Writes must arrive in sequential offset order; this stack does not
// reassemble out-of-order chunks, matching every original_source
// FileHandler's own single-pass read/write loop.
type Handler struct {
	Store Store

	mu        sync.Mutex
	transfers map[uint32]*transfer
}

// NewHandler constructs a Handler persisting completed transfers to store.
func NewHandler(store Store) *Handler {
	return &Handler{Store: store, transfers: make(map[uint32]*transfer)}
}

// Register installs this Handler's commands into d under PLDM type OEM.
func (h *Handler) Register(d *responder.Dispatcher) {
	d.Register(wire.TypeOEM, wire.CmdOEMNewFileAvailable, "IBMNewFileAvailable", h.handleNewFileAvailable)
	d.Register(wire.TypeOEM, wire.CmdOEMWriteFile, "IBMWriteFile", h.handleWriteFile)
	d.Register(wire.TypeOEM, wire.CmdOEMReadFile, "IBMReadFile", h.handleReadFile)
	d.Register(wire.TypeOEM, wire.CmdOEMFileAck, "IBMFileAck", h.handleFileAck)
}

func (h *Handler) handleNewFileAvailable(ctx context.Context, eid uint8, body []byte) ([]byte, uint8) {
	fileHandle, fileType, length, err := wire.DecodeOEMNewFileAvailableReq(body)
	if err != nil {
		return nil, wire.ErrorInvalidLength
	}

	h.mu.Lock()
	h.transfers[fileHandle] = &transfer{fileType: FileType(fileType), length: length, buf: make([]byte, 0, length)}
	h.mu.Unlock()

	logger.InfoCtx(ctx, "oem/ibm: file transfer opened", logger.EID(eid), "file_handle", fileHandle, "file_type", FileType(fileType).String(), "length", length)
	return nil, wire.Success
}

func (h *Handler) handleWriteFile(ctx context.Context, eid uint8, body []byte) ([]byte, uint8) {
	fileHandle, offset, data, err := wire.DecodeOEMWriteFileReq(body)
	if err != nil {
		return nil, wire.ErrorInvalidLength
	}

	h.mu.Lock()
	xfer, ok := h.transfers[fileHandle]
	if !ok {
		h.mu.Unlock()
		return nil, wire.ErrorInvalidData
	}
	if int(offset) != len(xfer.buf) {
		h.mu.Unlock()
		logger.WarnCtx(ctx, "oem/ibm: out-of-order write, rejecting", logger.EID(eid), "file_handle", fileHandle, "offset", offset, "expected", len(xfer.buf))
		return nil, wire.ErrorInvalidData
	}
	xfer.buf = append(xfer.buf, data...)
	complete := uint64(len(xfer.buf)) >= xfer.length
	if complete {
		xfer.complete = true
	}
	h.mu.Unlock()

	if complete {
		key := fileKey(xfer.fileType, fileHandle)
		if err := h.Store.PutFile(ctx, key, xfer.buf); err != nil {
			logger.ErrorCtx(ctx, "oem/ibm: persist file failed", logger.EID(eid), "file_handle", fileHandle, logger.Err(err))
			return nil, wire.Error
		}
		h.mu.Lock()
		xfer.buf = nil // release the transfer buffer now that it's durable
		h.mu.Unlock()
		logger.InfoCtx(ctx, "oem/ibm: file transfer complete", logger.EID(eid), "file_handle", fileHandle, "file_type", xfer.fileType.String())
	}

	return wire.EncodeOEMWriteFileResp(uint32(len(data))), wire.Success
}

func (h *Handler) handleReadFile(ctx context.Context, eid uint8, body []byte) ([]byte, uint8) {
	fileHandle, offset, length, err := wire.DecodeOEMReadFileReq(body)
	if err != nil {
		return nil, wire.ErrorInvalidLength
	}

	h.mu.Lock()
	xfer, ok := h.transfers[fileHandle]
	h.mu.Unlock()
	if !ok || !xfer.complete {
		return nil, wire.ErrorInvalidData
	}

	data, err := h.Store.GetFile(ctx, fileKey(xfer.fileType, fileHandle), offset, length)
	if err != nil {
		logger.ErrorCtx(ctx, "oem/ibm: read file failed", logger.EID(eid), "file_handle", fileHandle, logger.Err(err))
		return nil, wire.Error
	}
	return wire.EncodeOEMReadFileResp(data), wire.Success
}

func (h *Handler) handleFileAck(ctx context.Context, eid uint8, body []byte) ([]byte, uint8) {
	fileHandle, status, err := wire.DecodeOEMFileAckReq(body)
	if err != nil {
		return nil, wire.ErrorInvalidLength
	}

	h.mu.Lock()
	delete(h.transfers, fileHandle)
	h.mu.Unlock()

	logger.InfoCtx(ctx, "oem/ibm: file transfer acknowledged", logger.EID(eid), "file_handle", fileHandle, "status", status)
	return nil, wire.Success
}

func fileKey(typ FileType, fileHandle uint32) string {
	return fmt.Sprintf("%s/%d", typ, fileHandle)
}
