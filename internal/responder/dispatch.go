// Package responder implements the (type, command) -> handler dispatch
// table that answers inbound PLDM requests (spec §4.1 "Responder
// dispatch").
//
// Shape grounded on the teacher's internal/protocol/portmap dispatch table:
// a map keyed by the wire discriminator (there, a procedure number populated
// in init(); here, a (type, command) pair populated through Register), each
// entry a name (for logging) plus a handler closure.
package responder

import (
	"context"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// Handler processes one command's request body and returns the encoded
// response body plus completion code.
type Handler func(ctx context.Context, eid uint8, body []byte) (respBody []byte, completionCode uint8)

// Command names one dispatch table entry for logging.
type Command struct {
	Name    string
	Handler Handler
}

type key struct {
	pldmType uint8
	command  uint8
}

// Dispatcher routes (type, command) to a registered Command and implements
// mctp.RequestHandler.
type Dispatcher struct {
	table map[key]*Command
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{table: make(map[key]*Command)}
}

// Register binds pldmType/command to name and fn. Re-registering the same
// key overwrites the previous entry, matching the teacher's init()-time map
// literal semantics (last write wins) but exposed as a method so tests and
// the OEM plugin registry (spec §4.4.5) can extend the table at runtime.
func (d *Dispatcher) Register(pldmType, command uint8, name string, fn Handler) {
	d.table[key{pldmType, command}] = &Command{Name: name, Handler: fn}
}

// knownType reports whether pldmType has at least one registered command,
// so Handle can distinguish ERROR_INVALID_PLDM_TYPE from
// ERROR_UNSUPPORTED_PLDM_CMD (spec §4.2 "Responder dispatch").
func (d *Dispatcher) knownType(pldmType uint8) bool {
	for k := range d.table {
		if k.pldmType == pldmType {
			return true
		}
	}
	return false
}

// Handle implements mctp.RequestHandler: unknown type yields
// ERROR_INVALID_PLDM_TYPE, unknown command within a known type yields
// ERROR_UNSUPPORTED_PLDM_CMD (spec §4.2).
func (d *Dispatcher) Handle(ctx context.Context, eid uint8, hdr wire.Header, body []byte) ([]byte, uint8) {
	cmd, ok := d.table[key{hdr.Type, hdr.Command}]
	if !ok {
		if !d.knownType(hdr.Type) {
			logger.WarnCtx(ctx, "responder: unknown pldm type", logger.EID(eid), logger.PLDMType(hdr.Type))
			return nil, wire.ErrorInvalidPLDMType
		}
		logger.WarnCtx(ctx, "responder: unsupported command", logger.EID(eid), logger.PLDMType(hdr.Type), logger.Command(hdr.Command))
		return nil, wire.ErrorUnsupportedCmd
	}
	return cmd.Handler(ctx, eid, body)
}

var _ mctp.RequestHandler = (*Dispatcher)(nil)
