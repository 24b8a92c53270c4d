package mctp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/wire"
	"github.com/openbmc-go/pldmd/pkg/bufpool"
)

// maxDatagramSize bounds one read; MCTP datagrams are small (typically
// well under 256 bytes of PLDM payload per baseline transmission unit).
const maxDatagramSize = 65536

// RequestHandler routes an inbound PLDM request to its command handler and
// returns the encoded response body and completion code (spec §4.1
// responder dispatch). The engine wraps the result in the response header.
type RequestHandler interface {
	Handle(ctx context.Context, eid uint8, hdr wire.Header, body []byte) (respBody []byte, completionCode uint8)
}

// ResponseCallback receives a complete response message (header, completion
// code, and body — decode with wire.SplitResponse), or (nil, err) on
// timeout or transport failure (spec §4.2 register_request).
type ResponseCallback func(eid uint8, respMsg []byte, err error)

type pendingKey struct {
	eid        uint8
	instanceID uint8
}

type pendingRequest struct {
	pldmType  uint8
	command   uint8
	callback  ResponseCallback
	timer     *time.Timer
	startedAt time.Time
}

// Engine is the MCTP request/response correlation layer (spec §4.2).
type Engine struct {
	transport Transport
	ids       *instanceid.DB
	handler   RequestHandler
	bufPool   *bufpool.Pool
	metrics   metrics.Recorder

	mu      sync.Mutex
	pending map[pendingKey]*pendingRequest

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewEngine constructs an Engine. handler may be nil if this process never
// receives requests (a pure requester); ids is shared across Engine and any
// higher-level caller that reserves instance-ids directly.
func NewEngine(transport Transport, ids *instanceid.DB, handler RequestHandler) *Engine {
	return &Engine{
		transport: transport,
		ids:       ids,
		handler:   handler,
		bufPool:   bufpool.NewPool(nil),
		pending:   make(map[pendingKey]*pendingRequest),
		shutdown:  make(chan struct{}),
	}
}

// Ids returns the instance-id database this engine correlates requests
// against, so callers can reserve an id before encoding a request body.
func (e *Engine) Ids() *instanceid.DB { return e.ids }

// SetMetrics attaches a metrics.Recorder. Leaving it unset (nil) disables
// collection with zero overhead, same as passing nil to the teacher's NFS
// adapter constructor.
func (e *Engine) SetMetrics(m metrics.Recorder) { e.metrics = m }

// Send writes a single complete PLDM message to eid, framing it with the
// MCTP [eid, msg_type] prefix (spec §4.2 send).
func (e *Engine) Send(eid uint8, msg []byte) (int, error) {
	datagram := make([]byte, 2+len(msg))
	datagram[0] = eid
	datagram[1] = MsgType
	copy(datagram[2:], msg)
	return e.transport.WriteDatagram(datagram)
}

// SendRecv sends req (a fully-encoded PLDM request message, header
// included) and blocks until a matching response arrives or the
// per-command timeout elapses (spec §4.2 send_recv).
func (e *Engine) SendRecv(ctx context.Context, eid uint8, req []byte) ([]byte, error) {
	hdr, err := wire.DecodeHeader(req)
	if err != nil {
		return nil, fmt.Errorf("mctp: send_recv: %w", err)
	}

	respCh := make(chan struct {
		body []byte
		err  error
	}, 1)

	if err := e.registerLocked(eid, hdr, func(_ uint8, body []byte, err error) {
		respCh <- struct {
			body []byte
			err  error
		}{body, err}
	}); err != nil {
		return nil, err
	}

	if _, err := e.Send(eid, req); err != nil {
		e.cancelPending(eid, hdr.InstanceID)
		e.ids.Free(eid, hdr.InstanceID)
		return nil, fmt.Errorf("mctp: send: %w", err)
	}

	select {
	case result := <-respCh:
		return result.body, result.err
	case <-ctx.Done():
		e.cancelPending(eid, hdr.InstanceID)
		e.ids.Free(eid, hdr.InstanceID)
		return nil, ctx.Err()
	}
}

// RegisterRequest is the non-blocking variant of SendRecv: on (cooperative)
// scheduling, the caller retains control and cb fires later from the
// engine's serve loop (spec §4.2 register_request).
func (e *Engine) RegisterRequest(eid uint8, req []byte, cb ResponseCallback) error {
	hdr, err := wire.DecodeHeader(req)
	if err != nil {
		return fmt.Errorf("mctp: register_request: %w", err)
	}
	if err := e.registerLocked(eid, hdr, cb); err != nil {
		return err
	}
	if _, err := e.Send(eid, req); err != nil {
		e.cancelPending(eid, hdr.InstanceID)
		e.ids.Free(eid, hdr.InstanceID)
		return fmt.Errorf("mctp: send: %w", err)
	}
	return nil
}

func (e *Engine) registerLocked(eid uint8, hdr wire.Header, cb ResponseCallback) error {
	key := pendingKey{eid, hdr.InstanceID}

	e.mu.Lock()
	if _, exists := e.pending[key]; exists {
		e.mu.Unlock()
		return instanceid.ErrAlreadyReserved
	}
	timeout := TimeoutFor(hdr.Type, hdr.Command)
	pr := &pendingRequest{pldmType: hdr.Type, command: hdr.Command, callback: cb, startedAt: time.Now()}
	pr.timer = time.AfterFunc(timeout, func() { e.onTimeout(eid, hdr.InstanceID) })
	e.pending[key] = pr
	inFlight := len(e.pending)
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.SetInFlightRequests(inFlight)
	}
	return nil
}

func (e *Engine) onTimeout(eid, instanceID uint8) {
	key := pendingKey{eid, instanceID}
	e.mu.Lock()
	pr, ok := e.pending[key]
	if ok {
		delete(e.pending, key)
	}
	inFlight := len(e.pending)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.ids.Free(eid, instanceID)
	if e.metrics != nil {
		e.metrics.SetInFlightRequests(inFlight)
		e.metrics.RecordRequestTimeout(pr.pldmType, pr.command)
	}
	pr.callback(eid, nil, fmt.Errorf("mctp: request timed out"))
}

func (e *Engine) cancelPending(eid, instanceID uint8) {
	key := pendingKey{eid, instanceID}
	e.mu.Lock()
	pr, ok := e.pending[key]
	if ok {
		delete(e.pending, key)
	}
	e.mu.Unlock()
	if ok && pr.timer != nil {
		pr.timer.Stop()
	}
}

// Serve runs the engine's read loop until ctx is cancelled or Stop is
// called: it demultiplexes inbound datagrams by header, routing responses
// to their correlation-table entry and requests to handler (spec §4.2
// "Data flow").
func (e *Engine) Serve(ctx context.Context) error {
	e.wg.Add(1)
	defer e.wg.Done()

	go func() {
		select {
		case <-ctx.Done():
			e.Stop()
		case <-e.shutdown:
		}
	}()

	buf := e.bufPool.Get(maxDatagramSize)
	defer e.bufPool.Put(buf)

	for {
		select {
		case <-e.shutdown:
			return nil
		default:
		}

		n, err := e.transport.ReadDatagram(buf)
		if err != nil {
			if to, ok := err.(IsTimeout); ok && to.Timeout() {
				continue
			}
			select {
			case <-e.shutdown:
				return nil
			default:
				logger.WarnCtx(ctx, "mctp: transport read error", logger.Err(err))
				continue
			}
		}
		if n < 2 {
			continue
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		e.handleDatagram(ctx, datagram)
	}
}

// Stop signals the serve loop to exit. Safe to call multiple times.
func (e *Engine) Stop() {
	e.shutdownOnce.Do(func() { close(e.shutdown) })
	e.wg.Wait()
}

func (e *Engine) handleDatagram(ctx context.Context, datagram []byte) {
	eid, msgType := datagram[0], datagram[1]
	if msgType != MsgType {
		return
	}
	msg := datagram[2:]

	hdr, err := wire.DecodeHeader(msg)
	if err != nil {
		return
	}

	if hdr.IsRequest {
		e.handleRequest(ctx, eid, hdr, msg)
		return
	}
	e.handleResponse(eid, hdr, msg)
}

func (e *Engine) handleRequest(ctx context.Context, eid uint8, hdr wire.Header, msg []byte) {
	if e.handler == nil {
		return
	}
	var body []byte
	if len(msg) > wire.HeaderLength {
		body = msg[wire.HeaderLength:]
	}

	respBody, completionCode := e.handler.Handle(ctx, eid, hdr, body)
	resp, err := wire.EncodeResponse(hdr.InstanceID, hdr.Type, hdr.Command, completionCode, respBody)
	if err != nil {
		logger.WarnCtx(ctx, "mctp: encode response failed", logger.Err(err))
		return
	}
	if hdr.IsAsyncReq {
		return // one-way notification: no response expected
	}
	if _, err := e.Send(eid, resp); err != nil {
		logger.WarnCtx(ctx, "mctp: send response failed", logger.Err(err))
	}
}

// handleResponse validates and routes a response per spec §4.2 "Response
// validation": matching EID is implicit (we only read datagrams already
// demultiplexed to our socket); msg_type was checked by the caller; here we
// check the request bit, the instance-id reservation, and the type/command
// match. Mismatches are silently dropped.
func (e *Engine) handleResponse(eid uint8, hdr wire.Header, msg []byte) {
	key := pendingKey{eid, hdr.InstanceID}

	e.mu.Lock()
	pr, ok := e.pending[key]
	if ok {
		if pr.pldmType != hdr.Type || pr.command != hdr.Command {
			e.mu.Unlock()
			return
		}
		delete(e.pending, key)
	}
	inFlight := len(e.pending)
	e.mu.Unlock()
	if !ok {
		return
	}
	if pr.timer != nil {
		pr.timer.Stop()
	}
	e.ids.Free(eid, hdr.InstanceID)
	if e.metrics != nil {
		e.metrics.SetInFlightRequests(inFlight)
		_, completionCode, _, err := wire.SplitResponse(msg)
		if err == nil {
			e.metrics.RecordRequest(pr.pldmType, pr.command, time.Since(pr.startedAt), completionCode)
		}
	}
	pr.callback(eid, msg, nil)
}
