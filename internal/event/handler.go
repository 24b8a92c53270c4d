// Package event implements PlatformEventMessage receiving and emitting
// (spec §4.5): StateSensorEvent dispatch into the JSON-driven action table,
// PDRRepositoryChgEvent ingestion into the host-sync delta queue, and the
// synchronizer's own PDRRepositoryChgEvent emission after an association
// merge.
//
// Shape grounded on the same "small struct holding its collaborators,
// registered into the dispatch table via a Register method" pattern as
// internal/responder's PDRHandlers, since a PlatformEventMessage handler is
// just one more responder command with richer payload decoding.
package event

import (
	"context"
	"fmt"

	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/responder"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// DeltaQueue receives PDR record handles that changed on the host side,
// implemented by internal/hostsync's synchronizer state machine (spec
// §4.3.2 pending/modified FIFO queues).
type DeltaQueue interface {
	// EnqueuePDRChange receives the handles of one change record together
	// with that record's operation code (wire.PDRRepoOp*).
	EnqueuePDRChange(handles []uint32, operation uint8)
}

// StateSensorAction is a JSON-config-bound callback invoked when a
// StateSensorEvent arrives for a sensor this action table recognizes (spec
// §4.5.1 "invoke the matching state-sensor-handler action registered in
// JSON-driven event config").
type StateSensorAction func(ctx context.Context, eid uint8, info *effecter.SensorInfo, data wire.StateSensorEventData)

// ActionRegistry maps a configured action name to the callback it invokes,
// the same named-closure-in-a-map shape as responder.Dispatcher's command
// table.
type ActionRegistry struct {
	actions map[string]StateSensorAction
}

// NewActionRegistry constructs an empty ActionRegistry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]StateSensorAction)}
}

// Register binds name to fn. Re-registering overwrites the previous entry.
func (a *ActionRegistry) Register(name string, fn StateSensorAction) {
	a.actions[name] = fn
}

// Handler answers PlatformEventMessage requests (spec §4.5.1) and emits
// PDRRepositoryChgEvent notifications after an association merge (spec
// §4.5.2).
type Handler struct {
	Reg      *effecter.Registry
	Actions  *ActionRegistry
	Bindings map[effecter.SensorKey]string // sensor -> action name
	Queue    DeltaQueue
	Engine   *mctp.Engine
}

// Register installs this Handler's PlatformEventMessage handler into d
// under PLDM type PLATFORM.
func (h *Handler) Register(d *responder.Dispatcher) {
	d.Register(wire.TypePlatform, wire.CmdPlatformEventMessage, "PlatformEventMessage", h.handle)
}

// handle implements responder.Handler: decode the event-format tag and
// dispatch to the matching payload decoder. Every supported format is
// acknowledged with SUCCESS and a zero platform_event_status byte (spec
// §4.5.1); formats this stack does not act on (SensorEvent, EffecterEvent)
// are still acknowledged, just not otherwise processed.
func (h *Handler) handle(ctx context.Context, eid uint8, body []byte) ([]byte, uint8) {
	format, eventData, err := wire.DecodePlatformEventMessageReq(body)
	if err != nil {
		return nil, wire.ErrorInvalidLength
	}

	switch format {
	case wire.EventFormatStateSensorEvent:
		h.handleStateSensorEvent(ctx, eid, eventData)
	case wire.EventFormatPDRRepositoryChgEvent:
		h.handlePDRRepositoryChgEvent(ctx, eid, eventData)
	case wire.EventFormatSensorEvent, wire.EventFormatEffecterEvent:
		logger.DebugCtx(ctx, "event: acknowledging unhandled event format", logger.EID(eid))
	default:
		logger.WarnCtx(ctx, "event: unrecognized event format", logger.EID(eid))
	}

	return wire.EncodePlatformEventMessageResp(), wire.Success
}

func (h *Handler) handleStateSensorEvent(ctx context.Context, eid uint8, eventData []byte) {
	data, err := wire.DecodeStateSensorEventData(eventData)
	if err != nil {
		logger.WarnCtx(ctx, "event: malformed StateSensorEvent payload", logger.EID(eid), logger.Err(err))
		return
	}
	h.dispatch(ctx, eid, data)
}

// DispatchStateSensorReading feeds a sensor reading obtained outside of an
// actual StateSensorEvent message (a GetStateSensorReadings response issued
// during the PDR walk's sensor-accumulation step) through the same bound
// action table a live StateSensorEvent would use (spec §4.3.2 step 4).
func (h *Handler) DispatchStateSensorReading(ctx context.Context, eid uint8, sensorID uint16, offset uint8, eventState uint8) {
	h.dispatch(ctx, eid, wire.StateSensorEventData{
		SensorID:     sensorID,
		SensorOffset: offset,
		EventState:   eventState,
	})
}

func (h *Handler) dispatch(ctx context.Context, eid uint8, data wire.StateSensorEventData) {
	key := effecter.SensorKey{TID: eid, SensorID: data.SensorID}
	info, ok := h.Reg.Sensor(key)
	if !ok {
		logger.WarnCtx(ctx, "event: state sensor reading for unknown sensor", logger.EID(eid), logger.SensorID(data.SensorID))
		return
	}
	if int(data.SensorOffset) >= len(info.CompositeSensorStates) {
		logger.WarnCtx(ctx, "event: state sensor reading offset out of range", logger.EID(eid), logger.SensorID(data.SensorID), logger.SensorOffset(data.SensorOffset))
		return
	}

	actionName, bound := h.Bindings[key]
	if !bound {
		return
	}
	action, ok := h.Actions.actions[actionName]
	if !ok {
		logger.WarnCtx(ctx, "event: unconfigured state-sensor action", logger.EID(eid), logger.SensorID(data.SensorID), "action", actionName)
		return
	}
	action(ctx, eid, info, data)
}

func (h *Handler) handlePDRRepositoryChgEvent(ctx context.Context, eid uint8, eventData []byte) {
	data, err := wire.DecodePDRRepositoryChgEventData(eventData)
	if err != nil {
		logger.WarnCtx(ctx, "event: malformed PDRRepositoryChgEvent payload", logger.EID(eid), logger.Err(err))
		return
	}
	if h.Queue == nil {
		return
	}
	h.Queue.EnqueuePDRChange(data.RecordHandles, data.Operation)
}

// EmitPDRRepositoryChgEvent sends PlatformEventMessage(PDRRepositoryChgEvent,
// FORMAT_IS_PDR_HANDLES) to eid after the synchronizer merges an
// entity-association tree, carrying one change-record with
// operation=RECORDS_ADDED and the merged record handles (spec §4.5.2).
func (h *Handler) EmitPDRRepositoryChgEvent(ctx context.Context, eid uint8, mergedHandles []uint32) error {
	eventData := wire.EncodePDRRepositoryChgEventData(wire.PDRRepositoryChgEventData{
		Operation:     wire.PDRRepoOpRecordsAdded,
		RecordHandles: mergedHandles,
	})
	reqBody := wire.EncodePlatformEventMessageReq(wire.EventFormatPDRRepositoryChgEvent, eventData)

	instanceID, err := h.Engine.Ids().Next(eid)
	if err != nil {
		return fmt.Errorf("event: reserve instance id: %w", err)
	}
	req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, wire.CmdPlatformEventMessage, reqBody)
	if err != nil {
		h.Engine.Ids().Free(eid, instanceID)
		return fmt.Errorf("event: encode PlatformEventMessage: %w", err)
	}

	resp, err := h.Engine.SendRecv(ctx, eid, req)
	if err != nil {
		return fmt.Errorf("event: emit PDRRepositoryChgEvent: %w", err)
	}
	_, cc, _, err := wire.SplitResponse(resp)
	if err != nil {
		return fmt.Errorf("event: emit PDRRepositoryChgEvent: decode response: %w", err)
	}
	if cc != wire.Success {
		return fmt.Errorf("event: emit PDRRepositoryChgEvent: completion code %s", wire.CompletionCodeName(cc))
	}
	return nil
}
