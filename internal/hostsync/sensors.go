package hostsync

import (
	"context"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// SensorDispatcher feeds a GetStateSensorReadings result through the same
// bound action table a live StateSensorEvent would use, implemented by
// internal/event.Handler.
type SensorDispatcher interface {
	DispatchStateSensorReading(ctx context.Context, eid uint8, sensorID uint16, offset uint8, eventState uint8)
}

// ReadStateSensors issues GetStateSensorReadings for every sensor accumulated
// in handles (normally WalkResult.StateSensorHandles) and dispatches each
// composite offset's current event state through dispatch (spec §4.3.2 step
// 4: "after the walk completes, each accumulated state sensor is read back
// and its state dispatched as if a StateSensorEvent had just arrived"). A
// GetStateSensorReadings failure for one sensor is logged and does not abort
// the remaining sensors.
func (s *Synchronizer) ReadStateSensors(ctx context.Context, handles []uint32, dispatch SensorDispatcher) {
	for _, handle := range handles {
		rec, _, err := s.Repo.Find(handle)
		if err != nil || rec == nil {
			logger.WarnCtx(ctx, "hostsync: state sensor record vanished before readback", logger.EID(s.HostEID), logger.RecordHandle(handle))
			continue
		}
		header, err := pdr.DecodeRecordEntityHeader(rec.Body)
		if err != nil {
			logger.WarnCtx(ctx, "hostsync: malformed state sensor PDR at readback", logger.EID(s.HostEID), logger.RecordHandle(handle), logger.Err(err))
			continue
		}

		readings, err := s.readStateSensor(ctx, header.ID)
		if err != nil {
			logger.WarnCtx(ctx, "hostsync: GetStateSensorReadings failed", logger.EID(s.HostEID), logger.SensorID(header.ID), logger.Err(err))
			continue
		}

		if dispatch == nil {
			continue
		}
		for offset, reading := range readings {
			dispatch.DispatchStateSensorReading(ctx, s.HostEID, header.ID, uint8(offset), reading.EventState)
		}
	}
}

func (s *Synchronizer) readStateSensor(ctx context.Context, sensorID uint16) ([]wire.SensorReading, error) {
	resp, err := s.sendRecv(ctx, wire.TypePlatform, wire.CmdGetStateSensorReadings, wire.EncodeGetStateSensorReadingsReq(sensorID))
	if err != nil {
		return nil, err
	}
	_, cc, body, err := wire.SplitResponse(resp)
	if err != nil {
		return nil, err
	}
	if cc != wire.Success {
		return nil, &completionError{command: "GetStateSensorReadings", code: cc}
	}
	return wire.DecodeGetStateSensorReadingsResp(body)
}

// EnqueuePDRChange implements internal/event.DeltaQueue: every reported
// handle, regardless of operation, is deposited into the modified-handle
// queue for the next Walk to re-fetch (spec §4.3.2 "a PDRRepositoryChgEvent
// deposits its handles into modified_handles").
func (s *Synchronizer) EnqueuePDRChange(handles []uint32, _ uint8) {
	s.Fetch(handles, true)
}

type completionError struct {
	command string
	code    uint8
}

func (e *completionError) Error() string {
	return "hostsync: " + e.command + ": completion code " + wire.CompletionCodeName(e.code)
}
