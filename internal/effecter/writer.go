package effecter

import (
	"context"
	"fmt"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// Boot-progress states gating effecter writes (spec §4.4.3 "Check host
// boot-progress").
const (
	BootProgressSystemInitComplete = "SystemInitComplete"
	BootProgressOSRunning          = "OSRunning"
	BootProgressSystemSetup        = "SystemSetup"
)

var writableBootProgress = map[string]bool{
	BootProgressSystemInitComplete: true,
	BootProgressOSRunning:          true,
	BootProgressSystemSetup:        true,
}

// BootProgressSource reports the host's current boot-progress state,
// satisfied by internal/hostsync in production and by a stub in tests.
type BootProgressSource interface {
	BootProgress() string
}

// AuditRecorder persists one numeric-effecter write attempt, satisfied by
// *internal/store.GORMStore.
type AuditRecorder interface {
	RecordEffecterWrite(ctx context.Context, eid uint8, effecterID uint16, outcome, detail string) error
}

// Writer drives the state-effecter and numeric-effecter write pipelines
// (spec §4.4.3, §4.4.4) over an mctp.Engine, resolving unresolved effecter
// ids against a *pdr.Repository and tracking effecter state in a *Registry.
type Writer struct {
	Engine  *mctp.Engine
	Repo    *pdr.Repository
	Reg     *Registry
	Boot    BootProgressSource
	Metrics metrics.Recorder
	Audit   AuditRecorder
}

// recordAudit writes an audit entry if w.Audit is configured, logging (not
// returning) any failure since an audit-trail write should never fail the
// effecter write it describes.
func (w *Writer) recordAudit(ctx context.Context, eid uint8, effecterID uint16, outcome, detail string) {
	if w.Audit == nil {
		return
	}
	if err := w.Audit.RecordEffecterWrite(ctx, eid, effecterID, outcome, detail); err != nil {
		logger.WarnCtx(ctx, "effecter: write audit entry failed", logger.EID(eid), logger.Err(err))
	}
}

// WriteStateEffecter implements the state-effecter write pipeline (spec
// §4.4.3): resolves an unresolved effecter id, checks boot-progress
// gating, builds the composite state_field array, and sends
// SetStateEffecterStates. Any response completion code is accepted; a
// non-success code is only logged, matching the fire-and-forget semantics
// a D-Bus property-changed callback has no caller to report back to.
func (w *Writer) WriteStateEffecter(ctx context.Context, eid uint8, cfg *EffecterConfig, entry *EffecterEntry, newStateIndex int) error {
	if w.Boot != nil && !writableBootProgress[w.Boot.BootProgress()] {
		return fmt.Errorf("effecter: host boot progress %q does not permit effecter writes", w.Boot.BootProgress())
	}

	effecterID := cfg.EffecterID
	if effecterID == InvalidEffecterID {
		resolved, err := w.resolveStateEffecterID(cfg, entry)
		if err != nil {
			return err
		}
		effecterID = resolved
		cfg.EffecterID = resolved
	}

	if newStateIndex < 0 || newStateIndex >= len(entry.State.StateValues) {
		return fmt.Errorf("effecter: state index %d out of range for effecter %d", newStateIndex, effecterID)
	}

	fields := make([]wire.StateField, cfg.CompositeEffecterCount)
	for i := range fields {
		fields[i] = wire.StateField{RequestSet: wire.NoChange, State: 0}
	}
	fields[entry.DBusInfoIndex] = wire.StateField{RequestSet: wire.RequestSet, State: uint8(newStateIndex)}

	body, err := wire.EncodeSetStateEffecterStatesReq(effecterID, fields)
	if err != nil {
		return fmt.Errorf("effecter: encode SetStateEffecterStates: %w", err)
	}

	return w.sendAndLog(ctx, eid, wire.TypePlatform, wire.CmdSetStateEffecterStates, body, "SetStateEffecterStates")
}

func (w *Writer) resolveStateEffecterID(cfg *EffecterConfig, entry *EffecterEntry) (uint16, error) {
	if w.Repo == nil {
		return 0, fmt.Errorf("effecter: no repository configured to resolve effecter id")
	}
	return FindStateEffecterID(w.Repo, cfg.Entity.Type, cfg.Entity.Instance, cfg.Entity.ContainerID, entry.State.ID)
}

// WritePowerCap implements the numeric-effecter power-cap setter (spec
// §4.4.4): validates the requested watt value against the effecter's
// settable range, converts base units to the raw wire value via
// (resolution, offset), and dispatches SetNumericEffecterValue.
func (w *Writer) WritePowerCap(ctx context.Context, eid uint8, info *EffecterInfo, watts float64) error {
	if watts < info.MinSettable || watts > info.MaxSettable {
		detail := fmt.Sprintf("%.2fW out of range [%.2f, %.2f]", watts, info.MinSettable, info.MaxSettable)
		if w.Metrics != nil {
			w.Metrics.RecordEffecterWrite(info.EffecterID, "validation_failed")
		}
		w.recordAudit(ctx, eid, info.EffecterID, "validation_failed", detail)
		return fmt.Errorf("effecter: power cap %.2fW out of range [%.2f, %.2f]", watts, info.MinSettable, info.MaxSettable)
	}
	raw := toRaw(watts, info.Resolution, info.Offset)
	body, err := wire.EncodeSetNumericEffecterValueReq(info.EffecterID, info.DataSize, raw)
	if err != nil {
		return fmt.Errorf("effecter: encode SetNumericEffecterValue: %w", err)
	}
	err = w.sendAndLog(ctx, eid, wire.TypePlatform, wire.CmdSetNumericEffecterValue, body, "SetNumericEffecterValue")
	outcome := "success"
	detail := ""
	if err != nil {
		outcome = "send_failed"
		detail = err.Error()
	}
	if w.Metrics != nil {
		w.Metrics.RecordEffecterWrite(info.EffecterID, outcome)
	}
	w.recordAudit(ctx, eid, info.EffecterID, outcome, detail)
	return err
}

// WritePowerCapEnable implements the PowerCapEnable setter (spec §4.4.4):
// dispatches SetNumericEffecterEnable with enabled-update-pending or
// disabled.
func (w *Writer) WritePowerCapEnable(ctx context.Context, eid uint8, effecterID uint16, enabled bool) error {
	operState := wire.EffecterOperDisabled
	if enabled {
		operState = wire.EffecterOperEnabledUpdatePending
	}
	body := wire.EncodeSetNumericEffecterEnableReq(effecterID, operState)
	return w.sendAndLog(ctx, eid, wire.TypePlatform, wire.CmdSetNumericEffecterEnable, body, "SetNumericEffecterEnable")
}

// RefreshNumericEffecter issues GetNumericEffecterValue and updates the
// registry's cached operational state and value for effecterID (spec
// §4.4.4 "A periodic or response-triggered GetNumericEffecterValue updates
// the cached state").
func (w *Writer) RefreshNumericEffecter(ctx context.Context, eid uint8, effecterID uint16) (present int64, err error) {
	reqBody := wire.EncodeGetNumericEffecterValueReq(effecterID)
	resp, err := w.sendRecv(ctx, eid, wire.TypePlatform, wire.CmdGetNumericEffecterValue, reqBody)
	if err != nil {
		return 0, fmt.Errorf("effecter: GetNumericEffecterValue: %w", err)
	}
	_, cc, body, err := wire.SplitResponse(resp)
	if err != nil {
		return 0, fmt.Errorf("effecter: GetNumericEffecterValue: decode response: %w", err)
	}
	if cc != wire.Success {
		return 0, fmt.Errorf("effecter: GetNumericEffecterValue: completion code %s", wire.CompletionCodeName(cc))
	}
	dataSize, operState, presentValue, _, err := wire.DecodeGetNumericEffecterValueResp(body)
	if err != nil {
		return 0, fmt.Errorf("effecter: GetNumericEffecterValue: decode body: %w", err)
	}
	if w.Reg != nil {
		if info, ok := w.Reg.Effecter(effecterID); ok {
			info.DataSize = dataSize
			info.OperationalState = operState
		}
	}
	return presentValue, nil
}

func (w *Writer) sendAndLog(ctx context.Context, eid, pldmType, command uint8, body []byte, name string) error {
	resp, err := w.sendRecv(ctx, eid, pldmType, command, body)
	if err != nil {
		return fmt.Errorf("effecter: %s: %w", name, err)
	}
	_, cc, _, err := wire.SplitResponse(resp)
	if err != nil {
		return fmt.Errorf("effecter: %s: decode response: %w", name, err)
	}
	if cc != wire.Success {
		logger.WarnCtx(ctx, "effecter: command completed with non-success code", "command", name, logger.EID(eid), "completion_code", wire.CompletionCodeName(cc))
	}
	return nil
}

func (w *Writer) sendRecv(ctx context.Context, eid, pldmType, command uint8, body []byte) ([]byte, error) {
	instanceID, err := w.Engine.Ids().Next(eid)
	if err != nil {
		return nil, err
	}
	req, err := wire.EncodeRequest(instanceID, pldmType, command, body)
	if err != nil {
		w.Engine.Ids().Free(eid, instanceID)
		return nil, err
	}
	return w.Engine.SendRecv(ctx, eid, req)
}

// toRaw converts a base-unit value to the raw wire value via
// raw = (value-offset)/resolution (DSP0248 §28.4 "effecter value
// conversion"), inverted from the present-value conversion
// value = raw*resolution + offset.
func toRaw(value, resolution, offset float64) int64 {
	if resolution == 0 {
		resolution = 1
	}
	return int64((value - offset) / resolution)
}

// fromRaw converts a raw wire value back to its base-unit value.
func fromRaw(raw int64, resolution, offset float64) float64 {
	return float64(raw)*resolution + offset
}
