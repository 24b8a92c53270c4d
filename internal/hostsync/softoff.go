package hostsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// SoftOffTrigger requests the host begin a graceful power-off by driving a
// fixed state effecter, then waits (bounded by Timeout) for the host's
// completion notification before host-off teardown proceeds (spec §4.3.4
// enrichment).
//
// Grounded on original_source/softoff/softoff.hpp's PldmSoftPowerOff: the
// original sends SetStateEffecterStates for a fixed (mctp eid, effecter id,
// state) triple and blocks a phosphor::Timer on a D-Bus match for the
// completion signal; here the D-Bus match is replaced by Complete(), called
// from the same event.Handler callback path every other sensor transition
// in this stack already uses, and the blocking wait is a channel instead of
// a sd-event timer.
type SoftOffTrigger struct {
	Engine     *mctp.Engine
	EffecterID uint16
	State      uint8
	Timeout    time.Duration

	mu        sync.Mutex
	completed bool
	doneCh    chan struct{}
}

// NewSoftOffTrigger constructs a SoftOffTrigger. A zero timeout falls back
// to 2700s, the original's default timeOutSeconds.
func NewSoftOffTrigger(engine *mctp.Engine, effecterID uint16, state uint8, timeout time.Duration) *SoftOffTrigger {
	if timeout == 0 {
		timeout = 2700 * time.Second
	}
	return &SoftOffTrigger{
		Engine:     engine,
		EffecterID: effecterID,
		State:      state,
		Timeout:    timeout,
		doneCh:     make(chan struct{}),
	}
}

// Trigger sends SetStateEffecterStates requesting the host begin soft-off
// (the original's setStateEffecterStates()). It does not resolve the
// effecter id against the PDR repository, matching the original's own
// hard-coded HOST_SOFTOFF_EFFECTER_ID/HOST_SOFTOFF_STATE constants.
func (t *SoftOffTrigger) Trigger(ctx context.Context, eid uint8) error {
	t.mu.Lock()
	t.completed = false
	t.doneCh = make(chan struct{})
	t.mu.Unlock()

	fields := []wire.StateField{{RequestSet: wire.RequestSet, State: t.State}}
	body, err := wire.EncodeSetStateEffecterStatesReq(t.EffecterID, fields)
	if err != nil {
		return fmt.Errorf("hostsync: softoff: encode SetStateEffecterStates: %w", err)
	}

	instanceID, err := t.Engine.Ids().Next(eid)
	if err != nil {
		return fmt.Errorf("hostsync: softoff: %w", err)
	}
	req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, wire.CmdSetStateEffecterStates, body)
	if err != nil {
		t.Engine.Ids().Free(eid, instanceID)
		return fmt.Errorf("hostsync: softoff: encode request: %w", err)
	}

	resp, err := t.Engine.SendRecv(ctx, eid, req)
	if err != nil {
		return fmt.Errorf("hostsync: softoff: SetStateEffecterStates: %w", err)
	}
	_, cc, _, err := wire.SplitResponse(resp)
	if err != nil {
		return fmt.Errorf("hostsync: softoff: decode response: %w", err)
	}
	if cc != wire.Success {
		return fmt.Errorf("hostsync: softoff: SetStateEffecterStates completion code %s", wire.CompletionCodeName(cc))
	}
	logger.InfoCtx(ctx, "hostsync: softoff triggered", logger.EID(eid), "effecter_id", t.EffecterID, "state", t.State)
	return nil
}

// Complete marks the soft-off sequence finished, unblocking any Wait. Wired
// as an event.Handler action so the host's own completion notification (a
// state-sensor transition) signals it, replacing the original's D-Bus match
// on the host soft-off-complete property.
func (t *SoftOffTrigger) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed {
		return
	}
	t.completed = true
	close(t.doneCh)
}

// Wait blocks until Complete is called, ctx is cancelled, or Timeout
// elapses, whichever comes first (the original's phosphor::Timer).
func (t *SoftOffTrigger) Wait(ctx context.Context) error {
	t.mu.Lock()
	ch := t.doneCh
	t.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(t.Timeout):
		return fmt.Errorf("hostsync: softoff did not complete within %s", t.Timeout)
	}
}
