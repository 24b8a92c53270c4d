// Package hostsync implements the host-side PDR synchronization state
// machine (spec §4.3): the start-up probe, the pending/modified-handle PDR
// walk, container rebinding into the local entity tree, and teardown on
// host power-off.
//
// Shape grounded on the teacher's internal/protocol/portmap server loop for
// its request/response rhythm (reserve an instance-id, send, block for the
// matching response via internal/mctp.Engine.SendRecv) and on the teacher's
// pkg/controlplane/runtime state-machine structs for a single mutex-guarded
// struct carrying both persistent state (the tree, the queues) and
// transient per-cycle flags (responseReceived, mergedHostParents).
package hostsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/metrics"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/store/models"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// TerminusRecorder persists terminus addressing and liveness, satisfied by
// *internal/store.GORMStore. Declared here (rather than importing
// internal/store) so hostsync depends only on the models package, not the
// storage backend.
type TerminusRecorder interface {
	UpsertTerminus(ctx context.Context, tid, eid uint8, name string) (*models.Terminus, error)
	SetTerminusStatus(ctx context.Context, tid uint8, status models.TerminusStatus, bootProgress string) error
}

// Boot-progress states this synchronizer reports via BootProgress,
// satisfying internal/effecter.BootProgressSource.
const (
	BootProgressOff                = "Off"
	BootProgressSystemInitComplete = "SystemInitComplete"
	BootProgressOSRunning          = "OSRunning"
)

// terminusLocatorEntry is one tlPDRInfo map entry (spec §4.3.2).
type terminusLocatorEntry struct {
	tid      uint8
	eid      uint8
	validity uint8
}

// Synchronizer drives the host PDR synchronization state machine for one
// host EID (spec §4.3).
type Synchronizer struct {
	Engine  *mctp.Engine
	Repo    *pdr.Repository
	Reg     *effecter.Registry
	HostEID uint8

	metrics metrics.Recorder
	store   TerminusRecorder
	softOff *SoftOffTrigger

	mu sync.Mutex

	tree    *pdr.Tree // working tree, merged with host entities
	bmcTree *pdr.Tree // BMC-only snapshot, restored on host-off (spec §4.3.4)

	pendingHandles  []uint32
	modifiedHandles []uint32

	responseReceived  bool
	mergedHostParents bool
	bootProgress      string

	tlPDRInfo map[uint16]terminusLocatorEntry

	// accumulated during one walk, consumed at its end (spec §4.3.2 step
	// sequence).
	stateSensorHandles []uint32
	mergedAssocHandles []uint32
}

// New constructs a Synchronizer over bmcTree, the BMC's own (host-free)
// entity tree, which is snapshotted into the working tree on construction
// and on every host-off teardown (spec §4.3.4 "destroys and re-copies the
// tree from the BMC tree").
func New(engine *mctp.Engine, repo *pdr.Repository, reg *effecter.Registry, hostEID uint8, bmcTree *pdr.Tree) *Synchronizer {
	s := &Synchronizer{
		Engine:       engine,
		Repo:         repo,
		Reg:          reg,
		HostEID:      hostEID,
		bmcTree:      bmcTree,
		tree:         pdr.NewTree(),
		tlPDRInfo:    make(map[uint16]terminusLocatorEntry),
		bootProgress: BootProgressOff,
	}
	pdr.CopyRoot(bmcTree, s.tree)
	return s
}

// SetMetrics attaches a metrics.Recorder. Leaving it unset (nil) disables
// collection with zero overhead.
func (s *Synchronizer) SetMetrics(m metrics.Recorder) { s.metrics = m }

// SetStore attaches a TerminusRecorder. Leaving it unset (nil) means probe
// results and discovered termini are not persisted across restarts.
func (s *Synchronizer) SetStore(store TerminusRecorder) { s.store = store }

// SetSoftOff configures an optional soft-power-off trigger, fired at the
// start of Teardown before the repository is reset (spec §4.3.4
// enrichment). Leaving it unset skips straight to teardown, as before.
func (s *Synchronizer) SetSoftOff(t *SoftOffTrigger) { s.softOff = t }

// BootProgress implements internal/effecter.BootProgressSource.
func (s *Synchronizer) BootProgress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootProgress
}

// SetBootProgress updates the cached host boot-progress state, as observed
// via a StateSensorEvent or a periodic sensor read of the host's
// State.Boot.Progress sensor.
func (s *Synchronizer) SetBootProgress(progress string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootProgress = progress
}

// Probe issues GetPLDMVersion(type=BASE) to the host EID (spec §4.3.1).
// Any valid response marks the host up; the reply body itself is discarded.
// A send/timeout failure leaves the host in "down" state and is not an
// error the caller need act on beyond not proceeding to Fetch.
func (s *Synchronizer) Probe(ctx context.Context) (up bool, err error) {
	body := wire.EncodeGetPLDMVersionReq(0, wire.TransferOpFlagGetFirstPart, wire.TypeBase)
	resp, err := s.sendRecv(ctx, wire.TypeBase, wire.CmdGetPLDMVersion, body)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: start-up probe got no response", logger.EID(s.HostEID), logger.Err(err))
		s.mu.Lock()
		s.responseReceived = false
		s.mu.Unlock()
		return false, nil
	}
	if _, _, _, err := wire.SplitResponse(resp); err != nil {
		return false, fmt.Errorf("hostsync: probe: decode response: %w", err)
	}
	up = true
	s.mu.Lock()
	s.responseReceived = up
	s.mu.Unlock()

	if s.store != nil {
		status := models.TerminusStatusDown
		if up {
			status = models.TerminusStatusUp
		}
		if _, err := s.store.UpsertTerminus(ctx, s.HostEID, s.HostEID, ""); err != nil {
			logger.WarnCtx(ctx, "hostsync: persist terminus failed", logger.EID(s.HostEID), logger.Err(err))
		} else if err := s.store.SetTerminusStatus(ctx, s.HostEID, status, s.BootProgress()); err != nil {
			logger.WarnCtx(ctx, "hostsync: persist terminus status failed", logger.EID(s.HostEID), logger.Err(err))
		}
	}

	return up, nil
}

// Fetch deposits handles into the pending (full scan) or modified (delta)
// queue for the caller to drain with Walk (spec
// §4.3.2 "deposits either a delta list or a full-walk initial [0] into the
// appropriate queue"). isDelta selects modified_handles; otherwise
// pending_handles.
func (s *Synchronizer) Fetch(handles []uint32, isDelta bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isDelta {
		s.modifiedHandles = append(s.modifiedHandles, handles...)
	} else {
		s.pendingHandles = append(s.pendingHandles, handles...)
	}
}

// FetchFullWalk deposits the initial [0] handle that starts a full
// repository scan (spec §4.3.2).
func (s *Synchronizer) FetchFullWalk() {
	s.Fetch([]uint32{0}, false)
}

func (s *Synchronizer) sendRecv(ctx context.Context, pldmType, command uint8, body []byte) ([]byte, error) {
	instanceID, err := s.Engine.Ids().Next(s.HostEID)
	if err != nil {
		return nil, err
	}
	req, err := wire.EncodeRequest(instanceID, pldmType, command, body)
	if err != nil {
		s.Engine.Ids().Free(s.HostEID, instanceID)
		return nil, fmt.Errorf("hostsync: encode request: %w", err)
	}
	return s.Engine.SendRecv(ctx, s.HostEID, req)
}
