package hostsync

import (
	"context"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/pdr"
)

// Teardown resets synchronizer state to its pre-merge baseline on host
// power-off (spec §4.3.4, exercised by test scenario S6): every remote
// record is dropped from the repository, the working tree is destroyed and
// re-copied from the BMC-only tree, the sensor map is cleared, and the
// merge/response flags reset. Queued handles from an in-flight walk are
// also discarded — they reference a repository state the host no longer has.
func (s *Synchronizer) Teardown(ctx context.Context) {
	if s.softOff != nil {
		if err := s.softOff.Trigger(ctx, s.HostEID); err != nil {
			logger.WarnCtx(ctx, "hostsync: softoff trigger failed, proceeding with teardown", logger.Err(err))
		} else if err := s.softOff.Wait(ctx); err != nil {
			logger.WarnCtx(ctx, "hostsync: softoff wait failed, proceeding with teardown", logger.Err(err))
		}
	}

	s.Repo.RemoveRemote()
	s.Reg.ClearSensors()

	s.mu.Lock()
	s.tree.DestroyRoot()
	pdr.CopyRoot(s.bmcTree, s.tree)

	s.pendingHandles = nil
	s.modifiedHandles = nil
	s.stateSensorHandles = nil
	s.mergedAssocHandles = nil

	s.responseReceived = false
	s.mergedHostParents = false
	s.bootProgress = BootProgressOff

	for handle, entry := range s.tlPDRInfo {
		if entry.eid == s.HostEID {
			delete(s.tlPDRInfo, handle)
		}
	}
	s.mu.Unlock()

	logger.InfoCtx(ctx, "hostsync: host torn down, repository reset to BMC-only state", logger.EID(s.HostEID))
}
