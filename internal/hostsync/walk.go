package hostsync

import (
	"context"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

// WalkResult summarizes one completed Walk call, driving the post-walk
// sequence a caller (the daemon's main loop) runs (spec §4.3.2 steps 1-5).
type WalkResult struct {
	Merged             bool     // an entity-association merge happened
	MergedAssocHandles []uint32 // record handles of the merged assoc PDRs
	StateSensorHandles []uint32 // accumulated for GetStateSensorReadings
}

// Walk drains the pending/modified-handle queues, issuing GetPDR for each
// handle and applying the per-type record handling of spec §4.3.2. It stops
// at the first non-success GetPDR response (spec §4.3.5 failure semantics):
// the handle that failed is not requeued, and the handles still queued stay
// queued for a later Walk.
func (s *Synchronizer) Walk(ctx context.Context) (WalkResult, error) {
	var result WalkResult

	for {
		handle, ok := s.nextQueuedHandle()
		if !ok {
			break
		}

		resp, err := s.sendRecv(ctx, wire.TypePlatform, wire.CmdGetPDR,
			wire.EncodeGetPDRReq(handle, 0, wire.TransferOpFlagGetFirstPart, 0xFFFF, 0))
		if err != nil {
			logger.WarnCtx(ctx, "hostsync: GetPDR failed, aborting walk", logger.EID(s.HostEID), logger.RecordHandle(handle), logger.Err(err))
			return result, err
		}
		_, cc, body, err := wire.SplitResponse(resp)
		if err != nil {
			logger.WarnCtx(ctx, "hostsync: GetPDR response malformed, aborting walk", logger.EID(s.HostEID), logger.Err(err))
			return result, err
		}
		if cc != wire.Success {
			logger.WarnCtx(ctx, "hostsync: GetPDR non-success completion, aborting walk", logger.EID(s.HostEID), logger.Completion(cc))
			return result, nil
		}

		parsed, err := wire.DecodeGetPDRResp(body)
		if err != nil {
			logger.WarnCtx(ctx, "hostsync: GetPDR response undecodable, aborting walk", logger.EID(s.HostEID), logger.Err(err))
			return result, err
		}

		s.handleRecord(ctx, parsed.RecordData)

		if parsed.NextRecordHandle != 0 {
			s.requeue(parsed.NextRecordHandle)
		}
	}

	s.mu.Lock()
	merged := s.mergedHostParents && len(s.mergedAssocHandles) > 0
	result.Merged = merged
	result.MergedAssocHandles = append([]uint32(nil), s.mergedAssocHandles...)
	result.StateSensorHandles = append([]uint32(nil), s.stateSensorHandles...)
	s.mergedAssocHandles = nil
	s.stateSensorHandles = nil
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRepositorySize(s.Repo.Count(), s.Repo.TotalSize())
	}

	return result, nil
}

// nextQueuedHandle pops the next handle to fetch: modified_handles drains
// before pending_handles, so event-driven deltas are serviced ahead of a
// backgrounded full scan.
func (s *Synchronizer) nextQueuedHandle() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.modifiedHandles) > 0 {
		h := s.modifiedHandles[0]
		s.modifiedHandles = s.modifiedHandles[1:]
		return h, true
	}
	if len(s.pendingHandles) > 0 {
		h := s.pendingHandles[0]
		s.pendingHandles = s.pendingHandles[1:]
		return h, true
	}
	return 0, false
}

func (s *Synchronizer) requeue(handle uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingHandles = append(s.pendingHandles, handle)
}

// handleRecord dispatches one raw PDR record to its type-specific handling
// (spec §4.3.2). Returns true if the record was skipped due to a non-fatal
// decode failure.
func (s *Synchronizer) handleRecord(ctx context.Context, raw []byte) (skipped bool) {
	handle, typ, _, _, err := pdr.DecodeHeader(raw)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: malformed PDR header, skipping record", logger.Err(err))
		return true
	}
	body := raw[pdr.HeaderSize:]

	switch typ {
	case pdr.TypeTerminusLocator:
		return s.handleTerminusLocator(ctx, handle, body)
	case pdr.TypeEntityAssociation:
		return s.handleEntityAssociation(ctx, handle, body)
	case pdr.TypeStateSensor:
		skipped = s.handleEntityBearingRecord(ctx, handle, pdr.TypeStateSensor, body)
		if !skipped {
			s.mu.Lock()
			s.stateSensorHandles = append(s.stateSensorHandles, handle)
			s.mu.Unlock()
		}
		return skipped
	case pdr.TypeStateEffecter, pdr.TypeNumericEffecter:
		return s.handleEntityBearingRecord(ctx, handle, typ, body)
	case pdr.TypeFRURecordSet:
		return s.handleFRURecordSet(ctx, handle, body)
	default:
		logger.DebugCtx(ctx, "hostsync: ignoring unhandled PDR type during walk", logger.PDRType(uint8(typ)))
		return false
	}
}

// handleTerminusLocator updates tlPDRInfo, deduplicating on
// (handle, eid, validity): a record whose entry already matches is not
// reinserted into the repository. The walk itself does not stop there; it
// goes on with the record's successor handle.
func (s *Synchronizer) handleTerminusLocator(ctx context.Context, handle uint32, body []byte) (skipped bool) {
	info, err := pdr.DecodeTerminusLocatorBody(body)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: malformed terminus locator body, skipping", logger.Err(err))
		return true
	}

	s.mu.Lock()
	existing, ok := s.tlPDRInfo[info.TerminusHandle]
	if ok && existing.eid == s.HostEID && existing.validity == info.Validity {
		s.mu.Unlock()
		return false
	}
	s.tlPDRInfo[info.TerminusHandle] = terminusLocatorEntry{tid: info.TID, eid: s.HostEID, validity: info.Validity}
	s.mu.Unlock()

	if _, err := s.Repo.Add(body, pdr.TypeTerminusLocator, true, info.TerminusHandle, handle); err != nil {
		logger.WarnCtx(ctx, "hostsync: add terminus locator PDR failed", logger.Err(err))
		return true
	}

	if s.store != nil {
		if _, err := s.store.UpsertTerminus(ctx, info.TID, s.HostEID, ""); err != nil {
			logger.WarnCtx(ctx, "hostsync: persist discovered terminus failed", logger.Err(err))
		}
	}

	return false
}

// handleEntityAssociation merges the association's container entity and
// children into the local tree, preferring remote-locality lookup once
// merged_host_parents is true (spec §4.3.2, §4.3.3 container rebinding).
func (s *Synchronizer) handleEntityAssociation(ctx context.Context, handle uint32, body []byte) (skipped bool) {
	info, err := pdr.DecodeEntityAssociationBody(body)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: malformed entity association body, skipping", logger.Err(err))
		return true
	}

	s.mu.Lock()
	preferRemote := s.mergedHostParents
	container := s.tree.FindWithLocality(info.ContainerEntity, preferRemote)
	if container == nil {
		container, err = s.tree.Add(info.ContainerEntity, nil, pdr.AssociationLogical, true)
		if err != nil {
			s.mu.Unlock()
			logger.WarnCtx(ctx, "hostsync: add container entity failed", logger.Err(err))
			return true
		}
	}

	anyAdded := false
	for _, child := range info.Children {
		if s.tree.FindWithLocality(child, preferRemote) != nil {
			continue
		}
		if _, err := s.tree.Add(child, container, pdr.AssociationPhysical, true); err != nil {
			logger.WarnCtx(ctx, "hostsync: add child entity failed", logger.Err(err))
			continue
		}
		anyAdded = true
	}

	if anyAdded {
		s.mergedHostParents = true
		s.mergedAssocHandles = append(s.mergedAssocHandles, handle)
	}
	localContainerID := s.tree.ContainerIDFor(container)
	s.mu.Unlock()

	info.ContainerID = localContainerID
	newBody, err := pdr.EncodeEntityAssociationBody(info)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: re-encode entity association body failed", logger.Err(err))
		return true
	}
	if _, err := s.Repo.Add(newBody, pdr.TypeEntityAssociation, true, 0, handle); err != nil {
		logger.WarnCtx(ctx, "hostsync: add entity association PDR failed", logger.Err(err))
		return true
	}
	return false
}

// handleEntityBearingRecord inserts a State Sensor / State Effecter /
// Numeric Effecter PDR after rewriting its container_id to the local
// tree's assignment for that entity (spec §4.3.2, §4.3.3).
func (s *Synchronizer) handleEntityBearingRecord(ctx context.Context, handle uint32, typ pdr.Type, body []byte) (skipped bool) {
	header, err := pdr.DecodeRecordEntityHeader(body)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: malformed PDR entity header, skipping", logger.PDRType(uint8(typ)), logger.Err(err))
		return true
	}

	s.mu.Lock()
	node := s.tree.FindWithLocality(header.Entity, s.mergedHostParents)
	var localContainerID uint16
	if node != nil {
		localContainerID = s.tree.ContainerIDFor(node)
	} else {
		localContainerID = header.Entity.ContainerID
	}
	s.mu.Unlock()

	rewritten := append([]byte(nil), body...)
	wire.PutUint16(rewritten[6:8], localContainerID)

	if _, exists := s.Repo.FindByContentHash(typ, rewritten); exists {
		return false
	}

	if _, err := s.Repo.Add(rewritten, typ, true, 0, handle); err != nil {
		logger.WarnCtx(ctx, "hostsync: add PDR failed", logger.PDRType(uint8(typ)), logger.Err(err))
		return true
	}
	return false
}

// handleFRURecordSet inserts an FRU Record Set PDR after rewriting its
// container_id to the local tree's assignment for its entity (spec §4.3.2,
// §4.3.3).
func (s *Synchronizer) handleFRURecordSet(ctx context.Context, handle uint32, body []byte) (skipped bool) {
	info, err := pdr.DecodeFRURecordSetBody(body)
	if err != nil {
		logger.WarnCtx(ctx, "hostsync: malformed FRU record set body, skipping", logger.Err(err))
		return true
	}

	entity := pdr.Entity{Type: info.EntityType, Instance: info.EntityInstance, ContainerID: info.ContainerID}
	s.mu.Lock()
	node := s.tree.FindWithLocality(entity, s.mergedHostParents)
	localContainerID := info.ContainerID
	if node != nil {
		localContainerID = s.tree.ContainerIDFor(node)
	}
	s.mu.Unlock()

	info.ContainerID = localContainerID
	newBody := pdr.EncodeFRURecordSetBody(info)
	if _, exists := s.Repo.FindByContentHash(pdr.TypeFRURecordSet, newBody); exists {
		return false
	}
	if _, err := s.Repo.Add(newBody, pdr.TypeFRURecordSet, true, info.TerminusHandle, handle); err != nil {
		logger.WarnCtx(ctx, "hostsync: add FRU record set PDR failed", logger.Err(err))
		return true
	}
	return false
}
