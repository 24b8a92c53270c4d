package pdr

import "fmt"

// EmitEntityAssociationPDRs walks tree depth-first and appends one
// Entity Association PDR per non-empty association kind at each non-leaf
// node, physical before logical at the same node, into repo. Handles are
// assigned sequentially starting at repo's current last_used+1
// (spec §4.1 "Entity-association PDR emission").
func EmitEntityAssociationPDRs(tree *Tree, repo *Repository) error {
	for _, root := range tree.roots {
		if err := emitNode(root, repo); err != nil {
			return err
		}
	}
	return nil
}

func emitNode(n *Node, repo *Repository) error {
	if len(n.physical) > 0 {
		if err := emitAssociation(n, n.physical, AssociationPhysical, repo); err != nil {
			return err
		}
	}
	if len(n.logical) > 0 {
		if err := emitAssociation(n, n.logical, AssociationLogical, repo); err != nil {
			return err
		}
	}
	for _, child := range n.physical {
		if err := emitNode(child, repo); err != nil {
			return err
		}
	}
	for _, child := range n.logical {
		if err := emitNode(child, repo); err != nil {
			return err
		}
	}
	return nil
}

func emitAssociation(parent *Node, children []*Node, kind AssociationKind, repo *Repository) error {
	childEntities := make([]Entity, len(children))
	for i, c := range children {
		childEntities[i] = c.entity
	}
	body, err := EncodeEntityAssociationBody(EntityAssociationInfo{
		ContainerID:     parent.assignedContainerID,
		AssociationType: kind,
		ContainerEntity: parent.entity,
		Children:        childEntities,
	})
	if err != nil {
		return fmt.Errorf("pdr: emit entity association at container %d: %w", parent.assignedContainerID, err)
	}
	_, err = repo.Add(body, TypeEntityAssociation, false, 0, 0)
	return err
}

// AddFRURecordSet writes a fixed-shape FRU Record Set PDR into repo
// (spec §4.1 add_fru_record_set). If bmcRecordHandle is 0 the repository
// assigns the next handle.
func AddFRURecordSet(repo *Repository, terminusHandle, fruRSI, entityType, entityInstance, containerID uint16, bmcRecordHandle uint32) (uint32, error) {
	body := EncodeFRURecordSetBody(FRURecordSetInfo{
		TerminusHandle: terminusHandle,
		FRURSI:         fruRSI,
		EntityType:     entityType,
		EntityInstance: entityInstance,
		ContainerID:    containerID,
	})
	return repo.Add(body, TypeFRURecordSet, false, terminusHandle, bmcRecordHandle)
}

// FindFRURecordSetByRSI scans repo for the FRU Record Set PDR matching rsi.
func FindFRURecordSetByRSI(repo *Repository, rsi uint16) (terminusHandle, entityType, entityInstance, containerID uint16, found bool) {
	var cursor uint32
	for {
		rec, next, err := repo.FindByType(TypeFRURecordSet, cursor)
		if err != nil || rec == nil {
			return 0, 0, 0, 0, false
		}
		info, err := DecodeFRURecordSetBody(rec.Body)
		if err == nil && info.FRURSI == rsi {
			return info.TerminusHandle, info.EntityType, info.EntityInstance, info.ContainerID, true
		}
		if next == 0 {
			return 0, 0, 0, 0, false
		}
		cursor = rec.Handle
	}
}

// AddTerminusLocator writes a Terminus Locator PDR into repo
// (spec §3.5, §6.4).
func AddTerminusLocator(repo *Repository, terminusHandle uint16, tid uint8, containerID uint16, locatorType uint8, locatorValue []byte) (uint32, error) {
	body := EncodeTerminusLocatorBody(TerminusLocatorInfo{
		TerminusHandle: terminusHandle,
		Validity:       1,
		TID:            tid,
		ContainerID:    containerID,
		LocatorType:    locatorType,
		LocatorValue:   locatorValue,
	})
	return repo.Add(body, TypeTerminusLocator, false, terminusHandle, 0)
}
