package pdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitEntityAssociationPDRs(t *testing.T) {
	tree := NewTree()
	root, err := tree.Add(Entity{Type: 1, Instance: InstanceAuto}, nil, AssociationPhysical, true)
	require.NoError(t, err)
	_, err = tree.Add(Entity{Type: 2, Instance: InstanceAuto}, root, AssociationPhysical, true)
	require.NoError(t, err)
	_, err = tree.Add(Entity{Type: 9, Instance: InstanceAuto}, root, AssociationLogical, true)
	require.NoError(t, err)

	repo := NewRepository()
	require.NoError(t, EmitEntityAssociationPDRs(tree, repo))

	// One PDR for the physical group, one for the logical group, both at root.
	assert.Equal(t, 2, repo.Count())

	physRec, _, err := repo.FindByType(TypeEntityAssociation, 0)
	require.NoError(t, err)
	physInfo, err := DecodeEntityAssociationBody(physRec.Body)
	require.NoError(t, err)
	assert.Equal(t, AssociationPhysical, physInfo.AssociationType)
	assert.Equal(t, uint16(1), physInfo.ContainerEntity.Type)
	require.Len(t, physInfo.Children, 1)
	assert.Equal(t, uint16(2), physInfo.Children[0].Type)

	logRec, _, err := repo.FindByType(TypeEntityAssociation, physRec.Handle)
	require.NoError(t, err)
	logInfo, err := DecodeEntityAssociationBody(logRec.Body)
	require.NoError(t, err)
	assert.Equal(t, AssociationLogical, logInfo.AssociationType)
	require.Len(t, logInfo.Children, 1)
	assert.Equal(t, uint16(9), logInfo.Children[0].Type)
}

func TestEntityAssociationBodyRoundTrip(t *testing.T) {
	info := EntityAssociationInfo{
		ContainerID:     3,
		AssociationType: AssociationPhysical,
		ContainerEntity: Entity{Type: 64, Instance: 1, ContainerID: 0},
		Children: []Entity{
			{Type: 135, Instance: 1, ContainerID: 3},
			{Type: 135, Instance: 2, ContainerID: 3},
		},
	}
	body, err := EncodeEntityAssociationBody(info)
	require.NoError(t, err)

	got, err := DecodeEntityAssociationBody(body)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestFRURecordSetBodyRoundTrip(t *testing.T) {
	info := FRURecordSetInfo{TerminusHandle: 1, FRURSI: 9, EntityType: 64, EntityInstance: 1, ContainerID: 0}
	body := EncodeFRURecordSetBody(info)
	got, err := DecodeFRURecordSetBody(body)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestTerminusLocatorBodyRoundTrip(t *testing.T) {
	info := TerminusLocatorInfo{
		TerminusHandle: 1,
		Validity:       1,
		TID:            TIDUnknown,
		ContainerID:    0,
		LocatorType:    0,
		LocatorValue:   []byte{9},
	}
	body := EncodeTerminusLocatorBody(info)
	got, err := DecodeTerminusLocatorBody(body)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}
