package pdr

// EntityTypeLogicalBit distinguishes logical from physical entities
// (spec §3.3).
const EntityTypeLogicalBit uint16 = 0x8000

// InstanceAuto is the sentinel instance number meaning "assign the next
// free instance within this entity's parent and type" (spec §3.4, §8 S5).
const InstanceAuto uint16 = 0xFFFF

// Entity is the tuple (entity_type, entity_instance, container_id)
// identifying a manageable hardware or logical unit (spec §3.3).
type Entity struct {
	Type        uint16
	Instance    uint16
	ContainerID uint16
}

// IsLogical reports whether Type's high bit marks a logical entity.
func (e Entity) IsLogical() bool { return e.Type&EntityTypeLogicalBit != 0 }

// AssociationKind distinguishes a child's relationship to its parent in the
// entity-association tree (spec §3.4): physical children are contained by
// their parent, logical children merely reference it.
type AssociationKind uint8

const (
	AssociationPhysical AssociationKind = 1
	AssociationLogical  AssociationKind = 2
)
