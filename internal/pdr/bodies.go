package pdr

import (
	"encoding/binary"
	"fmt"
)

// TerminusLocatorInfo is the decoded body of a Terminus Locator PDR
// (spec §3.5, §6.4).
type TerminusLocatorInfo struct {
	TerminusHandle uint16
	Validity       uint8
	TID            uint8
	ContainerID    uint16
	LocatorType    uint8
	LocatorValue   []byte
}

// TIDUnknown is the reserved "unknown" terminus id (spec §3.5).
const TIDUnknown uint8 = 0xFF

// EncodeTerminusLocatorBody renders a TerminusLocatorInfo to its wire body
// (spec §6.4): terminus_handle ‖ validity ‖ tid ‖ container_id ‖
// terminus_locator_type ‖ terminus_locator_value_size ‖ terminus_locator_value.
func EncodeTerminusLocatorBody(info TerminusLocatorInfo) []byte {
	buf := make([]byte, 8+len(info.LocatorValue))
	binary.LittleEndian.PutUint16(buf[0:2], info.TerminusHandle)
	buf[2] = info.Validity
	buf[3] = info.TID
	binary.LittleEndian.PutUint16(buf[4:6], info.ContainerID)
	buf[6] = info.LocatorType
	buf[7] = uint8(len(info.LocatorValue))
	copy(buf[8:], info.LocatorValue)
	return buf
}

// DecodeTerminusLocatorBody parses a Terminus Locator PDR body.
func DecodeTerminusLocatorBody(body []byte) (TerminusLocatorInfo, error) {
	if len(body) < 8 {
		return TerminusLocatorInfo{}, fmt.Errorf("pdr: terminus locator body too short: %d bytes", len(body))
	}
	size := int(body[7])
	if len(body) < 8+size {
		return TerminusLocatorInfo{}, fmt.Errorf("pdr: terminus locator value truncated")
	}
	return TerminusLocatorInfo{
		TerminusHandle: binary.LittleEndian.Uint16(body[0:2]),
		Validity:       body[2],
		TID:            body[3],
		ContainerID:    binary.LittleEndian.Uint16(body[4:6]),
		LocatorType:    body[6],
		LocatorValue:   append([]byte(nil), body[8:8+size]...),
	}, nil
}

// EntityAssociationInfo is the decoded body of an Entity Association PDR
// (spec §3.4 emission rule, §6.4).
type EntityAssociationInfo struct {
	ContainerID     uint16
	AssociationType AssociationKind
	ContainerEntity Entity
	Children        []Entity
}

// encodeEntity writes e as type ‖ instance ‖ container_id, little-endian.
func encodeEntity(buf []byte, e Entity) {
	binary.LittleEndian.PutUint16(buf[0:2], e.Type)
	binary.LittleEndian.PutUint16(buf[2:4], e.Instance)
	binary.LittleEndian.PutUint16(buf[4:6], e.ContainerID)
}

func decodeEntity(buf []byte) Entity {
	return Entity{
		Type:        binary.LittleEndian.Uint16(buf[0:2]),
		Instance:    binary.LittleEndian.Uint16(buf[2:4]),
		ContainerID: binary.LittleEndian.Uint16(buf[4:6]),
	}
}

// entitySize is the wire size of one pldm_entity (type+instance+container).
const entitySize = 6

// EncodeEntityAssociationBody renders an EntityAssociationInfo to its wire
// body (spec §6.4): container_id ‖ association_type ‖ container_entity ‖
// num_children ‖ child_entity[num_children].
func EncodeEntityAssociationBody(info EntityAssociationInfo) ([]byte, error) {
	if len(info.Children) > 0xFF {
		return nil, fmt.Errorf("pdr: too many children for one entity-association PDR: %d", len(info.Children))
	}
	buf := make([]byte, 2+1+entitySize+1+entitySize*len(info.Children))
	binary.LittleEndian.PutUint16(buf[0:2], info.ContainerID)
	buf[2] = uint8(info.AssociationType)
	encodeEntity(buf[3:3+entitySize], info.ContainerEntity)
	off := 3 + entitySize
	buf[off] = uint8(len(info.Children))
	off++
	for _, child := range info.Children {
		encodeEntity(buf[off:off+entitySize], child)
		off += entitySize
	}
	return buf, nil
}

// DecodeEntityAssociationBody parses an Entity Association PDR body.
func DecodeEntityAssociationBody(body []byte) (EntityAssociationInfo, error) {
	const fixedLen = 2 + 1 + entitySize + 1
	if len(body) < fixedLen {
		return EntityAssociationInfo{}, fmt.Errorf("pdr: entity association body too short: %d bytes", len(body))
	}
	info := EntityAssociationInfo{
		ContainerID:     binary.LittleEndian.Uint16(body[0:2]),
		AssociationType: AssociationKind(body[2]),
		ContainerEntity: decodeEntity(body[3 : 3+entitySize]),
	}
	numChildren := int(body[3+entitySize])
	off := fixedLen
	if len(body) < off+entitySize*numChildren {
		return EntityAssociationInfo{}, fmt.Errorf("pdr: entity association children truncated")
	}
	info.Children = make([]Entity, numChildren)
	for i := 0; i < numChildren; i++ {
		info.Children[i] = decodeEntity(body[off : off+entitySize])
		off += entitySize
	}
	return info, nil
}

// RecordEntityHeader is the common leading shape shared by State Sensor,
// State Effecter, and Numeric Effecter PDR bodies (DSP0248 Tables 73, 78,
// 80): id(u16) ‖ entity_type(u16) ‖ entity_instance(u16) ‖ container_id(u16).
type RecordEntityHeader struct {
	ID     uint16
	Entity Entity
}

// DecodeRecordEntityHeader parses the common (id, entity) prefix of a State
// Sensor, State Effecter, or Numeric Effecter PDR body, used during the host
// PDR walk to locate the record's entity in the local tree for container
// rebinding (spec §4.3.2, §4.3.3).
func DecodeRecordEntityHeader(body []byte) (RecordEntityHeader, error) {
	if len(body) < 8 {
		return RecordEntityHeader{}, fmt.Errorf("pdr: record body too short for entity header: %d bytes", len(body))
	}
	return RecordEntityHeader{
		ID:     binary.LittleEndian.Uint16(body[0:2]),
		Entity: decodeEntity(body[2:8]),
	}, nil
}

// FRURecordSetInfo is the decoded body of a FRU Record Set PDR
// (spec §4.1 add_fru_record_set, §6.4).
type FRURecordSetInfo struct {
	TerminusHandle uint16
	FRURSI         uint16
	EntityType     uint16
	EntityInstance uint16
	ContainerID    uint16
}

// EncodeFRURecordSetBody renders a FRURecordSetInfo to its wire body
// (spec §6.4): terminus_handle ‖ fru_rsi ‖ entity_type ‖ entity_instance_num ‖ container_id.
func EncodeFRURecordSetBody(info FRURecordSetInfo) []byte {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint16(buf[0:2], info.TerminusHandle)
	binary.LittleEndian.PutUint16(buf[2:4], info.FRURSI)
	binary.LittleEndian.PutUint16(buf[4:6], info.EntityType)
	binary.LittleEndian.PutUint16(buf[6:8], info.EntityInstance)
	binary.LittleEndian.PutUint16(buf[8:10], info.ContainerID)
	return buf
}

// DecodeFRURecordSetBody parses a FRU Record Set PDR body.
func DecodeFRURecordSetBody(body []byte) (FRURecordSetInfo, error) {
	if len(body) < 10 {
		return FRURecordSetInfo{}, fmt.Errorf("pdr: fru record set body too short: %d bytes", len(body))
	}
	return FRURecordSetInfo{
		TerminusHandle: binary.LittleEndian.Uint16(body[0:2]),
		FRURSI:         binary.LittleEndian.Uint16(body[2:4]),
		EntityType:     binary.LittleEndian.Uint16(body[4:6]),
		EntityInstance: binary.LittleEndian.Uint16(body[6:8]),
		ContainerID:    binary.LittleEndian.Uint16(body[8:10]),
	}, nil
}
