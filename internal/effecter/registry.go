// Package effecter holds the sensor/effecter maps (spec §3.6), the static
// effecter configuration (spec §4.4.1), and the state/numeric effecter write
// pipelines (spec §4.4.3, §4.4.4).
//
// Shape grounded on the teacher's pkg/registry.Registry: one mutex-guarded
// struct holding several named maps, looked up by a small composite key;
// lookups report a missing key with an ok bool instead of panicking.
package effecter

import (
	"fmt"
	"sync"

	"github.com/openbmc-go/pldmd/internal/pdr"
)

// SensorKey identifies one sensor by terminus id and sensor id (spec §3.6).
type SensorKey struct {
	TID      uint8
	SensorID uint16
}

// SensorInfo binds a sensor id to its entity and the permissible present-state
// values at each composite offset.
type SensorInfo struct {
	Entity                pdr.Entity
	CompositeSensorStates [][]uint8 // [offset][allowed present-state values]
	StateSetIDs           []uint16  // state-set id per offset
}

// EffecterInfo is one per-effecter record (spec §3.6).
type EffecterInfo struct {
	EffecterID      uint16
	IsStateEffecter bool

	// Numeric-effecter-only fields.
	Unit        string // "watts", "degC", ...
	Resolution  float64
	Offset      float64
	DataSize    uint8 // wire.CmdSetNumericEffecterValue data-size encoding
	MinSettable float64
	MaxSettable float64

	OperationalState uint8 // wire.EffecterOper*
}

// Registry holds the sensor map and effecter registry populated during PDR
// ingest (spec §4.3.2) and consulted by the event handler and effecter
// writer.
type Registry struct {
	mu        sync.RWMutex
	sensors   map[SensorKey]*SensorInfo
	effecters map[uint16]*EffecterInfo
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sensors:   make(map[SensorKey]*SensorInfo),
		effecters: make(map[uint16]*EffecterInfo),
	}
}

// PutSensor registers or replaces the sensor map entry for key. PDR re-ingest
// (e.g. after a host reconnect) overwrites stale entries rather than erroring.
func (r *Registry) PutSensor(key SensorKey, info *SensorInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[key] = info
}

// Sensor looks up a sensor by (tid, sensor_id).
func (r *Registry) Sensor(key SensorKey) (*SensorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.sensors[key]
	return info, ok
}

// ClearSensors empties the sensor map (spec §4.3.4 host-off teardown).
func (r *Registry) ClearSensors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors = make(map[SensorKey]*SensorInfo)
}

// PutEffecter registers or replaces the effecter registry entry for id.
func (r *Registry) PutEffecter(id uint16, info *EffecterInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effecters[id] = info
}

// Effecter looks up an effecter by id.
func (r *Registry) Effecter(id uint16) (*EffecterInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.effecters[id]
	return info, ok
}

// FindStateEffecterID resolves an effecter id by (entity_type, entity_instance,
// container_id, state_set_id) against repo's PDRs, implementing the
// configuration-time "effecterID absent" fallback (spec §4.4.1
// findStateEffecterId).
func FindStateEffecterID(repo *pdr.Repository, entityType, entityInstance, containerID uint16, stateSetID uint16) (uint16, error) {
	var handle uint32
	for {
		rec, next, err := repo.FindByType(pdr.TypeStateEffecter, handle)
		if err != nil {
			return 0, err
		}
		if rec == nil {
			return 0, fmt.Errorf("effecter: no state effecter PDR matches entity (%d,%d,%d) state set %d", entityType, entityInstance, containerID, stateSetID)
		}
		id, entity, setID, ok := decodeStateEffecterPDRHeader(rec.Body)
		if ok && entity.Type == entityType && entity.Instance == entityInstance && entity.ContainerID == containerID && setID == stateSetID {
			return id, nil
		}
		if next == 0 {
			return 0, fmt.Errorf("effecter: no state effecter PDR matches entity (%d,%d,%d) state set %d", entityType, entityInstance, containerID, stateSetID)
		}
		handle = next
	}
}

// decodeStateEffecterPDRHeader pulls the fields FindStateEffecterID needs out
// of a raw State Effecter PDR body (DSP0248 Table 80): effecter_id(u16) ‖
// entity_type(u16) ‖ entity_instance(u16) ‖ container_id(u16) ‖
// effecter_semantic_id(u8, unused here) ‖ composite_effecter_count(u8) ‖
// first state-set's state_set_id(u16).
const (
	stateEffecterCompositeCountOffset = 9
	stateEffecterFirstStateSetOffset  = 10
)

func decodeStateEffecterPDRHeader(body []byte) (effecterID uint16, entity pdr.Entity, stateSetID uint16, ok bool) {
	if len(body) < 8 {
		return 0, pdr.Entity{}, 0, false
	}
	effecterID = le16(body[0:2])
	entity = pdr.Entity{
		Type:        le16(body[2:4]),
		Instance:    le16(body[4:6]),
		ContainerID: le16(body[6:8]),
	}
	if len(body) < stateEffecterFirstStateSetOffset+2 {
		return effecterID, entity, 0, true
	}
	compositeCount := body[stateEffecterCompositeCountOffset]
	if compositeCount == 0 {
		return effecterID, entity, 0, true
	}
	stateSetID = le16(body[stateEffecterFirstStateSetOffset : stateEffecterFirstStateSetOffset+2])
	return effecterID, entity, stateSetID, true
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
