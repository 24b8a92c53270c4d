package pdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/openbmc-go/pldmd/internal/bytesize"
)

// Repository is an ordered, content-addressed store of PDR records
// (spec §3.2). Iteration order is insertion order; find-next is O(1) via
// the index built alongside the insertion-ordered slice. "Content-addressed"
// is made real by byContentHash: every insert is indexed under an xxhash of
// (type ‖ body), so FindByContentHash gives callers an O(1) "does an
// identical record already exist" check instead of a linear body compare.
type Repository struct {
	mu            sync.Mutex
	records       []*Record
	byHandle      map[uint32]int      // handle -> index into records
	byContentHash map[uint64][]uint32 // xxhash(type‖body) -> candidate handles
	lastUsed      uint32
	maxBytes      bytesize.ByteSize // 0 means unbounded
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		byHandle:      make(map[uint32]int),
		byContentHash: make(map[uint64][]uint32),
	}
}

// contentHash returns the xxhash digest identifying typ‖body, used as the
// repository's content-address (spec §1 "content-addressed", enrichment
// grounded on the teacher's cespare/xxhash use for content hashing).
func contentHash(typ Type, body []byte) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte{byte(typ)})
	_, _ = h.Write(body)
	return h.Sum64()
}

// FindByContentHash returns the handle of an existing record of type typ
// whose body is byte-identical to body, if any (spec §4.3.2 "if an
// identical record already exists, the record is not reinserted").
func (r *Repository) FindByContentHash(typ Type, body []byte) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := contentHash(typ, body)
	for _, handle := range r.byContentHash[h] {
		idx, ok := r.byHandle[handle]
		if !ok {
			continue
		}
		rec := r.records[idx]
		if rec.Type == typ && bytes.Equal(rec.Body, body) {
			return handle, true
		}
	}
	return 0, false
}

// SetMaxBytes caps the repository's total body size (internal/config's
// RepositoryConfig.MaxTotalBytes). A zero limit leaves the repository
// unbounded, matching the teacher's own "zero means no quota" convention for
// cache sizing.
func (r *Repository) SetMaxBytes(limit bytesize.ByteSize) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxBytes = limit
}

// Add appends a new record. If requestedHandle is 0 the repository assigns
// last_used+1; otherwise the caller-supplied handle is honored and becomes
// the new last_used if larger (spec §4.1 add). Insertion is all-or-nothing:
// a duplicate requestedHandle is rejected without mutating the repository
// (spec §4.1 failure semantics), as is an insertion that would push the
// repository past its configured byte quota.
func (r *Repository) Add(body []byte, typ Type, remote bool, terminusHandle uint16, requestedHandle uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := requestedHandle
	if handle == 0 {
		handle = r.lastUsed + 1
	}
	if _, exists := r.byHandle[handle]; exists {
		return 0, fmt.Errorf("pdr: handle %d already in use", handle)
	}
	if r.maxBytes > 0 && bytesize.ByteSize(r.totalSizeLocked()+len(body)) > r.maxBytes {
		return 0, fmt.Errorf("pdr: repository quota exceeded (%s limit)", r.maxBytes)
	}

	rec := &Record{
		Handle:         handle,
		Type:           typ,
		Body:           append([]byte(nil), body...),
		Remote:         remote,
		TerminusHandle: terminusHandle,
	}
	r.records = append(r.records, rec)
	r.byHandle[handle] = len(r.records) - 1
	h := contentHash(typ, rec.Body)
	r.byContentHash[h] = append(r.byContentHash[h], handle)
	if handle > r.lastUsed {
		r.lastUsed = handle
	}
	return handle, nil
}

// Find returns the record for handle, and the handle of its successor (0 if
// handle is the tail). handle = 0 returns the first record (spec §4.1 find).
func (r *Repository) Find(handle uint32) (*Record, uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return nil, 0, nil
	}

	idx := 0
	if handle != 0 {
		i, ok := r.byHandle[handle]
		if !ok {
			return nil, 0, nil
		}
		idx = i
	}
	return r.recordAndNextLocked(idx)
}

// FindNext returns the successor of current in O(1).
func (r *Repository) FindNext(current uint32) (*Record, uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byHandle[current]
	if !ok {
		return nil, 0, nil
	}
	if idx+1 >= len(r.records) {
		return nil, 0, nil
	}
	return r.recordAndNextLocked(idx + 1)
}

// FindByType scans forward from the record after cursor (0 = from the
// start) for the next record of typ.
func (r *Repository) FindByType(typ Type, cursor uint32) (*Record, uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := 0
	if cursor != 0 {
		idx, ok := r.byHandle[cursor]
		if !ok {
			return nil, 0, nil
		}
		start = idx + 1
	}
	for i := start; i < len(r.records); i++ {
		if r.records[i].Type == typ {
			return r.recordAndNextLocked(i)
		}
	}
	return nil, 0, nil
}

func (r *Repository) recordAndNextLocked(idx int) (*Record, uint32, error) {
	rec := r.records[idx]
	var next uint32
	if idx+1 < len(r.records) {
		next = r.records[idx+1].Handle
	}
	return rec, next, nil
}

// RemoveRemote drops every record with Remote set, preserving the relative
// order of the remaining (local) records (spec §4.1 remove_remote, §8 S2).
func (r *Repository) RemoveRemote() {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	for _, rec := range r.records {
		if !rec.Remote {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	r.rebuildIndexLocked()
}

func (r *Repository) rebuildIndexLocked() {
	r.byHandle = make(map[uint32]int, len(r.records))
	r.byContentHash = make(map[uint64][]uint32, len(r.records))
	for i, rec := range r.records {
		r.byHandle[rec.Handle] = i
		h := contentHash(rec.Type, rec.Body)
		r.byContentHash[h] = append(r.byContentHash[h], rec.Handle)
	}
}

// MarkRecordRemote sets the Remote flag on handle's record, if present.
func (r *Repository) MarkRecordRemote(handle uint32, remote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.byHandle[handle]; ok {
		r.records[idx].Remote = remote
	}
}

// IsRemote reports the Remote flag of handle's record; false if not found.
func (r *Repository) IsRemote(handle uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.byHandle[handle]; ok {
		return r.records[idx].Remote
	}
	return false
}

// SetTerminusLocatorValidity locates the Terminus Locator PDR matching
// terminusHandle and overwrites its validity byte in place (spec §3.2, the
// one body field the repository allows to mutate after insertion besides
// container_id rewriting).
func (r *Repository) SetTerminusLocatorValidity(terminusHandle uint16, tid uint8, eid uint8, valid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.Type != TypeTerminusLocator {
			continue
		}
		info, err := DecodeTerminusLocatorBody(rec.Body)
		if err != nil {
			continue
		}
		if info.TerminusHandle != terminusHandle {
			continue
		}
		if valid {
			rec.Body[2] = 1
		} else {
			rec.Body[2] = 0
		}
		return nil
	}
	return fmt.Errorf("pdr: no terminus locator record for terminus handle %d", terminusHandle)
}

// SetContainerID rewrites the container_id field embedded in an
// entity-bearing record's body. Used during host PDR merge when the BMC
// reassigns a local container id for a record the host sourced (spec §4.1
// ownership note, §4.3 container rebinding).
func (r *Repository) SetContainerID(handle uint32, containerID uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byHandle[handle]
	if !ok {
		return fmt.Errorf("pdr: no record with handle %d", handle)
	}
	rec := r.records[idx]
	switch rec.Type {
	case TypeFRURecordSet:
		if len(rec.Body) < 10 {
			return fmt.Errorf("pdr: fru record set body too short")
		}
		binary.LittleEndian.PutUint16(rec.Body[8:10], containerID)
	case TypeEntityAssociation:
		if len(rec.Body) < 2 {
			return fmt.Errorf("pdr: entity association body too short")
		}
		binary.LittleEndian.PutUint16(rec.Body[0:2], containerID)
	case TypeStateSensor, TypeStateEffecter, TypeNumericEffecter:
		// sensor_id/effecter_id(u16) ‖ entity_type(u16) ‖ entity_instance(u16) ‖
		// container_id(u16) ‖ ... (DSP0248 Tables 73/78/80): container_id is
		// the fourth 16-bit field in every one of these PDR bodies.
		if len(rec.Body) < 8 {
			return fmt.Errorf("pdr: record type %d body too short for container_id", rec.Type)
		}
		binary.LittleEndian.PutUint16(rec.Body[6:8], containerID)
	default:
		return fmt.Errorf("pdr: record type %d has no container_id field", rec.Type)
	}
	return nil
}

// Count returns the number of records currently in the repository.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// TotalSize returns the sum of every record's body length (spec §3.2
// invariant: repository size == sum of body lengths).
func (r *Repository) TotalSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSizeLocked()
}

func (r *Repository) totalSizeLocked() int {
	total := 0
	for _, rec := range r.records {
		total += rec.Size()
	}
	return total
}

// LastUsedHandle reports the highest handle assigned so far.
func (r *Repository) LastUsedHandle() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}
