package pdr

import "fmt"

// Node is one entity in the tree: an entity tuple, a (possibly absent)
// parent link, and child lists partitioned by association kind
// (spec §3.4). Nodes are owned by their Tree and linked by ordinary Go
// pointers: there is no arena and no index-based handle, and the parent
// link is a plain pointer like the child links.
type Node struct {
	entity              Entity
	parent              *Node
	physical            []*Node
	logical             []*Node
	hostContainerID     uint16
	assignedContainerID uint16 // 0 until this node first becomes a container
}

// Tree is a rooted forest of entity Nodes (spec §3.4).
type Tree struct {
	roots           []*Node
	nextContainerID uint16
	localIndex      map[localKey]*Node
	remoteIndex     map[remoteKey]*Node
}

type localKey struct {
	typ, instance, containerID uint16
}

type remoteKey struct {
	typ, instance, hostContainerID uint16
}

// NewTree constructs an empty tree. Container id allocation starts at 1;
// container id 0 is reserved for root-level entities (spec §8 S5).
func NewTree() *Tree {
	return &Tree{
		nextContainerID: 1,
		localIndex:      make(map[localKey]*Node),
		remoteIndex:     make(map[remoteKey]*Node),
	}
}

// Add inserts entity as a new node under parent (nil for a root) with the
// given association kind. If entity.Instance is InstanceAuto, the next free
// instance within (parent, entity.Type) is assigned (spec §3.4, §8 S2
// invariant). If updateContainerID is true the node's local container id is
// computed from the parent's assigned subtree container id; otherwise
// entity.ContainerID is trusted as already-correct (used when building the
// BMC's own inventory tree, where container ids are already locally
// consistent).
func (t *Tree) Add(entity Entity, parent *Node, kind AssociationKind, updateContainerID bool) (*Node, error) {
	if kind != AssociationPhysical && kind != AssociationLogical {
		return nil, fmt.Errorf("pdr: invalid association kind %d", kind)
	}

	instance := entity.Instance
	if instance == InstanceAuto {
		instance = t.nextInstance(parent, entity.Type)
	}

	hostContainerID := entity.ContainerID
	containerID := entity.ContainerID
	if updateContainerID {
		if parent == nil {
			containerID = 0
		} else {
			if parent.assignedContainerID == 0 {
				parent.assignedContainerID = t.allocContainerID()
			}
			containerID = parent.assignedContainerID
		}
	}

	node := &Node{
		entity:          Entity{Type: entity.Type, Instance: instance, ContainerID: containerID},
		parent:          parent,
		hostContainerID: hostContainerID,
	}

	if parent == nil {
		t.roots = append(t.roots, node)
	} else {
		switch kind {
		case AssociationPhysical:
			parent.physical = append(parent.physical, node)
		case AssociationLogical:
			parent.logical = append(parent.logical, node)
		}
	}

	t.localIndex[localKey{node.entity.Type, node.entity.Instance, node.entity.ContainerID}] = node
	t.remoteIndex[remoteKey{node.entity.Type, node.entity.Instance, node.hostContainerID}] = node
	return node, nil
}

func (t *Tree) allocContainerID() uint16 {
	id := t.nextContainerID
	t.nextContainerID++
	return id
}

// nextInstance returns max_existing+1 among parent's children (both
// association kinds) sharing entity.Type, or 1 if none exist
// (spec §3.4, §8 S2/S5).
func (t *Tree) nextInstance(parent *Node, entityType uint16) uint16 {
	var siblings []*Node
	if parent == nil {
		siblings = t.roots
	} else {
		siblings = make([]*Node, 0, len(parent.physical)+len(parent.logical))
		siblings = append(siblings, parent.physical...)
		siblings = append(siblings, parent.logical...)
	}

	var max uint16
	found := false
	for _, n := range siblings {
		if n.entity.Type != entityType {
			continue
		}
		if !found || n.entity.Instance > max {
			max = n.entity.Instance
			found = true
		}
	}
	if !found {
		return 1
	}
	return max + 1
}

// Find looks up a node by entity. isRemote selects the lookup mode: local
// matches (type, instance, container) against the tree's own container
// ids; remote matches (type, instance, host_container) to tolerate BMC
// re-containering (spec §4.1 find).
func (t *Tree) Find(entity Entity, isRemote bool) *Node {
	if isRemote {
		return t.remoteIndex[remoteKey{entity.Type, entity.Instance, entity.ContainerID}]
	}
	return t.localIndex[localKey{entity.Type, entity.Instance, entity.ContainerID}]
}

// FindWithLocality tries preferRemote's lookup mode first, falling back to
// the other mode (spec §4.1 find_with_locality, used during host merge).
func (t *Tree) FindWithLocality(entity Entity, preferRemote bool) *Node {
	if n := t.Find(entity, preferRemote); n != nil {
		return n
	}
	return t.Find(entity, !preferRemote)
}

// GetParent returns node's parent, or nil for a root.
func (t *Tree) GetParent(node *Node) *Node { return node.parent }

// GetNumChildren returns the number of node's children of the given kind.
func (t *Tree) GetNumChildren(node *Node, kind AssociationKind) int {
	switch kind {
	case AssociationPhysical:
		return len(node.physical)
	case AssociationLogical:
		return len(node.logical)
	default:
		return 0
	}
}

// Extract returns node's entity tuple.
func (t *Tree) Extract(node *Node) Entity { return node.entity }

// ContainerIDFor returns the local container id node assigns its children,
// allocating one on first use (spec §4.3.3 container rebinding: "the local
// tree assigns its own container ids"). Used when rewriting a PDR record's
// container_id field to match the local tree assignment.
func (t *Tree) ContainerIDFor(node *Node) uint16 {
	if node == nil {
		return 0
	}
	if node.assignedContainerID == 0 {
		node.assignedContainerID = t.allocContainerID()
	}
	return node.assignedContainerID
}

// ExtractHostContainerID returns node's preserved original host container id.
func (t *Tree) ExtractHostContainerID(node *Node) uint16 { return node.hostContainerID }

// Visit flattens the forest in level order: at each node, physical
// children precede logical children, insertion order preserved within each
// group (spec §3.4, §8 S5).
func (t *Tree) Visit() []Entity {
	var result []Entity
	queue := make([]*Node, len(t.roots))
	copy(queue, t.roots)

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node.entity)
		queue = append(queue, node.physical...)
		queue = append(queue, node.logical...)
	}
	return result
}

// CopyRoot replaces dst's forest with a deep copy of src's (spec §3.4
// copy_root, used to snapshot bmc_tree into the mutable working tree).
func CopyRoot(src, dst *Tree) {
	dst.roots = nil
	dst.nextContainerID = src.nextContainerID
	dst.localIndex = make(map[localKey]*Node)
	dst.remoteIndex = make(map[remoteKey]*Node)

	for _, root := range src.roots {
		dst.roots = append(dst.roots, copyNode(root, nil, dst))
	}
}

func copyNode(n *Node, parent *Node, dst *Tree) *Node {
	clone := &Node{
		entity:              n.entity,
		parent:              parent,
		hostContainerID:     n.hostContainerID,
		assignedContainerID: n.assignedContainerID,
	}
	for _, child := range n.physical {
		clone.physical = append(clone.physical, copyNode(child, clone, dst))
	}
	for _, child := range n.logical {
		clone.logical = append(clone.logical, copyNode(child, clone, dst))
	}
	dst.localIndex[localKey{clone.entity.Type, clone.entity.Instance, clone.entity.ContainerID}] = clone
	dst.remoteIndex[remoteKey{clone.entity.Type, clone.entity.Instance, clone.hostContainerID}] = clone
	return clone
}

// DestroyRoot drops every node from tree but keeps the Tree object itself
// alive for reuse (spec §3.4 destroy_root; used on host power-off before
// re-copying bmc_tree).
func (t *Tree) DestroyRoot() {
	t.roots = nil
	t.nextContainerID = 1
	t.localIndex = make(map[localKey]*Node)
	t.remoteIndex = make(map[remoteKey]*Node)
}
