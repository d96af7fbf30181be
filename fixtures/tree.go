// BinaryTree is a concrete test/demo Topology: a complete binary tree of
// routers with one server attached to each leaf, used to exercise UpDown
// routing's canonical scenario (§8). Grounded on the teacher's
// sim/internal/testutil fixture-building style (small, deterministic,
// constructor-built fixtures for tests rather than a general topology
// description language).
package fixtures

import "github.com/netsim/netsim"

// BinaryTree is a complete binary tree with `levels` levels (root at level
// 0), numbered breadth-first from 0. A server is attached to every leaf.
type BinaryTree struct {
	levels    int
	numRouter int
	leaves    []int
	serverOf  map[int]int // router -> server id, only for leaves
	routerOf  map[int]int // server -> router id
}

// NewBinaryTree builds a complete binary tree with the given number of
// levels (levels=4 gives the canonical 15-switch tree of §8).
func NewBinaryTree(levels int) *BinaryTree {
	numRouter := (1 << levels) - 1
	t := &BinaryTree{
		levels:    levels,
		numRouter: numRouter,
		serverOf:  make(map[int]int),
		routerOf:  make(map[int]int),
	}
	firstLeaf := (1 << (levels - 1)) - 1
	serverID := 0
	for i := firstLeaf; i < numRouter; i++ {
		t.leaves = append(t.leaves, i)
		t.serverOf[i] = serverID
		t.routerOf[serverID] = i
		serverID++
	}
	return t
}

func (t *BinaryTree) parent(i int) int { return (i - 1) / 2 }
func (t *BinaryTree) isLeaf(i int) bool {
	_, ok := t.serverOf[i]
	return ok
}
func (t *BinaryTree) depth(i int) int {
	d := 0
	for i > 0 {
		i = t.parent(i)
		d++
	}
	return d
}

// NumRouters implements netsim.Topology.
func (t *BinaryTree) NumRouters() int { return t.numRouter }

// NumServers implements netsim.Topology.
func (t *BinaryTree) NumServers() int { return len(t.leaves) }

// Ports implements netsim.Topology: port 0 is the parent link (absent at
// the root, whose numbering starts with the children), the next two ports
// are the child links (absent at leaves), and the last port is the server
// link (leaves only).
func (t *BinaryTree) Ports(router int) int {
	n := 0
	if router != 0 {
		n++ // parent
	}
	if !t.isLeaf(router) {
		n += 2 // children
	} else {
		n++ // server
	}
	return n
}

func (t *BinaryTree) Degree(router int) int {
	n := 0
	if router != 0 {
		n++
	}
	if !t.isLeaf(router) {
		n += 2
	}
	return n
}

// Neighbour implements netsim.Topology.
func (t *BinaryTree) Neighbour(router, port int) (netsim.Location, int) {
	idx := 0
	if router != 0 {
		if port == idx {
			return netsim.Location{Kind: netsim.LocationRouterPort, Router: t.parent(router), Port: childPort(t, t.parent(router), router)}, 0
		}
		idx++
	}
	if !t.isLeaf(router) {
		left, right := 2*router+1, 2*router+2
		if port == idx {
			return netsim.Location{Kind: netsim.LocationRouterPort, Router: left, Port: 0}, 0
		}
		idx++
		if port == idx {
			return netsim.Location{Kind: netsim.LocationRouterPort, Router: right, Port: 0}, 0
		}
		idx++
	} else {
		if port == idx {
			return netsim.Location{Kind: netsim.LocationServerPort, Server: t.serverOf[router]}, 0
		}
		idx++
	}
	_ = idx
	return netsim.Location{Kind: netsim.LocationNone}, 0
}

// childPort returns which port of `parent` faces `child`.
func childPort(t *BinaryTree, parent, child int) int {
	idx := 0
	if parent != 0 {
		idx++
	}
	left, right := 2*parent+1, 2*parent+2
	if child == left {
		return idx
	}
	if child == right {
		return idx + 1
	}
	return 0
}

// ServerNeighbour implements netsim.Topology.
func (t *BinaryTree) ServerNeighbour(server int) (router, port int) {
	router = t.routerOf[server]
	return router, t.Ports(router) - 1
}

// Distance implements netsim.Topology as plain tree-path length.
func (t *BinaryTree) Distance(a, b int) int {
	up, down, _ := t.UpDownDistance(a, b)
	return up + down
}

// UpDownDistance implements netsim.Topology via lowest-common-ancestor
// depth arithmetic.
func (t *BinaryTree) UpDownDistance(a, b int) (up, down int, ok bool) {
	ancestorsA := map[int]int{}
	d := 0
	for v := a; ; {
		ancestorsA[v] = d
		if v == 0 {
			break
		}
		v = t.parent(v)
		d++
	}
	v, dd := b, 0
	for {
		if ad, found := ancestorsA[v]; found {
			return ad, dd, true
		}
		if v == 0 {
			break
		}
		v = t.parent(v)
		dd++
	}
	return 0, 0, false
}

// IsDirectionChange implements netsim.Topology: a single-dimension tree has
// no dimension changes, so the bubble scheme never applies.
func (t *BinaryTree) IsDirectionChange(router, inPort, outPort int) bool { return false }

// NeighbourRouterIter implements netsim.Topology.
func (t *BinaryTree) NeighbourRouterIter(router int) []int {
	var out []int
	for port := 0; port < t.Ports(router); port++ {
		loc, _ := t.Neighbour(router, port)
		if loc.Kind == netsim.LocationRouterPort {
			out = append(out, loc.Router)
		}
	}
	return out
}
