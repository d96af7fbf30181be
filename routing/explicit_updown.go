// ExplicitUpDown ("UpDownStar") precomputes NxN distance matrices from a
// configured root instead of relying on a topology-native up/down metric
// (§4.D). Grounded on the same BFS-plus-relaxation shape the teacher uses
// to precompute routing tables ahead of the simulation loop (e.g.
// sim/cluster's one-time setup before the per-cycle Step), generalized
// from static latency tables to up/down distance matrices.
package routing

import (
	"math/rand"

	"github.com/netsim/netsim"
)

// ExplicitUpDown routes using precomputed up_down and down distance
// matrices rooted at Root, optionally allowing horizontal (same-depth)
// hops during the up phase when BranchCrossingsUpward is set.
type ExplicitUpDown struct {
	Root                  int
	BranchCrossingsUpward bool
	// AllowHorizontalDuringDown permits one same-depth hop per packet while
	// in the down phase, per §4.D's "optionally allow a horizontal hop".
	AllowHorizontalDuringDown bool

	depth  []int
	parent []int

	// downDist[a][b] is defined (>=0) iff b descends from a along the BFS
	// tree rooted at Root; undefined entries are -1.
	downDist [][]int
	// upDownDist[a][b] is the shortest up-then-down distance between a and b.
	upDownDist [][]int
}

// NewExplicitUpDown returns an unconfigured ExplicitUpDown; call
// Initialize before routing.
func NewExplicitUpDown(root int, branchCrossingsUpward, allowHorizontalDuringDown bool) *ExplicitUpDown {
	return &ExplicitUpDown{
		Root:                      root,
		BranchCrossingsUpward:     branchCrossingsUpward,
		AllowHorizontalDuringDown: allowHorizontalDuringDown,
	}
}

func newExplicitUpDownFromConfig(cfg netsim.Value) (netsim.Routing, error) {
	rootV, ok := cfg.Field("root")
	if !ok {
		return nil, netsim.IllFormedConfigurationValue(cfg, "explicit_up_down requires a root field")
	}
	root, err := netsim.AsInt(rootV)
	if err != nil {
		return nil, err
	}
	branchCrossings := false
	if v, ok := cfg.Field("branch_crossings_upwards"); ok {
		branchCrossings = v.Bool
	}
	allowHorizontal := false
	if v, ok := cfg.Field("allow_horizontal_during_down"); ok {
		allowHorizontal = v.Bool
	}
	return NewExplicitUpDown(root, branchCrossings, allowHorizontal), nil
}

// Initialize runs the three-step construction: BFS from Root for depth and
// a spanning tree, seed down_dist/up_down_dist assuming every path goes
// through Root, then relax up_down_dist over every direct topology edge
// (not only tree edges) until no entry changes. The relaxation runs
// regardless of BranchCrossingsUpward and converges to plain shortest-path
// distances, which on a non-tree topology can be shorter than any path
// that stays on the BFS tree.
func (e *ExplicitUpDown) Initialize(topo netsim.Topology, _ *rand.Rand) error {
	n := topo.NumRouters()
	e.depth = make([]int, n)
	e.parent = make([]int, n)
	for i := range e.depth {
		e.depth[i] = -1
		e.parent[i] = -1
	}
	e.depth[e.Root] = 0

	queue := []int{e.Root}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for port := 0; port < topo.Ports(v); port++ {
			loc, _ := topo.Neighbour(v, port)
			if loc.Kind != netsim.LocationRouterPort {
				continue
			}
			if e.depth[loc.Router] == -1 {
				e.depth[loc.Router] = e.depth[v] + 1
				e.parent[loc.Router] = v
				queue = append(queue, loc.Router)
			}
		}
	}

	e.downDist = make([][]int, n)
	for a := 0; a < n; a++ {
		e.downDist[a] = make([]int, n)
		for b := range e.downDist[a] {
			e.downDist[a][b] = -1
		}
	}
	for v := 0; v < n; v++ {
		d := 0
		for anc := v; anc != -1; anc = e.parent[anc] {
			e.downDist[anc][v] = d
			d++
		}
	}

	const inf = 1 << 30
	e.upDownDist = make([][]int, n)
	for a := 0; a < n; a++ {
		e.upDownDist[a] = make([]int, n)
		for b := 0; b < n; b++ {
			e.upDownDist[a][b] = e.depth[a] + e.depth[b] // seed: path through root
		}
		e.upDownDist[a][a] = 0
	}

	type edge struct{ x, y int }
	var edges []edge
	for v := 0; v < n; v++ {
		for port := 0; port < topo.Ports(v); port++ {
			loc, _ := topo.Neighbour(v, port)
			if loc.Kind == netsim.LocationRouterPort && loc.Router > v {
				edges = append(edges, edge{v, loc.Router})
			}
		}
	}
	for iter := 0; iter < n; iter++ {
		changed := false
		for _, ed := range edges {
			for b := 0; b < n; b++ {
				if e.upDownDist[ed.x][b]+1 < e.upDownDist[ed.y][b] {
					e.upDownDist[ed.y][b] = e.upDownDist[ed.x][b] + 1
					e.upDownDist[b][ed.y] = e.upDownDist[ed.y][b]
					changed = true
				}
				if e.upDownDist[ed.y][b]+1 < e.upDownDist[ed.x][b] {
					e.upDownDist[ed.x][b] = e.upDownDist[ed.y][b] + 1
					e.upDownDist[b][ed.x] = e.upDownDist[ed.x][b]
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	_ = inf
	return nil
}

func (e *ExplicitUpDown) InitializeRoutingInfo(info *netsim.RoutingInfo, _ netsim.Topology, _, _ int, _ *int, _ *rand.Rand) {
	info.Hops = 0
	info.Selections = []int{0} // 0 = horizontal hop not yet used this packet
}

func (e *ExplicitUpDown) UpdateRoutingInfo(*netsim.RoutingInfo, netsim.Topology, int, int, int, *int, *rand.Rand) {
}

func (e *ExplicitUpDown) PerformedRequest(chosen netsim.CandidateEgress, info *netsim.RoutingInfo, _ netsim.Topology, _, _ int, _ *int, _ int, _ *rand.Rand) {
	if chosen.Label == netsim.LabelHorizontal && len(info.Selections) > 0 {
		info.Selections[0] = 1
	}
}

func (e *ExplicitUpDown) Statistics(netsim.Cycle) netsim.Value { return netsim.NoneValue() }
func (e *ExplicitUpDown) ResetStatistics(netsim.Cycle)         {}

func (e *ExplicitUpDown) usedHorizontal(info *netsim.RoutingInfo) bool {
	return len(info.Selections) > 0 && info.Selections[0] == 1
}

// Next implements netsim.Routing.
func (e *ExplicitUpDown) Next(info *netsim.RoutingInfo, topo netsim.Topology, current, targetRouter int, targetServer *int, numVC int, rng *rand.Rand) ([]netsim.CandidateEgress, bool, error) {
	if targetServer != nil && current == targetRouter {
		if port, ok := serverPort(topo, current, *targetServer); ok {
			return []netsim.CandidateEgress{{Port: port, VirtualChannel: 0, Label: netsim.LabelDown}}, true, nil
		}
	}

	var candidates []netsim.CandidateEgress
	inDownPhase := e.downDist[current][targetRouter] >= 0

	for port := 0; port < topo.Ports(current); port++ {
		loc, _ := topo.Neighbour(current, port)
		if loc.Kind != netsim.LocationRouterPort {
			continue
		}
		nb := loc.Router
		sameDepth := e.depth[nb] == e.depth[current]
		upward := e.depth[nb] < e.depth[current]

		var label netsim.Label
		var admissible bool

		if inDownPhase {
			if e.downDist[nb][targetRouter] >= 0 && e.downDist[nb][targetRouter] < e.downDist[current][targetRouter] {
				admissible = true
				label = netsim.LabelDown
			} else if e.AllowHorizontalDuringDown && sameDepth && !e.usedHorizontal(info) &&
				e.upDownDist[nb][targetRouter] < e.upDownDist[current][targetRouter] {
				admissible = true
				label = netsim.LabelHorizontal
			}
		} else {
			if upward && e.upDownDist[nb][targetRouter] < e.upDownDist[current][targetRouter] {
				admissible = true
				label = netsim.LabelUp
			} else if e.BranchCrossingsUpward && sameDepth &&
				e.upDownDist[nb][targetRouter] < e.upDownDist[current][targetRouter] {
				admissible = true
				label = netsim.LabelHorizontal
			}
		}

		if !admissible {
			continue
		}
		for vc := 0; vc < numVC; vc++ {
			candidates = append(candidates, netsim.CandidateEgress{
				Port: port, VirtualChannel: vc, Label: label,
				EstimatedRemainingHops: e.upDownDist[nb][targetRouter],
			})
		}
	}

	if len(candidates) == 0 {
		return nil, true, netsim.NewError(netsim.Undetermined, "ExplicitUpDown: no admissible neighbor")
	}
	return candidates, true, nil
}
