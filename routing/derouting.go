// UpDownDerouting relaxes UpDown's strict-progress requirement, allowing a
// bounded number of non-improving (deroute) hops to route around local
// congestion (§4.D). The teacher's source this spec distills from carries
// two divergent implementations of the visited-router bookkeeping; this
// one follows the resolution already recorded for the distillation:
// visited_routers is appended at every hop and consulted only to forbid
// immediately re-crossing the link just taken.
package routing

import (
	"math/rand"

	"github.com/netsim/netsim"
)

// UpDownDerouting allows up to AllowedUpDowns extra up/down segments
// beyond the shortest path, assigning virtual channels from VCTable
// indexed by the remaining segment budget.
type UpDownDerouting struct {
	AllowedUpDowns int
	// VCTable[remaining] lists the virtual channels eligible when
	// `remaining` up/down segments are left in the packet's budget. A nil,
	// empty or out-of-range entry falls back to every VC in [0, numVC).
	VCTable [][]int
}

// NewUpDownDerouting returns an UpDownDerouting with the given budget and
// VC table.
func NewUpDownDerouting(allowedUpDowns int, vcTable [][]int) *UpDownDerouting {
	return &UpDownDerouting{AllowedUpDowns: allowedUpDowns, VCTable: vcTable}
}

func newUpDownDeroutingFromConfig(cfg netsim.Value) (netsim.Routing, error) {
	budgetV, ok := cfg.Field("allowed_updowns")
	if !ok {
		return nil, netsim.IllFormedConfigurationValue(cfg, "up_down_derouting requires allowed_updowns")
	}
	budget, err := netsim.AsInt(budgetV)
	if err != nil {
		return nil, err
	}
	var table [][]int
	if tv, ok := cfg.Field("vc_table"); ok && tv.Kind == netsim.KindArray {
		table = make([][]int, len(tv.Items))
		for i, row := range tv.Items {
			if row.Kind != netsim.KindArray {
				continue
			}
			vcs := make([]int, len(row.Items))
			for j, item := range row.Items {
				n, err := netsim.AsInt(item)
				if err != nil {
					return nil, err
				}
				vcs[j] = n
			}
			table[i] = vcs
		}
	}
	return NewUpDownDerouting(budget, table), nil
}

func (d *UpDownDerouting) Initialize(netsim.Topology, *rand.Rand) error { return nil }

func (d *UpDownDerouting) InitializeRoutingInfo(info *netsim.RoutingInfo, _ netsim.Topology, _, _ int, _ *int, _ *rand.Rand) {
	info.Hops = 0
	info.Selections = []int{d.AllowedUpDowns}
	info.VisitedRouters = nil
}

func (d *UpDownDerouting) UpdateRoutingInfo(info *netsim.RoutingInfo, topo netsim.Topology, current, inPort, _ int, _ *int, _ *rand.Rand) {
	info.VisitedRouters = append(info.VisitedRouters, current)

	// The link the packet just arrived on at `current` is the one facing
	// inPort; class 0 marks the final stage of an up/down segment.
	_, linkClass := topo.Neighbour(current, inPort)
	if linkClass == 0 && len(info.Selections) > 0 {
		info.Selections[0]--
	}
}

func (d *UpDownDerouting) PerformedRequest(netsim.CandidateEgress, *netsim.RoutingInfo, netsim.Topology, int, int, *int, int, *rand.Rand) {
}

func (d *UpDownDerouting) Statistics(netsim.Cycle) netsim.Value { return netsim.NoneValue() }
func (d *UpDownDerouting) ResetStatistics(netsim.Cycle)         {}

// Next implements netsim.Routing: the router just visited is never a
// candidate; any other neighbor is admissible if it strictly reduces plain
// topological distance to the target, or, while budget remains, if it
// holds that distance steady to deroute around congestion.
func (d *UpDownDerouting) Next(info *netsim.RoutingInfo, topo netsim.Topology, current, targetRouter int, targetServer *int, numVC int, rng *rand.Rand) ([]netsim.CandidateEgress, bool, error) {
	if targetServer != nil && current == targetRouter {
		if port, ok := serverPort(topo, current, *targetServer); ok {
			return []netsim.CandidateEgress{{Port: port, VirtualChannel: 0, Label: netsim.LabelDown}}, true, nil
		}
	}

	remaining := d.AllowedUpDowns
	if len(info.Selections) > 0 {
		remaining = info.Selections[0]
	}
	budgetSpent := d.AllowedUpDowns*2 - info.Hops
	budgetAvailable := remaining > 0 && budgetSpent > 0

	curDist := topo.Distance(current, targetRouter)
	lastVisited := -1
	if len(info.VisitedRouters) > 0 {
		lastVisited = info.VisitedRouters[len(info.VisitedRouters)-1]
	}

	var candidates []netsim.CandidateEgress
	for port := 0; port < topo.Ports(current); port++ {
		loc, _ := topo.Neighbour(current, port)
		if loc.Kind != netsim.LocationRouterPort || loc.Router == lastVisited {
			continue
		}
		nbDist := topo.Distance(loc.Router, targetRouter)
		admissible := nbDist < curDist
		if !admissible && budgetAvailable && nbDist <= curDist {
			admissible = true
		}
		if !admissible {
			continue
		}
		vcs := d.vcsForRemaining(remaining, numVC)
		for _, vc := range vcs {
			candidates = append(candidates, netsim.CandidateEgress{
				Port: port, VirtualChannel: vc, Label: netsim.LabelDown,
				EstimatedRemainingHops: nbDist,
			})
		}
	}

	if len(candidates) == 0 {
		return nil, true, netsim.NewError(netsim.Undetermined, "UpDownDerouting: no admissible neighbor")
	}
	return candidates, true, nil
}

func (d *UpDownDerouting) vcsForRemaining(remaining, numVC int) []int {
	if remaining >= 0 && remaining < len(d.VCTable) && len(d.VCTable[remaining]) > 0 {
		return d.VCTable[remaining]
	}
	all := make([]int, numVC)
	for i := range all {
		all[i] = i
	}
	return all
}
