// UpDown is the baseline spanning-tree routing algorithm (§4.D): a hop is
// admissible iff it strictly reduces the up distance or the down distance
// (never both worsening), read directly off the topology's
// up_down_distance. Grounded on the basic-router dispatch shape of the
// teacher's sim/cluster/instance.go Step method, generalized from
// request-routing to per-hop candidate selection.
package routing

import (
	"math/rand"

	"github.com/netsim/netsim"
)

// UpDown routes using only the topology-supplied up/down distance; every
// virtual channel is eligible at every hop.
type UpDown struct{}

// NewUpDown returns a ready-to-use UpDown routing.
func NewUpDown() *UpDown { return &UpDown{} }

func (u *UpDown) Initialize(netsim.Topology, *rand.Rand) error { return nil }

func (u *UpDown) InitializeRoutingInfo(info *netsim.RoutingInfo, _ netsim.Topology, _, _ int, _ *int, _ *rand.Rand) {
	info.Hops = 0
}

func (u *UpDown) UpdateRoutingInfo(*netsim.RoutingInfo, netsim.Topology, int, int, int, *int, *rand.Rand) {
}

func (u *UpDown) PerformedRequest(netsim.CandidateEgress, *netsim.RoutingInfo, netsim.Topology, int, int, *int, int, *rand.Rand) {
}

func (u *UpDown) Statistics(netsim.Cycle) netsim.Value { return netsim.NoneValue() }
func (u *UpDown) ResetStatistics(netsim.Cycle)         {}

// Next implements netsim.Routing.
func (u *UpDown) Next(info *netsim.RoutingInfo, topo netsim.Topology, current, targetRouter int, targetServer *int, numVC int, rng *rand.Rand) ([]netsim.CandidateEgress, bool, error) {
	if targetServer != nil && current == targetRouter {
		if port, ok := serverPort(topo, current, *targetServer); ok {
			return []netsim.CandidateEgress{{Port: port, VirtualChannel: 0, Label: netsim.LabelDown}}, true, nil
		}
	}

	up, down, ok := topo.UpDownDistance(current, targetRouter)
	if !ok {
		return nil, true, netsim.NewError(netsim.Undetermined, "UpDown: up_down_distance undefined for this pair")
	}

	var candidates []netsim.CandidateEgress
	for port := 0; port < topo.Ports(current); port++ {
		loc, _ := topo.Neighbour(current, port)
		if loc.Kind != netsim.LocationRouterPort {
			continue
		}
		nu, nd, ok := topo.UpDownDistance(loc.Router, targetRouter)
		if !ok {
			continue
		}
		var label netsim.Label
		switch {
		case nu < up && nd <= down:
			label = netsim.LabelUp
		case nu <= up && nd < down:
			label = netsim.LabelDown
		default:
			continue
		}
		for vc := 0; vc < numVC; vc++ {
			candidates = append(candidates, netsim.CandidateEgress{
				Port: port, VirtualChannel: vc, Label: label,
				EstimatedRemainingHops: nu + nd,
			})
		}
	}

	if len(candidates) == 0 {
		return nil, true, netsim.NewError(netsim.Undetermined, "UpDown: no admissible neighbor")
	}
	return candidates, true, nil
}

// serverPort finds the port at `router` that attaches to `server`, if any.
func serverPort(topo netsim.Topology, router, server int) (int, bool) {
	attachRouter, attachPort := topo.ServerNeighbour(server)
	if attachRouter == router {
		return attachPort, true
	}
	return 0, false
}
