// Routing contract (§4.D, §6) and the CandidateEgress/RequestInfo types
// shared with the VC policy chain (§4.E). Concrete algorithms (UpDown,
// ExplicitUpDown, UpDownDerouting) live in netsim/routing and register
// themselves here via NewRoutingFunc to avoid an import cycle, the same
// pattern the teacher uses for sim/kv and sim/latency (init-registration
// breaking interface-owner / implementation cycles).

package netsim

import "math/rand"

// Label tags the kind of hop a CandidateEgress represents, driving
// downstream VC policy decisions (e.g. reserving VCs by phase).
type Label int

const (
	LabelUp Label = iota
	LabelDown
	LabelHorizontal
)

// CandidateEgress is one admissible (port, vc, label) choice returned by a
// Routing for the current hop.
type CandidateEgress struct {
	Port                  int
	VirtualChannel        int
	Label                 Label
	EstimatedRemainingHops int
	// RouterAllows is nil until a flow-control test has been applied; the
	// router sets it to &false rather than dropping the candidate when
	// neglect_busy_output requires keeping a denied candidate visible to
	// the policy chain (§4.F step 3).
	RouterAllows *bool
}

// Routing computes, for a packet at `current`, the set of admissible next
// hops toward target_router (and target_server, if the destination is
// directly attached).
type Routing interface {
	// Next returns a non-empty candidate set and whether calling Next
	// again in the same state would yield an equivalent set (idempotent).
	Next(info *RoutingInfo, topo Topology, current, targetRouter int, targetServer *int, numVC int, rng *rand.Rand) ([]CandidateEgress, bool, error)
	Initialize(topo Topology, rng *rand.Rand) error
	InitializeRoutingInfo(info *RoutingInfo, topo Topology, current, targetRouter int, targetServer *int, rng *rand.Rand)
	UpdateRoutingInfo(info *RoutingInfo, topo Topology, current, inPort, targetRouter int, targetServer *int, rng *rand.Rand)
	PerformedRequest(chosen CandidateEgress, info *RoutingInfo, topo Topology, current, targetRouter int, targetServer *int, numVC int, rng *rand.Rand)
	Statistics(cycle Cycle) Value
	ResetStatistics(cycle Cycle)
}

// NewRoutingFunc constructs a Routing by configuration Value. Populated by
// netsim/routing's init(); nil until that package is imported.
var NewRoutingFunc func(cfg Value) (Routing, error)

// NewRouting constructs a Routing from a configuration Value, returning an
// IllFormedConfiguration error if no routing implementation has been
// registered (caller forgot to blank-import netsim/routing) or the
// configuration names an unknown routing.
func NewRouting(cfg Value) (Routing, error) {
	if NewRoutingFunc == nil {
		return nil, IllFormedConfigurationValue(cfg, "no Routing implementations registered (blank-import netsim/routing)")
	}
	return NewRoutingFunc(cfg)
}

// RequestInfo is the runtime view a VCPolicy filters candidates against.
type RequestInfo struct {
	TargetRouter   int
	EntryPort      int
	EntryVC        int
	PerformedHops  int
	PortOccupancy  map[int]int // out_port -> occupied VC count, optional
	VCOccupancy    map[int]int // out_vc -> occupied phit count, optional
	QueueLengths   map[int]int // out_port -> neighbour queue length, optional
	LastTransmit   map[int]Cycle
	TimeAtHead     Cycle
	CurrentCycle   Cycle
	Phit           *Phit
}

// VCPolicy filters or reorders a candidate list using RequestInfo. Policies
// compose left-to-right; composition stops once the list is empty (§4.E).
type VCPolicy interface {
	Filter(candidates []CandidateEgress, info RequestInfo) []CandidateEgress
}

// PolicyChain composes VCPolicy stages left-to-right, short-circuiting as
// soon as a stage returns an empty list.
type PolicyChain struct {
	Stages []VCPolicy
}

func (p PolicyChain) Filter(candidates []CandidateEgress, info RequestInfo) []CandidateEgress {
	for _, stage := range p.Stages {
		if len(candidates) == 0 {
			break
		}
		candidates = stage.Filter(candidates, info)
	}
	return candidates
}

// EnforceFlowControl is the mandatory terminal VC policy stage: it removes
// candidates the router has already marked as flow-control-denied
// (RouterAllows == &false).
type EnforceFlowControl struct{}

func (EnforceFlowControl) Filter(candidates []CandidateEgress, _ RequestInfo) []CandidateEgress {
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.RouterAllows == nil || *c.RouterAllows {
			out = append(out, c)
		}
	}
	return out
}

// LowestLabelFirst reorders candidates so lower Label values sort first,
// keeping the original order among equal labels. The Router does not
// install it: its default arbitration partitions requests by label itself
// when OutputPrioritizeLowestLabel is set (§4.F step 4).
type LowestLabelFirst struct{}

func (LowestLabelFirst) Filter(candidates []CandidateEgress, _ RequestInfo) []CandidateEgress {
	out := make([]CandidateEgress, len(candidates))
	copy(out, candidates)
	// stable insertion sort by Label: candidate counts per router cycle are
	// small, and stability must be preserved exactly as in Go's sort.Stable.
	for i := 1; i < len(out); i++ {
		v := out[i]
		j := i - 1
		for j >= 0 && out[j].Label > v.Label {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = v
	}
	return out
}
