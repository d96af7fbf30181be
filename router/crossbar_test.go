package router

import (
	"math/rand"
	"testing"

	"github.com/netsim/netsim"
)

// TestCrossbarArbiter_AccumulatesUntilPeriodBoundary verifies that requests
// offered on a cycle that is not a multiple of Period are absorbed into the
// allocator's pending round-robin state but produce no grants, and that
// those same requests are granted once a firing cycle is reached without
// being re-submitted.
func TestCrossbarArbiter_AccumulatesUntilPeriodBoundary(t *testing.T) {
	c := NewCrossbarArbiter(2, 1, 2, 1)
	req := netsim.PortRequest{InPort: 0, InVC: 0, OutPort: 0, OutVC: 0}
	rng := rand.New(rand.NewSource(1))

	granted := c.Arbitrate([]netsim.PortRequest{req}, nil, 1, rng)
	if granted != nil {
		t.Fatalf("Arbitrate at non-firing cycle 1 = %+v, want nil", granted)
	}

	granted = c.Arbitrate(nil, nil, 2, rng)
	if len(granted) != 1 {
		t.Fatalf("Arbitrate at firing cycle 2 = %+v, want exactly the pending request", granted)
	}
	if granted[0].InPort != 0 || granted[0].OutPort != 0 {
		t.Errorf("granted request = %+v, want the one offered at cycle 1", granted[0])
	}
}

// TestCrossbarArbiter_ContentionResolvesAtFiringCycle verifies that two
// clients contending for the same resource across two non-firing cycles
// are both remembered, and exactly one is granted on the firing cycle.
func TestCrossbarArbiter_ContentionResolvesAtFiringCycle(t *testing.T) {
	c := NewCrossbarArbiter(2, 1, 3, 1)
	rng := rand.New(rand.NewSource(1))

	reqA := netsim.PortRequest{InPort: 0, InVC: 0, OutPort: 1, OutVC: 0}
	reqB := netsim.PortRequest{InPort: 1, InVC: 0, OutPort: 1, OutVC: 0}

	if got := c.Arbitrate([]netsim.PortRequest{reqA}, nil, 1, rng); got != nil {
		t.Fatalf("cycle 1 Arbitrate = %+v, want nil (not a firing cycle)", got)
	}
	if got := c.Arbitrate([]netsim.PortRequest{reqB}, nil, 2, rng); got != nil {
		t.Fatalf("cycle 2 Arbitrate = %+v, want nil (not a firing cycle)", got)
	}

	granted := c.Arbitrate(nil, nil, 3, rng)
	if len(granted) != 1 {
		t.Fatalf("cycle 3 Arbitrate = %+v, want exactly one grant for contended resource", granted)
	}
	if granted[0].OutPort != 1 {
		t.Errorf("granted request targets output port %d, want 1", granted[0].OutPort)
	}
}

// TestCrossbarArbiter_ZeroOrNegativePeriodFallsBackToEveryCycle verifies
// the NewCrossbarArbiter clamp: a non-positive period is treated as 1, so
// every cycle fires.
func TestCrossbarArbiter_ZeroOrNegativePeriodFallsBackToEveryCycle(t *testing.T) {
	c := NewCrossbarArbiter(1, 1, 0, 1)
	if c.Period != 1 {
		t.Fatalf("Period = %d, want 1 after clamping a non-positive value", c.Period)
	}

	req := netsim.PortRequest{InPort: 0, InVC: 0, OutPort: 0, OutVC: 0}
	granted := c.Arbitrate([]netsim.PortRequest{req}, nil, 5, rand.New(rand.NewSource(1)))
	if len(granted) != 1 {
		t.Fatalf("Arbitrate at cycle 5 with period 1 = %+v, want an immediate grant", granted)
	}
}

// TestNewInputOutputRouter_WiresCrossbarArbiter verifies the constructor
// attaches a CrossbarArbiter as the router's Arbiter instead of leaving it
// nil (which would fall back to the basic router's greedy arbitration).
func TestNewInputOutputRouter_WiresCrossbarArbiter(t *testing.T) {
	r := NewInputOutputRouter(4, 2, 4, 2, fakeRouting{}, netsim.PolicyChain{Stages: []netsim.VCPolicy{netsim.EnforceFlowControl{}}})
	cb, ok := r.Arbiter.(*CrossbarArbiter)
	if !ok {
		t.Fatalf("Arbiter = %T, want *CrossbarArbiter", r.Arbiter)
	}
	if cb.Period != 4 {
		t.Errorf("Period = %d, want 4", cb.Period)
	}
}

// fakeRouting is a minimal netsim.Routing used only to satisfy
// NewInputOutputRouter's constructor; its Next is never exercised here.
type fakeRouting struct{}

func (fakeRouting) Next(_ *netsim.RoutingInfo, _ netsim.Topology, current, targetRouter int, _ *int, _ int, _ *rand.Rand) ([]netsim.CandidateEgress, bool, error) {
	return nil, true, nil
}
func (fakeRouting) Initialize(netsim.Topology, *rand.Rand) error { return nil }
func (fakeRouting) InitializeRoutingInfo(*netsim.RoutingInfo, netsim.Topology, int, int, *int, *rand.Rand) {
}
func (fakeRouting) UpdateRoutingInfo(*netsim.RoutingInfo, netsim.Topology, int, int, int, *int, *rand.Rand) {
}
func (fakeRouting) PerformedRequest(netsim.CandidateEgress, *netsim.RoutingInfo, netsim.Topology, int, int, *int, int, *rand.Rand) {
}
func (fakeRouting) Statistics(netsim.Cycle) netsim.Value { return netsim.NoneValue() }
func (fakeRouting) ResetStatistics(netsim.Cycle)         {}
