package routing

import (
	"math/rand"
	"testing"

	"github.com/netsim/netsim"
	"github.com/netsim/netsim/fixtures"
)

// TestUpDownDerouting_UpdateRoutingInfo_DecrementsBudgetOnClassZeroLink
// verifies the budget bookkeeping: Torus1D reports every link as class 0,
// so every hop on it spends one unit of the deroute budget.
func TestUpDownDerouting_UpdateRoutingInfo_DecrementsBudgetOnClassZeroLink(t *testing.T) {
	ring := fixtures.NewTorus1D(8)
	d := NewUpDownDerouting(2, nil)
	info := netsim.NewRoutingInfo()
	d.InitializeRoutingInfo(info, ring, 0, 4, nil, nil)
	if info.Selections[0] != 2 {
		t.Fatalf("initial budget = %d, want 2", info.Selections[0])
	}

	d.UpdateRoutingInfo(info, ring, 1, 0, 4, nil, nil)
	if info.Selections[0] != 1 {
		t.Errorf("budget after one hop = %d, want 1", info.Selections[0])
	}
	if len(info.VisitedRouters) != 1 || info.VisitedRouters[0] != 1 {
		t.Errorf("VisitedRouters = %v, want [1]", info.VisitedRouters)
	}
}

// TestUpDownDerouting_Next_ExcludesImmediateBacktrack verifies that a
// neighbor equal to the router the packet was just at is never offered as
// a candidate, even when it would otherwise strictly reduce distance.
func TestUpDownDerouting_Next_ExcludesImmediateBacktrack(t *testing.T) {
	ring := fixtures.NewTorus1D(8)
	d := NewUpDownDerouting(1, nil)
	info := netsim.NewRoutingInfo()
	info.VisitedRouters = []int{3} // packet arrived at router 2 from router 3
	info.Selections = []int{1}

	candidates, idempotent, err := d.Next(info, ring, 2, 6, nil, 1, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !idempotent {
		t.Error("expected idempotent=true")
	}
	for _, c := range candidates {
		loc, _ := ring.Neighbour(2, c.Port)
		if loc.Router == 3 {
			t.Errorf("candidate routes back to just-visited router 3: %+v", c)
		}
	}
	if len(candidates) == 0 {
		t.Fatal("expected at least one forward candidate")
	}
}

// TestUpDownDerouting_VCsForRemaining_UsesTableWhenPresent verifies the
// virtual-channel selection: a populated table entry for the current
// remaining budget wins over the default "all VCs" fallback.
func TestUpDownDerouting_VCsForRemaining_UsesTableWhenPresent(t *testing.T) {
	table := [][]int{{0}, {1, 2}}
	d := NewUpDownDerouting(1, table)

	if got := d.vcsForRemaining(1, 4); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("vcsForRemaining(1, 4) = %v, want [1 2]", got)
	}
	// Out-of-range remaining falls back to all VCs.
	if got := d.vcsForRemaining(5, 3); len(got) != 3 {
		t.Errorf("vcsForRemaining(5, 3) = %v, want 3 VCs (fallback)", got)
	}
}

func TestUpDownDerouting_BuildsFromConfig(t *testing.T) {
	cfg := netsim.ObjectValue("up_down_derouting", map[string]netsim.Value{
		"allowed_updowns": netsim.NumberValue(2),
		"vc_table": netsim.ArrayValue([]netsim.Value{
			netsim.ArrayValue([]netsim.Value{netsim.NumberValue(0)}),
			netsim.ArrayValue([]netsim.Value{netsim.NumberValue(1), netsim.NumberValue(2)}),
		}),
	})
	r, err := newUpDownDeroutingFromConfig(cfg)
	if err != nil {
		t.Fatalf("newUpDownDeroutingFromConfig: %v", err)
	}
	d, ok := r.(*UpDownDerouting)
	if !ok {
		t.Fatalf("got %T, want *UpDownDerouting", r)
	}
	if d.AllowedUpDowns != 2 {
		t.Errorf("AllowedUpDowns = %d, want 2", d.AllowedUpDowns)
	}
	if len(d.VCTable) != 2 || len(d.VCTable[1]) != 2 || d.VCTable[1][1] != 2 {
		t.Errorf("VCTable = %v, want [[0] [1 2]]", d.VCTable)
	}
}

func TestUpDownDerouting_MissingAllowedUpdownsIsError(t *testing.T) {
	cfg := netsim.ObjectValue("up_down_derouting", map[string]netsim.Value{})
	if _, err := newUpDownDeroutingFromConfig(cfg); err == nil {
		t.Error("expected an error when allowed_updowns is missing")
	}
}
