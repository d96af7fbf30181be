package routing

import (
	"math/rand"
	"testing"

	"github.com/netsim/netsim"
	"github.com/netsim/netsim/fixtures"
)

// TestExplicitUpDown_DistanceMatrixIsSymmetric verifies a structural
// invariant of the precomputed tables: up_down_distance between any two
// routers must agree regardless of which one is queried as "a".
func TestExplicitUpDown_DistanceMatrixIsSymmetric(t *testing.T) {
	graph := fixtures.NewHammingGraph(8, 8)
	e := NewExplicitUpDown(5, true, false)
	if err := e.Initialize(graph, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	n := graph.NumRouters()
	for a := 0; a < n; a += 7 { // sample, not exhaustive: 64*64 pairs is excessive
		for b := 0; b < n; b += 11 {
			if e.upDownDist[a][b] != e.upDownDist[b][a] {
				t.Errorf("upDownDist[%d][%d]=%d != upDownDist[%d][%d]=%d",
					a, b, e.upDownDist[a][b], b, a, e.upDownDist[b][a])
			}
		}
	}
}

// TestExplicitUpDown_RoutesUpThenDownAcrossBranches drives a full route on
// the canonical 15-router tree (rooted at the same router the tree itself
// treats as root) from leaf 7 to leaf 12, mirroring UpDown's own canonical
// scenario: the route climbs to the root and descends to leaf 12, so it
// must pass through both the up and the down phase.
func TestExplicitUpDown_RoutesUpThenDownAcrossBranches(t *testing.T) {
	tree := fixtures.NewBinaryTree(4)
	e := NewExplicitUpDown(0, false, false)
	rng := rand.New(rand.NewSource(1))
	if err := e.Initialize(tree, rng); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	target := 12
	serverPort := tree.Ports(target) - 1
	serverLoc, _ := tree.Neighbour(target, serverPort)
	targetServer := serverLoc.Server
	info := netsim.NewRoutingInfo()
	e.InitializeRoutingInfo(info, tree, 7, target, &targetServer, rng)

	current := 7
	seenUp, seenDown := false, false
	for hops := 0; hops < 10; hops++ {
		candidates, idempotent, err := e.Next(info, tree, current, target, &targetServer, 1, rng)
		if err != nil {
			t.Fatalf("Next at router %d: %v", current, err)
		}
		if !idempotent {
			t.Fatalf("Next at router %d: expected idempotent=true", current)
		}
		chosen := candidates[0]
		switch chosen.Label {
		case netsim.LabelUp:
			seenUp = true
		case netsim.LabelDown:
			seenDown = true
		}
		e.PerformedRequest(chosen, info, tree, current, target, &targetServer, 1, rng)

		loc, _ := tree.Neighbour(current, chosen.Port)
		if loc.Kind == netsim.LocationServerPort {
			if loc.Server != targetServer {
				t.Fatalf("delivered to server %d, want %d", loc.Server, targetServer)
			}
			if !seenUp || !seenDown {
				t.Errorf("route never exercised both phases: seenUp=%v seenDown=%v", seenUp, seenDown)
			}
			return
		}
		e.UpdateRoutingInfo(info, tree, loc.Router, loc.Port, target, &targetServer, rng)
		current = loc.Router
	}
	t.Fatal("packet was not delivered within 10 hops")
}

// TestExplicitUpDown_RequiresRootInConfig verifies that building an
// ExplicitUpDown from configuration without a root field fails clearly.
func TestExplicitUpDown_RequiresRootInConfig(t *testing.T) {
	cfg := netsim.ObjectValue("explicit_up_down", map[string]netsim.Value{})
	if _, err := newExplicitUpDownFromConfig(cfg); err == nil {
		t.Error("expected an error when root is missing")
	}
}

func TestExplicitUpDown_BuildsFromConfig(t *testing.T) {
	cfg := netsim.ObjectValue("explicit_up_down", map[string]netsim.Value{
		"root":                         netsim.NumberValue(5),
		"branch_crossings_upwards":     netsim.BoolValue(true),
		"allow_horizontal_during_down": netsim.BoolValue(false),
	})
	r, err := newExplicitUpDownFromConfig(cfg)
	if err != nil {
		t.Fatalf("newExplicitUpDownFromConfig: %v", err)
	}
	e, ok := r.(*ExplicitUpDown)
	if !ok {
		t.Fatalf("got %T, want *ExplicitUpDown", r)
	}
	if e.Root != 5 || !e.BranchCrossingsUpward || e.AllowHorizontalDuringDown {
		t.Errorf("parsed config mismatch: %+v", e)
	}
}
