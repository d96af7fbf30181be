// The input-output pipelined router variant adds an internal crossbar that
// runs its match only every Period simulation cycles (a frequency divisor),
// matching the basic router's contract otherwise (§4.F). There is no
// separate crossbar scheduling delay: grants take effect in the cycle the
// match runs. Which bipartite matcher backs the crossbar is left open by the
// distillation ("any bipartite matcher with per-output round-robin
// fairness"); this uses the iSLIP allocator already built for that
// purpose, generalized from the basic router's per-cycle greedy
// arbitration to a periodic batch match. Grounded on the teacher's
// sim/cluster/instance.go, whose pipelined per-tick admission this
// crossbar timing generalizes.
package router

import (
	"math/rand"

	"github.com/netsim/netsim"
)

type slotKey struct{ client, resource int }

// CrossbarArbiter is a netsim.Arbiter backed by an iSLIP bipartite
// matcher that only runs every Period cycles; requests accumulate in the
// allocator's round-robin request vectors between firings.
type CrossbarArbiter struct {
	Period    int
	allocator *netsim.ISLIPAllocator
	numVC     int
	pending   map[slotKey]netsim.PortRequest
}

// NewCrossbarArbiter builds a crossbar arbiter sized for numPorts*numVC
// input and output clients/resources, firing its iSLIP match every period
// cycles with the given number of grant/accept iterations.
func NewCrossbarArbiter(numPorts, numVC, period, iterations int) *CrossbarArbiter {
	if period < 1 {
		period = 1
	}
	size := numPorts * numVC
	return &CrossbarArbiter{
		Period:    period,
		allocator: netsim.NewISLIPAllocator(size, size, iterations),
		numVC:     numVC,
		pending:   make(map[slotKey]netsim.PortRequest),
	}
}

// Arbitrate implements netsim.Arbiter.
func (c *CrossbarArbiter) Arbitrate(requests []netsim.PortRequest, router *netsim.Router, cycle netsim.Cycle, rng *rand.Rand) []netsim.PortRequest {
	for _, req := range requests {
		client := req.InPort*c.numVC + req.InVC
		resource := req.OutPort*c.numVC + req.OutVC
		if err := c.allocator.AddRequest(netsim.Request{Client: client, Resource: resource}); err != nil {
			continue
		}
		c.pending[slotKey{client, resource}] = req
	}

	if int64(cycle)%int64(c.Period) != 0 {
		return nil
	}

	grants := c.allocator.PerformAllocation(rng)
	out := make([]netsim.PortRequest, 0, len(grants))
	for _, g := range grants {
		key := slotKey{g.Client, g.Resource}
		if req, ok := c.pending[key]; ok {
			out = append(out, req)
			delete(c.pending, key)
		}
	}
	return out
}

// NewInputOutputRouter builds a Router configured as the input-output
// variant: identical admission/output-phase behavior to the basic router,
// but arbitration runs through a CrossbarArbiter every `period` cycles.
func NewInputOutputRouter(numPorts, numVC, period, iterations int, routing netsim.Routing, policy netsim.VCPolicy) *netsim.Router {
	r := netsim.NewRouter(numPorts, numVC, routing, policy)
	r.Arbiter = NewCrossbarArbiter(numPorts, numVC, period, iterations)
	return r
}
