// iSLIP allocator: iterative round-robin bipartite matching of
// input-VC requests to output ports. Grounded on the algorithm in the
// original caminos-lib source (src/allocator/islip.rs), via the
// N. McKeown 1999 iSLIP paper it implements; the pointer update differs
// from that source (see setPointer).

package netsim

import "math/rand"

// Request is one (client, resource) pairing offered to an Allocator.
type Request struct {
	Client   int
	Resource int
	Priority int
}

// Allocator is a bipartite matcher of requests to resources.
type Allocator interface {
	AddRequest(req Request) error
	PerformAllocation(rng *rand.Rand) []Request
	SupportsInTransitPriority() bool
}

// roundVec holds requested indices plus a priority pointer; sort() reorders
// the list so the entry at (or first past) pointer comes first.
type roundVec struct {
	pointer         int
	requestedIndices []int
	n               int
}

func newRoundVec(n int) *roundVec {
	return &roundVec{n: n}
}

func (r *roundVec) add(i int)     { r.requestedIndices = append(r.requestedIndices, i) }
func (r *roundVec) clear()        { r.requestedIndices = r.requestedIndices[:0] }
func (r *roundVec) isEmpty() bool { return len(r.requestedIndices) == 0 }

// setPointer moves the priority pointer to one past the index that was just
// granted, per §4.C: the pointer becomes (granted+1) mod n, not a blind
// rotation — an input's pointer advances past the resource it was just
// matched to, not past whatever resource happened to sit at index 0.
func (r *roundVec) setPointer(granted int) { r.pointer = (granted + 1) % r.n }

// sort reorders requestedIndices so indices >= pointer come first (in
// ascending order), then indices < pointer wrap around after them.
func (r *roundVec) sort() {
	pointer := r.pointer
	size := r.n
	key := func(k int) int {
		if k < pointer {
			return k + size
		}
		return k
	}
	idx := r.requestedIndices
	for i := 1; i < len(idx); i++ {
		v := idx[i]
		kv := key(v)
		j := i - 1
		for j >= 0 && key(idx[j]) > kv {
			idx[j+1] = idx[j]
			j--
		}
		idx[j+1] = v
	}
}

// ISLIPAllocator implements the iSLIP scheduling algorithm (§4.C).
type ISLIPAllocator struct {
	numClients    int
	numResources  int
	numIterations int

	inMatch  []int // -1 = unmatched
	outMatch []int

	inRequests  []*roundVec
	outRequests []*roundVec
}

// NewISLIPAllocator constructs an iSLIP allocator for numClients inputs and
// numResources outputs, running numIterations grant/accept rounds per
// invocation (numIterations defaults to 1 if <= 0).
func NewISLIPAllocator(numClients, numResources, numIterations int) *ISLIPAllocator {
	if numClients <= 0 || numResources <= 0 {
		panic("NewISLIPAllocator: invalid arguments")
	}
	if numIterations <= 0 {
		numIterations = 1
	}
	inMatch := make([]int, numClients)
	outMatch := make([]int, numResources)
	for i := range inMatch {
		inMatch[i] = -1
	}
	for i := range outMatch {
		outMatch[i] = -1
	}
	inRequests := make([]*roundVec, numClients)
	for i := range inRequests {
		inRequests[i] = newRoundVec(numResources)
	}
	outRequests := make([]*roundVec, numResources)
	for i := range outRequests {
		outRequests[i] = newRoundVec(numClients)
	}
	return &ISLIPAllocator{
		numClients:    numClients,
		numResources:  numResources,
		numIterations: numIterations,
		inMatch:       inMatch,
		outMatch:      outMatch,
		inRequests:    inRequests,
		outRequests:   outRequests,
	}
}

func (a *ISLIPAllocator) isValidRequest(req Request) bool {
	return req.Client >= 0 && req.Client < a.numClients && req.Resource >= 0 && req.Resource < a.numResources
}

// AddRequest registers a (client, resource) pairing for the next
// PerformAllocation call. Fatal (returns a BadArgument error) on an
// out-of-range client or resource, per §4.C / §7.
func (a *ISLIPAllocator) AddRequest(req Request) error {
	if !a.isValidRequest(req) {
		return BadArgumentf("ISLIPAllocator.AddRequest: invalid request %+v", req)
	}
	a.inRequests[req.Client].add(req.Resource)
	a.outRequests[req.Resource].add(req.Client)
	return nil
}

// PerformAllocation runs one full iSLIP invocation (sort, grant/accept for
// numIterations rounds, pointer update) and returns the granted requests.
// iSLIP draws no randomness; rng is accepted only to satisfy the Allocator
// interface shared with matchers that do.
func (a *ISLIPAllocator) PerformAllocation(_ *rand.Rand) []Request {
	var granted []Request

	for c := 0; c < a.numClients; c++ {
		a.inRequests[c].sort()
	}
	for r := 0; r < a.numResources; r++ {
		a.outRequests[r].sort()
	}
	for c := range a.inMatch {
		a.inMatch[c] = -1
	}
	for r := range a.outMatch {
		a.outMatch[r] = -1
	}

	for iter := 0; iter < a.numIterations; iter++ {
		grants := make([]int, a.numResources)
		for i := range grants {
			grants[i] = -1
		}

		// Grant phase.
		for r := 0; r < a.numResources; r++ {
			if a.outMatch[r] != -1 || a.outRequests[r].isEmpty() {
				continue
			}
			for _, c := range a.outRequests[r].requestedIndices {
				if a.inMatch[c] == -1 {
					grants[r] = c
					break
				}
			}
		}

		// Accept phase.
		for c := 0; c < a.numClients; c++ {
			if a.inRequests[c].isEmpty() {
				continue
			}
			for _, r := range a.inRequests[c].requestedIndices {
				if grants[r] == c {
					a.inMatch[c] = r
					a.outMatch[r] = c
					granted = append(granted, Request{Client: c, Resource: r, Priority: 0})
					if iter == 0 {
						a.inRequests[c].setPointer(r)
						a.outRequests[r].setPointer(c)
					}
					break
				}
			}
		}
	}

	for c := 0; c < a.numClients; c++ {
		a.inRequests[c].clear()
	}
	for r := 0; r < a.numResources; r++ {
		a.outRequests[r].clear()
	}
	return granted
}

// SupportsInTransitPriority reports false: iSLIP has no notion of
// in-transit priority.
func (a *ISLIPAllocator) SupportsInTransitPriority() bool { return false }
