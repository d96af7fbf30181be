// The basic pipelined input-queued router: admits phits, consults routing,
// arbitrates among requests, and moves phits to links or servers honoring
// credit-based flow control and the bubble scheme (§4.F). Grounded on the
// teacher's per-tick Step structure in sim/simulator.go (precompute -> form
// -> execute -> bookkeep -> reschedule), generalized from batch scheduling
// to per-cycle phit admission/arbitration/movement.

package netsim

import (
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// assignment is the (packet, port, vc) triple shared by selected_input and
// selected_output (§3 invariant 2: set and cleared atomically together).
type assignment struct {
	Packet *Packet
	Port   int
	VC     int
}

// PortRequest is one candidate (in_port,in_vc) -> (out_port,out_vc) request
// surfaced during the routing phase, awaiting arbitration.
type PortRequest struct {
	Packet  *Packet
	InPort  int
	InVC    int
	OutPort int
	OutVC   int
	Label   Label
}

// Router is the per-cycle phit admission/arbitration/movement state
// machine (§3 "Router state (basic)", §4.F).
type Router struct {
	ID int

	NumPorts int
	NumVC    int
	FlitSize int

	// BufferSize sizes the per-VC reception buffers at this router's input
	// ports that face other routers (credit-counted).
	BufferSize int
	// OutputBufferSize records the size passed to EnableOutputBuffers.
	// Phits always move directly from the input buffer to the link:
	// movePhit never places a phit in an output buffer.
	OutputBufferSize int
	MaxPacketSize    int
	LinkDelay        int

	NeglectBusyOutput           bool
	OutputPrioritizeLowestLabel bool
	IntransitPriority           bool

	Routing Routing
	Policy  VCPolicy
	// Arbiter overrides the built-in label-partition/shuffle arbitration
	// (§4.F step 4); nil means use the default. The input-output router
	// variant installs a crossbar-paced bipartite matcher here.
	Arbiter Arbiter

	Receptors []SpaceAtReceptor
	Emitters  []StatusAtEmitter

	selectedInput  [][]*assignment // [outPort][outVC]
	selectedOutput [][]*assignment // [inPort][inVC]
	outputBuffers  [][]*Buffer     // [outPort][outVC], nil until EnableOutputBuffers
	timeAtHead     [][]Cycle       // [inPort][inVC]
	portToken      []int

	lastSampleCycle Cycle
	Stats           *RouterStatistics

	engine *Engine
}

// NewRouter constructs a Router with NumPorts ports and NumVC virtual
// channels per port, all state zeroed.
func NewRouter(numPorts, numVC int, routing Routing, policy VCPolicy) *Router {
	r := &Router{
		NumPorts:  numPorts,
		NumVC:     numVC,
		Routing:   routing,
		Policy:    policy,
		Receptors: make([]SpaceAtReceptor, numPorts),
		Emitters:  make([]StatusAtEmitter, numPorts),
		portToken: make([]int, numPorts),
		Stats:     NewRouterStatistics(numPorts, numVC),
	}
	r.selectedInput = make([][]*assignment, numPorts)
	r.selectedOutput = make([][]*assignment, numPorts)
	r.timeAtHead = make([][]Cycle, numPorts)
	for p := 0; p < numPorts; p++ {
		r.selectedInput[p] = make([]*assignment, numVC)
		r.selectedOutput[p] = make([]*assignment, numVC)
		r.timeAtHead[p] = make([]Cycle, numVC)
	}
	return r
}

// EnableOutputBuffers allocates one output Buffer per (port, VC). These
// buffers are read by IterPhits and sourcePhit; no code path fills them.
func (r *Router) EnableOutputBuffers(size int) {
	r.OutputBufferSize = size
	r.outputBuffers = make([][]*Buffer, r.NumPorts)
	for p := 0; p < r.NumPorts; p++ {
		r.outputBuffers[p] = make([]*Buffer, r.NumVC)
		for v := 0; v < r.NumVC; v++ {
			r.outputBuffers[p][v] = NewBuffer()
		}
	}
}

// NumVirtualChannels implements the Router contract.
func (r *Router) NumVirtualChannels() int { return r.NumVC }

// IterPhits implements the Router contract: every phit currently resident
// in this router, across input (and output-buffer, if enabled) stages.
func (r *Router) IterPhits() []*Phit {
	var out []*Phit
	for _, recv := range r.Receptors {
		if recv != nil {
			out = append(out, recv.IterPhits()...)
		}
	}
	for _, perVC := range r.outputBuffers {
		for _, buf := range perVC {
			out = append(out, buf.IterPhits()...)
		}
	}
	return out
}

// GetStatusAtEmitter implements the Router contract.
func (r *Router) GetStatusAtEmitter(port int) StatusAtEmitter { return r.Emitters[port] }

// Insert implements the Router contract: a phit arrives at `port` (from a
// link or a server). Insertion failures (no VC set, mechanism mismatch)
// are fatal per §7 — they indicate a corrupted simulation, not a
// recoverable condition.
func (r *Router) Insert(cycle Cycle, phit *Phit, port int, rng *rand.Rand) []Event {
	if phit.IsBegin() && r.isServerFacingPort(port) {
		// Fresh injection from this router's attached server: seed the
		// packet's routing scratch before it is ever routed. Phits arriving
		// from another router already carry routing info updated in place
		// at each hop (UpdateRoutingInfo), so this only runs once per packet.
		targetRouter, targetServer := r.resolveTarget(phit.Packet)
		r.Routing.InitializeRoutingInfo(phit.Packet.Routing, r.engine.Topology, r.ID, targetRouter, &targetServer, rng)
	}
	if err := r.Receptors[port].Insert(phit, rng); err != nil {
		panic(err)
	}
	r.engine.ScheduleRouterWake(r.ID, cycle, 0)
	return nil
}

// Acknowledge implements the Router contract: a credit/space update
// arrives at `port`'s emitter status.
func (r *Router) Acknowledge(cycle Cycle, port int, msg AcknowledgeMessage) []Event {
	r.Emitters[port].Acknowledge(msg)
	r.engine.ScheduleRouterWake(r.ID, cycle, 0)
	return nil
}

func (r *Router) resolveTarget(pkt *Packet) (targetRouter int, targetServer int) {
	targetRouter, _ = r.engine.Topology.ServerNeighbour(pkt.Message.Destination)
	targetServer = pkt.Message.Destination
	return
}

// Process implements the router's per-cycle procedure (§4.F, steps 1-7).
func (r *Router) Process(cycle Cycle, rng *rand.Rand) []Event {
	r.sampleStatistics(cycle)

	var events []Event

	// Step 3: routing + request emission.
	var requests []PortRequest
	for inPort := 0; inPort < r.NumPorts; inPort++ {
		for inVC := 0; inVC < r.NumVC; inVC++ {
			if r.selectedOutput[inPort][inVC] != nil {
				continue // already committed, nothing to route
			}
			phit, ok := r.Receptors[inPort].FrontVC(inVC)
			if !ok {
				continue
			}
			r.timeAtHead[inPort][inVC]++
			requests = append(requests, r.routeHead(phit, inPort, inVC, cycle, rng)...)
		}
	}

	// Step 4: arbitration.
	freshlyCommitted := r.arbitrate(requests, cycle, rng)

	// Step 5: output-port phase.
	moved := r.outputPortPhase(cycle, &events)

	// Step 6: rescue.
	for _, key := range freshlyCommitted {
		if !moved[key] {
			assign := r.selectedOutput[key.InPort][key.InVC]
			if assign == nil {
				continue
			}
			r.selectedInput[assign.Port][assign.VC] = nil
			r.selectedOutput[key.InPort][key.InVC] = nil
		}
	}

	// Step 7: reschedule if any work remains.
	if r.needsWake() {
		r.engine.ScheduleRouterWake(r.ID, cycle, 1)
	}

	return events
}

// routeHead computes candidates for the head phit at (inPort,inVC) and
// turns survivors into PortRequests.
func (r *Router) routeHead(phit *Phit, inPort, inVC int, cycle Cycle, rng *rand.Rand) []PortRequest {
	pkt := phit.Packet
	targetRouter, targetServer := r.resolveTarget(pkt)

	candidates, idempotent, err := r.Routing.Next(pkt.Routing, r.engine.Topology, r.ID, targetRouter, &targetServer, r.NumVC, rng)
	if err != nil {
		if idempotent {
			logrus.Warnf("router %d: no admissible neighbor toward router %d: %v", r.ID, targetRouter, err)
			panic(err) // empty candidate set with idempotent=true is fatal (§7)
		}
		return nil // recoverable: leave phit in place, retry next cycle
	}

	for i := range candidates {
		c := &candidates[i]
		if r.selectedInput[c.Port][c.VirtualChannel] != nil {
			if r.NeglectBusyOutput {
				c.RouterAllows = nil
				continue
			}
			deny := false
			c.RouterAllows = &deny
			continue
		}
		bubble := r.engine.Topology.IsDirectionChange(r.ID, inPort, c.Port)
		var allow bool
		if bubble {
			allow = r.Emitters[c.Port].CanTransmitWholePacket(phit, c.VirtualChannel, r.MaxPacketSize)
		} else {
			allow = r.Emitters[c.Port].CanTransmit(phit, c.VirtualChannel)
		}
		c.RouterAllows = &allow
	}

	// drop candidates whose output is busy and neglect_busy_output==true
	filtered := candidates[:0:0]
	for _, c := range candidates {
		if r.selectedInput[c.Port][c.VirtualChannel] != nil && r.NeglectBusyOutput {
			continue
		}
		filtered = append(filtered, c)
	}

	info := RequestInfo{
		TargetRouter:  targetRouter,
		EntryPort:     inPort,
		EntryVC:       inVC,
		PerformedHops: pkt.Routing.Hops,
		TimeAtHead:    r.timeAtHead[inPort][inVC],
		CurrentCycle:  cycle,
		Phit:          phit,
	}
	survivors := r.Policy.Filter(filtered, info)

	reqs := make([]PortRequest, 0, len(survivors))
	for _, c := range survivors {
		reqs = append(reqs, PortRequest{
			Packet: pkt, InPort: inPort, InVC: inVC,
			OutPort: c.Port, OutVC: c.VirtualChannel, Label: c.Label,
		})
	}
	return reqs
}

// InputKey identifies one (in_port, in_vc) slot, used to report which
// requests an arbitration pass actually committed.
type InputKey struct {
	InPort, InVC int
}

// Arbiter decides, among this cycle's PortRequests, which are granted.
// The default (used when Router.Arbiter is nil) is the label-partition,
// shuffle-then-greedy-commit scheme of §4.F step 4; the input-output
// router variant substitutes a crossbar-paced bipartite matcher.
type Arbiter interface {
	// Arbitrate returns the subset of requests granted this cycle. The
	// Router commits each returned request via TryCommit, so a returned
	// request that conflicts with an earlier one in the same slice (or
	// with state from a prior cycle) is silently dropped rather than
	// double-committed.
	Arbitrate(requests []PortRequest, router *Router, cycle Cycle, rng *rand.Rand) []PortRequest
}

// OutputBusy reports whether (port,vc) already has a committed owner.
func (r *Router) OutputBusy(port, vc int) bool { return r.selectedInput[port][vc] != nil }

// InputBusy reports whether (port,vc) already has a committed destination.
func (r *Router) InputBusy(port, vc int) bool { return r.selectedOutput[port][vc] != nil }

// IsServerFacingPort reports whether `port` attaches to a server rather
// than another router.
func (r *Router) IsServerFacingPort(port int) bool { return r.isServerFacingPort(port) }

type inputKey = InputKey

// arbitrate implements §4.F step 4 via r.Arbiter (defaulting to the
// label-partition/shuffle/greedy-commit scheme), then performs the
// bookkeeping common to every arbiter: hop counting and routing-info
// update. The hop trace is recorded by movePhit at tail departure.
func (r *Router) arbitrate(requests []PortRequest, cycle Cycle, rng *rand.Rand) []inputKey {
	var granted []PortRequest
	if r.Arbiter != nil {
		granted = r.Arbiter.Arbitrate(requests, r, cycle, rng)
	} else {
		granted = defaultArbitrate(requests, r, rng)
	}

	var freshlyCommitted []inputKey
	for _, req := range granted {
		if r.selectedInput[req.OutPort][req.OutVC] != nil || r.selectedOutput[req.InPort][req.InVC] != nil {
			continue
		}
		a := &assignment{Packet: req.Packet, Port: req.InPort, VC: req.InVC}
		b := &assignment{Packet: req.Packet, Port: req.OutPort, VC: req.OutVC}
		r.selectedInput[req.OutPort][req.OutVC] = a
		r.selectedOutput[req.InPort][req.InVC] = b
		freshlyCommitted = append(freshlyCommitted, inputKey{req.InPort, req.InVC})

		targetRouter, targetServer := r.resolveTarget(req.Packet)
		if loc, _ := r.engine.Topology.Neighbour(r.ID, req.OutPort); loc.Kind == LocationRouterPort {
			req.Packet.Routing.Hops++
		}
		r.Routing.UpdateRoutingInfo(req.Packet.Routing, r.engine.Topology, r.ID, req.InPort, targetRouter, &targetServer, rng)
		chosen := CandidateEgress{Port: req.OutPort, VirtualChannel: req.OutVC, Label: req.Label}
		r.Routing.PerformedRequest(chosen, req.Packet.Routing, r.engine.Topology, r.ID, targetRouter, &targetServer, r.NumVC, rng)
	}
	return freshlyCommitted
}

// defaultArbitrate is the basic router's built-in Arbiter: partition by
// label, split transit/injection when intransit_priority applies, shuffle
// uniformly within each group, and grant greedily in that order.
func defaultArbitrate(requests []PortRequest, r *Router, rng *rand.Rand) []PortRequest {
	groups := map[Label][]PortRequest{}
	var labels []Label
	if r.OutputPrioritizeLowestLabel {
		for _, req := range requests {
			if _, ok := groups[req.Label]; !ok {
				labels = append(labels, req.Label)
			}
			groups[req.Label] = append(groups[req.Label], req)
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	} else {
		groups[0] = requests
		labels = []Label{0}
	}

	var ordered []PortRequest
	for _, label := range labels {
		group := groups[label]
		if r.IntransitPriority {
			var transit, injection []PortRequest
			for _, req := range group {
				if r.isServerFacingPort(req.InPort) {
					injection = append(injection, req)
				} else {
					transit = append(transit, req)
				}
			}
			shuffleRequests(transit, rng)
			shuffleRequests(injection, rng)
			ordered = append(ordered, transit...)
			ordered = append(ordered, injection...)
		} else {
			cp := append([]PortRequest(nil), group...)
			shuffleRequests(cp, rng)
			ordered = append(ordered, cp...)
		}
	}

	type slot struct{ port, vc int }
	outputTaken := map[slot]bool{}
	inputTaken := map[slot]bool{}

	var granted []PortRequest
	for _, req := range ordered {
		outSlot, inSlot := slot{req.OutPort, req.OutVC}, slot{req.InPort, req.InVC}
		if r.OutputBusy(req.OutPort, req.OutVC) || r.InputBusy(req.InPort, req.InVC) {
			continue
		}
		if outputTaken[outSlot] || inputTaken[inSlot] {
			continue
		}
		granted = append(granted, req)
		outputTaken[outSlot] = true
		inputTaken[inSlot] = true
	}
	return granted
}

func (r *Router) isServerFacingPort(port int) bool {
	loc, _ := r.engine.Topology.Neighbour(r.ID, port)
	return loc.Kind == LocationServerPort
}

func shuffleRequests(reqs []PortRequest, rng *rand.Rand) {
	perm := ShufflePermutation(rng, len(reqs))
	orig := append([]PortRequest(nil), reqs...)
	for i, p := range perm {
		reqs[i] = orig[p]
	}
}

// outputPortPhase implements §4.F step 5: for each output port, body
// phits pre-empt head phits, a single VC is chosen via the port's
// round-robin token, and the phit is moved.
func (r *Router) outputPortPhase(cycle Cycle, events *[]Event) map[inputKey]bool {
	moved := map[inputKey]bool{}
	for p := 0; p < r.NumPorts; p++ {
		var bodyCandidates, headCandidates []int
		for v := 0; v < r.NumVC; v++ {
			assign := r.selectedInput[p][v]
			if assign == nil {
				continue
			}
			phit := r.sourcePhit(assign)
			if phit == nil {
				continue
			}
			bubble := r.engine.Topology.IsDirectionChange(r.ID, assign.Port, p)
			var ok bool
			if bubble && phit.IsBegin() {
				ok = r.Emitters[p].CanTransmitWholePacket(phit, v, r.MaxPacketSize)
			} else {
				ok = r.Emitters[p].CanTransmit(phit, v)
			}
			if !ok {
				continue
			}
			if phit.IsBegin() {
				headCandidates = append(headCandidates, v)
			} else {
				bodyCandidates = append(bodyCandidates, v)
			}
		}
		pool := bodyCandidates
		if len(pool) == 0 {
			pool = headCandidates
		}
		if len(pool) == 0 {
			continue
		}
		chosen := pickByToken(pool, r.portToken[p], r.NumVC)
		r.movePhit(p, chosen, cycle, events, moved)
	}
	return moved
}

// sourcePhit returns the phit of assign.Packet that is next to leave: the
// front of the input slot whose selectedOutput entry belongs to the same
// packet, or else the front of that entry's output buffer when output
// buffers are allocated. The input slot is found by scanning every
// (in_port, in_vc) entry of selectedOutput.
func (r *Router) sourcePhit(assign *assignment) *Phit {
	for inPort := 0; inPort < r.NumPorts; inPort++ {
		for inVC := 0; inVC < r.NumVC; inVC++ {
			out := r.selectedOutput[inPort][inVC]
			if out != nil && out.Packet == assign.Packet {
				phit, ok := r.Receptors[inPort].FrontVC(inVC)
				if ok && phit.Packet == assign.Packet {
					return phit
				}
				if r.outputBuffers != nil {
					if f := r.outputBuffers[out.Port][out.VC].Front(); f != nil && f.Packet == assign.Packet {
						return f
					}
				}
			}
		}
	}
	return nil
}

func (r *Router) movePhit(outPort, outVC int, cycle Cycle, events *[]Event, moved map[inputKey]bool) {
	// find the owning input slot
	var inPort, inVC int = -1, -1
	for ip := 0; ip < r.NumPorts; ip++ {
		for iv := 0; iv < r.NumVC; iv++ {
			out := r.selectedOutput[ip][iv]
			if out != nil && out.Port == outPort && out.VC == outVC {
				inPort, inVC = ip, iv
			}
		}
	}
	if inPort == -1 {
		return
	}

	phit, ack, err := r.Receptors[inPort].Extract(inVC)
	if err != nil {
		return
	}
	phit.SetVC(outVC)
	if ack != nil {
		loc, _ := r.engine.Topology.Neighbour(r.ID, inPort)
		r.engine.ScheduleAcknowledge(cycle, r.LinkDelay, loc, *ack)
	}

	r.Emitters[outPort].NotifyOutgoingPhit(outVC, cycle)
	r.Stats.RecordTransmission(outPort, outVC)
	dest, _ := r.engine.Topology.Neighbour(r.ID, outPort)
	r.engine.SchedulePhitArrival(cycle, r.LinkDelay, phit, dest)
	moved[inputKey{inPort, inVC}] = true

	if phit.IsEnd() {
		phit.Packet.RecordHop(r.ID, outPort, outVC)
		r.selectedInput[outPort][outVC] = nil
		r.selectedOutput[inPort][inVC] = nil
		r.portToken[outPort] = (r.portToken[outPort] + 1) % r.NumVC
		r.timeAtHead[inPort][inVC] = 0
	}
	_ = events
}

func (r *Router) needsWake() bool {
	for p := 0; p < r.NumPorts; p++ {
		for v := 0; v < r.NumVC; v++ {
			if r.selectedInput[p][v] != nil {
				return true
			}
			if _, ok := r.Receptors[p].FrontVC(v); ok {
				return true
			}
		}
	}
	return false
}

func pickByToken(pool []int, token, nvc int) int {
	best := pool[0]
	bestDist := ((best - token) % nvc + nvc) % nvc
	for _, v := range pool[1:] {
		dist := ((v - token) % nvc + nvc) % nvc
		if dist < bestDist {
			best = v
			bestDist = dist
		}
	}
	return best
}

func (r *Router) sampleStatistics(cycle Cycle) {
	elapsed := cycle - r.lastSampleCycle
	if elapsed <= 0 {
		return
	}
	for p := 0; p < r.NumPorts; p++ {
		for v := 0; v < r.NumVC; v++ {
			recvOccupied, _ := r.Receptors[p].OccupiedDedicatedSpace(v)
			avail, ok := r.Emitters[p].KnownAvailableSpace(v)
			emitOccupied := ok && avail < r.BufferSize
			r.Stats.SampleOccupancy(p, v, recvOccupied > 0, ok, emitOccupied, elapsed)
		}
	}
	r.lastSampleCycle = cycle
}

// AggregateStatistics implements the Router contract.
func (r *Router) AggregateStatistics(prev Value, routerIndex, totalRouters int, cycle Cycle) Value {
	return r.Stats.Aggregate(prev, routerIndex, totalRouters, cycle)
}

// ResetStatistics implements the Router contract.
func (r *Router) ResetStatistics(nextCycle Cycle) {
	r.Stats.Reset(nextCycle)
	r.lastSampleCycle = nextCycle
}

// BuildEmitterStatus implements the Router contract: construct the
// StatusAtEmitter this router should install for the link leaving `port`,
// sized according to the downstream neighbour's reception discipline.
func (r *Router) BuildEmitterStatus(port int, topo Topology) StatusAtEmitter {
	loc, _ := topo.Neighbour(r.ID, port)
	switch loc.Kind {
	case LocationServerPort:
		return NewEmptyStatus()
	default:
		return NewCreditCounterVector(r.NumVC, r.BufferSize, r.FlitSize)
	}
}
