// The event queue and engine Run loop. Grounded on the teacher's
// sim/cluster/event_heap.go (container/heap, three-key deterministic
// ordering) and sim/cluster/simulator.go's Run(): pop the earliest event,
// advance the clock, execute, repeat until the horizon is reached.

package netsim

import (
	"container/heap"
	"sort"

	"github.com/sirupsen/logrus"
)

// eventHeap implements heap.Interface, ordering by (Timestamp, Position, Seq).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp() != h[j].Timestamp() {
		return h[i].Timestamp() < h[j].Timestamp()
	}
	if h[i].Position() != h[j].Position() {
		return h[i].Position() < h[j].Position()
	}
	return h[i].Seq() < h[j].Seq()
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Engine is the cycle-driven simulation engine: the event queue plus the
// arena of routers and servers it dispatches to (§9: "arena of routers
// keyed by integer index; events carry router indices, not pointers").
type Engine struct {
	Clock   Cycle
	Horizon Cycle

	Topology Topology
	Routers  map[int]*Router
	Servers  map[int]*ServerEndpoint

	RNG   *PartitionedRNG
	Stats *NetworkStatistics

	queue        eventHeap
	nextSeq      uint64
	pendingWakes map[int]map[Cycle]bool
}

// NewEngine constructs an Engine over the given topology, with a horizon of
// warmup+measured cycles and a deterministic RNG derived from seed.
func NewEngine(topo Topology, horizon Cycle, seed SimulationKey) *Engine {
	return &Engine{
		Horizon:      horizon,
		Topology:     topo,
		Routers:      make(map[int]*Router),
		Servers:      make(map[int]*ServerEndpoint),
		RNG:          NewPartitionedRNG(seed),
		Stats:        NewNetworkStatistics(),
		pendingWakes: make(map[int]map[Cycle]bool),
	}
}

// AddRouter registers a router under the given arena index.
func (e *Engine) AddRouter(id int, r *Router) {
	r.ID = id
	r.engine = e
	e.Routers[id] = r
}

// AddServer registers a server endpoint under the given arena index.
func (e *Engine) AddServer(id int, s *ServerEndpoint) {
	s.ID = id
	s.engine = e
	e.Servers[id] = s
}

func (e *Engine) nextSeqNum() uint64 {
	e.nextSeq++
	return e.nextSeq
}

// Schedule pushes a single event as it is. It does not stamp a sequence
// number: the Schedule* helpers stamp theirs via nextSeqNum, and an event
// built elsewhere keeps whatever Seq() it carries.
func (e *Engine) Schedule(ev Event) {
	heap.Push(&e.queue, ev)
}

// SchedulePhitArrival schedules a phit's arrival at dest, link_delay cycles
// after `from` (delay >= 1, per §4.A).
func (e *Engine) SchedulePhitArrival(from Cycle, delay int, phit *Phit, dest Location) {
	e.Schedule(&PhitToLocationEvent{
		baseEvent: baseEvent{timestamp: from + Cycle(delay), position: Begin, seq: e.nextSeqNum()},
		Phit:      phit,
		Dest:      dest,
	})
}

// ScheduleAcknowledge schedules a credit/space update reaching target
// link_delay cycles after `from`.
func (e *Engine) ScheduleAcknowledge(from Cycle, delay int, target Location, msg AcknowledgeMessage) {
	e.Schedule(&AcknowledgeEvent{
		baseEvent: baseEvent{timestamp: from + Cycle(delay), position: Begin, seq: e.nextSeqNum()},
		Target:    target,
		Message:   msg,
	})
}

// ScheduleRouterWake is the idempotent, lazy self-scheduling primitive of
// §4.A: it records the intended wake cycle and emits a single Generic event
// only if no Generic event is already pending for that exact cycle on this
// router. delay==0 requests "run at the current cycle's End phase".
func (e *Engine) ScheduleRouterWake(routerID int, current Cycle, delay int) {
	target := current + Cycle(delay)
	wakes, ok := e.pendingWakes[routerID]
	if !ok {
		wakes = make(map[Cycle]bool)
		e.pendingWakes[routerID] = wakes
	}
	if wakes[target] {
		return
	}
	wakes[target] = true
	e.Schedule(&GenericEvent{
		baseEvent: baseEvent{timestamp: target, position: End, seq: e.nextSeqNum()},
		RouterID:  routerID,
	})
}

func (e *Engine) clearPendingWake(routerID int, cycle Cycle) {
	if wakes, ok := e.pendingWakes[routerID]; ok {
		delete(wakes, cycle)
	}
}

// scheduleGenerated pushes events returned by a component's
// insert/acknowledge/process call, skipping nil entries. Events pass through
// unchanged; this exists so Execute() return values can be pushed uniformly.
func (e *Engine) scheduleGenerated(events []Event) {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		e.Schedule(ev)
	}
}

// Run executes the simulation until the event queue is drained or the
// horizon is reached (§5: "Simulations terminate when the configured
// warmup+measured cycles elapse; any events scheduled beyond are
// discarded").
func (e *Engine) Run() {
	logrus.Infof("simulation starting: horizon=%d seed=%d", e.Horizon, e.RNG.Key())
	var executed int
	for e.queue.Len() > 0 {
		ev := heap.Pop(&e.queue).(Event)
		if ev.Timestamp() > e.Horizon {
			logrus.Debugf("[cycle %07d] discarding event past horizon", ev.Timestamp())
			break
		}
		e.Clock = ev.Timestamp()
		generated := ev.Execute(e)
		e.scheduleGenerated(generated)
		executed++
	}
	logrus.Infof("simulation ended at cycle %d: %d events executed", e.Clock, executed)
}

// Summarize folds every registered router's statistics into the engine's
// NetworkStatistics, in ascending router-ID order, then builds the
// end-of-run Result (§6) over the engine's current clock and server count.
// User-defined statistics are not passed in here: they accumulate
// per-consumed-packet via Stats.RecordUserStat as the run proceeds. Safe to
// call more than once (e.g. a mid-run snapshot followed by a final report):
// each call re-folds router occupancy from scratch rather than
// accumulating across calls.
func (e *Engine) Summarize() Result {
	ids := make([]int, 0, len(e.Routers))
	for id := range e.Routers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	e.Stats.routerOccupancy = NoneValue()
	for i, id := range ids {
		e.Stats.FoldRouter(e.Routers[id].Stats, i, len(ids), e.Clock)
	}

	return e.Stats.Summarize(e.Clock, len(e.Servers))
}
