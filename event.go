// Event loop data types. Grounded on the teacher's sim/cluster/event_heap.go
// (container/heap, three-key deterministic ordering) and sim/cluster/events.go
// (BaseEvent embedding + per-event Execute dispatch), generalized from
// cluster-level request/instance events to phit/ack/per-cycle-process events.

package netsim

// Position orders events within the same cycle: all Begin events at cycle T
// observe the end-of-cycle state of T-1 and run before any End event at T
// (§4.A, §5).
type Position int

const (
	Begin Position = iota
	End
)

// Event is one entry in the engine's priority queue, ordered by
// (Timestamp, Position, insertion sequence).
type Event interface {
	Timestamp() Cycle
	Position() Position
	Seq() uint64
	Execute(e *Engine) []Event
}

type baseEvent struct {
	timestamp Cycle
	position  Position
	seq       uint64
}

func (b baseEvent) Timestamp() Cycle  { return b.timestamp }
func (b baseEvent) Position() Position { return b.position }
func (b baseEvent) Seq() uint64        { return b.seq }

// PhitToLocationEvent delivers a phit to a router port or server after a
// link delay.
type PhitToLocationEvent struct {
	baseEvent
	Phit *Phit
	Dest Location
}

func (e *PhitToLocationEvent) Execute(engine *Engine) []Event {
	switch e.Dest.Kind {
	case LocationRouterPort:
		router := engine.Routers[e.Dest.Router]
		if router == nil {
			return nil
		}
		return router.Insert(e.Timestamp(), e.Phit, e.Dest.Port, engine.RNG.ForSubsystem(SubsystemReception))
	case LocationServerPort:
		server := engine.Servers[e.Dest.Server]
		if server == nil {
			return nil
		}
		server.Consume(e.Timestamp(), e.Phit)
	}
	return nil
}

// AcknowledgeEvent carries a credit/space update back to an emitter,
// reaching it at least one cycle after it was generated.
type AcknowledgeEvent struct {
	baseEvent
	Target  Location
	Message AcknowledgeMessage
}

func (e *AcknowledgeEvent) Execute(engine *Engine) []Event {
	switch e.Target.Kind {
	case LocationRouterPort:
		router := engine.Routers[e.Target.Router]
		if router == nil {
			return nil
		}
		return router.Acknowledge(e.Timestamp(), e.Target.Port, e.Message)
	case LocationServerPort:
		server := engine.Servers[e.Target.Server]
		if server == nil {
			return nil
		}
		server.Emitter.Acknowledge(e.Message)
	}
	return nil
}

// GenericEvent asks a router to run its per-cycle process.
type GenericEvent struct {
	baseEvent
	RouterID int
}

func (e *GenericEvent) Execute(engine *Engine) []Event {
	engine.clearPendingWake(e.RouterID, e.Timestamp())
	router := engine.Routers[e.RouterID]
	if router == nil {
		return nil
	}
	return router.Process(e.Timestamp(), engine.RNG.ForSubsystem(SubsystemArbitration))
}
