package netsim

// ServerEndpoint is the network-facing half of a traffic source/sink: it
// consumes phits arriving from the network (to-server discipline) and
// receives the acknowledgements its router sends back. It does not inject
// phits itself: injection is scheduled directly on the Engine (see
// Engine.SchedulePhitArrival). Traffic pattern generation is an external
// collaborator (§1 Non-goals).
type ServerEndpoint struct {
	ID int

	// Emitter receives the acknowledgements addressed to this server.
	// Injected phits are not checked against it.
	Emitter StatusAtEmitter

	// OnConsume is invoked synchronously when a phit completes its
	// journey at this server (the injection callback's counterpart).
	OnConsume func(cycle Cycle, phit *Phit)

	engine *Engine
}

// Consume delivers an arriving phit to the server, invoking OnConsume and
// recording it (plus, on the packet's tail phit, its delay/hop
// observations) against the engine's NetworkStatistics.
func (s *ServerEndpoint) Consume(cycle Cycle, phit *Phit) {
	if s.engine != nil {
		s.engine.Stats.RecordDelivery(s.ID, cycle, phit)
	}
	if s.OnConsume != nil {
		s.OnConsume(cycle, phit)
	}
}
