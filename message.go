package netsim

// Cycle is a simulated discrete time step.
type Cycle int64

// Message models the traffic-level request that gives rise to a Packet:
// one conversation between a source and a destination server.
type Message struct {
	Source        int
	Destination   int
	SizePhits     int
	CreationCycle Cycle
}
