// Package netsim provides the core discrete-event simulation engine for a
// cycle-driven interconnection-network simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - packet.go, message.go: the data model flowing through the network
//   - event.go, scheduler.go: the event queue and per-cycle engine loop
//   - router.go: the per-cycle router state machine (routing, arbitration, flow control)
//
// # Architecture
//
// The netsim package defines interfaces and data types; concrete algorithms
// live in sub-packages:
//   - netsim/routing: UpDown, ExplicitUpDown and UpDownDerouting routing algorithms
//   - netsim/router: the pipelined input-output router variant with an internal crossbar
//   - netsim/fixtures: concrete test topologies (tree, torus, Hamming graph)
//
// Sub-packages register their constructors into netsim via init() functions
// that populate package-level factory variables (NewRoutingFunc), the same
// pattern used to avoid import cycles between an interface owner and its
// implementations.
//
// # Key interfaces
//
//   - Topology: the abstract network consumed by routing and routers
//   - Routing: computes admissible (port, vc, label) candidates for a hop
//   - VCPolicy: filters/orders candidate egresses
//   - Allocator: bipartite matching of requests to resources (iSLIP)
//   - Router: the per-cycle phit admission/arbitration/movement contract
//   - StatusAtEmitter / SpaceAtReceptor: the flow-control discipline of a link
package netsim
