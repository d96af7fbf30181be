package netsim

// RoutingAux is the opaque per-packet routing scratch that must survive
// routing-algorithm-specific types (§9's "opaque per-packet routing
// scratch"). Each routing algorithm defines its own concrete case; routing
// algorithms that need no scratch use EmptyAux.
type RoutingAux interface {
	isRoutingAux()
}

// EmptyAux is the zero-value RoutingAux carried by algorithms that need no
// opaque scratch (e.g. UpDown).
type EmptyAux struct{}

func (EmptyAux) isRoutingAux() {}

// IntVecAux is a RoutingAux carrying a single slice of ints, sufficient for
// UpDownDerouting's remaining-segment counters and similar algorithms.
type IntVecAux struct {
	Values []int
}

func (IntVecAux) isRoutingAux() {}

// RoutingInfo is the per-packet mutable context updated at each router hop.
type RoutingInfo struct {
	// Hops is incremented exactly once per router-to-router hop by the engine.
	Hops int
	// Selections is optional per-routing scratch (e.g. UpDownDerouting's
	// remaining up/down segment budget at index 0).
	Selections []int
	// VisitedRouters records the router id visited at every hop, in order.
	// Used only to avoid immediate back-tracking (UpDownDerouting), per the
	// open-question resolution in spec.md §9.
	VisitedRouters []int
	// Aux is algorithm-specific opaque scratch.
	Aux RoutingAux
}

// NewRoutingInfo returns a zero-valued RoutingInfo ready for
// Routing.InitializeRoutingInfo to populate.
func NewRoutingInfo() *RoutingInfo {
	return &RoutingInfo{Aux: EmptyAux{}}
}

// Packet is an ordered sequence of phits sharing a destination and routing
// decisions. Identity (ID, Message, Size) is immutable; Routing and the
// hop trace are mutated as the packet traverses the network.
type Packet struct {
	ID      string
	Message *Message
	Size    int
	Routing *RoutingInfo

	// CycleIntoNetwork is the cycle the packet's head phit entered the
	// network (used to compute network delay on consumption).
	CycleIntoNetwork Cycle

	// HopTrace records (router, out_port, out_vc) for every committed hop,
	// retained for statistics and for the packet-contiguity testable
	// property (§8.2).
	HopTrace []HopRecord
}

// HopRecord is one entry of a packet's hop trace.
type HopRecord struct {
	Router        int
	OutPort       int
	OutVC         int
}

// NewPacket constructs a Packet with a fresh RoutingInfo.
func NewPacket(id string, msg *Message, size int, createdAt Cycle) *Packet {
	return &Packet{
		ID:               id,
		Message:          msg,
		Size:             size,
		Routing:          NewRoutingInfo(),
		CycleIntoNetwork: createdAt,
	}
}

// RecordHop appends a hop to the packet's trace. Invariant 5 (all phits of
// a packet exit a router via the same out_port/out_vc) is upheld by the
// router calling this exactly once per packet per router, at tail-phit
// departure.
func (p *Packet) RecordHop(router, outPort, outVC int) {
	p.HopTrace = append(p.HopTrace, HopRecord{Router: router, OutPort: outPort, OutVC: outVC})
}

// Phit is the atomic transfer unit. Index identifies position within the
// owning packet; VC is the currently-selected virtual channel, set once a
// router commits the phit's packet to an (out_port, out_vc) pair.
type Phit struct {
	Packet *Packet
	Index  int
	vc     *int
}

// NewPhit constructs the phit at `index` of `packet`, with no VC assigned.
func NewPhit(packet *Packet, index int) *Phit {
	return &Phit{Packet: packet, Index: index}
}

// IsBegin reports whether this is the first phit of its packet.
func (p *Phit) IsBegin() bool { return p.Index == 0 }

// IsEnd reports whether this is the last phit of its packet.
func (p *Phit) IsEnd() bool { return p.Index == p.Packet.Size-1 }

// VC returns the phit's currently-selected virtual channel. ok is false if
// no VC has been assigned yet.
func (p *Phit) VC() (vc int, ok bool) {
	if p.vc == nil {
		return 0, false
	}
	return *p.vc, true
}

// SetVC assigns the phit's virtual channel. Once assigned, all phits of a
// packet follow the same (port, VC) pair within a given router — callers
// are responsible for assigning the same vc to every phit of a packet
// before they are inserted into a router's input buffer.
func (p *Phit) SetVC(vc int) {
	p.vc = &vc
}
