// Transmission mechanisms: paired StatusAtEmitter / SpaceAtReceptor values
// defining a flow-control discipline for one directed link endpoint.
// Grounded on spec.md §4.B; naming (AckPhitClear, AckFixAvailableSize)
// follows the original caminos-lib Rust source (src/router/mod.rs) that
// this spec distills, kept close so the literal §8 scenarios translate
// without renaming drift.

package netsim

import "math/rand"

// AckKind tags the shape of an AcknowledgeMessage.
type AckKind int

const (
	AckEmpty AckKind = iota
	AckPhitClear
	AckFixAvailableSize
)

// AcknowledgeMessage flows upstream (emitter-ward) to restore credit or
// known-available-space.
type AcknowledgeMessage struct {
	Kind   AckKind
	VC     int // valid for AckPhitClear
	Amount int // valid for AckFixAvailableSize
}

func AckPhitClearMessage(vc int) AcknowledgeMessage {
	return AcknowledgeMessage{Kind: AckPhitClear, VC: vc}
}
func AckFixAvailableSizeMessage(amount int) AcknowledgeMessage {
	return AcknowledgeMessage{Kind: AckFixAvailableSize, Amount: amount}
}

// StatusAtEmitter is the emitter-side half of a transmission mechanism: it
// knows whether the next phit can be sent.
type StatusAtEmitter interface {
	NumVirtualChannels() int
	CanTransmit(phit *Phit, vc int) bool
	// CanTransmitWholePacket additionally requires bubble-scheme headroom
	// (packet size + maximum_packet_size) rather than just flit_size;
	// routers call this for head phits crossing a direction-change link.
	CanTransmitWholePacket(phit *Phit, vc int, maxPacketSize int) bool
	NotifyOutgoingPhit(vc int, cycle Cycle)
	Acknowledge(msg AcknowledgeMessage)
	KnownAvailableSpace(vc int) (int, bool)
	LastTransmission() Cycle
}

// SpaceAtReceptor is the receiver-side half of a transmission mechanism: it
// buffers (or sinks) arriving phits.
type SpaceAtReceptor interface {
	Insert(phit *Phit, rng *rand.Rand) error
	FrontVC(vc int) (*Phit, bool)
	Extract(vc int) (*Phit, *AcknowledgeMessage, error)
	IterPhits() []*Phit
	AvailableDedicatedSpace(vc int) (int, bool)
	OccupiedDedicatedSpace(vc int) (int, bool)
}

// ===== Virtual-channel credit (router<->router) =====

// CreditCounterVector is the emitter-side status of a credit-based VC link.
type CreditCounterVector struct {
	credits          []int
	bufferSize       int
	flitSize         int
	lastTransmission Cycle
}

// NewCreditCounterVector creates the emitter status for numVC independent
// credit-counted VCs, each fronting a bufferSize-phit downstream buffer.
func NewCreditCounterVector(numVC, bufferSize, flitSize int) *CreditCounterVector {
	credits := make([]int, numVC)
	for i := range credits {
		credits[i] = bufferSize
	}
	return &CreditCounterVector{credits: credits, bufferSize: bufferSize, flitSize: flitSize}
}

func (c *CreditCounterVector) NumVirtualChannels() int { return len(c.credits) }

func (c *CreditCounterVector) CanTransmit(phit *Phit, vc int) bool {
	need := 1
	if phit.IsBegin() {
		need = c.flitSize
	}
	return c.credits[vc] >= need
}

func (c *CreditCounterVector) CanTransmitWholePacket(phit *Phit, vc int, maxPacketSize int) bool {
	if !phit.IsBegin() {
		return c.CanTransmit(phit, vc)
	}
	return c.credits[vc] >= phit.Packet.Size+maxPacketSize
}

func (c *CreditCounterVector) NotifyOutgoingPhit(vc int, cycle Cycle) {
	c.credits[vc]--
	c.lastTransmission = cycle
}

func (c *CreditCounterVector) Acknowledge(msg AcknowledgeMessage) {
	if msg.Kind != AckPhitClear {
		return
	}
	if c.credits[msg.VC] < c.bufferSize {
		c.credits[msg.VC]++
	}
}

func (c *CreditCounterVector) KnownAvailableSpace(vc int) (int, bool) {
	return c.credits[vc], true
}

func (c *CreditCounterVector) LastTransmission() Cycle { return c.lastTransmission }

// ParallelBuffers is the receptor-side space of a credit-based VC link: one
// Buffer per VC, selected upstream (the phit must already carry its VC).
type ParallelBuffers struct {
	buffers []*Buffer
}

// NewParallelBuffers creates numVC independent buffers.
func NewParallelBuffers(numVC int) *ParallelBuffers {
	buffers := make([]*Buffer, numVC)
	for i := range buffers {
		buffers[i] = NewBuffer()
	}
	return &ParallelBuffers{buffers: buffers}
}

func (p *ParallelBuffers) Insert(phit *Phit, _ *rand.Rand) error {
	vc, ok := phit.VC()
	if !ok {
		return NewError(BadArgument, "ParallelBuffers.Insert: phit has no VC assigned")
	}
	p.buffers[vc].Push(phit)
	return nil
}

func (p *ParallelBuffers) FrontVC(vc int) (*Phit, bool) {
	f := p.buffers[vc].Front()
	return f, f != nil
}

func (p *ParallelBuffers) Extract(vc int) (*Phit, *AcknowledgeMessage, error) {
	phit := p.buffers[vc].Pop()
	if phit == nil {
		return nil, nil, NewError(Undetermined, "ParallelBuffers.Extract: empty VC")
	}
	ack := AckPhitClearMessage(vc)
	return phit, &ack, nil
}

func (p *ParallelBuffers) IterPhits() []*Phit {
	var out []*Phit
	for _, b := range p.buffers {
		out = append(out, b.IterPhits()...)
	}
	return out
}

func (p *ParallelBuffers) AvailableDedicatedSpace(vc int) (int, bool) { return 0, false }
func (p *ParallelBuffers) OccupiedDedicatedSpace(vc int) (int, bool) {
	return p.buffers[vc].Len(), true
}

// ===== To-server (router -> server) =====

// EmptyStatus is the emitter-side status of a to-server link: it always
// accepts (infinite credits).
type EmptyStatus struct {
	last Cycle
}

func NewEmptyStatus() *EmptyStatus { return &EmptyStatus{} }

func (e *EmptyStatus) NumVirtualChannels() int                                       { return 1 }
func (e *EmptyStatus) CanTransmit(*Phit, int) bool                                   { return true }
func (e *EmptyStatus) CanTransmitWholePacket(*Phit, int, int) bool                   { return true }
func (e *EmptyStatus) NotifyOutgoingPhit(_ int, cycle Cycle)                         { e.last = cycle }
func (e *EmptyStatus) Acknowledge(AcknowledgeMessage)                                {}
func (e *EmptyStatus) KnownAvailableSpace(int) (int, bool)                           { return 0, false }
func (e *EmptyStatus) LastTransmission() Cycle                                       { return e.last }

// NoSpace is the receptor-side space at a server: it has no buffer and
// sinks phits directly into the server via the provided callback.
type NoSpace struct {
	consume func(phit *Phit)
	phits   []*Phit // never filled: Insert hands every phit to consume, so IterPhits reports none
}

// NewNoSpace creates a server sink; consume is invoked synchronously on
// every Insert.
func NewNoSpace(consume func(phit *Phit)) *NoSpace {
	return &NoSpace{consume: consume}
}

func (n *NoSpace) Insert(phit *Phit, _ *rand.Rand) error {
	n.consume(phit)
	return nil
}
func (n *NoSpace) FrontVC(int) (*Phit, bool) { return nil, false }
func (n *NoSpace) Extract(int) (*Phit, *AcknowledgeMessage, error) {
	return nil, nil, NewError(Undetermined, "NoSpace.Extract: cannot accept, nothing buffered")
}
func (n *NoSpace) IterPhits() []*Phit                           { return nil }
func (n *NoSpace) AvailableDedicatedSpace(int) (int, bool)      { return 0, false }
func (n *NoSpace) OccupiedDedicatedSpace(int) (int, bool)       { return 0, false }

// ===== From-oblivious (server -> router) =====

// StatusAtServer is the emitter-side status of a from-oblivious link: a
// single available_size counter gating head phits against sizeToSend.
type StatusAtServer struct {
	availableSize int
	sizeToSend    int
	last          Cycle
}

// NewStatusAtServer creates the emitter status; sizeToSend must be >= the
// maximum packet size the server will ever inject.
func NewStatusAtServer(initialAvailable, sizeToSend int) *StatusAtServer {
	return &StatusAtServer{availableSize: initialAvailable, sizeToSend: sizeToSend}
}

func (s *StatusAtServer) NumVirtualChannels() int { return 1 }

func (s *StatusAtServer) CanTransmit(phit *Phit, _ int) bool {
	if phit.IsBegin() {
		return s.availableSize >= s.sizeToSend
	}
	return true
}

func (s *StatusAtServer) CanTransmitWholePacket(phit *Phit, vc int, _ int) bool {
	return s.CanTransmit(phit, vc)
}

func (s *StatusAtServer) NotifyOutgoingPhit(_ int, cycle Cycle) { s.last = cycle }

func (s *StatusAtServer) Acknowledge(msg AcknowledgeMessage) {
	if msg.Kind != AckFixAvailableSize {
		return
	}
	if msg.Amount > s.availableSize {
		s.availableSize = msg.Amount
	}
}

func (s *StatusAtServer) KnownAvailableSpace(int) (int, bool) { return s.availableSize, true }
func (s *StatusAtServer) LastTransmission() Cycle             { return s.last }

// AgnosticParallelBuffers is the receptor-side space of a from-oblivious
// link: upstream VC is ignored; on a head phit a buffer is chosen
// uniformly at random among those with enough free space for the whole
// packet, and every remaining phit of that packet follows it.
type AgnosticParallelBuffers struct {
	buffers    []*Buffer
	bufferSize int
	linkDelay  int
	// inProgress maps packet ID -> chosen buffer index, for phits after the head.
	inProgress map[string]int
}

// NewAgnosticParallelBuffers creates numBuffers buffers of bufferSize
// phits each.
func NewAgnosticParallelBuffers(numBuffers, bufferSize, linkDelay int) *AgnosticParallelBuffers {
	buffers := make([]*Buffer, numBuffers)
	for i := range buffers {
		buffers[i] = NewBuffer()
	}
	return &AgnosticParallelBuffers{
		buffers:    buffers,
		bufferSize: bufferSize,
		linkDelay:  linkDelay,
		inProgress: make(map[string]int),
	}
}

func (a *AgnosticParallelBuffers) freeSpace(i int) int {
	return a.bufferSize - a.buffers[i].Len()
}

func (a *AgnosticParallelBuffers) Insert(phit *Phit, rng *rand.Rand) error {
	if !phit.IsBegin() {
		idx, ok := a.inProgress[phit.Packet.ID]
		if !ok {
			return NewError(BadArgument, "AgnosticParallelBuffers.Insert: body phit with no preceding head")
		}
		a.buffers[idx].Push(phit)
		if phit.IsEnd() {
			delete(a.inProgress, phit.Packet.ID)
		}
		return nil
	}

	var candidates []int
	for i := range a.buffers {
		if a.freeSpace(i) >= phit.Packet.Size {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return NewError(Undetermined, "AgnosticParallelBuffers.Insert: no buffer with enough free space")
	}
	chosen := candidates[rng.Intn(len(candidates))]
	a.buffers[chosen].Push(phit)
	if !phit.IsEnd() {
		a.inProgress[phit.Packet.ID] = chosen
	}
	return nil
}

func (a *AgnosticParallelBuffers) FrontVC(vc int) (*Phit, bool) {
	f := a.buffers[vc].Front()
	return f, f != nil
}

// Extract pops the front phit of buffer `vc` (here "vc" indexes the
// physical buffer, since upstream VC is ignored) and computes the
// conservative AckFixAvailableSize per spec.md §4.B: the largest per-buffer
// free space, minus 2*link_delay.
func (a *AgnosticParallelBuffers) Extract(vc int) (*Phit, *AcknowledgeMessage, error) {
	phit := a.buffers[vc].Pop()
	if phit == nil {
		return nil, nil, NewError(Undetermined, "AgnosticParallelBuffers.Extract: empty buffer")
	}
	maxFree := 0
	for i := range a.buffers {
		if f := a.freeSpace(i); f > maxFree {
			maxFree = f
		}
	}
	value := maxFree - 2*a.linkDelay
	if value < 0 {
		value = 0
	}
	ack := AckFixAvailableSizeMessage(value)
	return phit, &ack, nil
}

func (a *AgnosticParallelBuffers) IterPhits() []*Phit {
	var out []*Phit
	for _, b := range a.buffers {
		out = append(out, b.IterPhits()...)
	}
	return out
}

func (a *AgnosticParallelBuffers) AvailableDedicatedSpace(int) (int, bool) { return 0, false }
func (a *AgnosticParallelBuffers) OccupiedDedicatedSpace(vc int) (int, bool) {
	return a.buffers[vc].Len(), true
}
