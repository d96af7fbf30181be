package netsim

// LocationKind tags what a Topology.Neighbour query resolved to.
type LocationKind int

const (
	// LocationRouterPort means the neighbour is another router's port.
	LocationRouterPort LocationKind = iota
	// LocationServerPort means the neighbour is a server.
	LocationServerPort
	// LocationNone means the port has no neighbour (unused port).
	LocationNone
)

// Location is the resolved far end of a (router, port) link.
type Location struct {
	Kind   LocationKind
	Router int // valid when Kind == LocationRouterPort
	Port   int // valid when Kind == LocationRouterPort
	Server int // valid when Kind == LocationServerPort
}

// Topology is the abstract network consumed by routing algorithms and
// routers. Concrete topology families (trees, tori, Hamming graphs, ...)
// are external collaborators (§1 Non-goals); the core only depends on this
// contract (§6).
type Topology interface {
	NumRouters() int
	NumServers() int
	Ports(router int) int
	Degree(router int) int

	// Neighbour resolves (router, port) to the far end of the link and its
	// link class (topology-defined; used e.g. to detect dimension changes
	// in tori).
	Neighbour(router, port int) (Location, int)

	// ServerNeighbour resolves which (router, port) a server is attached to.
	ServerNeighbour(server int) (router, port int)

	// Distance returns the topological hop distance between two routers.
	Distance(a, b int) int

	// UpDownDistance returns the (up, down) distance pair used by UpDown
	// routing, or ok=false if undefined for this pair (never expected for
	// a spanning-tree-derived topology).
	UpDownDistance(a, b int) (up, down int, ok bool)

	// IsDirectionChange reports whether moving from inPort to outPort at
	// router constitutes a dimension change (bubble condition, §4.F).
	IsDirectionChange(router, inPort, outPort int) bool

	// NeighbourRouterIter returns the router ids directly connected to
	// `router` (via any port), in port order; no port appears twice.
	NeighbourRouterIter(router int) []int
}
