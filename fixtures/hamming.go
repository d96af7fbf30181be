// HammingGraph is a 2-dimensional Hamming graph (a ring in each
// dimension), the canonical exerciser for ExplicitUpDown's branch-crossing
// scenario (§8): root=5, branch_crossings_upwards=true, on which the tests
// check that the up_down_distances matrix is symmetric.
package fixtures

import "github.com/netsim/netsim"

// HammingGraph has DimX*DimY routers, id = x*DimY+y, with one server
// attached to every router. Each router has 4 router ports (minus/plus in
// each dimension) plus one server port; link class equals the dimension
// index (0 or 1).
type HammingGraph struct {
	DimX, DimY int
}

// NewHammingGraph builds a DimX x DimY Hamming graph (8x8 for the §8
// scenario).
func NewHammingGraph(dimX, dimY int) *HammingGraph {
	return &HammingGraph{DimX: dimX, DimY: dimY}
}

func (h *HammingGraph) coords(router int) (x, y int) { return router / h.DimY, router % h.DimY }
func (h *HammingGraph) id(x, y int) int {
	x = ((x % h.DimX) + h.DimX) % h.DimX
	y = ((y % h.DimY) + h.DimY) % h.DimY
	return x*h.DimY + y
}

func (h *HammingGraph) NumRouters() int { return h.DimX * h.DimY }
func (h *HammingGraph) NumServers() int { return h.DimX * h.DimY }
func (h *HammingGraph) Ports(int) int   { return 5 }
func (h *HammingGraph) Degree(int) int  { return 4 }

func (h *HammingGraph) Neighbour(router, port int) (netsim.Location, int) {
	x, y := h.coords(router)
	switch port {
	case 0:
		return netsim.Location{Kind: netsim.LocationRouterPort, Router: h.id(x-1, y), Port: 1}, 0
	case 1:
		return netsim.Location{Kind: netsim.LocationRouterPort, Router: h.id(x+1, y), Port: 0}, 0
	case 2:
		return netsim.Location{Kind: netsim.LocationRouterPort, Router: h.id(x, y-1), Port: 3}, 1
	case 3:
		return netsim.Location{Kind: netsim.LocationRouterPort, Router: h.id(x, y+1), Port: 2}, 1
	case 4:
		return netsim.Location{Kind: netsim.LocationServerPort, Server: router}, 0
	default:
		return netsim.Location{Kind: netsim.LocationNone}, 0
	}
}

func (h *HammingGraph) ServerNeighbour(server int) (router, port int) { return server, 4 }

func (h *HammingGraph) Distance(a, b int) int {
	ax, ay := h.coords(a)
	bx, by := h.coords(b)
	return ringDist(ax, bx, h.DimX) + ringDist(ay, by, h.DimY)
}

func ringDist(a, b, size int) int {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if alt := size - diff; alt < diff {
		return alt
	}
	return diff
}

// UpDownDistance is undefined: ExplicitUpDown computes its own up/down
// matrices from a configured root rather than relying on a topology-native
// metric here.
func (h *HammingGraph) UpDownDistance(a, b int) (up, down int, ok bool) { return 0, 0, false }

// IsDirectionChange reports whether inPort and outPort belong to
// different dimensions (port/2 identifies the dimension).
func (h *HammingGraph) IsDirectionChange(router, inPort, outPort int) bool {
	return inPort/2 != outPort/2
}

func (h *HammingGraph) NeighbourRouterIter(router int) []int {
	var out []int
	for port := 0; port < 4; port++ {
		loc, _ := h.Neighbour(router, port)
		out = append(out, loc.Router)
	}
	return out
}
