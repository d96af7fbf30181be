// Torus1D is a one-dimensional ring topology with a server attached to
// every router, exercising transmission-mechanism and derouting scenarios
// that need a simple non-tree graph without dimension changes.
package fixtures

import "github.com/netsim/netsim"

// Torus1D is a ring of `size` routers, each with a server attached.
type Torus1D struct {
	size int
}

// NewTorus1D builds a ring of the given size.
func NewTorus1D(size int) *Torus1D { return &Torus1D{size: size} }

func (t *Torus1D) NumRouters() int { return t.size }
func (t *Torus1D) NumServers() int { return t.size }
func (t *Torus1D) Ports(int) int   { return 3 } // prev, next, server
func (t *Torus1D) Degree(int) int  { return 2 }

func (t *Torus1D) Neighbour(router, port int) (netsim.Location, int) {
	switch port {
	case 0:
		return netsim.Location{Kind: netsim.LocationRouterPort, Router: (router - 1 + t.size) % t.size, Port: 1}, 0
	case 1:
		return netsim.Location{Kind: netsim.LocationRouterPort, Router: (router + 1) % t.size, Port: 0}, 0
	case 2:
		return netsim.Location{Kind: netsim.LocationServerPort, Server: router}, 0
	default:
		return netsim.Location{Kind: netsim.LocationNone}, 0
	}
}

func (t *Torus1D) ServerNeighbour(server int) (router, port int) { return server, 2 }

func (t *Torus1D) Distance(a, b int) int {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if alt := t.size - diff; alt < diff {
		return alt
	}
	return diff
}

// UpDownDistance is undefined for a plain ring: it carries no tree
// structure for UpDown routing to exploit.
func (t *Torus1D) UpDownDistance(a, b int) (up, down int, ok bool) { return 0, 0, false }

// IsDirectionChange is always false: a single ring dimension never
// changes direction class.
func (t *Torus1D) IsDirectionChange(router, inPort, outPort int) bool { return false }

func (t *Torus1D) NeighbourRouterIter(router int) []int {
	return []int{(router - 1 + t.size) % t.size, (router + 1) % t.size}
}
