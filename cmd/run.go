package cmd

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netsim/netsim"
	"github.com/netsim/netsim/fixtures"
	_ "github.com/netsim/netsim/routing" // registers NewRoutingFunc
)

var (
	topoKind     string
	treeLevels   int
	torusSize    int
	hammingDimX  int
	hammingDimY  int
	routingKind  string
	updownRoot   int
	deroutBudget int
	numVC        int
	bufferSize   int
	flitSize     int
	linkDelay    int
	maxPacket    int
	packetSize   int
	horizon      int64
	injectRate   float64
	seed         int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a topology and router fleet, inject synthetic traffic, and run the simulation",
	Run: func(cmd *cobra.Command, args []string) {
		topo, numRouters, numServers := buildTopology()

		kind := routingKind
		if kind == "" {
			kind = defaultRoutingFor(topoKind)
		}
		routingCfg := buildRoutingConfig(kind)
		routingAlgo, err := netsim.NewRouting(routingCfg)
		if err != nil {
			logrus.Fatalf("building routing algorithm %q: %v", kind, err)
		}
		masterRNG := rand.New(rand.NewSource(seed))
		if err := routingAlgo.Initialize(topo, masterRNG); err != nil {
			logrus.Fatalf("initializing routing algorithm: %v", err)
		}

		logrus.Infof("topology=%s routers=%d servers=%d routing=%s", topoKind, numRouters, numServers, kind)

		engine := netsim.NewEngine(topo, netsim.Cycle(horizon), netsim.NewSimulationKey(seed))
		policy := netsim.PolicyChain{Stages: []netsim.VCPolicy{netsim.EnforceFlowControl{}}}

		for id := 0; id < numRouters; id++ {
			engine.AddRouter(id, buildRouter(topo, id, routingAlgo, policy))
		}

		for id := 0; id < numServers; id++ {
			engine.AddServer(id, &netsim.ServerEndpoint{
				Emitter: netsim.NewEmptyStatus(),
				OnConsume: func(cycle netsim.Cycle, phit *netsim.Phit) {
					if phit.IsEnd() {
						logrus.Debugf("[cycle %07d] server %d received packet %s", cycle, id, phit.Packet.ID)
					}
				},
			})
		}

		injectTraffic(engine, topo, numServers, packetSize)
		engine.Run()

		result := engine.Summarize()
		fmt.Printf("delivered_packets=%d injected_load=%.4f accepted_load=%.4f jain_fairness_index=%.4f delay_p50=%d delay_p90=%d delay_p99=%d avg_hops=%.2f link_util_avg=%.4f\n",
			result.DeliveredPackets, result.InjectedLoad, result.AcceptedLoad, result.JainFairnessIndex,
			result.DelayP50, result.DelayP90, result.DelayP99, result.AveragePacketHops, result.AverageLinkUtilization)
	},
}

func defaultRoutingFor(topology string) string {
	switch topology {
	case "tree":
		return "up_down"
	default:
		return "explicit_up_down"
	}
}

func buildRoutingConfig(kind string) netsim.Value {
	switch kind {
	case "up_down":
		return netsim.ObjectValue("up_down", nil)
	case "explicit_up_down":
		return netsim.ObjectValue("explicit_up_down", map[string]netsim.Value{
			"root":                         netsim.NumberValue(float64(updownRoot)),
			"branch_crossings_upwards":     netsim.BoolValue(true),
			"allow_horizontal_during_down": netsim.BoolValue(false),
		})
	case "up_down_derouting":
		return netsim.ObjectValue("up_down_derouting", map[string]netsim.Value{
			"allowed_updowns": netsim.NumberValue(float64(deroutBudget)),
		})
	default:
		logrus.Fatalf("unknown routing kind %q", kind)
		return netsim.NoneValue()
	}
}

func buildTopology() (topo netsim.Topology, numRouters, numServers int) {
	switch topoKind {
	case "tree":
		t := fixtures.NewBinaryTree(treeLevels)
		return t, t.NumRouters(), t.NumServers()
	case "torus":
		t := fixtures.NewTorus1D(torusSize)
		return t, t.NumRouters(), t.NumServers()
	case "hamming":
		h := fixtures.NewHammingGraph(hammingDimX, hammingDimY)
		return h, h.NumRouters(), h.NumServers()
	default:
		logrus.Fatalf("unknown topology kind %q", topoKind)
		return nil, 0, 0
	}
}

func buildRouter(topo netsim.Topology, id int, routingAlgo netsim.Routing, policy netsim.VCPolicy) *netsim.Router {
	ports := topo.Ports(id)
	r := netsim.NewRouter(ports, numVC, routingAlgo, policy)
	r.FlitSize = flitSize
	r.BufferSize = bufferSize
	r.MaxPacketSize = maxPacket
	r.LinkDelay = linkDelay
	for port := 0; port < ports; port++ {
		loc, _ := topo.Neighbour(id, port)
		if loc.Kind == netsim.LocationServerPort {
			r.Receptors[port] = netsim.NewAgnosticParallelBuffers(numVC, bufferSize, linkDelay)
			r.Emitters[port] = netsim.NewEmptyStatus()
			continue
		}
		r.Receptors[port] = netsim.NewParallelBuffers(numVC)
		r.Emitters[port] = netsim.NewCreditCounterVector(numVC, bufferSize, flitSize)
	}
	return r
}

// injectTraffic schedules a uniform-random traffic pattern: every server
// independently rolls for a new packet every cycle at injectRate,
// addressed to a uniformly random different server.
func injectTraffic(engine *netsim.Engine, topo netsim.Topology, numServers, phitsPerPacket int) {
	rng := rand.New(rand.NewSource(seed ^ 0x5EED))
	packetID := 0
	for src := 0; src < numServers; src++ {
		router, port := topo.ServerNeighbour(src)
		for cycle := int64(0); cycle < horizon; cycle++ {
			if rng.Float64() >= injectRate {
				continue
			}
			dst := rng.Intn(numServers)
			if dst == src {
				continue
			}
			msg := &netsim.Message{Source: src, Destination: dst, SizePhits: phitsPerPacket, CreationCycle: netsim.Cycle(cycle)}
			pkt := netsim.NewPacket(fmt.Sprintf("pkt-%d", packetID), msg, phitsPerPacket, netsim.Cycle(cycle))
			packetID++
			dest := netsim.Location{Kind: netsim.LocationRouterPort, Router: router, Port: port}
			for i := 0; i < phitsPerPacket; i++ {
				engine.Stats.RecordInjection(src, netsim.Cycle(cycle))
				engine.SchedulePhitArrival(netsim.Cycle(cycle), i+1, netsim.NewPhit(pkt, i), dest)
			}
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&topoKind, "topology", "tree", "Topology kind: tree, torus, hamming")
	runCmd.Flags().IntVar(&treeLevels, "levels", 4, "Binary tree levels (tree topology)")
	runCmd.Flags().IntVar(&torusSize, "size", 8, "Ring size (torus topology)")
	runCmd.Flags().IntVar(&hammingDimX, "dim-x", 4, "First Hamming graph dimension")
	runCmd.Flags().IntVar(&hammingDimY, "dim-y", 4, "Second Hamming graph dimension")
	runCmd.Flags().StringVar(&routingKind, "routing", "", "Routing algorithm: up_down, explicit_up_down, up_down_derouting (default depends on topology)")
	runCmd.Flags().IntVar(&updownRoot, "root", 0, "Spanning-tree root (explicit_up_down)")
	runCmd.Flags().IntVar(&deroutBudget, "allowed-updowns", 2, "Deroute budget (up_down_derouting)")
	runCmd.Flags().IntVar(&numVC, "vc", 2, "Virtual channels per port")
	runCmd.Flags().IntVar(&bufferSize, "buffer", 8, "Per-VC buffer size in phits")
	runCmd.Flags().IntVar(&flitSize, "flit", 1, "Flit size in phits")
	runCmd.Flags().IntVar(&linkDelay, "link-delay", 1, "Link delay in cycles")
	runCmd.Flags().IntVar(&maxPacket, "max-packet", 8, "Maximum packet size in phits")
	runCmd.Flags().IntVar(&packetSize, "packet-size", 4, "Phits per injected packet")
	runCmd.Flags().Int64Var(&horizon, "horizon", 2000, "Simulation horizon in cycles")
	runCmd.Flags().Float64Var(&injectRate, "rate", 0.05, "Per-server, per-cycle injection probability")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Simulation seed")
}
