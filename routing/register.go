// register.go wires routing/'s constructors into the netsim package's
// registration variable (NewRoutingFunc). This init() runs when any package
// imports netsim/routing, breaking the import cycle between netsim/
// (interface owner) and netsim/routing/ (implementation). Code that builds
// routings through netsim.NewRouting, such as cmd/run.go, blank-imports
// this package; tests in package netsim cannot import it (that would be an
// import cycle) and use their own fake Routing instead.
package routing

import "github.com/netsim/netsim"

func init() {
	netsim.NewRoutingFunc = NewRouting
}

// NewRouting builds a Routing from a configuration Value naming one of the
// registered algorithms by its object name: "up_down", "explicit_up_down",
// or "up_down_derouting".
func NewRouting(cfg netsim.Value) (netsim.Routing, error) {
	switch cfg.ObjectName {
	case "up_down":
		return NewUpDown(), nil
	case "explicit_up_down":
		return newExplicitUpDownFromConfig(cfg)
	case "up_down_derouting":
		return newUpDownDeroutingFromConfig(cfg)
	default:
		return nil, netsim.IllFormedConfigurationValue(cfg, "unknown routing: "+cfg.ObjectName)
	}
}
