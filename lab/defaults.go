package lab

import (
	"github.com/emunet/emunet/topo"
)

// The five pluggable roles. The launcher never constructs network elements
// itself: a factory turns a constructor spec into the configuration value
// the engine realizes.

// TopoFactory produces a topology graph from its construction parameters.
type TopoFactory func(spec Spec) (*topo.Graph, error)

// SwitchConfig selects a switch implementation for every switch node.
type SwitchConfig struct {
	Kind               string
	RequiresController bool
	Params             map[string]string
}

// SwitchFactory produces a SwitchConfig from its construction parameters.
type SwitchFactory func(spec Spec) (SwitchConfig, error)

// HostConfig selects a host implementation and scheduler.
type HostConfig struct {
	Kind   string
	Sched  string
	Params map[string]string
}

// HostFactory produces a HostConfig from its construction parameters.
type HostFactory func(spec Spec) (HostConfig, error)

// ControllerConfig selects the controller the switches speak to.
// Kind "none" means the experiment runs controller-less.
type ControllerConfig struct {
	Kind   string
	Addr   string
	Port   int
	Params map[string]string
}

// ControllerFactory produces a ControllerConfig from its construction
// parameters.
type ControllerFactory func(spec Spec) (ControllerConfig, error)

// LinkConfig selects the link implementation and its shaping parameters.
// Zero BandwidthMbit means unshaped.
type LinkConfig struct {
	Kind          string
	BandwidthMbit float64
	DelayMs       float64
	Params        map[string]string
}

// LinkFactory produces a LinkConfig from its construction parameters.
type LinkFactory func(spec Spec) (LinkConfig, error)

// Registries owns the five role tables for one launcher run. It is an
// explicit value passed to everything that resolves or mutates it; there
// is no package-level registry state.
type Registries struct {
	Topologies  *Registry[TopoFactory]
	Switches    *Registry[SwitchFactory]
	Hosts       *Registry[HostFactory]
	Controllers *Registry[ControllerFactory]
	Links       *Registry[LinkFactory]
}

// Well-known registry keys the resolver and lifecycle rely on.
const (
	// DefaultAlias is resolved at runtime to whatever concrete
	// implementation is available.
	DefaultAlias = "default"
	// NullControllerKey disables the controller entirely.
	NullControllerKey = "none"
	// BridgeFallbackKey is the controller-less switch the resolver falls
	// back to when no default controller exists.
	BridgeFallbackKey = "ovsbr"
	// ClusterKey selects the cluster-capable variant of a role.
	ClusterKey = "cluster"
)

// BridgeSwitchKeys are the switch variants that run without a controller.
var BridgeSwitchKeys = map[string]bool{"ovsbr": true, "lxbr": true}

// NewRegistries builds the built-in role tables.
func NewRegistries() (*Registries, error) {
	topologies, err := NewRegistry("topology", "minimal", map[string]TopoFactory{
		"minimal":  topoMinimal,
		"single":   topoSingle,
		"reversed": topoReversed,
		"linear":   topoLinear,
		"tree":     topoTree,
		"torus":    topoTorus,
	})
	if err != nil {
		return nil, err
	}
	switches, err := NewRegistry("switch", DefaultAlias, map[string]SwitchFactory{
		DefaultAlias: managedSwitch("ovs"),
		"ovs":        managedSwitch("ovs"),
		"user":       managedSwitch("user"),
		"ovsbr":      bridgeSwitch("ovsbr"),
		"lxbr":       bridgeSwitch("lxbr"),
		ClusterKey:   managedSwitch("cluster-ovs"),
	})
	if err != nil {
		return nil, err
	}
	hosts, err := NewRegistry("host", "proc", map[string]HostFactory{
		"proc":     plainHost("proc"),
		"cfs":      schedHost("cfs"),
		"rt":       schedHost("rt"),
		ClusterKey: plainHost("cluster"),
	})
	if err != nil {
		return nil, err
	}
	controllers, err := NewRegistry("controller", DefaultAlias, map[string]ControllerFactory{
		DefaultAlias:      localController("ref"),
		"ref":             localController("ref"),
		"ovsc":            localController("ovsc"),
		"remote":          remoteController,
		NullControllerKey: nullController,
	})
	if err != nil {
		return nil, err
	}
	links, err := NewRegistry("link", DefaultAlias, map[string]LinkFactory{
		DefaultAlias: plainLink("veth"),
		"tc":         tcLink,
		"ovs":        plainLink("ovs"),
		ClusterKey:   plainLink("cluster-tunnel"),
	})
	if err != nil {
		return nil, err
	}
	return &Registries{
		Topologies:  topologies,
		Switches:    switches,
		Hosts:       hosts,
		Controllers: controllers,
		Links:       links,
	}, nil
}

const openFlowPort = 6653

func managedSwitch(kind string) SwitchFactory {
	return func(spec Spec) (SwitchConfig, error) {
		return SwitchConfig{Kind: kind, RequiresController: true, Params: spec.Params}, nil
	}
}

func bridgeSwitch(kind string) SwitchFactory {
	return func(spec Spec) (SwitchConfig, error) {
		return SwitchConfig{Kind: kind, Params: spec.Params}, nil
	}
}

func plainHost(kind string) HostFactory {
	return func(spec Spec) (HostConfig, error) {
		return HostConfig{Kind: kind, Params: spec.Params}, nil
	}
}

// schedHost binds hosts to a CPU scheduler; the sched parameter may
// override the variant name (e.g. "rt,sched=fifo").
func schedHost(sched string) HostFactory {
	return func(spec Spec) (HostConfig, error) {
		if v, ok := spec.Params["sched"]; ok {
			sched = v
		}
		return HostConfig{Kind: "sched", Sched: sched, Params: spec.Params}, nil
	}
}

func localController(kind string) ControllerFactory {
	return func(spec Spec) (ControllerConfig, error) {
		port, err := spec.IntParam("port", openFlowPort)
		if err != nil {
			return ControllerConfig{}, err
		}
		return ControllerConfig{Kind: kind, Addr: "127.0.0.1", Port: port, Params: spec.Params}, nil
	}
}

func remoteController(spec Spec) (ControllerConfig, error) {
	addr := spec.Params["ip"]
	if addr == "" {
		addr = "127.0.0.1"
	}
	port, err := spec.IntParam("port", openFlowPort)
	if err != nil {
		return ControllerConfig{}, err
	}
	return ControllerConfig{Kind: "remote", Addr: addr, Port: port, Params: spec.Params}, nil
}

func nullController(spec Spec) (ControllerConfig, error) {
	return ControllerConfig{Kind: NullControllerKey}, nil
}

func plainLink(kind string) LinkFactory {
	return func(spec Spec) (LinkConfig, error) {
		return LinkConfig{Kind: kind, Params: spec.Params}, nil
	}
}

// tcLink is the shaped link: bw in Mbit/s, delay in milliseconds.
func tcLink(spec Spec) (LinkConfig, error) {
	bw, err := spec.FloatParam("bw", 0)
	if err != nil {
		return LinkConfig{}, err
	}
	delay, err := spec.FloatParam("delay", 0)
	if err != nil {
		return LinkConfig{}, err
	}
	return LinkConfig{Kind: "tc", BandwidthMbit: bw, DelayMs: delay, Params: spec.Params}, nil
}

func topoMinimal(spec Spec) (*topo.Graph, error) {
	return topo.Minimal(), nil
}

func topoSingle(spec Spec) (*topo.Graph, error) {
	n, err := spec.IntArg(0, 2)
	if err != nil {
		return nil, err
	}
	return topo.Single(n)
}

func topoReversed(spec Spec) (*topo.Graph, error) {
	n, err := spec.IntArg(0, 2)
	if err != nil {
		return nil, err
	}
	return topo.Reversed(n)
}

func topoLinear(spec Spec) (*topo.Graph, error) {
	k, err := spec.IntArg(0, 2)
	if err != nil {
		return nil, err
	}
	n, err := spec.IntArg(1, 1)
	if err != nil {
		return nil, err
	}
	return topo.Linear(k, n)
}

func topoTree(spec Spec) (*topo.Graph, error) {
	depth, err := spec.IntParam("depth", 2)
	if err != nil {
		return nil, err
	}
	fanout, err := spec.IntParam("fanout", 2)
	if err != nil {
		return nil, err
	}
	return topo.Tree(depth, fanout)
}

func topoTorus(spec Spec) (*topo.Graph, error) {
	x, err := spec.IntArg(0, 3)
	if err != nil {
		return nil, err
	}
	y, err := spec.IntArg(1, 3)
	if err != nil {
		return nil, err
	}
	return topo.Torus(x, y)
}
