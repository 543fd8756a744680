package lab

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emunet/emunet/topo"
)

// Network is the contract the experiment engine exposes to the launcher.
// All calls are synchronous and blocking; the launcher never polls.
type Network interface {
	Start() error
	Stop() error
	WaitConnected() error
	Nodes() []string
	PingAll() error
	PingPair() error
	Iperf() error
	IperfUDP() error
	AttachNAT(spec Spec) error
}

// BuildConfig carries everything the engine needs to realize an experiment.
type BuildConfig struct {
	Topo       *topo.Graph
	Switch     SwitchConfig
	Host       HostConfig
	Controller ControllerConfig
	Link       LinkConfig

	IPBase      string
	InNamespace bool
	Xterms      bool
	AutoMAC     bool
	AutoARP     bool
	Pin         bool
	ListenPort  int // 0 disables the passive listening port

	Servers   []string
	Placement PlacementPolicy // nil outside clustered mode
}

// NetworkBuilder constructs a runnable network from a build configuration.
type NetworkBuilder func(cfg BuildConfig) (Network, error)

// SessionRunner drives an interactive or scripted session against a built
// network. An empty script path means interactive. It blocks the launcher
// until the user or script signals completion.
type SessionRunner func(net Network, script string) error

// Experiment is the live object graph owned by the lifecycle: the resolved
// topology and the constructed network, with at-most-once stop semantics.
type Experiment struct {
	Topo *topo.Graph
	Net  Network

	stopped bool
}

func (e *Experiment) stop() error {
	if e.stopped {
		return nil
	}
	e.stopped = true
	return e.Net.Stop()
}

// testAliases is the fixed spelling-normalization table for test names.
// Unrecognized names pass through unchanged.
var testAliases = map[string]string{
	"pingall":   "pingAll",
	"pingpair":  "pingPair",
	"iperfudp":  "iperfUdp",
	"iperftest": "iperfTest",
}

// NormalizeTest maps a test name through the alias table.
func NormalizeTest(name string) string {
	if canonical, ok := testAliases[name]; ok {
		return canonical
	}
	return name
}

// testOps is the closed mapping from test name to the no-argument network
// operation it runs. Resolved and validated at configuration time, never
// discovered at call time.
var testOps = map[string]func(Network) error{
	"pingAll":   Network.PingAll,
	"pingPair":  Network.PingPair,
	"iperf":     Network.Iperf,
	"iperfTest": Network.Iperf,
	"iperfUdp":  Network.IperfUDP,
}

// validTests holds every acceptable normalized test name.
var validTests = map[string]bool{
	"none":  true,
	"build": true,
	"all":   true,
	"cli":   true,
}

func init() {
	for name := range testOps {
		validTests[name] = true
	}
}

// Lifecycle drives one experiment from configuration to teardown:
// build, optional NAT attachment, pre-script, test execution, post-script,
// stop. Stages are strictly sequential; any failure aborts the remaining
// stages and propagates to the top-level handler. Collaborators are
// injected so the whole sequence is testable without an engine.
type Lifecycle struct {
	Opts    Options
	Regs    *Registries
	Build   NetworkBuilder
	Session SessionRunner
	Probe   ControllerProbe // nil = ProbePath
	Hook    ValidationHook  // overridden by a hook from a custom source
}

// Run executes the full lifecycle and reports elapsed wall-clock time for
// everything from build through stop.
func (lc *Lifecycle) Run() error {
	// Usage problems abort before anything is created.
	if err := lc.Opts.Validate(); err != nil {
		return err
	}

	// Custom overrides mutate the registries before any lookup.
	loader := NewLoader(lc.Regs)
	if err := loader.Load(lc.Opts.Custom...); err != nil {
		return err
	}
	hook := lc.Hook
	if loader.Hook != nil {
		hook = loader.Hook
	}

	// Controller resolution runs strictly before switch/controller
	// registry resolution and yields the effective configuration.
	opts, err := ResolveController(lc.Opts, lc.Regs, lc.Probe)
	if err != nil {
		return err
	}

	start := time.Now()

	cfg, err := lc.resolve(opts)
	if err != nil {
		return &BuildError{Err: err}
	}
	if hook != nil {
		if err := hook(opts); err != nil {
			return &BuildError{Err: err}
		}
	}
	net, err := lc.Build(cfg)
	if err != nil {
		return &BuildError{Err: err}
	}
	exp := &Experiment{Topo: cfg.Topo, Net: net}
	defer func() {
		// Stop is the unconditional cleanup stage; reaching it exactly
		// once is guaranteed even when an earlier stage fails.
		if err := exp.stop(); err != nil {
			logrus.Errorf("stopping experiment: %v", err)
		}
	}()

	if opts.NAT {
		natSpec := Spec{Key: "nat0"}
		if opts.NATSpec != "" {
			if natSpec, err = ParseSpec(opts.NATSpec); err != nil {
				return &BuildError{Err: err}
			}
		}
		if err := net.AttachNAT(natSpec); err != nil {
			return &BuildError{Err: err}
		}
	}

	if opts.PreScript != "" {
		if err := lc.runSession(net, opts.PreScript); err != nil {
			return &RunError{Err: err}
		}
	}

	if err := net.Start(); err != nil {
		return &RunError{Err: err}
	}

	if err := lc.dispatch(opts, net); err != nil {
		return &RunError{Err: err}
	}

	if opts.PostScript != "" {
		if err := lc.runSession(net, opts.PostScript); err != nil {
			return &RunError{Err: err}
		}
	}

	if err := exp.stop(); err != nil {
		return &RunError{Err: err}
	}

	logrus.Infof("completed in %.3f seconds", time.Since(start).Seconds())
	return nil
}

// resolve turns the effective options into a BuildConfig: topology first,
// then the switch/host/controller/link factories, with clustered mode
// overriding host/switch/link to their cluster-capable variants.
func (lc *Lifecycle) resolve(opts Options) (BuildConfig, error) {
	topoSpec, err := ParseSpec(opts.Topo)
	if err != nil {
		return BuildConfig{}, err
	}
	topoFactory, err := lc.Regs.Topologies.Resolve(topoSpec.Key)
	if err != nil {
		return BuildConfig{}, err
	}
	graph, err := topoFactory(topoSpec)
	if err != nil {
		return BuildConfig{}, err
	}

	swSpec, err := ParseSpec(opts.Switch)
	if err != nil {
		return BuildConfig{}, err
	}
	hostSpec, err := ParseSpec(opts.Host)
	if err != nil {
		return BuildConfig{}, err
	}
	linkSpec, err := ParseSpec(opts.Link)
	if err != nil {
		return BuildConfig{}, err
	}
	if opts.Clustered() {
		swSpec.Key = ClusterKey
		hostSpec.Key = ClusterKey
		linkSpec.Key = ClusterKey
	}

	swFactory, err := lc.Regs.Switches.Resolve(swSpec.Key)
	if err != nil {
		return BuildConfig{}, err
	}
	swCfg, err := swFactory(swSpec)
	if err != nil {
		return BuildConfig{}, err
	}

	hostFactory, err := lc.Regs.Hosts.Resolve(hostSpec.Key)
	if err != nil {
		return BuildConfig{}, err
	}
	hostCfg, err := hostFactory(hostSpec)
	if err != nil {
		return BuildConfig{}, err
	}

	ctlSpec, err := ParseSpec(opts.Controller)
	if err != nil {
		return BuildConfig{}, err
	}
	ctlFactory, err := lc.Regs.Controllers.Resolve(ctlSpec.Key)
	if err != nil {
		return BuildConfig{}, err
	}
	ctlCfg, err := ctlFactory(ctlSpec)
	if err != nil {
		return BuildConfig{}, err
	}

	linkFactory, err := lc.Regs.Links.Resolve(linkSpec.Key)
	if err != nil {
		return BuildConfig{}, err
	}
	linkCfg, err := linkFactory(linkSpec)
	if err != nil {
		return BuildConfig{}, err
	}

	cfg := BuildConfig{
		Topo:        graph,
		Switch:      swCfg,
		Host:        hostCfg,
		Controller:  ctlCfg,
		Link:        linkCfg,
		IPBase:      opts.IPBase,
		InNamespace: opts.InNamespace,
		Xterms:      opts.Xterms,
		AutoMAC:     opts.AutoMAC,
		AutoARP:     opts.AutoARP,
		Pin:         opts.Pin,
		ListenPort:  opts.ListenPort,
	}
	if opts.NoListenPort {
		cfg.ListenPort = 0
	}
	if opts.Clustered() {
		placement, err := NewPlacement(opts.Placement)
		if err != nil {
			return BuildConfig{}, err
		}
		cfg.Servers = opts.Servers
		cfg.Placement = placement
	}
	return cfg, nil
}

// dispatch runs the requested test against the started network.
func (lc *Lifecycle) dispatch(opts Options, net Network) error {
	name := NormalizeTest(opts.Test)
	switch name {
	case "none", "build":
		return nil
	case "all":
		if err := net.WaitConnected(); err != nil {
			return err
		}
		if err := net.Start(); err != nil {
			return err
		}
		if err := net.PingAll(); err != nil {
			return err
		}
		return net.Iperf()
	case "cli":
		return lc.runSession(net, "")
	default:
		op, ok := testOps[name]
		if !ok {
			// Unreachable after Validate, kept as a guard.
			return usagef("unknown test %q", opts.Test)
		}
		if err := net.WaitConnected(); err != nil {
			return err
		}
		return op(net)
	}
}

func (lc *Lifecycle) runSession(net Network, script string) error {
	if lc.Session == nil {
		return fmt.Errorf("no session runner configured")
	}
	return lc.Session(net, script)
}
