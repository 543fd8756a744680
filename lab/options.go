package lab

// Options is the immutable snapshot of all resolved configuration values
// for one launcher run. It is created once by the boundary layer after
// flag parsing; the controller resolver derives a new effective value
// rather than mutating it.
type Options struct {
	// Role selection strings, each in constructor-spec grammar.
	Topo       string
	Switch     string
	Host       string
	Controller string
	Link       string

	Test   string // test name, normalized through the alias table at dispatch
	IPBase string // base IP/netmask for host addressing

	InNamespace bool // isolate the experiment in its own namespace
	Xterms      bool // open a terminal per node
	AutoMAC     bool // derive MAC addresses from node numbers
	AutoARP     bool // pre-populate ARP entries
	Pin         bool // pin hosts to CPUs

	NoListenPort bool // disable the passive switch listening port
	ListenPort   int  // base passive listening port

	PreScript  string // script run before the network starts
	PostScript string // script run after the test phase

	Custom []string // custom-override sources, each possibly comma-separated

	NAT     bool   // attach a NAT node after build
	NATSpec string // constructor spec for the NAT node ("" = defaults)

	Servers   []string // cluster server list; non-empty selects clustered mode
	Placement string   // node placement policy name for clustered mode
}

// Clustered reports whether multi-server mode was requested.
func (o Options) Clustered() bool { return len(o.Servers) > 0 }

// Validate checks everything that must hold before any build is attempted:
// mutually exclusive modes, a recognized test name, a recognized placement
// name, and well-formed role specs. All violations are usage errors.
func (o Options) Validate() error {
	if o.InNamespace && o.Clustered() {
		return usagef("options --innamespace and --cluster are mutually exclusive")
	}
	if name := NormalizeTest(o.Test); !validTests[name] {
		return usagef("unknown test %q", o.Test)
	}
	if o.Clustered() {
		if _, err := NewPlacement(o.Placement); err != nil {
			return err
		}
	}
	for _, role := range []string{o.Topo, o.Switch, o.Host, o.Controller, o.Link} {
		if _, err := ParseSpec(role); err != nil {
			return err
		}
	}
	if o.NAT && o.NATSpec != "" {
		if _, err := ParseSpec(o.NATSpec); err != nil {
			return err
		}
	}
	return nil
}

// withSwitchController derives a new effective configuration with adjusted
// switch and controller selections, leaving the receiver untouched.
func (o Options) withSwitchController(sw, controller string) Options {
	o.Switch = sw
	o.Controller = controller
	return o
}
