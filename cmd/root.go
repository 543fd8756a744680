package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emunet/emunet/cli"
	"github.com/emunet/emunet/engine"
	"github.com/emunet/emunet/lab"
)

var (
	// CLI flags for role selection (constructor-spec grammar: key[,args...])
	topoSpec       string // topology to build
	switchSpec     string // switch implementation
	hostSpec       string // host implementation
	controllerSpec string // controller implementation
	linkSpec       string // link implementation

	// CLI flags for the run itself
	testName string // test to execute against the built network
	ipBase   string // base IP address/netmask for hosts
	logLevel string // log verbosity level

	inNamespace  bool // run the experiment in its own namespace
	xterms       bool // spawn a terminal per node
	autoMAC      bool // derive MAC addresses from node numbers
	autoARP      bool // pre-populate host ARP tables
	pinCPUs      bool // pin hosts to CPUs
	noListenPort bool // disable the passive switch listening port
	listenPort   int  // base port for passive switch listening

	preScript  string // CLI script to run before the network starts
	postScript string // CLI script to run after the test phase

	customFiles []string // custom override files (YAML), comma-separable

	natRequested bool   // attach a NAT node to the network
	natSpec      string // constructor spec for the NAT node

	clusterServers string // comma-separated server list; enables clustered mode
	placementName  string // node placement policy for clustered mode
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "emunet",
	Short:         "Launcher for configurable network-emulation experiments",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// buildOptions snapshots the parsed flags into the launcher configuration.
func buildOptions() lab.Options {
	var servers []string
	for _, s := range strings.Split(clusterServers, ",") {
		if s != "" {
			servers = append(servers, s)
		}
	}
	return lab.Options{
		Topo:         topoSpec,
		Switch:       switchSpec,
		Host:         hostSpec,
		Controller:   controllerSpec,
		Link:         linkSpec,
		Test:         testName,
		IPBase:       ipBase,
		InNamespace:  inNamespace,
		Xterms:       xterms,
		AutoMAC:      autoMAC,
		AutoARP:      autoARP,
		Pin:          pinCPUs,
		NoListenPort: noListenPort,
		ListenPort:   listenPort,
		PreScript:    preScript,
		PostScript:   postScript,
		Custom:       customFiles,
		NAT:          natRequested,
		NATSpec:      natSpec,
		Servers:      servers,
		Placement:    placementName,
	}
}

// runCmd builds and drives one experiment from the CLI flags.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build an experiment network and run a test or interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		regs, err := lab.NewRegistries()
		if err != nil {
			return err
		}
		launcher := &lab.Launcher{
			Lifecycle: &lab.Lifecycle{
				Opts:  buildOptions(),
				Regs:  regs,
				Build: engine.New,
				Session: func(net lab.Network, script string) error {
					return cli.Run(net, script)
				},
			},
			Cleaner: engine.Cleaner(),
		}
		return launcher.Run()
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&topoSpec, "topo", "minimal", "Topology, e.g. tree,depth=2,fanout=3")
	runCmd.Flags().StringVar(&switchSpec, "switch", "default", "Switch implementation")
	runCmd.Flags().StringVar(&hostSpec, "host", "proc", "Host implementation, e.g. rt,sched=fifo")
	runCmd.Flags().StringVar(&controllerSpec, "controller", "default", "Controller implementation, e.g. remote,ip=10.0.0.1")
	runCmd.Flags().StringVar(&linkSpec, "link", "default", "Link implementation, e.g. tc,bw=10,delay=5")

	runCmd.Flags().StringVar(&testName, "test", "none", "Test to run (none, build, all, cli, pingall, pingpair, iperf, iperfudp)")
	runCmd.Flags().StringVar(&ipBase, "ipbase", "10.0.0.0/8", "Base IP address for hosts")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().BoolVar(&inNamespace, "innamespace", false, "Run the experiment in its own namespace")
	runCmd.Flags().BoolVar(&xterms, "xterms", false, "Spawn a terminal for each node")
	runCmd.Flags().BoolVar(&autoMAC, "mac", false, "Derive MAC addresses from node numbers")
	runCmd.Flags().BoolVar(&autoARP, "arp", false, "Pre-populate host ARP tables")
	runCmd.Flags().BoolVar(&pinCPUs, "pin", false, "Pin hosts to real CPU cores")
	runCmd.Flags().BoolVar(&noListenPort, "nolistenport", false, "Disable the passive switch listening port")
	runCmd.Flags().IntVar(&listenPort, "listenport", 6654, "Base port for passive switch listening")

	runCmd.Flags().StringVar(&preScript, "pre", "", "CLI script to run before the network starts")
	runCmd.Flags().StringVar(&postScript, "post", "", "CLI script to run after the test phase")

	runCmd.Flags().StringSliceVar(&customFiles, "custom", nil, "Custom override files (YAML)")

	runCmd.Flags().BoolVar(&natRequested, "nat", false, "Attach a NAT node to the network")
	runCmd.Flags().StringVar(&natSpec, "natopts", "", "Constructor spec for the NAT node, e.g. nat0,connect=s1")

	runCmd.Flags().StringVar(&clusterServers, "cluster", "", "Comma-separated server list for clustered mode")
	runCmd.Flags().StringVar(&placementName, "placement", "block", "Node placement policy for clustered mode (block, random)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
