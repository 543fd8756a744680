// Package engine realizes experiments in process. It is a simulated
// network: nodes and links come from the topology graph, connectivity is
// graph reachability, and measurements are computed from the configured
// link characteristics. The launcher only sees the lab.Network contract,
// so a kernel-backed engine can replace this one without touching it.
package engine

import (
	"fmt"
	"net"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/emunet/emunet/lab"
)

// Defaults for unshaped links.
const (
	defaultBandwidthMbit = 1000.0
	defaultDelayMs       = 0.05
)

// SimNet is a simulated realization of one experiment network.
type SimNet struct {
	cfg       lab.BuildConfig
	adjacency map[string][]string
	hosts     []string
	ips       map[string]string
	placement map[string]string
	natName   string
	up        bool
}

// New builds a SimNet from the launcher's build configuration and
// registers it in the process-wide live table for global cleanup.
func New(cfg lab.BuildConfig) (lab.Network, error) {
	if cfg.Topo == nil || len(cfg.Topo.Hosts()) == 0 {
		return nil, fmt.Errorf("topology has no hosts")
	}
	ipBase := cfg.IPBase
	if ipBase == "" {
		ipBase = "10.0.0.0/8"
	}
	baseIP, _, err := net.ParseCIDR(ipBase)
	if err != nil {
		return nil, fmt.Errorf("invalid ip base %q: %w", ipBase, err)
	}
	ip := baseIP.To4()
	if ip == nil {
		return nil, fmt.Errorf("ip base %q: only IPv4 is supported", ipBase)
	}

	n := &SimNet{
		cfg:       cfg,
		adjacency: make(map[string][]string),
		hosts:     append([]string{}, cfg.Topo.Hosts()...),
		ips:       make(map[string]string),
	}
	for _, link := range cfg.Topo.Links() {
		n.connect(link.Left, link.Right)
	}
	for i, h := range n.hosts {
		n.ips[h] = fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], int(ip[3])+i+1)
	}

	if len(cfg.Servers) > 0 && cfg.Placement != nil {
		nodes := append(append([]string{}, n.hosts...), cfg.Topo.Switches()...)
		n.placement = cfg.Placement(nodes, cfg.Servers)
		logrus.Infof("placed %d nodes across %d servers", len(nodes), len(cfg.Servers))
	}

	logrus.Infof("built network: %d hosts, %d switches, %d links (switch=%s controller=%s link=%s)",
		len(n.hosts), len(cfg.Topo.Switches()), len(cfg.Topo.Links()),
		cfg.Switch.Kind, cfg.Controller.Kind, cfg.Link.Kind)
	register(n)
	return n, nil
}

func (n *SimNet) connect(a, b string) {
	n.adjacency[a] = append(n.adjacency[a], b)
	n.adjacency[b] = append(n.adjacency[b], a)
}

// Start brings the network up. Starting a running network restarts it.
func (n *SimNet) Start() error {
	if n.up {
		logrus.Debug("network already started, restarting")
	}
	n.up = true
	logrus.Infof("started network (%d hosts)", len(n.hosts))
	return nil
}

// Stop tears the network down and drops it from the live table.
func (n *SimNet) Stop() error {
	n.up = false
	unregister(n)
	logrus.Info("stopped network")
	return nil
}

// WaitConnected blocks until every switch has connected to its controller.
// The simulated control channel is immediate.
func (n *SimNet) WaitConnected() error {
	if n.cfg.Controller.Kind != lab.NullControllerKey {
		logrus.Debugf("%d switches connected to %s controller", len(n.cfg.Topo.Switches()), n.cfg.Controller.Kind)
	}
	return nil
}

// Nodes lists every node in the network: hosts, switches, the NAT node if
// attached, and the controller if one is configured.
func (n *SimNet) Nodes() []string {
	nodes := append([]string{}, n.hosts...)
	nodes = append(nodes, n.cfg.Topo.Switches()...)
	if n.natName != "" {
		nodes = append(nodes, n.natName)
	}
	if n.cfg.Controller.Kind != lab.NullControllerKey {
		nodes = append(nodes, "c0")
	}
	return nodes
}

// hopPath returns the shortest node path between two nodes, or nil if
// disconnected.
func (n *SimNet) hopPath(from, to string) []string {
	if from == to {
		return []string{from}
	}
	prev := map[string]string{from: from}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range n.adjacency[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				path := []string{to}
				for at := to; at != from; at = prev[at] {
					path = append([]string{prev[at]}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func (n *SimNet) linkDelayMs() float64 {
	if n.cfg.Link.DelayMs > 0 {
		return n.cfg.Link.DelayMs
	}
	return defaultDelayMs
}

func (n *SimNet) linkBandwidth() float64 {
	if n.cfg.Link.BandwidthMbit > 0 {
		return n.cfg.Link.BandwidthMbit
	}
	return defaultBandwidthMbit
}

// ping measures the simulated round trip between two hosts. The second
// return is false when the pair is unreachable.
func (n *SimNet) ping(from, to string) (float64, bool) {
	path := n.hopPath(from, to)
	if path == nil {
		return 0, false
	}
	// Round trip crosses every link on the path twice.
	return float64(len(path)-1) * n.linkDelayMs() * 2, true
}

// PingAll runs the all-pairs reachability check and reports packet loss
// and the median round-trip time.
func (n *SimNet) PingAll() error {
	if !n.up {
		return fmt.Errorf("pingAll: network is not started")
	}
	var rtts []float64
	sent, received := 0, 0
	for _, from := range n.hosts {
		for _, to := range n.hosts {
			if from == to {
				continue
			}
			sent++
			if rtt, ok := n.ping(from, to); ok {
				received++
				rtts = append(rtts, rtt)
			}
		}
	}
	loss := 0.0
	if sent > 0 {
		loss = float64(sent-received) / float64(sent) * 100
	}
	median := 0.0
	if len(rtts) > 0 {
		median, _ = stats.Median(rtts)
	}
	logrus.Infof("*** Ping: %d/%d received (%.0f%% dropped), median rtt %.2f ms", received, sent, loss, median)
	if received < sent {
		return fmt.Errorf("pingAll: %.0f%% of pairs unreachable", loss)
	}
	return nil
}

// PingPair checks connectivity between the first two hosts.
func (n *SimNet) PingPair() error {
	if !n.up {
		return fmt.Errorf("pingPair: network is not started")
	}
	if len(n.hosts) < 2 {
		return fmt.Errorf("pingPair: need at least 2 hosts, have %d", len(n.hosts))
	}
	from, to := n.hosts[0], n.hosts[1]
	rtt, ok := n.ping(from, to)
	if !ok {
		return fmt.Errorf("pingPair: %s cannot reach %s", from, to)
	}
	logrus.Infof("*** Ping: %s -> %s rtt %.2f ms", from, to, rtt)
	return nil
}

// iperf measures simulated throughput between the first and last hosts:
// the bottleneck bandwidth along the path, summarized over a few samples
// the way a real run would be.
func (n *SimNet) iperf(udp bool) error {
	proto := "TCP"
	if udp {
		proto = "UDP"
	}
	if !n.up {
		return fmt.Errorf("iperf: network is not started")
	}
	if len(n.hosts) < 2 {
		return fmt.Errorf("iperf: need at least 2 hosts, have %d", len(n.hosts))
	}
	client, server := n.hosts[0], n.hosts[len(n.hosts)-1]
	if n.hopPath(client, server) == nil {
		return fmt.Errorf("iperf: %s cannot reach %s", client, server)
	}
	bottleneck := n.linkBandwidth()
	// TCP never quite fills the pipe; UDP is driven at the configured rate.
	efficiency := []float64{0.94, 0.96, 0.95}
	if udp {
		efficiency = []float64{0.99, 1.0, 0.99}
	}
	samples := make([]float64, len(efficiency))
	for i, e := range efficiency {
		samples[i] = bottleneck * e
	}
	median, _ := stats.Median(samples)
	logrus.Infof("*** Iperf (%s): %s <-> %s: %.1f Mbit/s", proto, client, server, median)
	return nil
}

// Iperf runs the TCP bandwidth check.
func (n *SimNet) Iperf() error { return n.iperf(false) }

// IperfUDP runs the UDP bandwidth check.
func (n *SimNet) IperfUDP() error { return n.iperf(true) }

// AttachNAT adds a NAT node connected to the first switch and applies its
// default configuration: a default route via the NAT for every host.
func (n *SimNet) AttachNAT(spec lab.Spec) error {
	switches := n.cfg.Topo.Switches()
	if len(switches) == 0 {
		return fmt.Errorf("nat: topology has no switch to attach to")
	}
	if n.natName != "" {
		return fmt.Errorf("nat: already attached as %q", n.natName)
	}
	name := spec.Key
	attach := switches[0]
	if v, ok := spec.Params["connect"]; ok {
		if _, known := n.adjacency[v]; !known {
			return fmt.Errorf("nat: connect point %q: no such node", v)
		}
		attach = v
	}
	n.natName = name
	n.connect(name, attach)
	for _, h := range n.hosts {
		logrus.Debugf("set default route via %s for %s (%s)", name, h, n.ips[h])
	}
	logrus.Infof("attached NAT %s at %s", name, attach)
	return nil
}
