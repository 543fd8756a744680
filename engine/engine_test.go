package engine

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emunet/emunet/lab"
	"github.com/emunet/emunet/topo"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func buildConfig(t *testing.T, g *topo.Graph) lab.BuildConfig {
	t.Helper()
	return lab.BuildConfig{
		Topo:       g,
		Switch:     lab.SwitchConfig{Kind: "ovs", RequiresController: true},
		Host:       lab.HostConfig{Kind: "proc"},
		Controller: lab.ControllerConfig{Kind: "ref", Addr: "127.0.0.1", Port: 6653},
		Link:       lab.LinkConfig{Kind: "veth"},
		IPBase:     "10.0.0.0/8",
	}
}

func newNet(t *testing.T, g *topo.Graph) lab.Network {
	t.Helper()
	n, err := New(buildConfig(t, g))
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Stop() })
	return n
}

func TestNew_RejectsBadIPBase(t *testing.T) {
	cfg := buildConfig(t, topo.Minimal())
	cfg.IPBase = "not-an-ip"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestPingAll_FullReachability(t *testing.T) {
	g, err := topo.Linear(3, 1)
	require.NoError(t, err)
	n := newNet(t, g)

	require.NoError(t, n.Start())
	assert.NoError(t, n.WaitConnected())
	assert.NoError(t, n.PingAll())
}

func TestPingAll_RequiresStartedNetwork(t *testing.T) {
	n := newNet(t, topo.Minimal())
	assert.Error(t, n.PingAll())
}

func TestPingAll_DetectsPartition(t *testing.T) {
	// GIVEN two islands with no link between them
	g := topo.New()
	require.NoError(t, g.AddSwitch("s1"))
	require.NoError(t, g.AddSwitch("s2"))
	require.NoError(t, g.AddHost("h1"))
	require.NoError(t, g.AddHost("h2"))
	require.NoError(t, g.AddLink("h1", "s1"))
	require.NoError(t, g.AddLink("h2", "s2"))
	n := newNet(t, g)
	require.NoError(t, n.Start())

	// THEN the all-pairs check reports the unreachable pairs
	err := n.PingAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestPingPairAndIperf(t *testing.T) {
	g, err := topo.Single(4)
	require.NoError(t, err)
	n := newNet(t, g)
	require.NoError(t, n.Start())

	assert.NoError(t, n.PingPair())
	assert.NoError(t, n.Iperf())
	assert.NoError(t, n.IperfUDP())
}

func TestAttachNAT(t *testing.T) {
	n := newNet(t, topo.Minimal())

	spec, err := lab.ParseSpec("nat0,connect=s1")
	require.NoError(t, err)
	require.NoError(t, n.AttachNAT(spec))
	assert.Contains(t, n.Nodes(), "nat0")

	// A second NAT on the same network is rejected.
	assert.Error(t, n.AttachNAT(spec))
}

func TestAttachNAT_UnknownConnectPoint(t *testing.T) {
	n := newNet(t, topo.Minimal())
	spec, err := lab.ParseSpec("nat0,connect=s99")
	require.NoError(t, err)
	assert.Error(t, n.AttachNAT(spec))
}

func TestNodes_IncludesControllerUnlessNone(t *testing.T) {
	n := newNet(t, topo.Minimal())
	assert.Contains(t, n.Nodes(), "c0")

	cfg := buildConfig(t, topo.Minimal())
	cfg.Controller = lab.ControllerConfig{Kind: lab.NullControllerKey}
	bare, err := New(cfg)
	require.NoError(t, err)
	defer bare.Stop()
	assert.NotContains(t, bare.Nodes(), "c0")
}

func TestCleanupAll_IsIdempotent(t *testing.T) {
	require.NoError(t, CleanupAll()) // drop anything earlier tests leaked

	n := newNet(t, topo.Minimal())
	require.NoError(t, n.Start())

	require.NoError(t, CleanupAll())
	require.NoError(t, CleanupAll(), "second call finds nothing to release")

	// The cleaned network is out of the live table even though Stop was
	// never called through the lifecycle.
	assert.Error(t, n.PingAll(), "network was stopped by cleanup")
}

func TestPlacementAssignsEveryNode(t *testing.T) {
	g, err := topo.Single(3)
	require.NoError(t, err)
	cfg := buildConfig(t, g)
	cfg.Servers = []string{"srv1", "srv2"}
	cfg.Placement = lab.BlockPlacement

	n, err := New(cfg)
	require.NoError(t, err)
	defer n.Stop()

	sim := n.(*SimNet)
	assert.Len(t, sim.placement, 4, "3 hosts + 1 switch")
}
