package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noController() (ControllerFactory, bool) { return nil, false }

func foundController() (ControllerFactory, bool) {
	return func(spec Spec) (ControllerConfig, error) {
		return ControllerConfig{Kind: "discovered", Addr: "127.0.0.1", Port: openFlowPort}, nil
	}, true
}

func testOptions() Options {
	return Options{
		Topo:       "minimal",
		Switch:     "default",
		Host:       "proc",
		Controller: "default",
		Link:       "default",
		Test:       "none",
	}
}

func TestResolveController_ConcreteChoiceIsUntouched(t *testing.T) {
	regs, err := NewRegistries()
	require.NoError(t, err)
	opts := testOptions()
	opts.Controller = "remote,ip=10.0.0.1"

	resolved, err := ResolveController(opts, regs, noController)
	require.NoError(t, err)
	assert.Equal(t, opts, resolved)
}

func TestResolveController_BindsDiscoveredController(t *testing.T) {
	regs, err := NewRegistries()
	require.NoError(t, err)

	resolved, err := ResolveController(testOptions(), regs, foundController)
	require.NoError(t, err)
	assert.Equal(t, "default", resolved.Controller, "alias stays, binding changes")

	factory, err := regs.Controllers.Resolve(DefaultAlias)
	require.NoError(t, err)
	cfg, err := factory(Spec{Key: DefaultAlias})
	require.NoError(t, err)
	assert.Equal(t, "discovered", cfg.Kind)
}

func TestResolveController_DefaultSwitchFallsBackToBridge(t *testing.T) {
	// GIVEN switch=default, controller=default, and no discoverable controller
	regs, err := NewRegistries()
	require.NoError(t, err)
	opts := testOptions()

	// WHEN the resolver runs
	resolved, err := ResolveController(opts, regs, noController)

	// THEN the effective switch is the null-controller bridge and the
	// controller is none, and the original snapshot is untouched
	require.NoError(t, err)
	assert.Equal(t, BridgeFallbackKey, resolved.Switch)
	assert.Equal(t, NullControllerKey, resolved.Controller)
	assert.Equal(t, "default", opts.Switch)
	assert.Equal(t, "default", opts.Controller)
}

func TestResolveController_BridgeSwitchGoesControllerless(t *testing.T) {
	regs, err := NewRegistries()
	require.NoError(t, err)
	opts := testOptions()
	opts.Switch = "lxbr"

	resolved, err := ResolveController(opts, regs, noController)
	require.NoError(t, err)
	assert.Equal(t, "lxbr", resolved.Switch)
	assert.Equal(t, NullControllerKey, resolved.Controller)
}

func TestResolveController_ControllerRequiringSwitchFails(t *testing.T) {
	// A switch that genuinely requires a controller, chosen explicitly,
	// must not fall back silently.
	regs, err := NewRegistries()
	require.NoError(t, err)
	opts := testOptions()
	opts.Switch = "ovs"

	_, err = ResolveController(opts, regs, noController)
	var noctl *NoDefaultControllerError
	require.ErrorAs(t, err, &noctl)
	assert.Equal(t, "ovs", noctl.Switch)
	assert.Equal(t, "ResolutionError", Classify(err))
}

func TestResolveController_FallbackKeepsSwitchParams(t *testing.T) {
	regs, err := NewRegistries()
	require.NoError(t, err)
	opts := testOptions()
	opts.Switch = "default,stp=1"

	resolved, err := ResolveController(opts, regs, noController)
	require.NoError(t, err)
	spec, err := ParseSpec(resolved.Switch)
	require.NoError(t, err)
	assert.Equal(t, BridgeFallbackKey, spec.Key)
	assert.Equal(t, "1", spec.Params["stp"])
}
