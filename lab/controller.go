package lab

import (
	"os/exec"

	"github.com/sirupsen/logrus"
)

// ControllerProbe discovers a compatible controller available on this
// machine and returns a factory bound to it. The boolean reports success.
// Injectable so tests can force either outcome.
type ControllerProbe func() (ControllerFactory, bool)

// controllerBinaries are probed in preference order.
var controllerBinaries = []string{"ovs-testcontroller", "test-controller", "controller"}

// ProbePath is the default probe: look for a known controller binary on
// PATH and bind the default alias to it.
func ProbePath() (ControllerFactory, bool) {
	for _, bin := range controllerBinaries {
		path, err := exec.LookPath(bin)
		if err != nil {
			continue
		}
		logrus.Debugf("found controller binary %q", path)
		factory := func(spec Spec) (ControllerConfig, error) {
			port, err := spec.IntParam("port", openFlowPort)
			if err != nil {
				return ControllerConfig{}, err
			}
			params := spec.Params
			if params == nil {
				params = map[string]string{}
			}
			params["command"] = path
			return ControllerConfig{Kind: "ref", Addr: "127.0.0.1", Port: port, Params: params}, nil
		}
		return factory, true
	}
	return nil, false
}

// ResolveController resolves the default controller alias. When the user
// selected a concrete controller this is a no-op. Otherwise it binds the
// alias to a discovered controller, or applies the fallback policy:
//
//  1. switch also default: fall back to the controller-less bridge and a
//     null controller, with a warning;
//  2. switch is already a controller-less bridge variant: null controller,
//     silently;
//  3. otherwise: NoDefaultControllerError — the chosen switch genuinely
//     requires a controller.
//
// It returns a new effective Options value and must run before switch and
// controller registry resolution.
func ResolveController(opts Options, regs *Registries, probe ControllerProbe) (Options, error) {
	ctlSpec, err := ParseSpec(opts.Controller)
	if err != nil {
		return opts, err
	}
	if ctlSpec.Key != DefaultAlias {
		return opts, nil
	}
	if probe == nil {
		probe = ProbePath
	}
	if factory, ok := probe(); ok {
		regs.Controllers.Merge(map[string]ControllerFactory{DefaultAlias: factory})
		return opts, nil
	}
	swSpec, err := ParseSpec(opts.Switch)
	if err != nil {
		return opts, err
	}
	switch {
	case swSpec.Key == DefaultAlias:
		logrus.Warnf("no default controller available: falling back to %s switch with no controller", BridgeFallbackKey)
		swSpec.Key = BridgeFallbackKey
		return opts.withSwitchController(swSpec.String(), NullControllerKey), nil
	case BridgeSwitchKeys[swSpec.Key]:
		return opts.withSwitchController(opts.Switch, NullControllerKey), nil
	default:
		return opts, &NoDefaultControllerError{Switch: swSpec.Key}
	}
}
