package lab

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/emunet/emunet/topo"
)

// Custom overrides are YAML declaration files. Top-level keys are
// classified by name, case-insensitively:
//
//   - topologies / switches / hosts / controllers: a map of new registry
//     key to a constructor-spec string naming an existing factory plus
//     pre-bound arguments; merged into the matching role registry.
//   - validate: the name of a validation hook registered in process via
//     RegisterValidationHook, installed to run against the final Options
//     before the experiment is built.
//   - anything else: bound into the process-wide Globals table.
//
// The original mechanism executed arbitrary code with full ambient scope;
// this structured format is the chosen boundary for that escape hatch.

// ValidationHook inspects the final Options before the experiment is
// built. A non-nil return aborts the run as a build failure.
type ValidationHook func(Options) error

// validateKey is the reserved top-level name that installs a hook.
const validateKey = "validate"

var validationHooks = map[string]ValidationHook{}

// RegisterValidationHook makes a hook selectable by name from a custom
// source. Registration happens at init time, before any source loads.
func RegisterValidationHook(name string, hook ValidationHook) {
	validationHooks[name] = hook
}

// Process-wide bindings installed by custom sources. Written only during
// configuration loading, read-only afterwards; there is no concurrent
// writer, so a plain map suffices.
var globals = map[string]string{}

// SetGlobal binds a process-wide name.
func SetGlobal(name, value string) { globals[name] = value }

// Global reads a process-wide binding installed by a custom source.
func Global(name string) (string, bool) {
	v, ok := globals[name]
	return v, ok
}

// Loader merges custom-override sources into a set of role registries.
type Loader struct {
	regs *Registries

	// Hook is the validation hook installed by the last source that
	// declared one, or nil.
	Hook ValidationHook
}

// NewLoader returns a loader that mutates regs.
func NewLoader(regs *Registries) *Loader {
	return &Loader{regs: regs}
}

// Load processes each source in order; a source argument may itself be a
// comma-separated list. Within one source, bindings apply in sorted name
// order; across sources, the last writer for a name wins.
func (l *Loader) Load(sources ...string) error {
	for _, arg := range sources {
		for _, source := range strings.Split(arg, ",") {
			if source == "" {
				continue
			}
			if err := l.loadOne(source); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) loadOne(source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return &CustomSourceNotFoundError{Source: source}
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing custom file %q: %w", source, err)
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := l.apply(source, name, doc[name]); err != nil {
			return err
		}
	}
	logrus.Debugf("loaded custom file %q (%d bindings)", source, len(doc))
	return nil
}

func (l *Loader) apply(source, name string, value any) error {
	switch strings.ToLower(name) {
	case "topologies":
		return applyMerge(source, name, value, l.regs.Topologies, curryTopo)
	case "switches":
		return applyMerge(source, name, value, l.regs.Switches, currySwitch)
	case "hosts":
		return applyMerge(source, name, value, l.regs.Hosts, curryHost)
	case "controllers":
		return applyMerge(source, name, value, l.regs.Controllers, curryController)
	case validateKey:
		hookName, ok := value.(string)
		if !ok {
			return fmt.Errorf("custom file %q: %s must name a registered hook", source, validateKey)
		}
		hook, ok := validationHooks[hookName]
		if !ok {
			return fmt.Errorf("custom file %q: validation hook %q is not registered", source, hookName)
		}
		l.Hook = hook
		return nil
	default:
		SetGlobal(name, fmt.Sprint(value))
		return nil
	}
}

// applyMerge turns a {newKey: "baseKey,args..."} section into curried
// factories and merges them into the registry.
func applyMerge[F any](source, section string, value any, reg *Registry[F], curry func(F, Spec) F) error {
	bindings, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("custom file %q: %s must be a map of key to constructor spec", source, section)
	}
	update := make(map[string]F, len(bindings))
	for key, raw := range bindings {
		ref, ok := raw.(string)
		if !ok {
			return fmt.Errorf("custom file %q: %s.%s must be a constructor spec string", source, section, key)
		}
		bound, err := ParseSpec(ref)
		if err != nil {
			return fmt.Errorf("custom file %q: %s.%s: %w", source, section, key, err)
		}
		base, err := reg.Resolve(bound.Key)
		if err != nil {
			return fmt.Errorf("custom file %q: %s.%s: %w", source, section, key, err)
		}
		update[key] = curry(base, bound)
	}
	reg.Merge(update)
	return nil
}

func curryTopo(base TopoFactory, bound Spec) TopoFactory {
	return func(user Spec) (*topo.Graph, error) { return base(bound.overlay(user)) }
}

func currySwitch(base SwitchFactory, bound Spec) SwitchFactory {
	return func(user Spec) (SwitchConfig, error) { return base(bound.overlay(user)) }
}

func curryHost(base HostFactory, bound Spec) HostFactory {
	return func(user Spec) (HostConfig, error) { return base(bound.overlay(user)) }
}

func curryController(base ControllerFactory, bound Spec) ControllerFactory {
	return func(user Spec) (ControllerConfig, error) { return base(bound.overlay(user)) }
}
