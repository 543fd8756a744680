package lab

import (
	"sort"
	"strconv"
	"strings"
)

// Spec is the parsed form of a "key[,arg...][,name=value...]" selection
// string: the registry key plus positional and keyword construction
// parameters. Commas inside values are not escapable; that is a known
// limitation of the grammar, not something the parser works around.
type Spec struct {
	Key    string
	Args   []string
	Params map[string]string
}

// ParseSpec splits a selection string on commas. The first token is the
// key; tokens containing "=" become keyword parameters (split on the first
// "=", duplicate names rejected); the rest are positional arguments in
// order.
func ParseSpec(s string) (Spec, error) {
	if s == "" {
		return Spec{}, usagef("empty constructor spec")
	}
	tokens := strings.Split(s, ",")
	spec := Spec{Key: tokens[0]}
	if spec.Key == "" {
		return Spec{}, usagef("constructor spec %q has an empty key", s)
	}
	for _, tok := range tokens[1:] {
		name, value, found := strings.Cut(tok, "=")
		if !found {
			spec.Args = append(spec.Args, tok)
			continue
		}
		if spec.Params == nil {
			spec.Params = make(map[string]string)
		}
		if _, dup := spec.Params[name]; dup {
			return Spec{}, usagef("constructor spec %q: duplicate parameter %q", s, name)
		}
		spec.Params[name] = value
	}
	return spec, nil
}

// String re-serializes the spec in the same grammar ParseSpec accepts.
// Parameters are emitted in sorted order so the result is deterministic.
func (s Spec) String() string {
	parts := []string{s.Key}
	parts = append(parts, s.Args...)
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+"="+s.Params[name])
	}
	return strings.Join(parts, ",")
}

// IntArg returns positional argument i as an int, or def if absent.
func (s Spec) IntArg(i, def int) (int, error) {
	if i >= len(s.Args) {
		return def, nil
	}
	n, err := strconv.Atoi(s.Args[i])
	if err != nil {
		return 0, usagef("constructor spec %q: argument %q is not an integer", s.Key, s.Args[i])
	}
	return n, nil
}

// IntParam returns keyword parameter name as an int, or def if absent.
func (s Spec) IntParam(name string, def int) (int, error) {
	v, ok := s.Params[name]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usagef("constructor spec %q: parameter %s=%q is not an integer", s.Key, name, v)
	}
	return n, nil
}

// FloatParam returns keyword parameter name as a float64, or def if absent.
func (s Spec) FloatParam(name string, def float64) (float64, error) {
	v, ok := s.Params[name]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, usagef("constructor spec %q: parameter %s=%q is not a number", s.Key, name, v)
	}
	return f, nil
}

// overlay combines pre-bound construction parameters with a caller's spec:
// bound positionals come first, and the caller's keyword parameters win on
// name collisions. Used when a custom override curries an existing factory.
func (s Spec) overlay(user Spec) Spec {
	merged := Spec{
		Key:  s.Key,
		Args: append(append([]string{}, s.Args...), user.Args...),
	}
	if len(s.Params)+len(user.Params) > 0 {
		merged.Params = make(map[string]string, len(s.Params)+len(user.Params))
		for name, value := range s.Params {
			merged.Params[name] = value
		}
		for name, value := range user.Params {
			merged.Params[name] = value
		}
	}
	return merged
}
