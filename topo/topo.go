// Package topo builds the node/link graphs that experiments are realized
// from. A Graph is a plain value: host names, switch names, and the links
// between them. Generators for the standard shapes (minimal, single,
// linear, reversed, tree, torus) live here; parameterization is handled
// by the launcher's constructor specs.
package topo

import "fmt"

// Link joins two named nodes. Order carries no meaning.
type Link struct {
	Left  string
	Right string
}

// Graph is an immutable-by-convention topology: generators build it once
// and the launcher hands it to the engine untouched.
type Graph struct {
	hosts    []string
	switches []string
	links    []Link
	names    map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{names: make(map[string]bool)}
}

// AddHost adds a host node. Duplicate names are rejected.
func (g *Graph) AddHost(name string) error {
	if g.names[name] {
		return fmt.Errorf("duplicate node name %q", name)
	}
	g.names[name] = true
	g.hosts = append(g.hosts, name)
	return nil
}

// AddSwitch adds a switch node. Duplicate names are rejected.
func (g *Graph) AddSwitch(name string) error {
	if g.names[name] {
		return fmt.Errorf("duplicate node name %q", name)
	}
	g.names[name] = true
	g.switches = append(g.switches, name)
	return nil
}

// AddLink joins two existing nodes.
func (g *Graph) AddLink(left, right string) error {
	if !g.names[left] {
		return fmt.Errorf("link endpoint %q: no such node", left)
	}
	if !g.names[right] {
		return fmt.Errorf("link endpoint %q: no such node", right)
	}
	g.links = append(g.links, Link{Left: left, Right: right})
	return nil
}

// Hosts returns host names in creation order.
func (g *Graph) Hosts() []string { return g.hosts }

// Switches returns switch names in creation order.
func (g *Graph) Switches() []string { return g.switches }

// Links returns all links in creation order.
func (g *Graph) Links() []Link { return g.links }

// Has reports whether a node with the given name exists.
func (g *Graph) Has(name string) bool { return g.names[name] }

// Minimal is the 2-host, 1-switch starter topology.
func Minimal() *Graph {
	g, err := Single(2)
	if err != nil {
		panic(err) // Single(2) cannot fail
	}
	return g
}

// Single builds one switch with n attached hosts.
func Single(n int) (*Graph, error) {
	if n < 1 {
		return nil, fmt.Errorf("single topology needs at least 1 host, got %d", n)
	}
	g := New()
	g.AddSwitch("s1")
	for i := 1; i <= n; i++ {
		h := fmt.Sprintf("h%d", i)
		g.AddHost(h)
		g.AddLink(h, "s1")
	}
	return g, nil
}

// Reversed is Single with hosts attached in reverse numeric order, so the
// highest-numbered host sits on the lowest switch port.
func Reversed(n int) (*Graph, error) {
	if n < 1 {
		return nil, fmt.Errorf("reversed topology needs at least 1 host, got %d", n)
	}
	g := New()
	g.AddSwitch("s1")
	for i := 1; i <= n; i++ {
		g.AddHost(fmt.Sprintf("h%d", i))
	}
	for i := n; i >= 1; i-- {
		g.AddLink(fmt.Sprintf("h%d", i), "s1")
	}
	return g, nil
}

// Linear builds k chained switches with n hosts on each.
func Linear(k, n int) (*Graph, error) {
	if k < 1 {
		return nil, fmt.Errorf("linear topology needs at least 1 switch, got %d", k)
	}
	if n < 1 {
		return nil, fmt.Errorf("linear topology needs at least 1 host per switch, got %d", n)
	}
	g := New()
	for i := 1; i <= k; i++ {
		sw := fmt.Sprintf("s%d", i)
		g.AddSwitch(sw)
		if i > 1 {
			g.AddLink(fmt.Sprintf("s%d", i-1), sw)
		}
		for j := 1; j <= n; j++ {
			var h string
			if n == 1 {
				h = fmt.Sprintf("h%d", i)
			} else {
				h = fmt.Sprintf("h%ds%d", j, i)
			}
			g.AddHost(h)
			g.AddLink(h, sw)
		}
	}
	return g, nil
}

// Tree builds a complete tree of switches with the given depth and fanout;
// hosts hang off the leaves. depth counts switch levels, so depth=1 is a
// single switch with fanout hosts.
func Tree(depth, fanout int) (*Graph, error) {
	if depth < 1 || fanout < 1 {
		return nil, fmt.Errorf("tree topology needs depth >= 1 and fanout >= 1, got depth=%d fanout=%d", depth, fanout)
	}
	g := New()
	var nextSwitch, nextHost int
	var grow func(level int) (string, error)
	grow = func(level int) (string, error) {
		nextSwitch++
		sw := fmt.Sprintf("s%d", nextSwitch)
		if err := g.AddSwitch(sw); err != nil {
			return "", err
		}
		for i := 0; i < fanout; i++ {
			if level == depth {
				nextHost++
				h := fmt.Sprintf("h%d", nextHost)
				if err := g.AddHost(h); err != nil {
					return "", err
				}
				g.AddLink(h, sw)
				continue
			}
			child, err := grow(level + 1)
			if err != nil {
				return "", err
			}
			g.AddLink(sw, child)
		}
		return sw, nil
	}
	if _, err := grow(1); err != nil {
		return nil, err
	}
	return g, nil
}

// Torus builds an x by y wraparound grid of switches, one host per switch.
// Wraparound degenerates into parallel links below 3x3, so smaller grids
// are rejected.
func Torus(x, y int) (*Graph, error) {
	if x < 3 || y < 3 {
		return nil, fmt.Errorf("torus topology needs x >= 3 and y >= 3, got %dx%d", x, y)
	}
	g := New()
	sw := func(i, j int) string { return fmt.Sprintf("s%dx%d", i+1, j+1) }
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			g.AddSwitch(sw(i, j))
			h := fmt.Sprintf("h%dx%d", i+1, j+1)
			g.AddHost(h)
			g.AddLink(h, sw(i, j))
		}
	}
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			g.AddLink(sw(i, j), sw((i+1)%x, j))
			g.AddLink(sw(i, j), sw(i, (j+1)%y))
		}
	}
	return g, nil
}
