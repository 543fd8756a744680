package lab

import "math/rand"

// PlacementPolicy assigns experiment nodes to servers in clustered mode.
// The returned map covers every node.
type PlacementPolicy func(nodes, servers []string) map[string]string

// NewPlacement selects a placement policy by name from the closed set
// {block, random}; the empty name means block. Unknown names are a usage
// error, surfaced before any build attempt.
func NewPlacement(name string) (PlacementPolicy, error) {
	switch name {
	case "", "block":
		return BlockPlacement, nil
	case "random":
		return RandomPlacement, nil
	default:
		return nil, usagef("unknown placement %q", name)
	}
}

// BlockPlacement assigns nodes to servers in contiguous blocks, keeping
// neighbors in the creation order together.
func BlockPlacement(nodes, servers []string) map[string]string {
	assignment := make(map[string]string, len(nodes))
	if len(servers) == 0 {
		return assignment
	}
	per := (len(nodes) + len(servers) - 1) / len(servers)
	for i, node := range nodes {
		assignment[node] = servers[i/per]
	}
	return assignment
}

// RandomPlacement assigns each node to a uniformly random server.
func RandomPlacement(nodes, servers []string) map[string]string {
	assignment := make(map[string]string, len(nodes))
	if len(servers) == 0 {
		return assignment
	}
	for _, node := range nodes {
		assignment[node] = servers[rand.Intn(len(servers))]
	}
	return assignment
}
