package hnsw

// Node is one vertex of the proximity graph.
//
// Nodes live in a flat arena slice owned by the index; adjacency is expressed
// as indices into that arena, so the graph holds no pointers between nodes.
type Node struct {
	// DocID is the caller-assigned document this vector belongs to.
	DocID uint32

	// MaxLayer is the highest layer the node participates in. A node has
	// neighbor lists for every layer from 0 through MaxLayer.
	MaxLayer int32

	// Connections holds, per layer, the arena indices of this node's
	// neighbors. len(Connections) == MaxLayer+1.
	Connections [][]uint32

	// Vector is the embedding. The index owns this slice.
	Vector []float32
}

// degree returns the neighbor count at the given layer, 0 if the node does
// not participate there.
func (n *Node) degree(layer int) int {
	if layer < 0 || layer >= len(n.Connections) {
		return 0
	}

	return len(n.Connections[layer])
}
