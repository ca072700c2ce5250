package hnsw

// Stats describes the shape of the graph.
type Stats struct {
	// Nodes is the total node count.
	Nodes int

	// Dims is the vector dimensionality.
	Dims int

	// MaxLayer is the highest populated layer, -1 when empty.
	MaxLayer int32

	// LayerCounts holds, per layer, the number of nodes participating
	// there. Index 0 is layer 0.
	LayerCounts []int

	// AvgDegree0 is the mean neighbor count at layer 0.
	AvgDegree0 float64
}

// Stats computes a snapshot of the graph shape. It walks every node, so it
// is not for hot paths.
func (h *Index) Stats() Stats {
	s := Stats{
		Nodes:    len(h.nodes),
		Dims:     h.dims,
		MaxLayer: h.maxLayer,
	}

	if len(h.nodes) == 0 {
		return s
	}

	s.LayerCounts = make([]int, h.maxLayer+1)

	var degreeSum int

	for i := range h.nodes {
		node := &h.nodes[i]

		for l := int32(0); l <= node.MaxLayer && int(l) < len(s.LayerCounts); l++ {
			s.LayerCounts[l]++
		}

		degreeSum += node.degree(0)
	}

	s.AvgDegree0 = float64(degreeSum) / float64(len(h.nodes))

	return s
}
