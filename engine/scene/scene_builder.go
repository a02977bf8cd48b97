package scene

// GraphBuilderOption is a functional option for configuring a Graph via NewGraph.
type GraphBuilderOption func(*graph)

// WithName is an option builder that sets the Graph's name.
//
// Parameters:
//   - name: the graph name
//
// Returns:
//   - GraphBuilderOption: a function that applies the name option to a graph
func WithName(name string) GraphBuilderOption {
	return func(g *graph) {
		g.name = name
	}
}

// WithCapacity is an option builder that pre-sizes the node table so that building a graph
// of known size does not reallocate.
//
// Parameters:
//   - n: the expected number of nodes
//
// Returns:
//   - GraphBuilderOption: a function that applies the capacity option to a graph
func WithCapacity(n int) GraphBuilderOption {
	return func(g *graph) {
		if n+1 > cap(g.nodes) {
			nodes := make([]node, len(g.nodes), n+1)
			copy(nodes, g.nodes)
			g.nodes = nodes
		}
	}
}
