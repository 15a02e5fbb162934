package batch

// BuilderOption is a functional option for configuring a Builder.
type BuilderOption func(*Builder)

// WithFirstIndex is an option builder that sets the first index of every emitted command.
//
// Parameters:
//   - first: the first index into the shared index buffer
//
// Returns:
//   - BuilderOption: a function that applies the first index option
func WithFirstIndex(first uint32) BuilderOption {
	return func(b *Builder) {
		b.first = first
	}
}

// WithBaseVertex is an option builder that sets the base vertex of every emitted command.
//
// Parameters:
//   - baseVertex: the value added to each index before fetching a vertex
//
// Returns:
//   - BuilderOption: a function that applies the base vertex option
func WithBaseVertex(baseVertex int32) BuilderOption {
	return func(b *Builder) {
		b.baseVertex = baseVertex
	}
}
