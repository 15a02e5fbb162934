package renderable

// ComputeBuilderOption is a functional option for configuring a Compute renderable.
type ComputeBuilderOption func(*compute)

// WithComputeIDSource sets the source the renderable takes its ID from.
//
// Parameters:
//   - src: the identifier source, nil keeps DefaultIDs
//
// Returns:
//   - ComputeBuilderOption: option function to apply
func WithComputeIDSource(src *IDSource) ComputeBuilderOption {
	return func(c *compute) {
		if src != nil {
			c.ids = src
		}
	}
}

// WithComputeLabel sets a name used in log output.
//
// Parameters:
//   - label: the name
//
// Returns:
//   - ComputeBuilderOption: option function to apply
func WithComputeLabel(label string) ComputeBuilderOption {
	return func(c *compute) {
		c.label = label
	}
}

// WithWorkgroups sets the dispatch grid. Defaults to 1×1×1.
//
// Parameters:
//   - x, y, z: workgroup counts
//
// Returns:
//   - ComputeBuilderOption: option function to apply
func WithWorkgroups(x, y, z uint32) ComputeBuilderOption {
	return func(c *compute) {
		c.groups = [3]uint32{x, y, z}
	}
}

// WithVariants restricts the passes the compute work runs in. By default it runs in every pass.
//
// Parameters:
//   - variants: the passes that dispatch
//
// Returns:
//   - ComputeBuilderOption: option function to apply
func WithVariants(variants ...Variant) ComputeBuilderOption {
	return func(c *compute) {
		c.variants = make(map[Variant]bool, len(variants))
		for _, v := range variants {
			c.variants[v] = true
		}
	}
}
