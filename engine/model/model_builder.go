package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		if name != "" {
			m.name = name
		}
	}
}

// WithCellSize is an option builder that fixes the grid cell edge length.
//
// Parameters:
//   - size: the edge length in world units
//
// Returns:
//   - ModelBuilderOption: a function that applies the cell size option to a model
func WithCellSize(size float32) ModelBuilderOption {
	return func(m *model) {
		m.cellSize = size
	}
}

// WithTargetCellPopulation is an option builder that sets the average number of instances per
// grid cell when the cell size is derived automatically.
//
// Parameters:
//   - n: the target population
//
// Returns:
//   - ModelBuilderOption: a function that applies the population option to a model
func WithTargetCellPopulation(n int) ModelBuilderOption {
	return func(m *model) {
		m.population = n
	}
}
