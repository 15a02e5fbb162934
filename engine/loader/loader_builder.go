package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithBackend is an option builder that replaces the format backend, mainly for tests.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - LoaderBuilderOption: a function that applies the backend option to a loader
func WithBackend(b loaderBackend) LoaderBuilderOption {
	return func(l *loader) {
		if b != nil {
			l.backend = b
		}
	}
}
