package loader

// loaderBackend reads one file format.
type loaderBackend interface {
	// Supports reports whether the backend reads files with the lower-case extension ext.
	Supports(ext string) bool

	// Instances walks the default scene and returns placements of meshName.
	Instances(path, meshName string) ([]Instance, error)

	// Mesh reads the geometry of meshName.
	Mesh(path, meshName string) (*Mesh, error)

	// Forget drops any state cached for path.
	Forget(path string)
}
