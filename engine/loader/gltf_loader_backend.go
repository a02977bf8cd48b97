package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// gltfLoaderBackendImpl is a loaderBackend implementation for glTF and GLB files.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
	isGLB    bool
}

var _ loaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - isGLB: true if streams handed to LoadReader carry GLB binary data
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(isGLB bool) loaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(),
		isGLB:    isGLB,
	}
}

// Load sniffs the container from the file itself, so one backend serves both extensions.
func (b *gltfLoaderBackendImpl) Load(path string) (*model.ImportedModel, error) {
	return b.importer.Import(path)
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader) (*model.ImportedModel, error) {
	return b.importer.ImportReader(r, b.isGLB)
}
