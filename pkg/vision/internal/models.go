package internal

import "path/filepath"

// ModelInfo holds metadata for an image classification model revision.
type ModelInfo struct {
	Name     string // "waste"
	Revision string
	Size     int64
	Files    []string
	// Hashes maps file names to their SHA-256 digests. Files without an entry
	// are only checked for existence.
	Hashes map[string]string
}

const (
	// ModelFile is the exported network, NHWC float32 input.
	ModelFile = "model.onnx"
	// MetadataFile carries the label list in model output order.
	MetadataFile = "metadata.json"
)

var (
	// WasteModel is the three-class Organic / Inorganic / NoWaste model.
	WasteModel = ModelInfo{
		Name:     "waste",
		Revision: "v1",
		Size:     9 * 1024 * 1024,
		Files:    []string{ModelFile, MetadataFile},
		Hashes:   map[string]string{},
	}

	// AllModels enumerates every model the downloader must handle.
	AllModels = []ModelInfo{WasteModel}
)

// Find returns the model registered under name.
func Find(name string) (ModelInfo, bool) {
	for _, m := range AllModels {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// GetModelPath returns the directory where a revision is stored.
func GetModelPath(basePath string, model ModelInfo) string {
	return filepath.Join(basePath, "classifier", model.Name, model.Revision)
}

// GetModelFilePath returns the path to a specific file for a revision.
func GetModelFilePath(basePath string, model ModelInfo, filename string) string {
	return filepath.Join(GetModelPath(basePath, model), filename)
}
