package config

// Version is the current Veld version.
// Set at build time by the release script via -ldflags or by writing to this file.
var Version = "0.3.1"

const SourceFileExt = ".veld"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".veld", ".vd"}

// ManifestFileName is the project manifest read by the driver.
const ManifestFileName = "veld.yaml"

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if the path ends with any recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// IsTestMode indicates if the program is running under the test harness.
// Type variables normalize their printed form when set, so golden output
// stays deterministic across runs.
var IsTestMode = false

// Built-in trait names
const (
	MovableTraitName            = "Movable"
	DeinitializableTraitName    = "Deinitializable"
	ForeignConvertibleTraitName = "ForeignConvertible"
)

// Built-in method names
const (
	DeinitMethodName = "deinit"
	MoveOperatorName = "take_value"
)
