package localstore

import "fmt"

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend at path.
func Open(backend, path string) (Storage, error) {
	switch backend {
	case BackendFile, "":
		return OpenFileStore(path)
	case BackendSQLite:
		return OpenSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
