// Package filereg tracks file content checksums to tell real changes
// apart from no-op write events (editor touches, atomic-save renames).
package filereg

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Registry keeps a path to content-checksum register.
type Registry struct {
	lock   sync.Mutex
	hasher *xxhash.Digest
	byPath map[string]uint64
}

func New() *Registry {
	return &Registry{
		hasher: xxhash.New(),
		byPath: make(map[string]uint64),
	}
}

// Changed registers the current content checksum of filePath and reports
// whether the content differs from the last registered checksum.
// A file seen for the first time counts as changed.
func (r *Registry) Changed(filePath string) (changed bool, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	r.lock.Lock()
	defer r.lock.Unlock()

	r.hasher.Reset()
	if _, err := io.Copy(r.hasher, file); err != nil {
		return false, fmt.Errorf("hashing file: %w", err)
	}
	checksum := r.hasher.Sum64()

	previous, seen := r.byPath[filePath]
	r.byPath[filePath] = checksum
	return !seen || previous != checksum, nil
}

// Forget drops filePath from the register.
// Noop if the path isn't registered.
func (r *Registry) Forget(filePath string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.byPath, filePath)
}
