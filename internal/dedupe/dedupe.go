// Package dedupe provides set backends used to skip duplicate rules
package dedupe

import "github.com/projectdiscovery/gologger"

// MaxInMemorySize is the estimated payload size (default: 100 MB) above
// which the disk backed backend is used
var MaxInMemorySize = 100 * 1024 * 1024

// Backend is a set of strings
type Backend interface {
	// Add inserts elem and reports whether it was not present before
	Add(elem string) bool
	// Len returns the number of distinct elements added
	Len() int
	// Cleanup releases resources held by the backend
	Cleanup()
}

// New returns a backend sized for roughly byteLen bytes of elements.
// It falls back to the map backend when the disk store cannot be created.
func New(byteLen int) Backend {
	if byteLen <= MaxInMemorySize {
		return NewMapBackend()
	}
	h, err := NewHybridBackend()
	if err != nil {
		gologger.Warning().Msgf("dedupe: could not create disk store, using memory: %v", err)
		return NewMapBackend()
	}
	return h
}
