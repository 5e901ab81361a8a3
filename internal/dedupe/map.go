package dedupe

// MapBackend keeps seen elements in a go map
type MapBackend struct {
	storage map[string]struct{}
}

func NewMapBackend() *MapBackend {
	return &MapBackend{storage: map[string]struct{}{}}
}

func (m *MapBackend) Add(elem string) bool {
	if _, ok := m.storage[elem]; ok {
		return false
	}
	m.storage[elem] = struct{}{}
	return true
}

func (m *MapBackend) Len() int {
	return len(m.storage)
}

func (m *MapBackend) Cleanup() {
	m.storage = nil
}
