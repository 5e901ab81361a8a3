package subnoise

import (
	"context"
	"sync"

	"github.com/projectdiscovery/utils/errkit"
)

var ErrTxDone = errkit.New("rule transaction has already been committed or rolled back")

// MemoryStore is an in-memory DomainSource and RuleSink.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	domains []Domain
	rules   []Rule
}

// NewMemoryStore returns a store holding the given domains
func NewMemoryStore(domains ...Domain) *MemoryStore {
	return &MemoryStore{domains: append([]Domain(nil), domains...)}
}

// AddDomains appends domains to the store
func (m *MemoryStore) AddDomains(domains ...Domain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains = append(m.domains, domains...)
}

func (m *MemoryStore) GetAllDomains(_ context.Context) ([]Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Domain(nil), m.domains...), nil
}

func (m *MemoryStore) InsertRule(_ context.Context, rule Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
	return nil
}

func (m *MemoryStore) DeleteRules(_ context.Context, filter *RuleFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = deleteMatching(m.rules, filter)
	return nil
}

// Rules returns a copy of the stored rules in insertion order
func (m *MemoryStore) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Rule(nil), m.rules...)
}

// BeginRules starts a transaction. Writes are buffered and applied
// under a single lock on Commit.
func (m *MemoryStore) BeginRules(_ context.Context) (RuleTx, error) {
	return &memoryTx{store: m}, nil
}

func deleteMatching(rules []Rule, filter *RuleFilter) []Rule {
	kept := rules[:0]
	for _, r := range rules {
		if !filter.Match(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

type memoryOp struct {
	delete bool
	rule   Rule
	filter *RuleFilter
}

type memoryTx struct {
	store *MemoryStore
	ops   []memoryOp
	done  bool
}

func (tx *memoryTx) InsertRule(_ context.Context, rule Rule) error {
	if tx.done {
		return ErrTxDone
	}
	tx.ops = append(tx.ops, memoryOp{rule: rule})
	return nil
}

func (tx *memoryTx) DeleteRules(_ context.Context, filter *RuleFilter) error {
	if tx.done {
		return ErrTxDone
	}
	tx.ops = append(tx.ops, memoryOp{delete: true, filter: filter})
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, op := range tx.ops {
		if op.delete {
			tx.store.rules = deleteMatching(tx.store.rules, op.filter)
			continue
		}
		tx.store.rules = append(tx.store.rules, op.rule)
	}
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.ops = nil
	return nil
}
