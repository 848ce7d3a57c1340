// Package proto maintains the process-wide table of registered protocols.
// Each protocol gets a 0-indexed numeric id and a canonical filter name used
// as a lookup and sort key elsewhere.
package proto

import (
	"fmt"
	"sync"
)

type protocolEntry struct {
	name       string
	filterName string
}

// Table holds registered protocols. Registration happens during the
// single-threaded startup phase; the table is read-only afterwards.
type Table struct {
	mu       sync.RWMutex
	entries  []protocolEntry
	byFilter map[string]int
}

func NewTable() *Table {
	return &Table{
		byFilter: make(map[string]int),
	}
}

// Register adds a protocol and returns its id.
func (t *Table) Register(name, filterName string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" || filterName == "" {
		return -1, fmt.Errorf("protocol name and filter name must be non-empty")
	}
	if id, exists := t.byFilter[filterName]; exists {
		return id, fmt.Errorf("protocol filter name '%s' already registered", filterName)
	}

	id := len(t.entries)
	t.entries = append(t.entries, protocolEntry{name: name, filterName: filterName})
	t.byFilter[filterName] = id
	return id, nil
}

// FilterName returns the canonical filter name for a protocol id, or ""
// for an unknown id.
func (t *Table) FilterName(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || id >= len(t.entries) {
		return ""
	}
	return t.entries[id].filterName
}

// Name returns the display name for a protocol id, or "" for an unknown id.
func (t *Table) Name(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || id >= len(t.entries) {
		return ""
	}
	return t.entries[id].name
}

// IDByFilterName returns the id for a filter name, or -1 when unknown.
func (t *Table) IDByFilterName(filterName string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id, ok := t.byFilter[filterName]; ok {
		return id
	}
	return -1
}

func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

var defaultTable = NewTable()

// Default returns the process-wide protocol table.
func Default() *Table {
	return defaultTable
}
