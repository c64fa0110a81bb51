// Package registry keeps the annotation sessions opened by the server, one
// per document. Each session is guarded by its own mutex so that concurrent
// tool calls on the same document run one at a time.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
)

// ErrUnknownDocument is returned for a document ID with no open session.
var ErrUnknownDocument = errors.New("no open session for document")

type entry struct {
	mu  sync.Mutex
	doc *operations.Document
}

// Registry maps document IDs to open sessions.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Put registers doc, replacing any session already open for its ID.
func (r *Registry) Put(doc *operations.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[doc.ID] = &entry{doc: doc}
}

// Remove closes the session of a document. It reports whether one was open.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	return ok
}

// IDs returns the IDs of all open sessions in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// With runs fn on the session of the document while holding its lock. An
// empty id selects the only open session, if there is exactly one.
func (r *Registry) With(id string, fn func(doc *operations.Document) error) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.doc)
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == "" {
		if len(r.entries) != 1 {
			return nil, fmt.Errorf("document_id is required when %d documents are open", len(r.entries))
		}
		for _, e := range r.entries {
			return e, nil
		}
	}
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return e, nil
}
