// Package store holds the latest Analysis per document.
//
// Records are immutable once stored: Put builds a fresh Analysis and swaps
// it in under the document key, and Get hands out a deep copy. A reader can
// therefore never see suggestions from one analysis next to the summary of
// another.
package store

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/helmcode/autofixer/pkg/model"
)

// DefaultCapacity bounds the number of documents kept when no size is given.
const DefaultCapacity = 256

// Store is a bounded, concurrency-safe map from document ID to Analysis.
// Evicted entries are rebuilt by the next analysis of that document.
type Store struct {
	cache *lru.Cache[string, *model.Analysis]
	now   func() time.Time
}

// New returns a store holding at most capacity documents.
func New(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.NewWithEvict[string, *model.Analysis](capacity, func(id string, _ *model.Analysis) {
		log.Printf("store: evicted analysis for %s", id)
	})
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache, now: time.Now}, nil
}

// Put replaces the analysis for id with one computed from suggestions.
// Invalid suggestions are dropped before the summary is computed.
func (s *Store) Put(id, contentHash string, suggestions []model.Suggestion) model.Analysis {
	kept := make([]model.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Valid() {
			kept = append(kept, sg)
		}
	}
	a := &model.Analysis{
		DocumentID:  id,
		ContentHash: contentHash,
		Suggestions: kept,
		Summary:     model.Summarize(kept),
		AnalyzedAt:  s.now(),
	}
	// Add replaces the pointer in one step, which is what makes the update
	// atomic for readers.
	s.cache.Add(id, a)
	return a.Clone()
}

// Get returns a copy of the analysis for id.
func (s *Store) Get(id string) (model.Analysis, bool) {
	a, ok := s.cache.Get(id)
	if !ok {
		return model.Analysis{}, false
	}
	return a.Clone(), true
}

// Remove drops the analysis for id, if any.
func (s *Store) Remove(id string) {
	// Remove triggers the eviction callback too; that log line is fine.
	s.cache.Remove(id)
}

// Len reports how many documents currently have an analysis.
func (s *Store) Len() int {
	return s.cache.Len()
}

// IDs lists the stored document IDs, oldest first.
func (s *Store) IDs() []string {
	return s.cache.Keys()
}
