// Package knowledge provides document retrieval for the advisor pipeline.
// The store only surfaces candidate documents; the data-protection perimeter
// decides which of them the agent may actually read.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// Store exposes read operations over the document set.
type Store interface {
	// Search returns candidate documents matching the query, in stable
	// insertion order. Matching is deliberately naive; retrieval quality is
	// not this system's concern.
	Search(ctx context.Context, query string) ([]domain.FinancialDocument, error)
	// Get retrieves a single document by ID.
	Get(ctx context.Context, id string) (domain.FinancialDocument, error)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []domain.FinancialDocument
}

// NewMemoryStore creates a store holding the supplied documents.
func NewMemoryStore(docs []domain.FinancialDocument) *MemoryStore {
	copied := append([]domain.FinancialDocument(nil), docs...)
	return &MemoryStore{docs: copied}
}

// NewSeededStore creates a store preloaded with the development document set.
func NewSeededStore() *MemoryStore {
	return NewMemoryStore(seedDocuments())
}

// Search implements Store. A document matches when any query term appears in
// its type or content.
func (s *MemoryStore) Search(_ context.Context, query string) ([]domain.FinancialDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return append([]domain.FinancialDocument(nil), s.docs...), nil
	}

	var matched []domain.FinancialDocument
	for _, doc := range s.docs {
		haystack := strings.ToLower(doc.Type + " " + doc.Content)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched = append(matched, doc)
				break
			}
		}
	}
	return matched, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (domain.FinancialDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return domain.FinancialDocument{}, fmt.Errorf("document not found: %s", id)
}

// Replace swaps the document set, used by config reload.
func (s *MemoryStore) Replace(docs []domain.FinancialDocument) {
	copied := append([]domain.FinancialDocument(nil), docs...)
	s.mu.Lock()
	s.docs = copied
	s.mu.Unlock()
}

func seedDocuments() []domain.FinancialDocument {
	return []domain.FinancialDocument{
		{
			ID:             "doc-001",
			Type:           "educational",
			Classification: domain.ClassificationPublic,
			Content:        "Diversification spreads investment risk across asset classes such as stocks, bonds, and cash equivalents.",
		},
		{
			ID:             "doc-002",
			Type:           "educational",
			Classification: domain.ClassificationPublic,
			Content:        "Index funds track a market benchmark and typically carry lower fees than actively managed funds.",
		},
		{
			ID:             "doc-003",
			Type:           "research",
			Classification: domain.ClassificationConfidential,
			Content:        "Internal research: projected sector rotation suggests overweighting energy stocks next quarter.",
		},
		{
			ID:             "doc-004",
			Type:           "strategy",
			Classification: domain.ClassificationConfidential,
			Content:        "Model portfolio allocation strategy for premium clients, including rebalance thresholds.",
		},
	}
}
