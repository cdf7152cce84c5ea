package perimeter

import (
	"context"
	"sync"
	"time"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/pdp"
)

// DataProtection filters candidate documents down to those the user may
// read. One check is issued per document, dispatched concurrently so latency
// is bounded by the slowest single check rather than the sum. The returned
// slice is always a subset of the input preserving input order; a check that
// fails closed drops its document like any other denial.
//
// The decisions slice is parallel to the input so callers can explain every
// drop.
func (g *Guard) DataProtection(ctx context.Context, user domain.UserContext, candidates []domain.FinancialDocument) ([]domain.FinancialDocument, []domain.PermissionDecision, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	start := time.Now()
	decisions := make([]domain.PermissionDecision, len(candidates))

	var wg sync.WaitGroup
	for i, doc := range candidates {
		wg.Add(1)
		go func(idx int, doc domain.FinancialDocument) {
			defer wg.Done()
			checkStart := time.Now()
			decision, err := g.client.Check(ctx, pdp.CheckRequest{
				Subject:      user,
				Action:       "read",
				ResourceType: "financial_document",
				ResourceAttributes: map[string]string{
					"document_id":    doc.ID,
					"doc_type":       doc.Type,
					"classification": string(doc.Classification),
				},
			})
			g.observe(PerimeterData, decision, err, checkStart)
			decisions[idx] = decision
		}(i, doc)
	}
	wg.Wait()

	allowed := make([]domain.FinancialDocument, 0, len(candidates))
	for i, doc := range candidates {
		if decisions[i].Allowed {
			allowed = append(allowed, doc)
		}
	}

	g.metrics.RecordDocuments(len(allowed), len(candidates)-len(allowed))
	g.logger.Debug("data protection filtered documents",
		"candidates", len(candidates),
		"retained", len(allowed),
		"duration", time.Since(start))

	return allowed, decisions, nil
}
