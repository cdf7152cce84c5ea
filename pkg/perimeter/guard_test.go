package perimeter

import (
	"context"
	"sync"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/pdp"
)

// fakeClient records every check and answers through a decide function.
type fakeClient struct {
	mu       sync.Mutex
	requests []pdp.CheckRequest
	decide   func(pdp.CheckRequest) (domain.PermissionDecision, error)
}

func allowAll() *fakeClient {
	return &fakeClient{decide: func(pdp.CheckRequest) (domain.PermissionDecision, error) {
		return domain.Allow("allowed by policy", nil), nil
	}}
}

func denyAll(reason string) *fakeClient {
	return &fakeClient{decide: func(pdp.CheckRequest) (domain.PermissionDecision, error) {
		return domain.Deny(reason, nil), nil
	}}
}

func (f *fakeClient) Check(_ context.Context, req pdp.CheckRequest) (domain.PermissionDecision, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.decide(req)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeClient) recorded() []pdp.CheckRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pdp.CheckRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func optedInUser() domain.UserContext {
	return domain.NewUserContext("user@example.com", "premium_user", true, domain.ClearanceElevated, nil)
}

func optedOutUser() domain.UserContext {
	return domain.NewUserContext("restricted@example.com", "restricted_user", false, domain.ClearanceStandard, nil)
}
