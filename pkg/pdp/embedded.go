package pdp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/ast"
	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/rego"

	"github.com/fingate-ai/fingate/pkg/domain"
)

const defaultEntrypoint = "fingate/authz/decision"

// EmbeddedOptions control embedded engine construction.
type EmbeddedOptions struct {
	// Entrypoint is the policy decision path (e.g. "fingate/authz/decision").
	Entrypoint string
	// Modules contains the Rego modules loaded into the engine. When empty,
	// DefaultModules (the provisioned vocabulary) is used.
	Modules map[string]string
}

// EmbeddedEngine is an in-process decision point backed by OPA. It serves
// local development and tests through the same Client interface as the
// remote decision point. Decisions are evaluated fresh on every call; there
// is deliberately no decision cache, because each gate call must be an
// independent evaluation.
type EmbeddedEngine struct {
	entrypoint string

	mu            sync.RWMutex
	modules       map[string]string
	moduleOrder   []string
	parsedModules map[string]*ast.Module
	prepared      *rego.PreparedEvalQuery
}

// NewEmbeddedEngine constructs an embedded engine for the supplied options.
func NewEmbeddedEngine(ctx context.Context, opts EmbeddedOptions) (*EmbeddedEngine, error) {
	entry := strings.TrimSpace(opts.Entrypoint)
	if entry == "" {
		entry = defaultEntrypoint
	}

	modules := opts.Modules
	if len(modules) == 0 {
		modules = DefaultModules()
	}

	engine := &EmbeddedEngine{entrypoint: entry}
	if err := engine.Reload(ctx, modules); err != nil {
		return nil, err
	}
	return engine, nil
}

// Reload swaps the loaded modules, compiling before the swap so a broken
// policy file never replaces a working one.
func (e *EmbeddedEngine) Reload(ctx context.Context, modules map[string]string) error {
	if len(modules) == 0 {
		return errors.New("embedded engine requires at least one rego module")
	}

	moduleCopy := make(map[string]string, len(modules))
	moduleOrder := make([]string, 0, len(modules))
	for name, src := range modules {
		moduleCopy[name] = src
		moduleOrder = append(moduleOrder, name)
	}
	sort.Strings(moduleOrder)

	parsedModules := make(map[string]*ast.Module, len(moduleCopy))
	for _, name := range moduleOrder {
		module, err := ast.ParseModuleWithOpts(name, moduleCopy[name], ast.ParserOptions{RegoVersion: ast.RegoV1})
		if err != nil {
			return fmt.Errorf("parse rego module %q: %w", name, err)
		}
		parsedModules[name] = module
	}

	query := "data." + strings.ReplaceAll(e.entrypoint, "/", ".")
	regoOpts := make([]func(*rego.Rego), 0, len(moduleOrder)+1)
	regoOpts = append(regoOpts, rego.Query(query))
	for _, name := range moduleOrder {
		regoOpts = append(regoOpts, rego.ParsedModule(parsedModules[name]))
	}

	prepared, err := rego.New(regoOpts...).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("compile rego modules: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.modules = moduleCopy
	e.moduleOrder = moduleOrder
	e.parsedModules = parsedModules
	e.prepared = &prepared
	return nil
}

// Check implements Client by evaluating the loaded modules. The input
// document mirrors the remote wire contract so policies are portable between
// the embedded engine and a real decision point.
func (e *EmbeddedEngine) Check(ctx context.Context, req CheckRequest) (domain.PermissionDecision, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		return failClosed(req), fmt.Errorf("%w: embedded engine has no compiled policy", domain.ErrPolicyUnavailable)
	}

	input := map[string]any{
		"subject": map[string]any{
			"id":                 req.Subject.ID,
			"role":               req.Subject.Role,
			"clearance_level":    string(req.Subject.Clearance),
			"ai_advice_opted_in": req.Subject.OptedInForAIAdvice,
		},
		"action":              req.Action,
		"resource_type":       req.ResourceType,
		"resource_attributes": stringMapToAny(req.ResourceAttributes),
		"context_attributes":  stringMapToAny(req.ContextAttributes),
	}

	results, err := prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return failClosed(req), fmt.Errorf("%w: opa decision: %v", domain.ErrPolicyUnavailable, err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// Undefined decision: fail closed, same as an unreachable service.
		return failClosed(req), fmt.Errorf("%w: opa decision undefined for entrypoint %s", domain.ErrPolicyUnavailable, e.entrypoint)
	}

	payload, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return failClosed(req), fmt.Errorf("%w: opa decision: unexpected result type %T", domain.ErrPolicyUnavailable, results[0].Expressions[0].Value)
	}

	allowed, _ := payload["allowed"].(bool)
	reason, _ := payload["reason"].(string)
	if reason == "" {
		if allowed {
			reason = "allowed by policy"
		} else {
			reason = "denied by policy"
		}
	}

	return domain.PermissionDecision{
		Allowed:             allowed,
		Reason:              reason,
		AttributesEvaluated: evaluatedAttributes(req),
	}, nil
}

// Modules returns a copy of the currently loaded module sources.
func (e *EmbeddedEngine) Modules() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.modules))
	for name, src := range e.modules {
		out[name] = src
	}
	return out
}

func stringMapToAny(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
