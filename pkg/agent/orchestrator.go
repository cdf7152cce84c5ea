package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/knowledge"
	"github.com/fingate-ai/fingate/pkg/perimeter"
	"github.com/fingate-ai/fingate/pkg/telemetry"
)

// maxModelTurns bounds the generation loop. Two tool calls plus a final
// response fits in three turns; the fourth absorbs one model retry.
const maxModelTurns = 4

// Result is the terminal outcome of one pipeline run. State is always
// StateDelivered or StateRejected; Response is set in both cases, carrying
// the refusal text when a response-stage denial replaced the draft.
type Result struct {
	RequestID     string
	State         State
	Response      domain.FinancialResponse
	RejectedBy    string
	RefusalReason string
}

// Orchestrator runs the advisory pipeline: prompt gate, model loop with
// gated tools, response gate. Safe for concurrent use.
type Orchestrator struct {
	model   Model
	guard   *perimeter.Guard
	tools   *toolset
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// NewOrchestrator wires the pipeline. metrics may be nil; executor defaults
// to the simulated one.
func NewOrchestrator(model Model, guard *perimeter.Guard, store knowledge.Store, executor ActionExecutor, logger *slog.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if executor == nil {
		executor = SimulatedExecutor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		model:   model,
		guard:   guard,
		tools:   newToolset(guard, store, executor),
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("fingate/agent"),
	}
}

// Run processes one user query end to end. A gate denial is not an error:
// the returned Result records which perimeter rejected and why. An error
// return means the request could not be processed at all.
func (o *Orchestrator) Run(ctx context.Context, user domain.UserContext, rawQuery string) (Result, error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("user.role", user.Role),
	))
	defer span.End()

	logger := o.logger.With("request_id", requestID, "user_id", user.ID)
	state := StateQueryReceived

	query, decision, err := o.guard.PromptFilter(ctx, user, rawQuery)
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed {
		return o.reject(span, logger, requestID, state, perimeter.PerimeterPrompt, decision, domain.FinancialResponse{
			Text: perimeter.RefusalMessage,
		}, start)
	}
	if state, err = transition(state, StatePromptValidated); err != nil {
		return Result{}, err
	}
	span.AddEvent("prompt validated", trace.WithAttributes(
		attribute.String("query.intent", string(query.Intent)),
	))

	req := Request{User: user, Query: query}
	for turns := 0; turns < maxModelTurns; turns++ {
		turn, err := o.model.Generate(ctx, req)
		if err != nil {
			return Result{}, fmt.Errorf("model turn %d: %w", turns+1, err)
		}

		if turn.Tool != "" {
			outcome, err := o.tools.handle(ctx, &req, turn)
			if err != nil {
				return Result{}, err
			}
			if outcome.denied {
				return o.reject(span, logger, requestID, state, outcome.perimeter, outcome.denial, domain.FinancialResponse{
					Text: perimeter.RefusalMessage,
				}, start)
			}
			if state, err = transition(state, outcome.next); err != nil {
				return Result{}, err
			}
			span.AddEvent("tool executed", trace.WithAttributes(
				attribute.String("tool", turn.Tool),
			))
			continue
		}

		if turn.Response == nil {
			return Result{}, fmt.Errorf("%w: model turn carries neither tool nor response", domain.ErrValidation)
		}

		decision, final, err := o.guard.ResponseEnforcement(ctx, user, *turn.Response)
		if err != nil {
			return Result{}, err
		}
		if state, err = transition(state, StateResponseChecked); err != nil {
			return Result{}, err
		}
		if !decision.Allowed {
			return o.reject(span, logger, requestID, state, perimeter.PerimeterResponse, decision, final, start)
		}

		if state, err = transition(state, StateDelivered); err != nil {
			return Result{}, err
		}
		o.metrics.RecordPipeline("delivered", "", time.Since(start))
		logger.Info("pipeline delivered",
			"state", state,
			"contains_advice", final.ContainsAdvice,
			"risk", final.Risk,
			"duration", time.Since(start))
		return Result{RequestID: requestID, State: state, Response: final}, nil
	}

	return Result{}, fmt.Errorf("model exceeded %d turns without a final response", maxModelTurns)
}

// reject terminates the run at the named perimeter. The denial reason is the
// only detail surfaced to the caller; the draft response never is.
func (o *Orchestrator) reject(span trace.Span, logger *slog.Logger, requestID string, state State, by string, decision domain.PermissionDecision, response domain.FinancialResponse, start time.Time) (Result, error) {
	state, err := transition(state, StateRejected)
	if err != nil {
		return Result{}, err
	}

	span.AddEvent("pipeline rejected", trace.WithAttributes(
		attribute.String("perimeter", by),
		attribute.String("reason", decision.Reason),
	))
	o.metrics.RecordPipeline("rejected", by, time.Since(start))
	logger.Info("pipeline rejected",
		"perimeter", by,
		"reason", decision.Reason,
		"duration", time.Since(start))

	return Result{
		RequestID:     requestID,
		State:         state,
		Response:      response,
		RejectedBy:    by,
		RefusalReason: decision.Reason,
	}, nil
}
