package perimeter

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/pdp"
	"github.com/fingate-ai/fingate/pkg/telemetry"
)

// Perimeter names identify the four gates in logs and metrics.
const (
	PerimeterPrompt   = "prompt_filter"
	PerimeterData     = "data_protection"
	PerimeterAction   = "external_access"
	PerimeterResponse = "response_enforcement"
)

// Denial reasons produced locally, without a decision point round trip.
const (
	ReasonOptInRequired = "ai_advice_opt_in_required"
)

// Disclaimer is the canonical compliance text appended to advice-bearing
// responses. Appended at most once per response.
const Disclaimer = "IMPORTANT DISCLAIMER: This is AI-generated financial advice. " +
	"This information is for educational purposes only and should not be " +
	"considered as professional financial advice. Always consult with a " +
	"qualified financial advisor before making investment decisions."

// RefusalMessage replaces response content when response enforcement denies.
// The original draft must never reach the caller.
const RefusalMessage = "I'm unable to provide this response. Your account is not " +
	"authorized to receive AI-generated financial advice."

// Guard implements the four perimeter gates over a shared decision-point
// client. Guard holds no per-request state and is safe for concurrent use.
type Guard struct {
	client  pdp.Client
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewGuard constructs a Guard. metrics may be nil.
func NewGuard(client pdp.Client, logger *slog.Logger, metrics *telemetry.Metrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{client: client, logger: logger, metrics: metrics}
}

// observe records and logs one decision for a perimeter.
func (g *Guard) observe(perimeter string, decision domain.PermissionDecision, err error, start time.Time) {
	failClosed := err != nil && errors.Is(err, domain.ErrPolicyUnavailable)
	g.metrics.RecordCheck(perimeter, decision.Allowed, failClosed, time.Since(start))

	switch {
	case failClosed:
		g.logger.Warn("perimeter check failed closed",
			"perimeter", perimeter, "reason", decision.Reason, "error", err)
	case decision.Allowed:
		g.logger.Debug("perimeter check allowed", "perimeter", perimeter)
	default:
		g.logger.Info("perimeter check denied",
			"perimeter", perimeter, "reason", decision.Reason)
	}
}
