package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/perimeter"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

const advisorSystemPrompt = "You are a financial advisor assistant. " +
	"Answer from the provided reference material when it is available. " +
	"Use the retrieve_documents tool to look up material and the " +
	"portfolio_action tool when the user explicitly asks to trade or " +
	"rebalance. Do not promise returns and do not invent holdings."

// AnthropicModel implements Model over the Anthropic Messages API.
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

// NewAnthropicModel constructs an Anthropic-backed model.
func NewAnthropicModel(apiKey, model string) *AnthropicModel {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicModel{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Generate implements Model. Tool results from earlier turns are folded into
// the prompt; the orchestrator owns the loop and the gates.
func (m *AnthropicModel) Generate(ctx context.Context, req Request) (Turn, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: advisorSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(m.buildPrompt(req))),
		},
		Tools: m.buildTools(req),
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return Turn{}, fmt.Errorf("anthropic generate: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			turn, err := m.parseToolUse(variant)
			if err != nil {
				return Turn{}, err
			}
			return turn, nil
		}
	}

	answer := strings.TrimSpace(text.String())
	if answer == "" {
		return Turn{}, fmt.Errorf("anthropic generate: empty completion")
	}

	containsAdvice := perimeter.ClassifyResponseAdvice(answer)
	return Turn{Response: &domain.FinancialResponse{
		Text:           answer,
		ContainsAdvice: containsAdvice,
		Risk:           perimeter.ClassifyResponseRisk(answer, containsAdvice),
	}}, nil
}

func (m *AnthropicModel) buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("User question: ")
	b.WriteString(req.Query.Text)

	if len(req.Documents) > 0 {
		b.WriteString("\n\nReference material:\n")
		for _, doc := range req.Documents {
			fmt.Fprintf(&b, "- [%s] %s\n", doc.ID, doc.Content)
		}
	}
	if req.ActionOutcome != "" {
		b.WriteString("\n\nPortfolio action result: ")
		b.WriteString(req.ActionOutcome)
	}
	return b.String()
}

// buildTools advertises only tools whose results the request does not yet
// carry, so the model cannot loop on a tool it already used. Retrieval is
// also withdrawn once an action has executed: knowledge access precedes
// actions in the pipeline, and after an action the only forward step is
// response validation.
func (m *AnthropicModel) buildTools(req Request) []anthropic.ToolUnionParam {
	var tools []anthropic.ToolUnionParam

	if req.Documents == nil && req.ActionOutcome == "" {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        ToolRetrieveDocuments,
				Description: anthropic.String("Search the financial knowledge base for reference material."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{
						"query": map[string]any{"type": "string"},
					},
				},
			},
		})
	}

	if req.ActionOutcome == "" {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        ToolPortfolioAction,
				Description: anthropic.String("Request a portfolio action on behalf of the user."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{
						"kind":         map[string]any{"type": "string", "enum": []string{"buy", "sell", "rebalance", "analyze"}},
						"portfolio_id": map[string]any{"type": "string"},
						"value_tier":   map[string]any{"type": "string", "enum": []string{"standard", "premium"}},
					},
				},
			},
		})
	}

	return tools
}

func (m *AnthropicModel) parseToolUse(block anthropic.ToolUseBlock) (Turn, error) {
	switch block.Name {
	case ToolRetrieveDocuments:
		var input struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(block.Input), &input); err != nil {
			return Turn{}, fmt.Errorf("anthropic generate: decode %s input: %w", block.Name, err)
		}
		return Turn{Tool: ToolRetrieveDocuments, SearchQuery: input.Query}, nil

	case ToolPortfolioAction:
		var input struct {
			Kind        string `json:"kind"`
			PortfolioID string `json:"portfolio_id"`
			ValueTier   string `json:"value_tier"`
		}
		if err := json.Unmarshal([]byte(block.Input), &input); err != nil {
			return Turn{}, fmt.Errorf("anthropic generate: decode %s input: %w", block.Name, err)
		}
		tier := domain.ValueTier(input.ValueTier)
		if tier == "" {
			tier = domain.TierStandard
		}
		portfolioID := input.PortfolioID
		if portfolioID == "" {
			portfolioID = "portfolio-main"
		}
		return Turn{Tool: ToolPortfolioAction, Action: &domain.PortfolioAction{
			Kind:        domain.ActionKind(input.Kind),
			PortfolioID: portfolioID,
			Tier:        tier,
		}}, nil

	default:
		return Turn{}, fmt.Errorf("%w: model requested %q", domain.ErrToolNotRegistered, block.Name)
	}
}
