// Package provision pushes the access-control vocabulary to the policy
// decision point's admin API. Provisioning is idempotent: an object that
// already exists is skipped, not an error.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fingate-ai/fingate/pkg/domain"
)

const defaultRequestTimeout = 10 * time.Second

// Provisioner writes a Vocabulary to a decision point admin API.
type Provisioner struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewProvisioner constructs a Provisioner. The admin token is required:
// provisioning against an unauthenticated endpoint is refused outright.
func NewProvisioner(endpoint, token string, logger *slog.Logger) (*Provisioner, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: set FINGATE_PDP_TOKEN", domain.ErrMissingCredential)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		logger:   logger,
	}, nil
}

// Apply pushes every object in the vocabulary, in dependency order:
// resources and user attributes first, then roles, condition sets, rules,
// and finally example users.
func (p *Provisioner) Apply(ctx context.Context, vocab Vocabulary) error {
	for _, resource := range vocab.Resources {
		if err := p.post(ctx, "/admin/resources", resource, "resource "+resource.Key); err != nil {
			return err
		}
	}

	for key, attr := range vocab.UserAttributes {
		payload := struct {
			Key string `json:"key"`
			Attribute
		}{Key: key, Attribute: attr}
		if err := p.post(ctx, "/admin/user-attributes", payload, "user attribute "+key); err != nil {
			return err
		}
	}

	for _, role := range vocab.Roles {
		if err := p.post(ctx, "/admin/roles", role, "role "+role.Key); err != nil {
			return err
		}
	}

	for _, set := range vocab.ConditionSets {
		if err := p.post(ctx, "/admin/condition-sets", set, "condition set "+set.Key); err != nil {
			return err
		}
	}

	for _, rule := range vocab.ConditionSetRules {
		name := fmt.Sprintf("rule %s->%s", rule.UserSet, rule.Permission)
		if err := p.post(ctx, "/admin/condition-set-rules", rule, name); err != nil {
			return err
		}
	}

	for _, user := range vocab.ExampleUsers {
		if err := p.post(ctx, "/admin/users", user, "user "+user.Key); err != nil {
			return err
		}
	}

	p.logger.Info("vocabulary provisioned", "endpoint", p.endpoint)
	return nil
}

func (p *Provisioner) post(ctx context.Context, path string, payload any, name string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provision %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		p.logger.Debug("provisioned", "object", name)
		return nil
	case resp.StatusCode == http.StatusConflict:
		p.logger.Debug("already provisioned", "object", name)
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provision %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}
