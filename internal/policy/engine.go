// Package policy guards inbound requests with an OPA policy before they reach
// the dispatcher.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA request guard.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.request_policy.decision"),
		rego.Module("request_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the request policy. Input is a map with keys such as type,
// query, prompt, and content. Returns "allow" or "deny".
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means it did not load.
		return "allow", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "allow", nil
}

// DefaultPolicy bounds untrusted request payloads. Oversized prompts would
// otherwise be forwarded to the oracles verbatim.
const DefaultPolicy = `
package request_policy

default decision = "allow"

decision = "deny" {
	count(input.query) > 500
}

decision = "deny" {
	count(input.prompt) > 2000
}

decision = "deny" {
	count(input.content) > 2000
}
`
