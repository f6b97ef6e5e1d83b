package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/core"
)

var ErrNoRuleMatch = fmt.Errorf("no matching rule found for this access request")

// Rule auto-approves access requests that match it. Rules are evaluated in
// order; the first match wins.
type Rule struct {
	// Name is a human-readable identifier for logs/auditing.
	Name string `yaml:"name"`

	// Description explains the intent of the rule.
	Description string `yaml:"description"`

	// GroupID restricts the rule to requests targeting this group.
	// Empty matches any group.
	GroupID string `yaml:"group_id"`

	// Expr is an optional expression over the request for more complex
	// matching, e.g. `request.group_name startsWith "Vendors"`.
	Expr string `yaml:"expr"`

	// CompiledExpr holds the pre-compiled form of Expr.
	CompiledExpr *vm.Program `yaml:"-"`

	// AutoApprove causes a matching request to be approved immediately at
	// creation, skipping the admin queue.
	AutoApprove bool `yaml:"auto_approve"`
}

// Compile pre-compiles rule expressions and rejects invalid ones.
func Compile(rules []Rule) ([]Rule, error) {
	compiled := make([]Rule, len(rules))
	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule at index %d has empty name", i)
		}
		compiled[i] = rule
		if rule.Expr == "" {
			continue
		}
		prog, err := expr.Compile(rule.Expr, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compiling expression for rule %q: %w", rule.Name, err)
		}
		compiled[i].CompiledExpr = prog
	}
	return compiled, nil
}

// Engine holds the loaded rules and evaluates them.
type Engine struct {
	rules []Rule
}

func New(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Evaluate returns the first rule matching the request, or ErrNoRuleMatch.
func (e *Engine) Evaluate(req core.AccessRequest) (*Rule, error) {
	for _, rule := range e.rules {
		if matches(rule, req) {
			r := rule
			return &r, nil
		}
	}
	return nil, ErrNoRuleMatch
}

func matches(rule Rule, req core.AccessRequest) bool {
	if rule.GroupID != "" && rule.GroupID != req.GroupID {
		return false
	}
	if rule.CompiledExpr != nil {
		out, err := expr.Run(rule.CompiledExpr, map[string]any{
			"request": map[string]any{
				"user_id":    req.UserID,
				"first_name": req.FirstName,
				"last_name":  req.LastName,
				"group_id":   req.GroupID,
				"group_name": req.GroupName,
			},
		})
		if err != nil {
			log.Warn().Err(err).Msgf("error evaluating expression for rule '%s'", rule.Name)
			return false
		}
		ok, isBool := out.(bool)
		if !isBool || !ok {
			return false
		}
	}
	return true
}
