// Package conditions evaluates condition groups against trigger payloads.
package conditions

import (
	"strings"
	"sync"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/protocol"
	"github.com/dukex/autoflow/pkg/template"
)

// Descriptor is the read-only view of a registered condition type.
type Descriptor struct {
	Slug      string              `json:"slug"`
	Label     string              `json:"label"`
	Operators []protocol.Operator `json:"operators"`
}

// Evaluator holds the registered condition types keyed by slug.
type Evaluator struct {
	mu         sync.RWMutex
	conditions map[string]protocol.Condition
	order      []string
}

func NewEvaluator(conditions ...protocol.Condition) *Evaluator {
	e := &Evaluator{conditions: make(map[string]protocol.Condition)}

	for _, condition := range conditions {
		e.Register(condition)
	}

	return e
}

// Defaults returns the built-in condition types.
func Defaults() []protocol.Condition {
	return []protocol.Condition{StringCondition{}, NumericCondition{}}
}

// Register adds a condition type. Registering an existing slug replaces it.
func (e *Evaluator) Register(condition protocol.Condition) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slug := condition.Slug()
	if _, exists := e.conditions[slug]; !exists {
		e.order = append(e.order, slug)
	}

	e.conditions[slug] = condition
}

func (e *Evaluator) Get(slug string) (protocol.Condition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	condition, ok := e.conditions[slug]

	return condition, ok
}

// Descriptors lists the registered condition types in registration order.
func (e *Evaluator) Descriptors() []Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(e.order))
	for _, slug := range e.order {
		condition := e.conditions[slug]
		descriptors = append(descriptors, Descriptor{
			Slug:      condition.Slug(),
			Label:     condition.Label(),
			Operators: condition.Operators(),
		})
	}

	return descriptors
}

// Evaluate reports whether the payload satisfies the group. Groups without rules
// match unconditionally; any logic other than OR is treated as AND.
func (e *Evaluator) Evaluate(group models.ConditionGroup, payload map[string]any) bool {
	if len(group.Rules) == 0 {
		return true
	}

	isOr := models.Logic(strings.ToUpper(string(group.Logic))) == models.LogicOr

	for _, node := range group.Rules {
		var result bool

		switch {
		case node.Group != nil:
			result = e.Evaluate(*node.Group, payload)
		case node.Rule != nil:
			result = e.EvaluateRule(*node.Rule, payload)
		}

		if !isOr && !result {
			return false
		}

		if isOr && result {
			return true
		}
	}

	return !isOr
}

// EvaluateRule resolves the rule field and delegates to its condition type.
// Unknown condition types and fields missing from the payload never match,
// whatever the operator.
func (e *Evaluator) EvaluateRule(rule models.Rule, payload map[string]any) bool {
	condition, ok := e.Get(rule.Type)
	if !ok {
		return false
	}

	actual, ok := template.Resolve(payload, rule.Field)
	if !ok {
		return false
	}

	return condition.Evaluate(actual, rule.Operator, rule.Value)
}
